package messaging

import (
	"context"
	"sync"

	"github.com/carcompare/compare-webserver/internal/models"
)

/*
This file serves as a way for imported car records to be sent to a bunch of workers working asynchronously.
After those async workers complete, they can send a result back. Publisher doesn't do anything with those. It just collects them.
Performing operations on those results is up to the code using the publisher.
*/

const (
	INIT = "INIT_MESSAGE"
	CAR  = "CAR_MESSAGE"
	EOF  = "EOF_MESSAGE"
)

// RecordMessage is one unit of an import stream. Car is set for CAR messages only.
type RecordMessage struct {
	Topic string
	Line  int
	Car   *models.CarModel
	Data  map[string]interface{}
}

type SubscribedMessage struct {
	content *RecordMessage
}

func (sm *SubscribedMessage) GetContent() *RecordMessage {
	return sm.content
}

type SubscriberResults map[string]SubscriberResult

type Publisher struct {
	subscribers  map[string]chan SubscribedMessage
	results_chan chan SubscriberResult
	end_results  SubscriberResults
	mutex        sync.Mutex
	wg           sync.WaitGroup
	resultsWg    sync.WaitGroup
}

type SubscriberResult struct {
	SubscriberID   int
	SubscriberName string
	ResultData     map[string]interface{}
}

func NewPublisher(enableResultsListener bool) *Publisher {
	var results_chan chan SubscriberResult = nil
	if enableResultsListener {
		results_chan = make(chan SubscriberResult)
	}

	publisher := &Publisher{
		subscribers:  make(map[string]chan SubscribedMessage),
		results_chan: results_chan,
		end_results:  make(SubscriberResults),
	}

	if enableResultsListener {
		publisher.initCollectResults()
	}

	return publisher
}

// Subscribe adds a new subscriber channel to the publisher
func (p *Publisher) Subscribe(id int, subscriberName string, subFunc SubscriberFunc) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	channel := make(chan SubscribedMessage)
	p.subscribers[subscriberName] = channel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		subFunc(id, subscriberName, channel, p.results_chan)
	}()
}

// Publishes a new message to all subscribers in subscriberNames. Returns early with
// the context error when ctx is cancelled before every subscriber took the message.
func (p *Publisher) Publish(ctx context.Context, message *RecordMessage, subscriberNames []string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	subscriberMessage := SubscribedMessage{
		content: message,
	}

	for _, sub := range subscriberNames {
		if ch, ok := p.subscribers[sub]; ok {
			select {
			case ch <- subscriberMessage:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (p *Publisher) initCollectResults() {
	p.resultsWg.Add(1)

	go func() {
		defer p.resultsWg.Done()
		p.collectResults(p.results_chan)
	}()
}

// Closes all subscriber channels
func (p *Publisher) CloseAllSubscribers() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for name, ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, name)
	}
}

// Waits for all the subscribers to close and closes the results channel
func (p *Publisher) WaitForClosure() {
	p.wg.Wait()

	// We don't close the results channel in CloseAllSubscribers because the subscribers return results when closed. We need to wait for those results to come in.
	if p.results_chan != nil {
		close(p.results_chan)
		p.resultsWg.Wait()
	}
}

func (p *Publisher) collectResults(results_chan <-chan SubscriberResult) {
	for msg := range results_chan {
		p.mutex.Lock()
		p.end_results[msg.SubscriberName] = msg
		p.mutex.Unlock()
	}
}

func (p *Publisher) Results() SubscriberResults {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.end_results
}
