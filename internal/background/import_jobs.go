package background

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/carcompare/compare-webserver/internal/logging"
	"github.com/carcompare/compare-webserver/internal/messaging"
	"github.com/carcompare/compare-webserver/internal/utils"
)

const (
	persistSubscriber = "persist"
	summarySubscriber = "summary"
)

// CarImportProcessor reads a bulk car file and fans every record out to the
// persist and summary subscribers.
type CarImportProcessor struct {
	creator messaging.CarCreator
}

func NewCarImportProcessor(creator messaging.CarCreator) *CarImportProcessor {
	return &CarImportProcessor{creator: creator}
}

// Process stores the result map on the job:
//
//	records, created, failed (int), brands (map[string]int), errors ([]string)
func (p *CarImportProcessor) Process(ctx context.Context, fp *FileProcessor, job *FileJob) error {
	file, err := os.Open(job.FilePath)
	if err != nil {
		return fmt.Errorf("could not open file %v, received error %v", job.Filename, err)
	}
	defer file.Close()

	reader, err := utils.NewCarRecordReader(file)
	if err != nil {
		return fmt.Errorf("could not create car record reader: %w", err)
	}

	// This is all the subscribers relevant to an import. You can attach more workers here if need be.
	subscriberMapping := map[string]messaging.SubscriberFunc{
		persistSubscriber: messaging.PersistCars(ctx, p.creator),
		summarySubscriber: messaging.SummarizeBrands,
	}

	publisher := messaging.NewPublisher(true)
	subscriberNames := make([]string, 0, len(subscriberMapping))
	idx := 0
	for subscriberName, function := range subscriberMapping {
		subscriberNames = append(subscriberNames, subscriberName)
		publisher.Subscribe(idx+1, subscriberName, function)
		idx++
	}

	decodeErrors := make([]string, 0)
	readErr := p.publishRecords(ctx, reader, publisher, subscriberNames, &decodeErrors)

	// Need to make sure to close the subscribers or our code will hang and wait forever
	publisher.CloseAllSubscribers()
	publisher.WaitForClosure()

	result := buildImportResult(publisher.Results(), decodeErrors)
	fp.SetJobResult(job, result)
	logging.GetLogger().Info(fmt.Sprintf("All subscribers finished for job %v: %d created, %d failed", job.ID, result["created"], result["failed"]))

	return readErr
}

func (p *CarImportProcessor) publishRecords(
	ctx context.Context,
	reader *utils.CarRecordReader,
	publisher *messaging.Publisher,
	subscriberNames []string,
	decodeErrors *[]string,
) error {
	initMessage := &messaging.RecordMessage{Topic: messaging.INIT}
	if err := publisher.Publish(ctx, initMessage, subscriberNames); err != nil {
		return err
	}

	for {
		line, car, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		var recordErr *utils.RecordError
		if errors.As(err, &recordErr) {
			*decodeErrors = append(*decodeErrors, recordErr.Error())
			continue
		}

		if err != nil {
			// Still let the subscribers report what they stored so far
			publisher.Publish(ctx, &messaging.RecordMessage{Topic: messaging.EOF}, subscriberNames)
			return fmt.Errorf("error reading import file: %w", err)
		}

		message := &messaging.RecordMessage{Topic: messaging.CAR, Line: line, Car: car}
		if err := publisher.Publish(ctx, message, subscriberNames); err != nil {
			return err
		}
	}

	return publisher.Publish(ctx, &messaging.RecordMessage{Topic: messaging.EOF}, subscriberNames)
}

func buildImportResult(results messaging.SubscriberResults, decodeErrors []string) map[string]interface{} {
	created, failed, records := 0, len(decodeErrors), len(decodeErrors)
	errs := append([]string{}, decodeErrors...)
	brands := map[string]int{}

	if persist, ok := results[persistSubscriber]; ok {
		created, _ = persist.ResultData["created"].(int)
		persistFailed, _ := persist.ResultData["failed"].(int)
		failed += persistFailed
		if persistErrs, ok := persist.ResultData["errors"].([]string); ok {
			errs = append(errs, persistErrs...)
		}
	}

	if summary, ok := results[summarySubscriber]; ok {
		summaryRecords, _ := summary.ResultData["records"].(int)
		records += summaryRecords
		if counted, ok := summary.ResultData["brands"].(map[string]int); ok {
			brands = counted
		}
	}

	return map[string]interface{}{
		"records": records,
		"created": created,
		"failed":  failed,
		"brands":  brands,
		"errors":  errs,
	}
}
