package messaging

import (
	"context"
	"fmt"

	"github.com/carcompare/compare-webserver/internal/models"
)

// Subscriber function type. Results may be nil when the publisher does not collect them.
type SubscriberFunc func(id int, subscriberName string, ch <-chan SubscribedMessage, results chan<- SubscriberResult)

// CarCreator stores one imported car
type CarCreator interface {
	CreateCar(ctx context.Context, car *models.CarModel) (*models.CarModel, error)
}

// PersistCars returns a subscriber that stores every CAR message through creator.
// Its result holds "created" (int), "failed" (int) and "errors" ([]string).
func PersistCars(ctx context.Context, creator CarCreator) SubscriberFunc {
	return func(id int, subscriberName string, ch <-chan SubscribedMessage, results chan<- SubscriberResult) {
		created := 0
		failed := 0
		errs := make([]string, 0)

		for msg := range ch {
			content := msg.GetContent()
			if content.Topic == EOF {
				break
			}
			if content.Topic != CAR || content.Car == nil {
				continue
			}

			if _, err := creator.CreateCar(ctx, content.Car); err != nil {
				failed++
				errs = append(errs, fmt.Sprintf("record %d: %v", content.Line, err))
				continue
			}
			created++
		}

		sendResult(results, id, subscriberName, map[string]interface{}{
			"created": created,
			"failed":  failed,
			"errors":  errs,
		})
	}
}

// SummarizeBrands counts the cars seen per brand. Its result holds "records" (int) and "brands" (map[string]int).
func SummarizeBrands(id int, subscriberName string, ch <-chan SubscribedMessage, results chan<- SubscriberResult) {
	records := 0
	brands := make(map[string]int)

	for msg := range ch {
		content := msg.GetContent()
		if content.Topic == EOF {
			break
		}
		if content.Topic != CAR || content.Car == nil {
			continue
		}

		records++
		brands[content.Car.Brand]++
	}

	sendResult(results, id, subscriberName, map[string]interface{}{
		"records": records,
		"brands":  brands,
	})
}

func sendResult(results chan<- SubscriberResult, id int, subscriberName string, data map[string]interface{}) {
	if results == nil {
		return
	}
	results <- SubscriberResult{
		SubscriberID:   id,
		SubscriberName: subscriberName,
		ResultData:     data,
	}
}
