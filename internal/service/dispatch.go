package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tsirk/internal/logger"
	"tsirk/internal/models"
)

// Dispatcher decouples webhook acknowledgement from fulfillment. The
// webhook handler returns as soon as Dispatch accepts the event; a
// Dispatch error makes the handler fail so the provider redelivers.
type Dispatcher interface {
	Dispatch(evt *models.CheckoutCompletedEvent) error
}

// LocalDispatcher runs fulfillment on an in-process worker pool, for
// single-binary deployments. Events queued here do not survive a
// restart; the provider's webhook retries cover that window.
type LocalDispatcher struct {
	fulfillment *FulfillmentService
	queue       chan *models.CheckoutCompletedEvent
	timeout     time.Duration
	wg          sync.WaitGroup
}

func NewLocalDispatcher(fulfillment *FulfillmentService, workers, buffer int) *LocalDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 16
	}

	d := &LocalDispatcher{
		fulfillment: fulfillment,
		queue:       make(chan *models.CheckoutCompletedEvent, buffer),
		timeout:     2 * time.Minute,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

func (d *LocalDispatcher) Dispatch(evt *models.CheckoutCompletedEvent) error {
	select {
	case d.queue <- evt:
		return nil
	default:
		return fmt.Errorf("fulfillment queue is full")
	}
}

// Stop drains the queue and waits for in-flight fulfillments.
func (d *LocalDispatcher) Stop() {
	close(d.queue)
	d.wg.Wait()
}

func (d *LocalDispatcher) worker() {
	defer d.wg.Done()

	for evt := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.fulfillment.Process(ctx, evt); err != nil {
			logger.Get().Error("Fulfillment failed", "session_ref", evt.SessionRef, "error", err)
		}
		cancel()
	}
}

// NATSDispatcher publishes completion events for the consumers binary,
// which fulfills with durable at-least-once delivery.
type NATSDispatcher struct {
	publisher EventPublisher
}

func NewNATSDispatcher(publisher EventPublisher) *NATSDispatcher {
	return &NATSDispatcher{publisher: publisher}
}

func (d *NATSDispatcher) Dispatch(evt *models.CheckoutCompletedEvent) error {
	return d.publisher.Publish(models.SubjectCheckoutCompleted, evt)
}
