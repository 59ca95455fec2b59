package models

import "time"

// NATS subjects
const (
	SubjectCheckoutCompleted = "checkout.completed"
	SubjectOrderFulfilled    = "order.fulfilled"
)

// CheckoutCompletedEvent - a paid session handed to the fulfillment
// pipeline, either in process or over NATS. Line items are fetched from
// the provider during fulfillment, not carried in the event.
type CheckoutCompletedEvent struct {
	SessionRef    string    `json:"session_ref"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Email         string    `json:"email,omitempty"`
	AmountTotal   int64     `json:"amount_total"`
	Timestamp     time.Time `json:"timestamp"`
}

// OrderFulfilledEvent - published after codes are issued for an order.
type OrderFulfilledEvent struct {
	OrderID       int64     `json:"order_id"`
	SessionRef    string    `json:"session_ref"`
	CodesIssued   int       `json:"codes_issued"`
	UitPasPending int       `json:"uitpas_pending"`
	Timestamp     time.Time `json:"timestamp"`
}
