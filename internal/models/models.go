package models

import "time"

// Checkout action values accepted by the check-in endpoint.
const (
	ActionCheckInTicket = "check_in_ticket"
	ActionCheckInAll    = "check_in_all"
)

// Ticket statuses as shown to the door scanner.
const (
	TicketStatusValid   = "VALID"
	TicketStatusUsed    = "USED"
	TicketStatusInvalid = "INVALID"
)

// PaymentEventTypeCompleted is the only webhook event type that triggers
// fulfillment; everything else is acknowledged and ignored.
const PaymentEventTypeCompleted = "checkout.session.completed"

// TicketCounts - requested quantity per category for one show.
type TicketCounts struct {
	Adult int `json:"adult"`
	Child int `json:"child"`
}

// UitPasClaim - a discount card number presented with the cart.
type UitPasClaim struct {
	Number   string `json:"number"`
	Category string `json:"category"`
}

// CreateCheckoutRequest - cart keyed by show id plus optional claims.
// Missing shows mean zero tickets.
type CreateCheckoutRequest struct {
	Shows  map[string]TicketCounts `json:"shows"`
	UitPas []UitPasClaim           `json:"uitpas,omitempty"`
}

// CreateCheckoutResponse - the provider session the browser redirects to.
type CreateCheckoutResponse struct {
	SessionID string `json:"sessionId"`
}

// GetTicketsResponse - codes for a session; empty while fulfillment runs.
type GetTicketsResponse struct {
	Codes []string `json:"codes"`
}

// PaymentEvent - webhook envelope from the payment provider.
type PaymentEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data PaymentEventData `json:"data"`
}

type PaymentEventData struct {
	Object PaymentSession `json:"object"`
}

// PaymentSession - the completed checkout session inside a webhook event.
type PaymentSession struct {
	ID              string           `json:"id"`
	Status          string           `json:"status"`
	PaymentStatus   string           `json:"payment_status"`
	AmountTotal     int64            `json:"amount_total"`
	CustomerDetails *CustomerDetails `json:"customer_details,omitempty"`
}

type CustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// CheckinRequest - a raw scan plus an optional mutation action.
type CheckinRequest struct {
	Code   string `json:"code" binding:"required"`
	Action string `json:"action,omitempty"`
}

// GroupTicket - one ticket in a booking group view.
type GroupTicket struct {
	Code         string     `json:"code"`
	Label        string     `json:"label"`
	Status       string     `json:"status"`
	UitPasNumber string     `json:"uitpas_number,omitempty"`
	RedeemedAt   *time.Time `json:"redeemed_at,omitempty"`
}

// GroupView - the scanned ticket with all its order siblings, so the
// door staff sees the whole booking on one scan.
type GroupView struct {
	Scanned    GroupTicket   `json:"scanned"`
	OrderID    int64         `json:"order_id"`
	Email      string        `json:"email,omitempty"`
	Tickets    []GroupTicket `json:"tickets"`
	ValidCount int           `json:"valid_count"`
}

// CheckinResult - confirmation for a mutating check-in action.
type CheckinResult struct {
	Message   string `json:"message"`
	CheckedIn int    `json:"checked_in"`
}

// ShowAvailability - remaining seats for one show.
type ShowAvailability struct {
	ShowID    string `json:"show_id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Capacity  int    `json:"capacity"`
	Sold      int    `json:"sold"`
	Remaining int    `json:"remaining"`
}

// CodeCount - issued tickets per show and category.
type CodeCount struct {
	ShowID   string `json:"show_id"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StatsResponse - the sales dashboard summary.
type StatsResponse struct {
	TotalRevenueCents int64       `json:"total_revenue_cents"`
	TotalOrders       int         `json:"total_orders"`
	TotalCodes        int         `json:"total_codes"`
	RedeemedCodes     int         `json:"redeemed_codes"`
	PendingUitPas     int         `json:"pending_uitpas"`
	PerShow           []CodeCount `json:"per_show"`
}

// ValidateCodeRequest - administrative validity override for a code.
// Omitting the body marks the code valid.
type ValidateCodeRequest struct {
	Valid *bool `json:"valid"`
}

// UitPasVerification - one claim awaiting manual verification by staff.
type UitPasVerification struct {
	Number string `json:"number"`
	Label  string `json:"label"`
	Code   string `json:"code"`
}
