package models

import "time"

// Order - a paid checkout session persisted after the completion webhook.
// SessionRef is the payment provider's session id and is unique: it is
// the idempotency key for fulfillment.
type Order struct {
	ID            int64     `json:"id" db:"id"`
	SessionRef    string    `json:"session_ref" db:"session_ref"`
	Status        string    `json:"status" db:"status"`
	PaymentStatus string    `json:"payment_status" db:"payment_status"`
	Email         *string   `json:"email,omitempty" db:"email"`
	AmountTotal   int64     `json:"amount_total" db:"amount_total"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// AccessCode - one admission ticket. Code is the 6-character token the
// scanner reads at the door. UitPas codes start out invalid until staff
// verifies the card number. RedeemedAt is set once and never cleared.
type AccessCode struct {
	ID           int64      `json:"id" db:"id"`
	Code         string     `json:"code" db:"code"`
	IsValid      bool       `json:"is_valid" db:"is_valid"`
	RedeemedAt   *time.Time `json:"redeemed_at,omitempty" db:"redeemed_at"`
	ShowID       string     `json:"show_id" db:"show_id"`
	Category     string     `json:"category" db:"category"`
	Variant      string     `json:"variant" db:"variant"`
	Label        string     `json:"label" db:"label"`
	UitPasNumber *string    `json:"uitpas_number,omitempty" db:"uitpas_number"`
	OrderID      int64      `json:"order_id" db:"order_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
