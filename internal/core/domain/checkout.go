package domain

import "time"

type CheckoutState string

const (
	StateAwaitingName     CheckoutState = "awaiting_name"
	StateAwaitingPhone    CheckoutState = "awaiting_phone"
	StateAwaitingAddress  CheckoutState = "awaiting_address"
	StateAwaitingPostal   CheckoutState = "awaiting_postal"
	StateAwaitingDiscount CheckoutState = "awaiting_discount"
	StateAwaitingNotes    CheckoutState = "awaiting_notes"
	StateConfirming       CheckoutState = "confirming"
	StateCompleted        CheckoutState = "completed"
	StateCancelled        CheckoutState = "cancelled"
	StateFailed           CheckoutState = "failed"
)

func (s CheckoutState) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// Next returns the state that follows s on the happy path.
func (s CheckoutState) Next() CheckoutState {
	switch s {
	case StateAwaitingName:
		return StateAwaitingPhone
	case StateAwaitingPhone:
		return StateAwaitingAddress
	case StateAwaitingAddress:
		return StateAwaitingPostal
	case StateAwaitingPostal:
		return StateAwaitingDiscount
	case StateAwaitingDiscount:
		return StateAwaitingNotes
	case StateAwaitingNotes:
		return StateConfirming
	}
	return s
}

type CheckoutSession struct {
	State            CheckoutState
	Name             string
	Phone            string
	Address          string
	Postal           string
	DiscountCode     string
	DiscountAttempts int
	Notes            string
	StartedAt        time.Time
}

// A Session is everything kept for one user between events.
// Checkout is nil when no checkout is in progress.
type Session struct {
	UserID      string
	Handle      string
	Destination Destination
	Cart        Cart
	Checkout    *CheckoutSession
	UpdatedAt   time.Time
}

func NewSession(userID string) Session {
	return Session{UserID: userID}
}
