package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType is the method used for a payment.
type PaymentType string

const (
	PaymentFree PaymentType = "free"
	PaymentCash PaymentType = "cash"
	PaymentCard PaymentType = "card"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentFree, PaymentCash, PaymentCard:
		return true
	}
	return false
}

// Payment is one entry of a reservation's append-only payment ledger
// (the `payment_histories` table).
type Payment struct {
	ID            uint64          // payment_histories.id
	ReservationID uint64          // payment_histories.reservation_id
	PaymentType   PaymentType     // payment_histories.payment_type
	Amount        decimal.Decimal // payment_histories.amount
	CreatedAt     time.Time       // payment_histories.created_at
}
