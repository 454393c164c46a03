// Package queue defines message payloads exchanged over the message broker.
package queue

// Routing keys double as durable queue names on the default exchange.
const (
	ReservationCreated = "reservation.created"
	PaymentRecorded    = "payment.recorded"
	ReservationOverdue = "reservation.overdue"
)

// ReservationCreatedEvent is published after a reservation and its
// opening payment are committed.  Amounts are decimal strings.
type ReservationCreatedEvent struct {
	ReservationID uint64  `json:"reservation_id"`
	VenueID       uint64  `json:"venue_id"`
	VenueName     string  `json:"venue_name"`
	CompanyID     *uint64 `json:"company_id,omitempty"`
	UserID        *uint64 `json:"user_id,omitempty"`
	License       string  `json:"license"`
	BookFrom      string  `json:"book_from"`
	BookTo        string  `json:"book_to"`
	TotalAmount   string  `json:"total_amount"`
	AmountPaid    string  `json:"total_amount_paid"`
	PaymentStatus string  `json:"payment_status"`
	CreatedAt     string  `json:"created_at"`
}

// PaymentRecordedEvent is published for every payment added after the
// reservation was created.
type PaymentRecordedEvent struct {
	PaymentID     uint64 `json:"payment_id"`
	ReservationID uint64 `json:"reservation_id"`
	PaymentType   string `json:"payment_type"`
	Amount        string `json:"amount"`
	Balance       string `json:"balance"`
	PaymentStatus string `json:"payment_status"`
	RecordedAt    string `json:"recorded_at"`
}

// ReservationOverdueEvent is published when the status sweep moves a
// reservation past its end time.
type ReservationOverdueEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	VenueID       uint64 `json:"venue_id"`
	License       string `json:"license"`
	BookTo        string `json:"book_to"`
	OverdueAmount string `json:"overdue_amount"`
	TotalAmount   string `json:"total_amount"`
	DetectedAt    string `json:"detected_at"`
}
