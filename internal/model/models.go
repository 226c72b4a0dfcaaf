package model

import (
	"time"

	"github.com/google/uuid"
)

// -------------------- USER MODEL --------------------
type User struct {
	UserBucket   int       `json:"-" db:"user_bucket"`
	UserID       uuid.UUID `json:"id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // argon2id encoded, never serialized
	PhoneNumber  string    `json:"phoneNumber,omitempty" db:"phone_number"`
	FaceRef      string    `json:"-" db:"face_ref"` // path of the encrypted reference image, empty = none
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"-" db:"updated_at"`
}

// -------------------- TICKET MODEL --------------------
type TicketStatus string

const (
	TicketStatusActive  TicketStatus = "active"
	TicketStatusUsed    TicketStatus = "used"
	TicketStatusExpired TicketStatus = "expired"
)

type Ticket struct {
	TicketID    string       `json:"ticketId" db:"ticket_id"` // time-derived, e.g. TKT-LXK93M2A
	UserID      uuid.UUID    `json:"userId" db:"user_id"`
	Source      string       `json:"source" db:"source"`
	Destination string       `json:"destination" db:"destination"`
	PhoneNumber string       `json:"phoneNumber" db:"phone_number"`
	BookingDate string       `json:"bookingDate" db:"booking_date"` // trip-intended date, not creation time
	QRData      string       `json:"-" db:"qr_data"`                // opaque payload embedded in the QR image
	QRCode      []byte       `json:"qrCode,omitempty" db:"qr_code"` // PNG, base64 in JSON
	Status      TicketStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	ExpiresAt   time.Time    `json:"expiresAt" db:"expires_at"`
}

// Expired reports whether the ticket is past its expiry regardless of the
// persisted status. Storage TTL purges the row eventually; this closes the
// window in between.
func (t *Ticket) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// -------------------- TICKET EVENT --------------------

// TicketEvent is published to Kafka on lifecycle transitions and recorded
// in the ClickHouse audit table for verification attempts.
type TicketEvent struct {
	Type        string    `json:"type"` // ticket.issued, ticket.verified, ticket.rejected
	TicketID    string    `json:"ticket_id"`
	UserID      string    `json:"user_id"`
	Source      string    `json:"source,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Outcome     string    `json:"outcome,omitempty"` // used, face_mismatch, already_used, expired, no_face_ref
	Distance    float64   `json:"distance,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
