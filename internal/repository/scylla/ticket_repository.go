package scylla

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticketing-service/internal/model"
	"ticketing-service/internal/util"
)

var (
	ErrTicketExists = errors.New("ticket identifier already exists")
	ErrStaleStatus  = errors.New("ticket status changed concurrently")
)

// TicketRepository persists tickets with a row TTL so the store purges them
// 24 hours after creation, independent of status.
type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket *model.Ticket, ttl time.Duration) error
	GetTicket(ctx context.Context, userID uuid.UUID, ticketID string) (*model.Ticket, error)
	ResolveCode(ctx context.Context, qrData string) (uuid.UUID, string, error)
	MarkUsed(ctx context.Context, userID uuid.UUID, ticketID string) (model.TicketStatus, error)
}

type ticketRepository struct {
	client *ScyllaClient
}

func NewTicketRepository(client *ScyllaClient, logger *zap.Logger) TicketRepository {
	return &ticketRepository{client: client}
}

// CreateTicket inserts the ticket row guarded by IF NOT EXISTS; a time-derived
// id colliding with an existing row surfaces as ErrTicketExists rather than a
// silent overwrite. The code lookup row shares the same TTL.
func (r *ticketRepository) CreateTicket(ctx context.Context, ticket *model.Ticket, ttl time.Duration) error {
	ttlSeconds := int(ttl / time.Second)

	applied, err := r.client.Session.Query(`
        INSERT INTO tickets (user_id, ticket_id, source, destination, phone_number,
            booking_date, qr_data, qr_code, status, created_at, expires_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS USING TTL ?`,
		ticket.UserID, ticket.TicketID, ticket.Source, ticket.Destination,
		ticket.PhoneNumber, ticket.BookingDate, ticket.QRData, ticket.QRCode,
		string(ticket.Status), ticket.CreatedAt, ticket.ExpiresAt, ttlSeconds).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		util.Error("Failed to create ticket",
			zap.String("ticket_id", ticket.TicketID),
			zap.Error(err))
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	if !applied {
		return ErrTicketExists
	}

	if err := r.client.Session.Query(`
        INSERT INTO tickets_by_code (qr_hash, user_id, ticket_id)
        VALUES (?, ?, ?) USING TTL ?`,
		hashCode(ticket.QRData), ticket.UserID, ticket.TicketID, ttlSeconds).
		WithContext(ctx).Exec(); err != nil {
		util.Error("Failed to index ticket code",
			zap.String("ticket_id", ticket.TicketID),
			zap.Error(err))
		// A ticket whose code cannot be resolved is unverifiable; remove the
		// row instead of leaving it to the TTL.
		if delErr := r.client.Session.Query(`
        DELETE FROM tickets WHERE user_id = ? AND ticket_id = ?`,
			ticket.UserID, ticket.TicketID).WithContext(ctx).Exec(); delErr != nil {
			util.Warn("Failed to remove unindexed ticket",
				zap.String("ticket_id", ticket.TicketID),
				zap.Error(delErr))
		}
		return fmt.Errorf("failed to index ticket code: %w", err)
	}

	util.Info("Ticket created",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("user_id", ticket.UserID.String()))

	return nil
}

func (r *ticketRepository) GetTicket(ctx context.Context, userID uuid.UUID, ticketID string) (*model.Ticket, error) {
	ticket := &model.Ticket{}
	var status string

	err := r.client.Session.Query(`
        SELECT user_id, ticket_id, source, destination, phone_number, booking_date,
            qr_data, qr_code, status, created_at, expires_at
        FROM tickets WHERE user_id = ? AND ticket_id = ?`,
		userID, ticketID).WithContext(ctx).Scan(
		&ticket.UserID, &ticket.TicketID, &ticket.Source, &ticket.Destination,
		&ticket.PhoneNumber, &ticket.BookingDate, &ticket.QRData, &ticket.QRCode,
		&status, &ticket.CreatedAt, &ticket.ExpiresAt)

	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrNotFound
		}
		util.Error("Failed to get ticket",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	ticket.Status = model.TicketStatus(status)
	return ticket, nil
}

// ResolveCode maps a scanned payload back to its owner and ticket id.
func (r *ticketRepository) ResolveCode(ctx context.Context, qrData string) (uuid.UUID, string, error) {
	var (
		userID   uuid.UUID
		ticketID string
	)

	err := r.client.Session.Query(`
        SELECT user_id, ticket_id FROM tickets_by_code WHERE qr_hash = ?`, hashCode(qrData)).
		WithContext(ctx).Scan(&userID, &ticketID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return uuid.Nil, "", ErrNotFound
		}
		return uuid.Nil, "", fmt.Errorf("failed to resolve ticket code: %w", err)
	}

	return userID, ticketID, nil
}

// MarkUsed transitions active→used with a conditional update so two
// concurrent verifications cannot both succeed. On a lost race the previous
// status is returned alongside ErrStaleStatus.
func (r *ticketRepository) MarkUsed(ctx context.Context, userID uuid.UUID, ticketID string) (model.TicketStatus, error) {
	previous := map[string]interface{}{}

	applied, err := r.client.Session.Query(`
        UPDATE tickets SET status = ? WHERE user_id = ? AND ticket_id = ?
        IF status = ?`,
		string(model.TicketStatusUsed), userID, ticketID,
		string(model.TicketStatusActive)).
		WithContext(ctx).MapScanCAS(previous)
	if err != nil {
		util.Error("Failed to mark ticket used",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
		return "", fmt.Errorf("failed to mark ticket used: %w", err)
	}
	if !applied {
		prev, _ := previous["status"].(string)
		return model.TicketStatus(prev), ErrStaleStatus
	}

	return model.TicketStatusUsed, nil
}

// hashCode keys the lookup table on a digest of the payload; QR payloads can
// exceed sensible partition key sizes.
func hashCode(qrData string) string {
	sum := sha256.Sum256([]byte(qrData))
	return hex.EncodeToString(sum[:])
}
