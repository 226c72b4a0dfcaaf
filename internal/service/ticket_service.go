package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ticketing-service/internal/bucketing"
	"ticketing-service/internal/face"
	"ticketing-service/internal/model"
	"ticketing-service/internal/qr"
	"ticketing-service/internal/repository/scylla"
	"ticketing-service/internal/util"
)

// EventProducer publishes ticket lifecycle events to the message bus.
type EventProducer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte) error
}

// AuditRecorder appends verification outcomes to the analytics store.
type AuditRecorder interface {
	RecordEvent(ctx context.Context, ev *model.TicketEvent) error
}

// TicketIndexer maintains the searchable ticket index.
type TicketIndexer interface {
	IndexTicket(ctx context.Context, t *model.Ticket) error
	SearchTickets(ctx context.Context, userID, query string, size int) ([]map[string]interface{}, error)
}

// TicketService owns the ticket lifecycle: issue with an embedded QR code,
// verify at the gate with a biometric check, and transition active tickets to
// used exactly once. Kafka, ClickHouse and Elasticsearch are best-effort
// side channels; Scylla is the source of truth.
type TicketService struct {
	tickets   scylla.TicketRepository
	users     scylla.UserRepository
	bucketing *bucketing.Manager
	matcher   *face.Matcher
	faces     *face.Store

	producer EventProducer // nil when the bus is disabled
	audit    AuditRecorder // nil when analytics are disabled
	index    TicketIndexer // nil when search is disabled
	topic    string

	idPrefix  string
	ticketTTL time.Duration
	logger    *zap.Logger
}

type CreateTicketRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	PhoneNumber string `json:"phoneNumber"`
	BookingDate string `json:"bookingDate"`
}

type VerifyTicketRequest struct {
	QRData    string `json:"qrData"`
	FaceImage string `json:"faceImage"`
}

// VerifyTicketResult reports a successful gate check.
type VerifyTicketResult struct {
	Ticket   *model.Ticket `json:"ticket"`
	Distance float64       `json:"distance"`
}

func NewTicketService(
	tickets scylla.TicketRepository,
	users scylla.UserRepository,
	bucketing *bucketing.Manager,
	matcher *face.Matcher,
	faces *face.Store,
	producer EventProducer,
	audit AuditRecorder,
	index TicketIndexer,
	topic string,
	idPrefix string,
	ticketTTL time.Duration,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		tickets:   tickets,
		users:     users,
		bucketing: bucketing,
		matcher:   matcher,
		faces:     faces,
		producer:  producer,
		audit:     audit,
		index:     index,
		topic:     topic,
		idPrefix:  idPrefix,
		ticketTTL: ticketTTL,
		logger:    logger,
	}
}

// CreateTicket issues a ticket valid for the configured window. The QR image
// embeds the trip payload; the storage row carries a matching TTL so expired
// tickets age out of the store on their own.
func (s *TicketService) CreateTicket(ctx context.Context, userID uuid.UUID, req *CreateTicketRequest) (*model.Ticket, error) {
	source := util.SanitizeInput(req.Source)
	destination := util.SanitizeInput(req.Destination)
	phoneNumber := util.SanitizeInput(req.PhoneNumber)
	bookingDate := util.SanitizeInput(req.BookingDate)

	if source == "" || destination == "" || phoneNumber == "" || bookingDate == "" {
		return nil, fmt.Errorf("%w: source, destination, phone number and booking date are required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	ticketID := s.newTicketID(now)

	qrData, qrPNG, err := qr.Encode(&qr.Payload{
		TicketID:    ticketID,
		UserID:      userID.String(),
		Source:      source,
		Destination: destination,
		BookingDate: bookingDate,
	})
	if err != nil {
		return nil, err
	}

	ticket := &model.Ticket{
		TicketID:    ticketID,
		UserID:      userID,
		Source:      source,
		Destination: destination,
		PhoneNumber: phoneNumber,
		BookingDate: bookingDate,
		QRData:      qrData,
		QRCode:      qrPNG,
		Status:      model.TicketStatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ticketTTL),
	}

	if err := s.tickets.CreateTicket(ctx, ticket, s.ticketTTL); err != nil {
		if errors.Is(err, scylla.ErrTicketExists) {
			return nil, ErrTicketCollision
		}
		return nil, err
	}

	s.fanout(ctx, ticket, &model.TicketEvent{
		Type:        "ticket.issued",
		TicketID:    ticket.TicketID,
		UserID:      ticket.UserID.String(),
		Source:      ticket.Source,
		Destination: ticket.Destination,
		Outcome:     "issued",
		OccurredAt:  now,
	})

	s.logger.Info("Ticket issued",
		util.String("ticket_id", ticket.TicketID),
		util.String("user_id", userID.String()))

	return ticket, nil
}

// GetTicket returns a ticket owned by the caller. A stored status of active
// on a ticket past its expiry reads back as expired; the row TTL will remove
// it shortly anyway.
func (s *TicketService) GetTicket(ctx context.Context, userID uuid.UUID, ticketID string) (*model.Ticket, error) {
	ticket, err := s.tickets.GetTicket(ctx, userID, ticketID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	if ticket.Status == model.TicketStatusActive && ticket.Expired(time.Now()) {
		ticket.Status = model.TicketStatusExpired
	}
	return ticket, nil
}

// VerifyTicket runs the gate check: resolve the scanned payload, confirm
// ownership and status, match the live capture against the registered face,
// then flip active to used under a conditional update so a double scan can
// succeed at most once. Status is checked before the biometric step; a used
// or expired ticket is rejected without triggering face matching.
func (s *TicketService) VerifyTicket(ctx context.Context, userID uuid.UUID, req *VerifyTicketRequest) (*VerifyTicketResult, error) {
	if req.QRData == "" || req.FaceImage == "" {
		return nil, fmt.Errorf("%w: qr payload and face image are required", ErrInvalidInput)
	}

	owner, ticketID, err := s.tickets.ResolveCode(ctx, req.QRData)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if owner != userID {
		// Foreign tickets are indistinguishable from missing ones.
		return nil, ErrTicketNotFound
	}

	ticket, err := s.tickets.GetTicket(ctx, owner, ticketID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	switch {
	case ticket.Status == model.TicketStatusUsed:
		return nil, ErrTicketAlreadyUsed
	case ticket.Status == model.TicketStatusExpired, ticket.Expired(time.Now()):
		return nil, ErrTicketExpired
	}

	user, err := s.users.GetUserByID(ctx, s.bucketing.UserBucket(owner), owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket owner: %w", err)
	}
	if user.FaceRef == "" {
		return nil, ErrNoFaceReference
	}

	reference, err := s.faces.Load(ctx, user.FaceRef)
	if err != nil {
		return nil, err
	}

	live, err := decodeImage(req.FaceImage)
	if err != nil {
		return nil, fmt.Errorf("%w: live image is not valid base64", ErrInvalidInput)
	}

	matched, distance := s.matcher.Match(live, reference)
	if !matched {
		s.recordAudit(ctx, ticket, "face_mismatch", distance)
		s.logger.Warn("Face mismatch at verification",
			util.String("ticket_id", ticket.TicketID),
			util.Float64("distance", distance))
		return nil, ErrFaceMismatch
	}

	if _, err := s.tickets.MarkUsed(ctx, owner, ticketID); err != nil {
		if errors.Is(err, scylla.ErrStaleStatus) {
			// Lost the race against a concurrent scan or an expiry sweep.
			return nil, ErrTicketAlreadyUsed
		}
		return nil, err
	}
	ticket.Status = model.TicketStatusUsed

	s.fanout(ctx, ticket, &model.TicketEvent{
		Type:        "ticket.verified",
		TicketID:    ticket.TicketID,
		UserID:      ticket.UserID.String(),
		Source:      ticket.Source,
		Destination: ticket.Destination,
		Outcome:     "used",
		Distance:    distance,
		OccurredAt:  time.Now().UTC(),
	})

	s.logger.Info("Ticket verified",
		util.String("ticket_id", ticket.TicketID),
		util.Float64("distance", distance))

	return &VerifyTicketResult{Ticket: ticket, Distance: distance}, nil
}

// SearchTickets queries the caller's tickets by free text.
func (s *TicketService) SearchTickets(ctx context.Context, userID uuid.UUID, query string) ([]map[string]interface{}, error) {
	if s.index == nil {
		return nil, ErrSearchUnavailable
	}
	query = util.SanitizeInput(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	return s.index.SearchTickets(ctx, userID.String(), query, 50)
}

// fanout pushes the event to the bus, the audit store and the search index
// in parallel. None of the three gates the request; failures are logged.
func (s *TicketService) fanout(ctx context.Context, ticket *model.Ticket, ev *model.TicketEvent) {
	g, gctx := errgroup.WithContext(ctx)

	if s.producer != nil {
		g.Go(func() error {
			payload, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			return s.producer.ProduceMessage(gctx, s.topic, []byte(ev.TicketID), payload)
		})
	}
	if s.audit != nil && ev.Type == "ticket.verified" {
		g.Go(func() error {
			return s.audit.RecordEvent(gctx, ev)
		})
	}
	if s.index != nil {
		g.Go(func() error {
			return s.index.IndexTicket(gctx, ticket)
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("Ticket event fanout incomplete",
			util.String("ticket_id", ticket.TicketID),
			util.String("event_type", ev.Type),
			zap.Error(err))
	}
}

func (s *TicketService) recordAudit(ctx context.Context, ticket *model.Ticket, outcome string, distance float64) {
	if s.audit == nil {
		return
	}
	ev := &model.TicketEvent{
		Type:        "ticket.rejected",
		TicketID:    ticket.TicketID,
		UserID:      ticket.UserID.String(),
		Source:      ticket.Source,
		Destination: ticket.Destination,
		Outcome:     outcome,
		Distance:    distance,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.audit.RecordEvent(ctx, ev); err != nil {
		s.logger.Warn("Failed to record audit event",
			util.String("ticket_id", ticket.TicketID),
			zap.Error(err))
	}
}

// newTicketID derives a compact uppercase id from the issue time.
func (s *TicketService) newTicketID(now time.Time) string {
	return s.idPrefix + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}
