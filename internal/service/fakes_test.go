package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketing-service/internal/face"
	"ticketing-service/internal/model"
	redisrepo "ticketing-service/internal/repository/redis"
	"ticketing-service/internal/repository/scylla"
)

// In-memory doubles for the storage and delivery dependencies.

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
	byID    map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*model.User),
		byID:    make(map[uuid.UUID]*model.User),
	}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byEmail[user.Email]; exists {
		return scylla.ErrEmailExists
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.byEmail[user.Email] = user
	f.byID[user.UserID] = user
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, bucket int, userID uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[userID]
	if !ok {
		return nil, scylla.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok {
		return nil, scylla.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) UpdateFaceRef(ctx context.Context, bucket int, userID uuid.UUID, faceRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[userID]
	if !ok {
		return scylla.ErrNotFound
	}
	user.FaceRef = faceRef
	return nil
}

func (f *fakeUserRepo) HealthCheck(ctx context.Context) error { return nil }

type fakeTicketRepo struct {
	mu            sync.Mutex
	tickets       map[string]*model.Ticket
	byCode        map[string]*model.Ticket
	lastTTL       time.Duration
	markUsedCalls int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets: make(map[string]*model.Ticket),
		byCode:  make(map[string]*model.Ticket),
	}
}

func (f *fakeTicketRepo) CreateTicket(ctx context.Context, ticket *model.Ticket, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.tickets[ticket.TicketID]; exists {
		return scylla.ErrTicketExists
	}
	f.tickets[ticket.TicketID] = ticket
	f.byCode[ticket.QRData] = ticket
	f.lastTTL = ttl
	return nil
}

func (f *fakeTicketRepo) GetTicket(ctx context.Context, userID uuid.UUID, ticketID string) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[ticketID]
	if !ok || ticket.UserID != userID {
		return nil, scylla.ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) ResolveCode(ctx context.Context, qrData string) (uuid.UUID, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.byCode[qrData]
	if !ok {
		return uuid.Nil, "", scylla.ErrNotFound
	}
	return ticket.UserID, ticket.TicketID, nil
}

func (f *fakeTicketRepo) MarkUsed(ctx context.Context, userID uuid.UUID, ticketID string) (model.TicketStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markUsedCalls++
	ticket, ok := f.tickets[ticketID]
	if !ok || ticket.UserID != userID {
		return "", scylla.ErrStaleStatus
	}
	if ticket.Status != model.TicketStatusActive {
		return ticket.Status, scylla.ErrStaleStatus
	}
	ticket.Status = model.TicketStatusUsed
	return model.TicketStatusUsed, nil
}

type fakeOTPStore struct {
	mu       sync.Mutex
	codes    map[string]string
	attempts map[string]int
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{
		codes:    make(map[string]string),
		attempts: make(map[string]int),
	}
}

func (f *fakeOTPStore) SetOTP(ctx context.Context, phoneNumber, otpHash string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[phoneNumber] = otpHash
	delete(f.attempts, phoneNumber)
	return nil
}

func (f *fakeOTPStore) GetOTP(ctx context.Context, phoneNumber string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash, ok := f.codes[phoneNumber]
	if !ok {
		return "", redisrepo.ErrNoOTP
	}
	return hash, nil
}

func (f *fakeOTPStore) DeleteOTP(ctx context.Context, phoneNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, phoneNumber)
	delete(f.attempts, phoneNumber)
	return nil
}

func (f *fakeOTPStore) IncrementAttempts(ctx context.Context, phoneNumber string, ttl time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[phoneNumber]++
	return f.attempts[phoneNumber], nil
}

type fakeSMSSender struct {
	mu     sync.Mutex
	sent   []string
	bodies []string
	err    error
}

func (f *fakeSMSSender) SendSMS(to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	f.bodies = append(f.bodies, body)
	return nil
}

// stubRecognizer reports a fixed distance for any image pair.
type stubRecognizer struct {
	distance float64
	calls    int
}

func (s *stubRecognizer) ExtractDescriptor(image []byte) (face.Descriptor, bool, error) {
	s.calls++
	return face.Descriptor{}, true, nil
}

func (s *stubRecognizer) Distance(a, b face.Descriptor) float64 { return s.distance }

func (s *stubRecognizer) Close() {}
