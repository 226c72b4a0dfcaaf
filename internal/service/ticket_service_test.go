package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticketing-service/internal/bucketing"
	"ticketing-service/internal/config"
	"ticketing-service/internal/encryption"
	"ticketing-service/internal/face"
	"ticketing-service/internal/model"
	"ticketing-service/internal/qr"
)

type ticketServiceFixture struct {
	svc        *TicketService
	tickets    *fakeTicketRepo
	users      *fakeUserRepo
	recognizer *stubRecognizer
	faces      *face.Store
	buckets    *bucketing.Manager
}

func newTicketServiceFixture(t *testing.T, distance float64) *ticketServiceFixture {
	t.Helper()

	enc := encryption.NewManager(&config.Config{}, nil)
	store, err := face.NewStore(t.TempDir(), enc)
	require.NoError(t, err)

	tickets := newFakeTicketRepo()
	users := newFakeUserRepo()
	rec := &stubRecognizer{distance: distance}
	buckets := bucketing.NewManager(0)

	svc := NewTicketService(
		tickets, users, buckets,
		face.NewMatcher(rec, 0.6), store,
		nil, nil, nil,
		"ticket-events", "TKT-", 24*time.Hour,
		zap.NewNop(),
	)

	return &ticketServiceFixture{
		svc:        svc,
		tickets:    tickets,
		users:      users,
		recognizer: rec,
		faces:      store,
		buckets:    buckets,
	}
}

// seedUser registers a user with a stored face reference.
func (fx *ticketServiceFixture) seedUser(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	user := &model.User{UserID: uuid.New(), Name: "Asha", Email: "asha@example.com"}
	user.UserBucket = fx.buckets.UserBucket(user.UserID)
	require.NoError(t, fx.users.CreateUser(ctx, user))

	path, err := fx.faces.Save(ctx, user.UserID, []byte("reference-image"))
	require.NoError(t, err)
	require.NoError(t, fx.users.UpdateFaceRef(ctx, user.UserBucket, user.UserID, path))

	return user.UserID
}

func validCreateRequest() *CreateTicketRequest {
	return &CreateTicketRequest{
		Source:      "Central",
		Destination: "Airport",
		PhoneNumber: "+14155550100",
		BookingDate: "2026-09-01",
	}
}

func liveImage() string {
	return base64.StdEncoding.EncodeToString([]byte("live-capture"))
}

func TestCreateTicket(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	userID := uuid.New()

	ticket, err := fx.svc.CreateTicket(context.Background(), userID, validCreateRequest())
	require.NoError(t, err)

	assert.Regexp(t, `^TKT-[0-9A-Z]+$`, ticket.TicketID)
	assert.Equal(t, model.TicketStatusActive, ticket.Status)
	assert.Equal(t, userID, ticket.UserID)
	assert.NotEmpty(t, ticket.QRCode)
	assert.Equal(t, 24*time.Hour, fx.tickets.lastTTL)
	assert.Equal(t, ticket.CreatedAt.Add(24*time.Hour), ticket.ExpiresAt)

	var payload qr.Payload
	require.NoError(t, json.Unmarshal([]byte(ticket.QRData), &payload))
	assert.Equal(t, ticket.TicketID, payload.TicketID)
	assert.Equal(t, userID.String(), payload.UserID)
}

func TestCreateTicketValidation(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)

	req := validCreateRequest()
	req.Destination = ""
	_, err := fx.svc.CreateTicket(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyTicket(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	ctx := context.Background()
	userID := fx.seedUser(t)

	ticket, err := fx.svc.CreateTicket(ctx, userID, validCreateRequest())
	require.NoError(t, err)

	result, err := fx.svc.VerifyTicket(ctx, userID, &VerifyTicketRequest{
		QRData:    ticket.QRData,
		FaceImage: liveImage(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusUsed, result.Ticket.Status)
	assert.Equal(t, 0.3, result.Distance)
	assert.Equal(t, 1, fx.tickets.markUsedCalls)
}

func TestVerifyTicketSecondScanRejectedWithoutFaceCheck(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	ctx := context.Background()
	userID := fx.seedUser(t)

	ticket, err := fx.svc.CreateTicket(ctx, userID, validCreateRequest())
	require.NoError(t, err)

	req := &VerifyTicketRequest{QRData: ticket.QRData, FaceImage: liveImage()}
	_, err = fx.svc.VerifyTicket(ctx, userID, req)
	require.NoError(t, err)

	callsAfterFirst := fx.recognizer.calls

	_, err = fx.svc.VerifyTicket(ctx, userID, req)
	assert.ErrorIs(t, err, ErrTicketAlreadyUsed)
	assert.Equal(t, callsAfterFirst, fx.recognizer.calls)
	assert.Equal(t, 1, fx.tickets.markUsedCalls)
}

func TestVerifyTicketFaceMismatch(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.9)
	ctx := context.Background()
	userID := fx.seedUser(t)

	ticket, err := fx.svc.CreateTicket(ctx, userID, validCreateRequest())
	require.NoError(t, err)

	_, err = fx.svc.VerifyTicket(ctx, userID, &VerifyTicketRequest{
		QRData:    ticket.QRData,
		FaceImage: liveImage(),
	})
	assert.ErrorIs(t, err, ErrFaceMismatch)
	assert.Zero(t, fx.tickets.markUsedCalls)

	// The ticket stays active for a retry with a better capture.
	stored, err := fx.svc.GetTicket(ctx, userID, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusActive, stored.Status)
}

func TestVerifyTicketExpired(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	ctx := context.Background()
	userID := fx.seedUser(t)

	ticket, err := fx.svc.CreateTicket(ctx, userID, validCreateRequest())
	require.NoError(t, err)

	fx.tickets.tickets[ticket.TicketID].ExpiresAt = time.Now().Add(-time.Minute)

	_, err = fx.svc.VerifyTicket(ctx, userID, &VerifyTicketRequest{
		QRData:    ticket.QRData,
		FaceImage: liveImage(),
	})
	assert.ErrorIs(t, err, ErrTicketExpired)
	assert.Zero(t, fx.recognizer.calls)
}

func TestVerifyTicketNoFaceReference(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	ctx := context.Background()

	user := &model.User{UserID: uuid.New(), Name: "Ravi", Email: "ravi@example.com"}
	require.NoError(t, fx.users.CreateUser(ctx, user))

	ticket, err := fx.svc.CreateTicket(ctx, user.UserID, validCreateRequest())
	require.NoError(t, err)

	_, err = fx.svc.VerifyTicket(ctx, user.UserID, &VerifyTicketRequest{
		QRData:    ticket.QRData,
		FaceImage: liveImage(),
	})
	assert.ErrorIs(t, err, ErrNoFaceReference)
}

func TestVerifyTicketForeignOwner(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	ctx := context.Background()
	ownerID := fx.seedUser(t)

	ticket, err := fx.svc.CreateTicket(ctx, ownerID, validCreateRequest())
	require.NoError(t, err)

	_, err = fx.svc.VerifyTicket(ctx, uuid.New(), &VerifyTicketRequest{
		QRData:    ticket.QRData,
		FaceImage: liveImage(),
	})
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestVerifyTicketUnknownCode(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)

	_, err := fx.svc.VerifyTicket(context.Background(), uuid.New(), &VerifyTicketRequest{
		QRData:    `{"ticketId":"TKT-GHOST"}`,
		FaceImage: liveImage(),
	})
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestGetTicketReportsExpiry(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	ctx := context.Background()
	userID := uuid.New()

	ticket, err := fx.svc.CreateTicket(ctx, userID, validCreateRequest())
	require.NoError(t, err)

	fx.tickets.tickets[ticket.TicketID].ExpiresAt = time.Now().Add(-time.Minute)

	stored, err := fx.svc.GetTicket(ctx, userID, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusExpired, stored.Status)
}

func TestSearchTicketsUnavailableWithoutIndex(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)

	_, err := fx.svc.SearchTickets(context.Background(), uuid.New(), "airport")
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestRegisterFaceRoundTrip(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	ctx := context.Background()

	user := &model.User{UserID: uuid.New(), Name: "Ravi", Email: "ravi@example.com"}
	user.UserBucket = fx.buckets.UserBucket(user.UserID)
	require.NoError(t, fx.users.CreateUser(ctx, user))

	faceSvc := NewFaceService(fx.users, fx.buckets, fx.faces, zap.NewNop())
	image := base64.StdEncoding.EncodeToString([]byte("reference-image"))
	require.NoError(t, faceSvc.RegisterFace(ctx, user.UserID, &RegisterFaceRequest{Image: image}))

	stored, err := fx.users.GetUserByID(ctx, user.UserBucket, user.UserID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.FaceRef)

	loaded, err := fx.faces.Load(ctx, stored.FaceRef)
	require.NoError(t, err)
	assert.Equal(t, []byte("reference-image"), loaded)
}

func TestRegisterFaceRejectsBadPayloads(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	faceSvc := NewFaceService(fx.users, fx.buckets, fx.faces, zap.NewNop())

	err := faceSvc.RegisterFace(context.Background(), uuid.New(), &RegisterFaceRequest{Image: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = faceSvc.RegisterFace(context.Background(), uuid.New(), &RegisterFaceRequest{Image: "!!not-base64!!"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterFaceAcceptsDataURL(t *testing.T) {
	fx := newTicketServiceFixture(t, 0.3)
	ctx := context.Background()

	user := &model.User{UserID: uuid.New(), Name: "Ravi", Email: "ravi@example.com"}
	user.UserBucket = fx.buckets.UserBucket(user.UserID)
	require.NoError(t, fx.users.CreateUser(ctx, user))

	faceSvc := NewFaceService(fx.users, fx.buckets, fx.faces, zap.NewNop())
	image := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	require.NoError(t, faceSvc.RegisterFace(ctx, user.UserID, &RegisterFaceRequest{Image: image}))
}
