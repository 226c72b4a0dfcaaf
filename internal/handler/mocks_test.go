package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ticketing-service/internal/model"
	"ticketing-service/internal/service"
)

type mockAuthAPI struct{ mock.Mock }

func (m *mockAuthAPI) Register(ctx context.Context, req *service.RegisterRequest) (*service.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockAuthAPI) Login(ctx context.Context, req *service.LoginRequest) (*service.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

type mockOTPAPI struct{ mock.Mock }

func (m *mockOTPAPI) SendOTP(ctx context.Context, phoneNumber string) (string, error) {
	args := m.Called(ctx, phoneNumber)
	return args.String(0), args.Error(1)
}

func (m *mockOTPAPI) VerifyOTP(ctx context.Context, phoneNumber, code string) (*service.VerifyResult, error) {
	args := m.Called(ctx, phoneNumber, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerifyResult), args.Error(1)
}

type mockTicketAPI struct{ mock.Mock }

func (m *mockTicketAPI) CreateTicket(ctx context.Context, userID uuid.UUID, req *service.CreateTicketRequest) (*model.Ticket, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *mockTicketAPI) GetTicket(ctx context.Context, userID uuid.UUID, ticketID string) (*model.Ticket, error) {
	args := m.Called(ctx, userID, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *mockTicketAPI) VerifyTicket(ctx context.Context, userID uuid.UUID, req *service.VerifyTicketRequest) (*service.VerifyTicketResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerifyTicketResult), args.Error(1)
}

func (m *mockTicketAPI) SearchTickets(ctx context.Context, userID uuid.UUID, query string) ([]map[string]interface{}, error) {
	args := m.Called(ctx, userID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

type mockProfileAPI struct{ mock.Mock }

func (m *mockProfileAPI) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type mockFaceAPI struct{ mock.Mock }

func (m *mockFaceAPI) RegisterFace(ctx context.Context, userID uuid.UUID, req *service.RegisterFaceRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}
