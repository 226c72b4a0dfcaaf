package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticketing-service/internal/model"
	"ticketing-service/internal/service"
	"ticketing-service/internal/util"
)

// TicketAPI is the slice of the ticket service the handler consumes.
type TicketAPI interface {
	CreateTicket(ctx context.Context, userID uuid.UUID, req *service.CreateTicketRequest) (*model.Ticket, error)
	GetTicket(ctx context.Context, userID uuid.UUID, ticketID string) (*model.Ticket, error)
	VerifyTicket(ctx context.Context, userID uuid.UUID, req *service.VerifyTicketRequest) (*service.VerifyTicketResult, error)
	SearchTickets(ctx context.Context, userID uuid.UUID, query string) ([]map[string]interface{}, error)
}

// FaceAPI covers reference photo registration.
type FaceAPI interface {
	RegisterFace(ctx context.Context, userID uuid.UUID, req *service.RegisterFaceRequest) error
}

// ProfileAPI resolves the authenticated caller's own record.
type ProfileAPI interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// TicketHandler handles the authenticated ticket and face routes.
type TicketHandler struct {
	tickets  TicketAPI
	faces    FaceAPI
	profiles ProfileAPI
	logger   *zap.Logger
}

func NewTicketHandler(tickets TicketAPI, faces FaceAPI, profiles ProfileAPI, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{tickets: tickets, faces: faces, profiles: profiles, logger: logger}
}

// RegisterRoutes registers the protected routes; the caller wraps them in
// the auth middleware.
func (h *TicketHandler) RegisterRoutes(router chi.Router) {
	router.Get("/users/me", h.GetProfile)
	router.Post("/users/face", h.RegisterFace)
	router.Post("/tickets", h.CreateTicket)
	router.Post("/tickets/verify", h.VerifyTicket)
	router.Get("/tickets/search", h.SearchTickets)
	router.Get("/tickets/{ticketID}", h.GetTicket)
}

// GetProfile returns the caller's own account record
func (h *TicketHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.profiles.GetUser(ctx, userID)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to get profile")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(user, "Profile retrieved successfully"))
}

// ticketResponse inlines the QR image as base64 for JSON clients.
type ticketResponse struct {
	*model.Ticket
	QRCodeImage []byte `json:"qrCodeImage,omitempty"`
}

func callerID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok || claims.UserID() == uuid.Nil {
		respondWithError(w, logger, http.StatusUnauthorized,
			errors.New("missing session claims"), "Authentication required")
		return uuid.Nil, false
	}
	return claims.UserID(), true
}

// RegisterFace stores the caller's reference photo
func (h *TicketHandler) RegisterFace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req service.RegisterFaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.faces.RegisterFace(ctx, userID, &req); err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to register face")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, "Face registered successfully"))
}

// CreateTicket issues a new ticket for the caller
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req service.CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	ticket, err := h.tickets.CreateTicket(ctx, userID, &req)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to create ticket")
		return
	}

	resp := ticketResponse{Ticket: ticket, QRCodeImage: ticket.QRCode}
	respondWithJSON(w, h.logger, http.StatusCreated, successResponse(resp, "Ticket created successfully"))
	h.logger.Info("Ticket created via HTTP",
		util.String("ticket_id", ticket.TicketID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "CreateTicket"),
	)
}

// GetTicket returns one of the caller's tickets
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	ticketID := chi.URLParam(r, "ticketID")
	if ticketID == "" {
		respondWithError(w, h.logger, http.StatusBadRequest,
			errors.New("ticket id is required"), "Ticket ID is required")
		return
	}

	ticket, err := h.tickets.GetTicket(ctx, userID, ticketID)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to get ticket")
		return
	}

	resp := ticketResponse{Ticket: ticket, QRCodeImage: ticket.QRCode}
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(resp, "Ticket retrieved successfully"))
}

// VerifyTicket runs the gate check on a scanned code
func (h *TicketHandler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req service.VerifyTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.tickets.VerifyTicket(ctx, userID, &req)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Ticket verification failed")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(result, "Ticket verified successfully"))
	h.logger.Info("Ticket verified via HTTP",
		util.String("ticket_id", result.Ticket.TicketID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "VerifyTicket"),
	)
}

// SearchTickets queries the caller's tickets by free text
func (h *TicketHandler) SearchTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	results, err := h.tickets.SearchTickets(ctx, userID, r.URL.Query().Get("q"))
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to search tickets")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(results, "Search completed"))
}
