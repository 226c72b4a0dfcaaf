package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ticketing-service/internal/service"
	"ticketing-service/internal/util"
)

// AuthAPI is the slice of the auth service the handler consumes.
type AuthAPI interface {
	Register(ctx context.Context, req *service.RegisterRequest) (*service.AuthResult, error)
	Login(ctx context.Context, req *service.LoginRequest) (*service.AuthResult, error)
}

// OTPAPI covers phone verification. SendOTP returns the generated code
// outside production so the response can echo it; in production it is empty.
type OTPAPI interface {
	SendOTP(ctx context.Context, phoneNumber string) (string, error)
	VerifyOTP(ctx context.Context, phoneNumber, code string) (*service.VerifyResult, error)
}

// AuthHandler handles registration, login and phone verification requests.
type AuthHandler struct {
	auth   AuthAPI
	otp    OTPAPI
	logger *zap.Logger
}

func NewAuthHandler(auth AuthAPI, otp OTPAPI, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, otp: otp, logger: logger}
}

// RegisterRoutes registers the public auth routes
func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/register", h.Register)
	router.Post("/auth/login", h.Login)
	router.Post("/auth/send-otp", h.SendOTP)
	router.Post("/auth/verify-otp", h.VerifyOTP)
}

// Register handles account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.auth.Register(ctx, &req)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to register user")
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, successResponse(result, "User registered successfully"))
	h.logger.Info("User registered via HTTP",
		util.String("user_id", result.User.UserID.String()),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Register"),
	)
}

// Login handles credential authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.auth.Login(ctx, &req)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to log in")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(result, "Logged in successfully"))
}

type sendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"otp"`
}

// SendOTP dispatches a one-time code to a phone number
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	devCode, err := h.otp.SendOTP(ctx, req.PhoneNumber)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to send verification code")
		return
	}

	message := "Verification code sent"
	if devCode != "" {
		message = fmt.Sprintf("Verification code sent. Code: %s", devCode)
	}
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, message))
}

// VerifyOTP checks a one-time code and returns a phone-scope token
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.otp.VerifyOTP(ctx, req.PhoneNumber, req.Code)
	if err != nil {
		respondWithError(w, h.logger, getStatusCode(err), err, "Failed to verify code")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(result, "Phone number verified"))
}
