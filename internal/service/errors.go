package service

import "errors"

// Sentinel errors returned by the services. The handler layer owns the
// mapping to HTTP status codes; nothing below it speaks HTTP.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPNotFound        = errors.New("no active code for this number")
	ErrOTPMismatch        = errors.New("code does not match")
	ErrDeliveryFailed     = errors.New("failed to deliver code")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrTicketCollision    = errors.New("ticket identifier collision")
	ErrTicketAlreadyUsed  = errors.New("ticket already used")
	ErrTicketExpired      = errors.New("ticket expired")
	ErrNoFaceReference    = errors.New("no face registered for user")
	ErrFaceMismatch       = errors.New("face does not match")
	ErrSearchUnavailable  = errors.New("ticket search is not available")
)
