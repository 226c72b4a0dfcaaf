package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"ticketing-service/internal/hashing"
	redisrepo "ticketing-service/internal/repository/redis"
	"ticketing-service/internal/token"
	"ticketing-service/internal/util"
)

// OTPStore is the ephemeral code store the service depends on.
type OTPStore interface {
	SetOTP(ctx context.Context, phoneNumber, otpHash string, ttl time.Duration) error
	GetOTP(ctx context.Context, phoneNumber string) (string, error)
	DeleteOTP(ctx context.Context, phoneNumber string) error
	IncrementAttempts(ctx context.Context, phoneNumber string, ttl time.Duration) (int, error)
}

// SMSSender dispatches a text message to an E.164 number.
type SMSSender interface {
	SendSMS(to, body string) error
}

// OTPService implements phone ownership proof: a short-lived 6-digit code
// delivered over SMS, stored hashed, consumed on first successful match.
type OTPService struct {
	store       OTPStore
	sender      SMSSender
	hasher      *hashing.Hasher
	tokens      *token.Manager
	ttl         time.Duration
	maxAttempts int
	environment string
	logger      *zap.Logger
}

// VerifyResult carries the phone-scope token minted after a correct code.
type VerifyResult struct {
	Token       string `json:"token"`
	PhoneNumber string `json:"phoneNumber"`
}

func NewOTPService(
	store OTPStore,
	sender SMSSender,
	hasher *hashing.Hasher,
	tokens *token.Manager,
	ttl time.Duration,
	maxAttempts int,
	environment string,
	logger *zap.Logger,
) *OTPService {
	return &OTPService{
		store:       store,
		sender:      sender,
		hasher:      hasher,
		tokens:      tokens,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		environment: environment,
		logger:      logger,
	}
}

// SendOTP generates a fresh code, delivers it, then caches its hash with the
// expiry window. Delivery happens first: a code that was never sent must not
// be verifiable. Requesting again replaces any live code for the number.
// Outside production the code is returned so callers can surface it; in
// production the SMS is the only channel.
func (s *OTPService) SendOTP(ctx context.Context, phoneNumber string) (string, error) {
	phoneNumber = util.SanitizeInput(phoneNumber)
	if !util.IsE164(phoneNumber) {
		return "", fmt.Errorf("%w: phone number must be in E.164 format", ErrInvalidInput)
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	body := fmt.Sprintf("Your ticketing verification code is %s. It expires in %d minutes.",
		code, int(s.ttl.Minutes()))
	if err := s.sender.SendSMS(phoneNumber, body); err != nil {
		s.logger.Error("OTP delivery failed",
			util.String("phone_number", phoneNumber),
			zap.Error(err))
		return "", ErrDeliveryFailed
	}

	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	if err := s.store.SetOTP(ctx, phoneNumber, codeHash, s.ttl); err != nil {
		return "", err
	}

	s.logger.Info("OTP sent",
		util.String("phone_number", phoneNumber),
		util.Duration("ttl", s.ttl))

	if s.environment == "production" {
		return "", nil
	}
	return code, nil
}

// VerifyOTP checks the submitted code against the stored hash. The code is
// single use: a match deletes it before the token is issued. Repeated wrong
// guesses beyond the attempt cap invalidate the code entirely.
func (s *OTPService) VerifyOTP(ctx context.Context, phoneNumber, code string) (*VerifyResult, error) {
	phoneNumber = util.SanitizeInput(phoneNumber)
	if phoneNumber == "" || code == "" {
		return nil, fmt.Errorf("%w: phone number and code are required", ErrInvalidInput)
	}

	storedHash, err := s.store.GetOTP(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, redisrepo.ErrNoOTP) {
			return nil, ErrOTPNotFound
		}
		return nil, err
	}

	attempts, err := s.store.IncrementAttempts(ctx, phoneNumber, s.ttl)
	if err != nil {
		return nil, err
	}
	if attempts > s.maxAttempts {
		_ = s.store.DeleteOTP(ctx, phoneNumber)
		s.logger.Warn("OTP invalidated after too many attempts",
			util.String("phone_number", phoneNumber),
			util.Int("attempts", attempts))
		return nil, ErrOTPNotFound
	}

	match, err := s.hasher.Verify(code, storedHash)
	if err != nil || !match {
		return nil, ErrOTPMismatch
	}

	if err := s.store.DeleteOTP(ctx, phoneNumber); err != nil {
		// Redis expiry still bounds the code's lifetime.
		s.logger.Warn("Failed to delete consumed OTP",
			util.String("phone_number", phoneNumber),
			zap.Error(err))
	}

	signed, err := s.tokens.IssuePhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Phone number verified",
		util.String("phone_number", phoneNumber))

	return &VerifyResult{Token: signed, PhoneNumber: phoneNumber}, nil
}

// generateCode returns a uniformly random 6-digit code, zero padded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
