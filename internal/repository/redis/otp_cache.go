package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ticketing-service/internal/client"
	"ticketing-service/internal/util"
)

const (
	otpPrefix        = "otp:"
	otpAttemptPrefix = "otp_attempts:"
)

// ErrNoOTP is returned when no live code exists for a phone number, either
// because none was requested or because it expired or was consumed.
var ErrNoOTP = errors.New("no live otp for phone")

// OTPCache is the ephemeral one-time-code store: put-with-ttl, get, and
// delete-on-verify. Redis expiry purges unused codes; at most one live code
// exists per phone number because Set overwrites.
type OTPCache struct {
	client *client.RedisClient
}

func NewOTPCache(client *client.RedisClient) *OTPCache {
	return &OTPCache{client: client}
}

func (c *OTPCache) SetOTP(ctx context.Context, phoneNumber, otpHash string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := otpPrefix + phoneNumber
	if err := c.client.Set(ctx, key, otpHash, ttl); err != nil {
		util.Error("Failed to set OTP in cache",
			zap.String("phone_number", phoneNumber),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("failed to set OTP in cache: %w", err)
	}

	// A fresh code resets the attempt counter for the number.
	_ = c.client.Del(ctx, otpAttemptPrefix+phoneNumber)

	util.Debug("OTP cached",
		zap.String("phone_number", phoneNumber),
		zap.Duration("ttl", ttl))
	return nil
}

func (c *OTPCache) GetOTP(ctx context.Context, phoneNumber string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := otpPrefix + phoneNumber

	otpHash, err := c.client.Get(ctx, key)
	if err != nil {
		if err.Error() == fmt.Sprintf("key not found: %s", key) {
			return "", ErrNoOTP
		}
		util.Error("Failed to get OTP from cache",
			zap.String("phone_number", phoneNumber),
			zap.Error(err))
		return "", fmt.Errorf("failed to get OTP from cache: %w", err)
	}

	return otpHash, nil
}

func (c *OTPCache) DeleteOTP(ctx context.Context, phoneNumber string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, otpPrefix+phoneNumber, otpAttemptPrefix+phoneNumber); err != nil {
		util.Error("Failed to delete OTP from cache",
			zap.String("phone_number", phoneNumber),
			zap.Error(err))
		return fmt.Errorf("failed to delete OTP from cache: %w", err)
	}

	util.Debug("OTP deleted from cache",
		zap.String("phone_number", phoneNumber))
	return nil
}

// IncrementAttempts counts failed verifications within the code's window.
func (c *OTPCache) IncrementAttempts(ctx context.Context, phoneNumber string, ttl time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := c.client.IncrWithExpire(ctx, otpAttemptPrefix+phoneNumber, ttl)
	if err != nil {
		util.Error("Failed to increment OTP attempts",
			zap.String("phone_number", phoneNumber),
			zap.Error(err))
		return 0, fmt.Errorf("failed to increment OTP attempts: %w", err)
	}

	return int(count), nil
}
