package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateReportsAllMissingSettings(t *testing.T) {
	cfg := &Config{Environment: "development"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "SCYLLA_NODES")
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestValidateProductionRequiresDeliveryCredentials(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Auth:        AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour},
		Scylla:      ScyllaConfig{Nodes: []string{"localhost:9042"}},
		Redis:       RedisConfig{URL: "redis://localhost:6379"},
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "TWILIO")
}

func TestValidatePassesWithRequiredSettings(t *testing.T) {
	cfg := &Config{
		Environment: "development",
		Auth:        AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour},
		Scylla:      ScyllaConfig{Nodes: []string{"localhost:9042"}},
		Redis:       RedisConfig{URL: "redis://localhost:6379"},
	}

	assert.NoError(t, cfg.Validate())
}
