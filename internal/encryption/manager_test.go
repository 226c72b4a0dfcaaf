package encryption

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing-service/internal/config"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	m := NewManager(&config.Config{}, nil)
	ctx := context.Background()

	env, err := m.Encrypt(ctx, []byte("biometric reference bytes"))
	require.NoError(t, err)
	assert.Equal(t, "local", env.KeyID)
	assert.NotEmpty(t, env.Ciphertext)

	plaintext, err := m.Decrypt(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, []byte("biometric reference bytes"), plaintext)
}

func TestEachEnvelopeUsesFreshKey(t *testing.T) {
	m := NewManager(&config.Config{}, nil)
	ctx := context.Background()

	first, err := m.Encrypt(ctx, []byte("same input"))
	require.NoError(t, err)
	second, err := m.Encrypt(ctx, []byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, first.EncryptedDEK, second.EncryptedDEK)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	m := NewManager(&config.Config{}, nil)
	ctx := context.Background()

	env, err := m.Encrypt(ctx, []byte("payload"))
	require.NoError(t, err)

	env.Ciphertext = "AAAA" + env.Ciphertext[4:]
	_, err = m.Decrypt(ctx, env)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
