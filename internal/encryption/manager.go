package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"

	"ticketing-service/internal/config"
	"ticketing-service/internal/util"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Envelope is the at-rest form of an encrypted blob: AES-256-GCM ciphertext
// plus the KMS-wrapped data key that produced it.
type Envelope struct {
	Ciphertext   string    `json:"ciphertext"`
	EncryptedDEK string    `json:"encrypted_dek"`
	KeyID        string    `json:"key_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Manager performs envelope encryption of biometric reference images. When
// KMS is disabled (development) data keys are generated locally and stored
// unwrapped, which keeps the file format identical across environments.
type Manager struct {
	kmsClient *kms.Client
	config    *config.Config
	keyCache  sync.Map // encrypted DEK -> plaintext key
}

func NewManager(cfg *config.Config, kmsClient *kms.Client) *Manager {
	return &Manager{
		kmsClient: kmsClient,
		config:    cfg,
	}
}

func (m *Manager) generateDataKey(ctx context.Context) (plaintext, wrapped []byte, keyID string, err error) {
	if !m.config.KMS.Enabled || m.kmsClient == nil {
		key := make([]byte, 32) // AES-256
		if _, err := rand.Read(key); err != nil {
			return nil, nil, "", fmt.Errorf("failed to generate local key: %w", err)
		}
		// Development only: the "wrapped" key is the key itself.
		return key, key, "local", nil
	}

	out, err := m.kmsClient.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(m.config.KMS.KeyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to generate data key: %w", err)
	}

	return out.Plaintext, out.CiphertextBlob, m.config.KMS.KeyID, nil
}

func (m *Manager) unwrapDataKey(ctx context.Context, wrapped []byte, keyID string) ([]byte, error) {
	if keyID == "local" {
		return wrapped, nil
	}
	if m.kmsClient == nil {
		return nil, fmt.Errorf("%w: kms client not configured for key %s", ErrDecryptionFailed, keyID)
	}

	cacheKey := base64.StdEncoding.EncodeToString(wrapped)
	if cached, ok := m.keyCache.Load(cacheKey); ok {
		return cached.([]byte), nil
	}

	out, err := m.kmsClient.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: wrapped,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap data key: %w", err)
	}

	m.keyCache.Store(cacheKey, out.Plaintext)
	return out.Plaintext, nil
}

// Encrypt seals a blob under a fresh data key.
func (m *Manager) Encrypt(ctx context.Context, plaintext []byte) (*Envelope, error) {
	key, wrapped, keyID, err := m.generateDataKey(ctx)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	return &Envelope{
		Ciphertext:   base64.StdEncoding.EncodeToString(sealed),
		EncryptedDEK: base64.StdEncoding.EncodeToString(wrapped),
		KeyID:        keyID,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Decrypt opens a previously sealed envelope.
func (m *Manager) Decrypt(ctx context.Context, env *Envelope) ([]byte, error) {
	wrapped, err := base64.StdEncoding.DecodeString(env.EncryptedDEK)
	if err != nil {
		return nil, fmt.Errorf("%w: bad data key encoding", ErrDecryptionFailed)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", ErrDecryptionFailed)
	}

	key, err := m.unwrapDataKey(ctx, wrapped, env.KeyID)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return plaintext, nil
}

// ClearCache drops all cached plaintext data keys.
func (m *Manager) ClearCache() {
	m.keyCache.Range(func(key, _ interface{}) bool {
		m.keyCache.Delete(key)
		return true
	})
	util.Debug("Encryption key cache cleared")
}
