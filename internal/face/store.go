package face

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"ticketing-service/internal/encryption"
)

// Store keeps one encrypted reference image per user on local disk. A new
// registration overwrites the previous reference.
type Store struct {
	dir string
	enc *encryption.Manager
}

func NewStore(dir string, enc *encryption.Manager) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create face storage dir: %w", err)
	}
	return &Store{dir: dir, enc: enc}, nil
}

// Save encrypts and writes the reference image, returning its path.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, image []byte) (string, error) {
	env, err := s.enc.Encrypt(ctx, image)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt face image: %w", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal face envelope: %w", err)
	}

	path := filepath.Join(s.dir, userID.String()+".face")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write face image: %w", err)
	}

	return path, nil
}

// Load reads and decrypts a previously saved reference image.
func (s *Store) Load(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read face image: %w", err)
	}

	var env encryption.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse face envelope: %w", err)
	}

	image, err := s.enc.Decrypt(ctx, &env)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt face image: %w", err)
	}

	return image, nil
}
