package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticketing-service/internal/model"
	"ticketing-service/internal/util"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrEmailExists = errors.New("email already registered")
)

// UserRepository is the storage interface consumed by the services.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, bucket int, userID uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateFaceRef(ctx context.Context, bucket int, userID uuid.UUID, faceRef string) error
	HealthCheck(ctx context.Context) error
}

type userRepository struct {
	client *ScyllaClient
}

func NewUserRepository(client *ScyllaClient, logger *zap.Logger) UserRepository {
	return &userRepository{client: client}
}

// CreateUser claims the email via a lightweight transaction first, then
// writes the user row. Losing the LWT race surfaces as ErrEmailExists.
func (r *userRepository) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	applied, err := r.client.Session.Query(`
        INSERT INTO email_to_user (email, user_bucket, user_id, created_at)
        VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		user.Email, user.UserBucket, user.UserID, now).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		util.Error("Failed to claim email",
			zap.String("email", user.Email),
			zap.Error(err))
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !applied {
		return ErrEmailExists
	}

	if err := r.client.Session.Query(`
        INSERT INTO users (user_bucket, user_id, name, email, password_hash,
            phone_number, face_ref, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.UserBucket, user.UserID, user.Name, user.Email, user.PasswordHash,
		user.PhoneNumber, user.FaceRef, user.CreatedAt, user.UpdatedAt).
		WithContext(ctx).Exec(); err != nil {
		// Roll the email claim back so the address is not orphaned.
		_ = r.client.Session.Query(`DELETE FROM email_to_user WHERE email = ?`, user.Email).
			WithContext(ctx).Exec()
		util.Error("Failed to create user",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	util.Info("User created",
		zap.String("user_id", user.UserID.String()),
		zap.Int("user_bucket", user.UserBucket))

	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, bucket int, userID uuid.UUID) (*model.User, error) {
	user := &model.User{}

	err := r.client.Session.Query(`
        SELECT user_bucket, user_id, name, email, password_hash, phone_number,
            face_ref, created_at, updated_at
        FROM users WHERE user_bucket = ? AND user_id = ?`,
		bucket, userID).WithContext(ctx).Scan(
		&user.UserBucket, &user.UserID, &user.Name, &user.Email, &user.PasswordHash,
		&user.PhoneNumber, &user.FaceRef, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrNotFound
		}
		util.Error("Failed to get user by ID",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var (
		bucket int
		userID uuid.UUID
	)

	err := r.client.Session.Query(`
        SELECT user_bucket, user_id FROM email_to_user WHERE email = ?`, email).
		WithContext(ctx).Scan(&bucket, &userID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrNotFound
		}
		util.Error("Failed to resolve email",
			zap.String("email", email),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve email: %w", err)
	}

	return r.GetUserByID(ctx, bucket, userID)
}

func (r *userRepository) UpdateFaceRef(ctx context.Context, bucket int, userID uuid.UUID, faceRef string) error {
	if err := r.client.Session.Query(`
        UPDATE users SET face_ref = ?, updated_at = ?
        WHERE user_bucket = ? AND user_id = ?`,
		faceRef, time.Now().UTC(), bucket, userID).
		WithContext(ctx).Exec(); err != nil {
		util.Error("Failed to update face reference",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update face reference: %w", err)
	}
	return nil
}

func (r *userRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
