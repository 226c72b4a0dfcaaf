package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticketing-service/internal/bucketing"
	"ticketing-service/internal/hashing"
	"ticketing-service/internal/model"
	"ticketing-service/internal/repository/scylla"
	"ticketing-service/internal/token"
	"ticketing-service/internal/util"
)

// AuthService handles registration, login and identity lookups. Passwords
// are stored only as argon2id hashes; credential failures are deliberately
// indistinguishable to prevent account enumeration.
type AuthService struct {
	userRepo  scylla.UserRepository
	hasher    *hashing.Hasher
	tokens    *token.Manager
	bucketing *bucketing.Manager
	logger    *zap.Logger
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult pairs the public user fields with a fresh session token.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func NewAuthService(
	userRepo scylla.UserRepository,
	hasher *hashing.Hasher,
	tokens *token.Manager,
	bucketing *bucketing.Manager,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		hasher:    hasher,
		tokens:    tokens,
		bucketing: bucketing,
		logger:    logger,
	}
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	name := util.SanitizeInput(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if name == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		UserID:       uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}
	user.UserBucket = s.bucketing.UserBucket(user.UserID)

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, scylla.ErrEmailExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	signed, err := s.tokens.IssueSession(user.UserID, user.Email, user.PhoneNumber)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		util.String("user_id", user.UserID.String()))

	return &AuthResult{Token: signed, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			// Same failure as a wrong password: do not leak which one it was.
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	match, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}

	signed, err := s.tokens.IssueSession(user.UserID, user.Email, user.PhoneNumber)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in",
		util.String("user_id", user.UserID.String()))

	return &AuthResult{Token: signed, User: user}, nil
}

// GetUser loads a user by id, deriving the storage bucket from the id. A
// missing row behind a valid token reads as a credential failure; the account
// no longer exists.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, s.bucketing.UserBucket(userID), userID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}
