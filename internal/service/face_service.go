package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticketing-service/internal/bucketing"
	"ticketing-service/internal/face"
	"ticketing-service/internal/repository/scylla"
	"ticketing-service/internal/util"
)

// FaceService manages the reference photo used for gate verification. One
// reference exists per user; re-registering replaces it.
type FaceService struct {
	users     scylla.UserRepository
	bucketing *bucketing.Manager
	faces     *face.Store
	logger    *zap.Logger
}

type RegisterFaceRequest struct {
	Image string `json:"image"`
}

func NewFaceService(
	users scylla.UserRepository,
	bucketing *bucketing.Manager,
	faces *face.Store,
	logger *zap.Logger,
) *FaceService {
	return &FaceService{
		users:     users,
		bucketing: bucketing,
		faces:     faces,
		logger:    logger,
	}
}

// RegisterFace stores the submitted photo encrypted at rest and points the
// user record at it.
func (s *FaceService) RegisterFace(ctx context.Context, userID uuid.UUID, req *RegisterFaceRequest) error {
	image, err := decodeImage(req.Image)
	if err != nil {
		return fmt.Errorf("%w: a base64-encoded image is required", ErrInvalidInput)
	}

	path, err := s.faces.Save(ctx, userID, image)
	if err != nil {
		return err
	}

	bucket := s.bucketing.UserBucket(userID)
	if err := s.users.UpdateFaceRef(ctx, bucket, userID, path); err != nil {
		return fmt.Errorf("failed to link face reference: %w", err)
	}

	s.logger.Info("Face reference registered",
		util.String("user_id", userID.String()))
	return nil
}

// decodeImage accepts raw base64 or a data URL and returns the image bytes.
func decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}
	if encoded == "" {
		return nil, fmt.Errorf("empty image payload")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return data, nil
}
