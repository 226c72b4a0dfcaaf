package service

import (
	"time"

	"go.uber.org/zap"

	"ticketing-service/internal/bucketing"
	"ticketing-service/internal/face"
	"ticketing-service/internal/hashing"
	"ticketing-service/internal/repository/scylla"
	"ticketing-service/internal/token"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	userRepo     scylla.UserRepository
	ticketRepo   scylla.TicketRepository
	otpStore     OTPStore
	smsSender    SMSSender
	hasher       *hashing.Hasher
	tokens       *token.Manager
	bucketingMgr *bucketing.Manager
	matcher      *face.Matcher
	faceStore    *face.Store
	producer     EventProducer
	audit        AuditRecorder
	index        TicketIndexer
	logger       *zap.Logger

	ticketTopic  string
	ticketPrefix string
	ticketTTL    time.Duration
	otpTTL       time.Duration
	otpAttempts  int
	environment  string

	authService   *AuthService
	otpService    *OTPService
	ticketService *TicketService
	faceService   *FaceService
}

// ServiceFactoryParams bundles the dependencies the factory hands out.
type ServiceFactoryParams struct {
	UserRepo     scylla.UserRepository
	TicketRepo   scylla.TicketRepository
	OTPStore     OTPStore
	SMSSender    SMSSender
	Hasher       *hashing.Hasher
	Tokens       *token.Manager
	BucketingMgr *bucketing.Manager
	Matcher      *face.Matcher
	FaceStore    *face.Store
	Producer     EventProducer
	Audit        AuditRecorder
	Index        TicketIndexer
	Logger       *zap.Logger

	TicketTopic  string
	TicketPrefix string
	TicketTTL    time.Duration
	OTPTTL       time.Duration
	OTPAttempts  int
	Environment  string
}

func NewServiceFactory(p ServiceFactoryParams) *ServiceFactory {
	return &ServiceFactory{
		userRepo:     p.UserRepo,
		ticketRepo:   p.TicketRepo,
		otpStore:     p.OTPStore,
		smsSender:    p.SMSSender,
		hasher:       p.Hasher,
		tokens:       p.Tokens,
		bucketingMgr: p.BucketingMgr,
		matcher:      p.Matcher,
		faceStore:    p.FaceStore,
		producer:     p.Producer,
		audit:        p.Audit,
		index:        p.Index,
		logger:       p.Logger,
		ticketTopic:  p.TicketTopic,
		ticketPrefix: p.TicketPrefix,
		ticketTTL:    p.TicketTTL,
		otpTTL:       p.OTPTTL,
		otpAttempts:  p.OTPAttempts,
		environment:  p.Environment,
	}
}

// AuthService returns the auth service instance (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(f.userRepo, f.hasher, f.tokens, f.bucketingMgr, f.logger)
	}
	return f.authService
}

// OTPService returns the OTP service instance (singleton)
func (f *ServiceFactory) OTPService() *OTPService {
	if f.otpService == nil {
		f.otpService = NewOTPService(f.otpStore, f.smsSender, f.hasher, f.tokens,
			f.otpTTL, f.otpAttempts, f.environment, f.logger)
	}
	return f.otpService
}

// TicketService returns the ticket service instance (singleton)
func (f *ServiceFactory) TicketService() *TicketService {
	if f.ticketService == nil {
		f.ticketService = NewTicketService(f.ticketRepo, f.userRepo, f.bucketingMgr,
			f.matcher, f.faceStore, f.producer, f.audit, f.index,
			f.ticketTopic, f.ticketPrefix, f.ticketTTL, f.logger)
	}
	return f.ticketService
}

// FaceService returns the face service instance (singleton)
func (f *ServiceFactory) FaceService() *FaceService {
	if f.faceService == nil {
		f.faceService = NewFaceService(f.userRepo, f.bucketingMgr, f.faceStore, f.logger)
	}
	return f.faceService
}
