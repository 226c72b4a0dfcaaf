package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"go.uber.org/zap"

	"ticketing-service/internal/bucketing"
	"ticketing-service/internal/client"
	"ticketing-service/internal/config"
	"ticketing-service/internal/encryption"
	"ticketing-service/internal/face"
	"ticketing-service/internal/hashing"
	redisrepo "ticketing-service/internal/repository/redis"
	"ticketing-service/internal/repository/scylla"
	"ticketing-service/internal/service"
	"ticketing-service/internal/token"
	"ticketing-service/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config *config.Config

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient
	twilioClient     *client.TwilioClient

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.Manager
	bucketingManager  *bucketing.Manager
	tokenManager      *token.Manager
	recognizer        face.Recognizer
	matcher           *face.Matcher
	faceStore         *face.Store

	// Repositories
	userRepository   scylla.UserRepository
	ticketRepository scylla.TicketRepository
	otpCache         *redisrepo.OTPCache

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("kafka_enabled", cfg.Kafka.Enabled),
		util.Bool("clickhouse_enabled", cfg.Clickhouse.Enabled),
		util.Bool("elasticsearch_enabled", cfg.Elasticsearch.Enabled),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
		if err := f.scyllaClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka
	if f.config.Kafka.Enabled {
		if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
			util.Info("Kafka producer initialized")
		}
	}

	// Elasticsearch
	if f.config.Elasticsearch.Enabled {
		if esClient, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
			util.Warn("Elasticsearch initialization failed - proceeding without search", util.ErrorField(err))
		} else {
			f.esClient = esClient
		}
	}

	// ClickHouse
	if f.config.Clickhouse.Enabled {
		if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
			util.Warn("ClickHouse initialization failed - proceeding without audit trail", util.ErrorField(err))
		} else {
			f.clickhouseClient = chClient
		}
	}

	// Twilio
	if twilioClient, err := client.NewTwilioClient(f.config, util.Get()); err != nil {
		if f.config.IsProduction() {
			initErrors = append(initErrors, fmt.Errorf("twilio: %w", err))
		} else {
			util.Warn("Twilio unavailable - codes will be logged instead of sent", util.ErrorField(err))
		}
	} else {
		f.twilioClient = twilioClient
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes hashing, encryption, tokens and face matching
func (f *Factory) initializeManagers() error {
	f.hasher = hashing.NewHasher()
	f.bucketingManager = bucketing.NewManager(0)
	f.tokenManager = token.NewManager(f.config.Auth.JWTSecret, f.config.Auth.TokenTTL)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			return fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		kmsClient = kms.NewFromConfig(awsCfg)
	}
	f.encryptionManager = encryption.NewManager(f.config, kmsClient)

	recognizer, err := face.NewDlibRecognizer(f.config.Face.ModelsDir)
	if err != nil {
		if f.config.IsProduction() {
			return fmt.Errorf("failed to initialize face recognizer: %w", err)
		}
		util.Warn("Face recognizer unavailable - all verifications will be denied", util.ErrorField(err))
		recognizer = unavailableRecognizer{}
	}
	f.recognizer = recognizer
	f.matcher = face.NewMatcher(recognizer, f.config.Face.MatchDistance)

	store, err := face.NewStore(f.config.Face.StorageDir, f.encryptionManager)
	if err != nil {
		return err
	}
	f.faceStore = store

	util.Info("Managers initialized successfully",
		util.Float64("face_match_distance", f.config.Face.MatchDistance),
	)
	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) UserRepository() scylla.UserRepository {
	if f.userRepository == nil {
		f.userRepository = scylla.NewUserRepository(f.scyllaClient, util.Get())
	}
	return f.userRepository
}

func (f *Factory) TicketRepository() scylla.TicketRepository {
	if f.ticketRepository == nil {
		f.ticketRepository = scylla.NewTicketRepository(f.scyllaClient, util.Get())
	}
	return f.ticketRepository
}

func (f *Factory) OTPCache() *redisrepo.OTPCache {
	if f.otpCache == nil {
		f.otpCache = redisrepo.NewOTPCache(f.redisClient)
	}
	return f.otpCache
}

func (f *Factory) TokenManager() *token.Manager {
	return f.tokenManager
}

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		// Assign only non-nil clients so the services see untyped nils.
		var producer service.EventProducer
		if f.kafkaProducer != nil {
			producer = f.kafkaProducer
		}
		var audit service.AuditRecorder
		if f.clickhouseClient != nil {
			audit = f.clickhouseClient
		}
		var index service.TicketIndexer
		if f.esClient != nil {
			index = f.esClient
		}
		var sender service.SMSSender
		if f.twilioClient != nil {
			sender = f.twilioClient
		} else {
			sender = logSMSSender{}
		}

		f.serviceFactory = service.NewServiceFactory(service.ServiceFactoryParams{
			UserRepo:     f.UserRepository(),
			TicketRepo:   f.TicketRepository(),
			OTPStore:     f.OTPCache(),
			SMSSender:    sender,
			Hasher:       f.hasher,
			Tokens:       f.tokenManager,
			BucketingMgr: f.bucketingManager,
			Matcher:      f.matcher,
			FaceStore:    f.faceStore,
			Producer:     producer,
			Audit:        audit,
			Index:        index,
			Logger:       util.Get(),
			TicketTopic:  f.config.Kafka.TicketTopic,
			TicketPrefix: f.config.Ticket.IDPrefix,
			TicketTTL:    f.config.Ticket.TTL,
			OTPTTL:       f.config.OTP.TTL,
			OTPAttempts:  f.config.OTP.MaxAttempts,
			Environment:  f.config.Environment,
		})
	}
	return f.serviceFactory
}

// HealthCheck reports per-dependency status for the health endpoint.
func (f *Factory) HealthCheck(ctx context.Context) map[string]string {
	statuses := make(map[string]string)

	report := func(name string, err error) {
		if err != nil {
			statuses[name] = err.Error()
		} else {
			statuses[name] = "ok"
		}
	}

	if f.redisClient != nil {
		report("redis", f.redisClient.HealthCheck(ctx))
	} else {
		statuses["redis"] = "not initialized"
	}
	if f.scyllaClient != nil {
		report("scylla", f.scyllaClient.HealthCheck(ctx))
	} else {
		statuses["scylla"] = "not initialized"
	}
	if f.kafkaProducer != nil {
		report("kafka", f.kafkaProducer.HealthCheck(ctx))
	}
	if f.clickhouseClient != nil {
		report("clickhouse", f.clickhouseClient.HealthCheck(ctx))
	}
	if f.esClient != nil {
		report("elasticsearch", f.esClient.HealthCheck())
	}

	return statuses
}

// Close shuts down all clients in reverse dependency order.
func (f *Factory) Close() {
	f.closeOnce.Do(func() {
		util.Info("Shutting down factory")

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}
		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse connection", util.ErrorField(err))
			}
		}
		if f.esClient != nil {
			f.esClient.Close()
		}
		if f.recognizer != nil {
			f.recognizer.Close()
		}
		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}
		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			}
		}
		f.encryptionManager.ClearCache()

		close(f.closed)
		util.Info("Factory shutdown complete")
	})
}

// logSMSSender stands in for Twilio in development environments.
type logSMSSender struct{}

func (logSMSSender) SendSMS(to, body string) error {
	util.Info("SMS (dev mode, not sent)",
		util.String("to", to),
		zap.String("body", body))
	return nil
}

// unavailableRecognizer fails every extraction, which makes the matcher
// deny every verification.
type unavailableRecognizer struct{}

func (unavailableRecognizer) ExtractDescriptor([]byte) (face.Descriptor, bool, error) {
	return face.Descriptor{}, false, fmt.Errorf("face recognizer not available")
}

func (unavailableRecognizer) Distance(a, b face.Descriptor) float64 { return 0 }

func (unavailableRecognizer) Close() {}
