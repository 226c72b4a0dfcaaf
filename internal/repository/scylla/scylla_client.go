package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"ticketing-service/internal/config"
	"ticketing-service/internal/util"
)

// Schema applied on startup. Ticket rows get their TTL per insert so the
// store purges them 24 hours after creation regardless of status.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
        user_bucket   int,
        user_id       uuid,
        name          text,
        email         text,
        password_hash text,
        phone_number  text,
        face_ref      text,
        created_at    timestamp,
        updated_at    timestamp,
        PRIMARY KEY ((user_bucket), user_id))`,
	`CREATE TABLE IF NOT EXISTS email_to_user (
        email       text,
        user_bucket int,
        user_id     uuid,
        created_at  timestamp,
        PRIMARY KEY (email))`,
	`CREATE TABLE IF NOT EXISTS tickets (
        user_id      uuid,
        ticket_id    text,
        source       text,
        destination  text,
        phone_number text,
        booking_date text,
        qr_data      text,
        qr_code      blob,
        status       text,
        created_at   timestamp,
        expires_at   timestamp,
        PRIMARY KEY ((user_id), ticket_id))`,
	`CREATE TABLE IF NOT EXISTS tickets_by_code (
        qr_hash   text,
        user_id   uuid,
        ticket_id text,
        PRIMARY KEY (qr_hash))`,
}

type ScyllaClient struct {
	Session *gocql.Session
	config  *config.ScyllaConfig
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.ensureSchema(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) ensureSchema() error {
	for _, ddl := range schemaDDL {
		if err := s.Session.Query(ddl).Exec(); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var release string
	if err := s.Session.Query(`SELECT release_version FROM system.local`).WithContext(ctx).Scan(&release); err != nil {
		return fmt.Errorf("scylla health query failed: %w", err)
	}
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB session closed")
	}
}
