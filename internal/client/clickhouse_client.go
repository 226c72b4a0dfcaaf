package client

import (
	"context"
	"fmt"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"ticketing-service/internal/config"
	"ticketing-service/internal/model"
	"ticketing-service/internal/util"
)

// ClickHouseClient writes append-only verification audit rows. The table is
// created on first connect so a fresh environment needs no manual migration.
type ClickHouseClient struct {
	conn   driver.Conn
	config *config.ClickhouseConfig
}

const auditTableDDL = `
CREATE TABLE IF NOT EXISTS verification_events (
    event_type  String,
    ticket_id   String,
    user_id     String,
    outcome     String,
    distance    Float64,
    occurred_at DateTime64(3)
) ENGINE = MergeTree()
ORDER BY (occurred_at, ticket_id)
TTL toDateTime(occurred_at) + INTERVAL 90 DAY`

func NewClickHouseClient(cfg *config.Config, logger *zap.Logger) (*ClickHouseClient, error) {
	chConfig := cfg.Clickhouse

	opts := &ch.Options{
		Addr: []string{chConfig.URL},
		Auth: ch.Auth{
			Username: chConfig.Username,
			Password: chConfig.Password,
			Database: chConfig.Database,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	if err := conn.Exec(ctx, auditTableDDL); err != nil {
		return nil, fmt.Errorf("failed to ensure verification_events table: %w", err)
	}

	util.Info("ClickHouse client initialized",
		zap.String("url", chConfig.URL),
		zap.String("database", chConfig.Database))

	return &ClickHouseClient{conn: conn, config: &chConfig}, nil
}

// RecordEvent appends one audit row. Callers treat failures as best-effort.
func (c *ClickHouseClient) RecordEvent(ctx context.Context, ev *model.TicketEvent) error {
	err := c.conn.AsyncInsert(ctx, `
        INSERT INTO verification_events
            (event_type, ticket_id, user_id, outcome, distance, occurred_at)
        VALUES (?, ?, ?, ?, ?, ?)`, false,
		ev.Type, ev.TicketID, ev.UserID, ev.Outcome, ev.Distance, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert verification event: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) HealthCheck(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse ping failed: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) Close() error {
	return c.conn.Close()
}
