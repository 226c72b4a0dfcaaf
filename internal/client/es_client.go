package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"ticketing-service/internal/config"
	"ticketing-service/internal/model"
	"ticketing-service/internal/util"
)

// ESClient maintains the ticket search index. Indexing is best-effort; the
// Scylla store remains the source of truth.
type ESClient struct {
	Client *elasticsearch.Client
	config *config.ElasticsearchConfig
	logger *zap.Logger
}

type ticketDoc struct {
	TicketID    string `json:"ticket_id"`
	UserID      string `json:"user_id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	PhoneNumber string `json:"phone_number"`
	BookingDate string `json:"booking_date"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func NewElasticsearchClient(cfg *config.Config, logger *zap.Logger) (*ESClient, error) {
	esConfig := cfg.Elasticsearch

	elasticConfig := elasticsearch.Config{
		Addresses: []string{esConfig.URL},
		Username:  esConfig.Username,
		Password:  esConfig.Password,
	}

	client, err := elasticsearch.NewClient(elasticConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	esClient := &ESClient{
		Client: client,
		config: &esConfig,
		logger: util.Get(),
	}

	if err := esClient.HealthCheck(); err != nil {
		return nil, fmt.Errorf("elasticsearch connection test failed: %w", err)
	}

	util.Info("Elasticsearch client initialized",
		zap.String("url", esConfig.URL),
		zap.String("ticket_index", esConfig.TicketIndex),
	)

	return esClient, nil
}

func (e *ESClient) Close() {
	util.Info("Elasticsearch client shutdown")
}

func (e *ESClient) HealthCheck() error {
	res, err := e.Client.Info()
	if err != nil {
		return fmt.Errorf("failed to get cluster info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// IndexTicket upserts one ticket document keyed by ticket id.
func (e *ESClient) IndexTicket(ctx context.Context, t *model.Ticket) error {
	doc := ticketDoc{
		TicketID:    t.TicketID,
		UserID:      t.UserID.String(),
		Source:      t.Source,
		Destination: t.Destination,
		PhoneNumber: t.PhoneNumber,
		BookingDate: t.BookingDate,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      e.config.TicketIndex,
		DocumentID: t.TicketID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, e.Client)
	if err != nil {
		return fmt.Errorf("failed to index ticket: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.String())
	}
	return nil
}

// SearchTickets runs a match query over a user's own tickets.
func (e *ESClient) SearchTickets(ctx context.Context, userID, query string, size int) ([]map[string]interface{}, error) {
	var buf bytes.Buffer
	q := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"user_id": userID}},
				},
				"must": []map[string]interface{}{
					{"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"source", "destination", "phone_number", "booking_date", "status", "ticket_id"},
					}},
				},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.config.TicketIndex),
		e.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search tickets: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		// A missing index just means nothing was indexed yet.
		if strings.Contains(res.String(), "index_not_found_exception") {
			return nil, nil
		}
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	out := make([]map[string]interface{}, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}
