// Package clients looks up returning clients by name.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/shopspring/decimal"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
	ErrIndexFailed       = errors.New("SEARCH_INDEX_FAILED")
)

const DefaultLimit = 25

// Searcher finds clients whose name contains the query, case-insensitively.
// application.PostgresRepository and ElasticsearchIndex both satisfy it.
type Searcher interface {
	SearchByName(ctx context.Context, name string, limit int) ([]models.ClientSummary, error)
}

// IndexMapping is applied when the client index is first created.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "name":           {"type": "keyword"},
      "phone":          {"type": "keyword"},
      "email":          {"type": "keyword"},
      "receipt_number": {"type": "keyword"},
      "amount":         {"type": "scaled_float", "scaling_factor": 100},
      "term":           {"type": "keyword"},
      "created_at":     {"type": "date"}
    }
  }
}`

type indexDocument struct {
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	ReceiptNumber string    `json:"receipt_number"`
	Amount        string    `json:"amount"`
	Term          string    `json:"term"`
	CreatedAt     time.Time `json:"created_at"`
}

type ElasticsearchIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchIndex(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchIndex {
	return &ElasticsearchIndex{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "client-search", "index": index}),
	}
}

// Index upserts one document per receipt number.
func (e *ElasticsearchIndex) Index(ctx context.Context, s models.ClientSummary) error {
	body, err := json.Marshal(indexDocument{
		Name:          s.Name,
		Phone:         s.Phone,
		Email:         s.Email,
		ReceiptNumber: s.ReceiptNumber,
		Amount:        s.Amount.String(),
		Term:          string(s.Term),
		CreatedAt:     s.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: s.ReceiptNumber,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexFailed, res.Status())
	}
	return nil
}

func (e *ElasticsearchIndex) SearchByName(ctx context.Context, name string, limit int) ([]models.ClientSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []models.ClientSummary{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"wildcard": map[string]interface{}{
				"name": map[string]interface{}{
					"value":            "*" + escapeWildcard(name) + "*",
					"case_insensitive": true,
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
	body, _ := json.Marshal(query)

	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source indexDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}

	out := make([]models.ClientSummary, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		amount, err := decimal.NewFromString(h.Source.Amount)
		if err != nil {
			e.logger.Warn("skipping hit with bad amount", map[string]interface{}{
				"receiptNumber": h.Source.ReceiptNumber,
			})
			continue
		}
		out = append(out, models.ClientSummary{
			Name:          h.Source.Name,
			Phone:         h.Source.Phone,
			Email:         h.Source.Email,
			ReceiptNumber: h.Source.ReceiptNumber,
			Amount:        amount,
			Term:          models.TermCode(h.Source.Term),
			CreatedAt:     h.Source.CreatedAt,
		})
	}
	return out, nil
}

func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}
