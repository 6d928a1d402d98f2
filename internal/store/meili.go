package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/meilisearch/meilisearch-go"

	ferrors "github.com/Aman-CERP/findex/internal/errors"
	"github.com/Aman-CERP/findex/internal/features"
)

// Meilisearch index settings applied on every Reset.
var (
	meiliSearchable = []string{"path", "name", "content", "extension"}
	meiliFilterable = []string{"size", "modified", "created", "extension", "isTextFile"}
	meiliSortable   = []string{"size", "modified", "created"}
)

const meiliTaskPoll = 50 * time.Millisecond

// MeiliConfig addresses a Meilisearch service.
type MeiliConfig struct {
	Endpoint  string
	APIKey    string
	IndexName string
	Timeout   time.Duration

	// Retry governs resending requests that failed with a transport error or
	// a 502/503/504. The zero value means ferrors.DefaultRetryConfig.
	Retry ferrors.RetryConfig

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// MeiliIndex stores records in a remote Meilisearch index.
type MeiliIndex struct {
	endpoint string
	client   meilisearch.ServiceManager
	index    meilisearch.IndexManager
	name     string
	retry    ferrors.RetryConfig

	mu       sync.Mutex
	closed   bool
	prepared bool
}

var _ DocumentIndex = (*MeiliIndex)(nil)

// NewMeiliIndex validates cfg and returns a client. No request is made
// until the first operation.
func NewMeiliIndex(cfg MeiliConfig) (*MeiliIndex, error) {
	if cfg.Endpoint == "" {
		return nil, ferrors.ConfigError("meilisearch endpoint is empty", nil)
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	base, err := url.Parse(endpoint)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, ferrors.ConfigError(fmt.Sprintf("invalid meilisearch endpoint %q", cfg.Endpoint), err)
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "files"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	retry := cfg.Retry
	if retry == (ferrors.RetryConfig{}) {
		retry = ferrors.DefaultRetryConfig()
	}

	opts := []meilisearch.Option{meilisearch.WithCustomClient(httpClient)}
	if cfg.APIKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(cfg.APIKey))
	}
	client := meilisearch.New(endpoint, opts...)

	return &MeiliIndex{
		endpoint: endpoint,
		client:   client,
		index:    client.Index(cfg.IndexName),
		name:     cfg.IndexName,
		retry:    retry,
	}, nil
}

type meiliDocument struct {
	ID         string   `json:"id"`
	Path       string   `json:"path"`
	Name       string   `json:"name"`
	Size       int64    `json:"size"`
	Modified   int64    `json:"modified"`
	Created    int64    `json:"created"`
	Extension  string   `json:"extension"`
	IsTextFile bool     `json:"isTextFile"`
	IsDir      bool     `json:"isDir"`
	Content    *string  `json:"content"`
	Trigrams   []string `json:"trigrams"`
}

type meiliHit struct {
	Path      string  `json:"path"`
	Name      string  `json:"name"`
	Size      int64   `json:"size"`
	Modified  int64   `json:"modified"`
	Extension string  `json:"extension"`
	Score     float64 `json:"_rankingScore"`
}

// Health reports whether the service answers /health.
func (m *MeiliIndex) Health(ctx context.Context) error {
	return m.call(ctx, "health", func() error {
		_, err := m.client.HealthWithContext(ctx)
		return err
	})
}

// Reset deletes all documents, creating the index if needed, and applies
// the searchable, filterable and sortable attribute settings.
func (m *MeiliIndex) Reset(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if err := m.prepare(ctx); err != nil {
		return err
	}

	var task *meilisearch.TaskInfo
	err := m.call(ctx, "delete documents", func() (err error) {
		task, err = m.index.DeleteAllDocumentsWithContext(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return m.waitTask(ctx, task.TaskUID)
}

func (m *MeiliIndex) prepare(ctx context.Context) error {
	m.mu.Lock()
	prepared := m.prepared
	m.mu.Unlock()
	if prepared {
		return nil
	}

	var task *meilisearch.TaskInfo
	err := m.call(ctx, "create index", func() (err error) {
		task, err = m.client.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{Uid: m.name, PrimaryKey: "id"})
		return err
	})
	if err != nil {
		return err
	}
	if err := m.waitTask(ctx, task.TaskUID); err != nil && meiliCode(err) != "index_already_exists" {
		return err
	}

	settings := &meilisearch.Settings{
		SearchableAttributes: meiliSearchable,
		FilterableAttributes: meiliFilterable,
		SortableAttributes:   meiliSortable,
	}
	err = m.call(ctx, "update settings", func() (err error) {
		task, err = m.index.UpdateSettingsWithContext(ctx, settings)
		return err
	})
	if err != nil {
		return err
	}
	if err := m.waitTask(ctx, task.TaskUID); err != nil {
		return err
	}

	m.mu.Lock()
	m.prepared = true
	m.mu.Unlock()
	return nil
}

// AddDocuments submits docs and waits for the service to apply them.
func (m *MeiliIndex) AddDocuments(ctx context.Context, docs []features.Record) error {
	if len(docs) == 0 {
		return nil
	}
	if err := m.checkOpen(); err != nil {
		return err
	}

	payload := make([]meiliDocument, len(docs))
	for i, r := range docs {
		payload[i] = meiliDocument{
			ID:         DocID(r.Path),
			Path:       r.Path,
			Name:       r.Name,
			Size:       r.Size,
			Modified:   r.Modified.UnixMilli(),
			Created:    r.Created.UnixMilli(),
			Extension:  r.Extension,
			IsTextFile: r.IsTextFile,
			IsDir:      r.IsDir,
			Content:    r.Content,
			Trigrams:   r.Trigrams,
		}
	}

	var task *meilisearch.TaskInfo
	err := m.call(ctx, "add documents", func() (err error) {
		task, err = m.index.AddDocumentsWithContext(ctx, payload, "id")
		return err
	})
	if err != nil {
		return err
	}
	return m.waitTask(ctx, task.TaskUID)
}

// Search queries the index with optional extension and text filters.
func (m *MeiliIndex) Search(ctx context.Context, q string, opts SearchOptions) ([]Hit, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q) == "" {
		return []Hit{}, nil
	}

	req := &meilisearch.SearchRequest{
		Limit:                int64(opts.limit()),
		AttributesToRetrieve: hitFields,
		ShowRankingScore:     true,
	}
	var filters []string
	if ext := opts.extension(); ext != "" {
		filters = append(filters, fmt.Sprintf("extension = %q", ext))
	}
	if opts.TextOnly {
		filters = append(filters, "isTextFile = true")
	}
	if len(filters) > 0 {
		req.Filter = filters
	}

	var resp *meilisearch.SearchResponse
	err := m.call(ctx, "search", func() (err error) {
		resp, err = m.index.SearchWithContext(ctx, q, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Hits arrive as loosely typed maps; one round trip through JSON gives
	// them the document shape.
	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, fmt.Errorf("encode hits: %w", err)
	}
	var decoded []meiliHit
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}

	hits := make([]Hit, 0, len(decoded))
	for _, h := range decoded {
		hits = append(hits, Hit{
			Path:      h.Path,
			Name:      h.Name,
			Size:      h.Size,
			Modified:  time.UnixMilli(h.Modified),
			Extension: h.Extension,
			Score:     h.Score,
		})
	}
	return hits, nil
}

// Count returns numberOfDocuments from the index stats.
func (m *MeiliIndex) Count(ctx context.Context) (int, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	var stats *meilisearch.StatsIndex
	err := m.call(ctx, "stats", func() (err error) {
		stats, err = m.index.GetStatsWithContext(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(stats.NumberOfDocuments), nil
}

// Close marks the client closed. There is no connection to release.
func (m *MeiliIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MeiliIndex) checkOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// waitTask blocks until a task leaves the queue. Failed and canceled tasks
// become BackendRejected errors carrying the Meilisearch error code.
func (m *MeiliIndex) waitTask(ctx context.Context, uid int64) error {
	var task *meilisearch.Task
	err := m.call(ctx, "wait task", func() (err error) {
		task, err = m.client.WaitForTaskWithContext(ctx, uid, meiliTaskPoll)
		return err
	})
	if err != nil {
		return err
	}

	switch task.Status {
	case meilisearch.TaskStatusSucceeded:
		return nil
	case meilisearch.TaskStatusFailed, meilisearch.TaskStatusCanceled:
		msg := task.Error.Message
		if msg == "" {
			msg = "task " + string(task.Status)
		}
		return ferrors.BackendError(fmt.Sprintf("Meilisearch task %d %s: %s", uid, task.Status, msg), nil).
			WithDetail("meili_code", task.Error.Code)
	}
	return ferrors.BackendError(fmt.Sprintf("Meilisearch task %d ended as %s", uid, task.Status), nil)
}

// call runs one SDK request, resending it while the service is
// unavailable. Every request findex makes is idempotent.
func (m *MeiliIndex) call(ctx context.Context, op string, fn func() error) error {
	return ferrors.Retry(ctx, m.retry, func() error {
		return m.classify(ctx, op, fn())
	})
}

// classify maps an SDK error onto the findex error codes. Transport
// failures and gateway answers are BackendUnavailable, every other API
// answer is BackendRejected.
func (m *MeiliIndex) classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr *meilisearch.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("meilisearch %s: %w", op, err)
	}

	switch apiErr.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ferrors.New(ferrors.ErrCodeBackendUnavailable,
			fmt.Sprintf("Meilisearch unavailable during %s", op), err).
			WithDetail("status", http.StatusText(apiErr.StatusCode))
	}
	if apiErr.StatusCode == 0 || apiErr.ErrCode == meilisearch.MeilisearchCommunicationError ||
		apiErr.ErrCode == meilisearch.MeilisearchTimeoutError {
		return ferrors.New(ferrors.ErrCodeBackendUnavailable,
			fmt.Sprintf("Meilisearch unreachable at %s", m.endpoint), err).
			WithSuggestion("Start Meilisearch or set FINDEX_MEILI_URL")
	}

	msg := apiErr.MeilisearchApiError.Message
	if msg == "" {
		msg = http.StatusText(apiErr.StatusCode)
	}
	slog.Debug("meili_request_rejected",
		slog.String("op", op),
		slog.Int("status", apiErr.StatusCode),
		slog.String("code", apiErr.MeilisearchApiError.Code))
	return ferrors.BackendError(fmt.Sprintf("Meilisearch rejected %s: %s", op, msg), nil).
		WithDetail("meili_code", apiErr.MeilisearchApiError.Code).
		WithDetail("status", http.StatusText(apiErr.StatusCode))
}

// meiliCode extracts the Meilisearch error code carried by err, if any.
func meiliCode(err error) string {
	if fe, ok := ferrors.As(err); ok {
		return fe.Details["meili_code"]
	}
	return ""
}
