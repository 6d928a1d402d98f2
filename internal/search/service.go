// Package search answers queries against the document index. Results are
// cached per index generation; a scan bumps the generation.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/findex/internal/config"
	ferrors "github.com/Aman-CERP/findex/internal/errors"
	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/store"
	"github.com/Aman-CERP/findex/internal/telemetry"
)

// MaxLimit caps the number of hits of any query.
const MaxLimit = config.DefaultSearchLimit

// MaxQueryLength is the longest accepted query, in runes.
const MaxQueryLength = 512

// DefaultCacheSize is used when the configured cache size is not positive.
const DefaultCacheSize = 256

// Options narrows a query.
type Options struct {
	Limit     int    `json:"limit,omitempty"`
	Extension string `json:"extension,omitempty"`
	TextOnly  bool   `json:"text_only,omitempty"`
}

// ServiceConfig contains the dependencies of a Service.
type ServiceConfig struct {
	// Index is queried on cache misses (required).
	Index store.DocumentIndex

	// DefaultLimit applies when Options.Limit is zero. Capped at MaxLimit.
	DefaultLimit int

	// CacheSize is the number of cached result sets. Negative disables
	// caching.
	CacheSize int

	// Metrics records each query. Nil creates a private collector.
	Metrics *telemetry.QueryMetrics
}

type cacheKey struct {
	generation uint64
	query      string
	opts       Options
}

// Service runs validated, cached queries.
type Service struct {
	index        store.DocumentIndex
	defaultLimit int
	cache        *lru.Cache[cacheKey, []store.Hit]
	generation   atomic.Uint64
	metrics      *telemetry.QueryMetrics
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("document index is required")
	}

	s := &Service{
		index:        cfg.Index,
		defaultLimit: clampLimit(cfg.DefaultLimit),
		metrics:      cfg.Metrics,
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewQueryMetrics()
	}

	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[cacheKey, []store.Hit](size)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Search validates query and returns at most the requested number of hits,
// never more than MaxLimit.
func (s *Service) Search(ctx context.Context, query string, opts Options) ([]store.Hit, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ferrors.New(ferrors.ErrCodeQueryEmpty, "Query is empty", nil)
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryLength {
		return nil, ferrors.New(ferrors.ErrCodeQueryTooLong,
			fmt.Sprintf("Query is too long: %d characters (max %d)", n, MaxQueryLength), nil)
	}

	opts = s.normalize(opts)
	key := cacheKey{generation: s.generation.Load(), query: query, opts: opts}
	if s.cache != nil {
		if hits, ok := s.cache.Get(key); ok {
			s.record(query, len(hits), start, true)
			return append([]store.Hit(nil), hits...), nil
		}
	}

	hits, err := s.index.Search(ctx, query, store.SearchOptions{
		Limit:     opts.Limit,
		Extension: opts.Extension,
		TextOnly:  opts.TextOnly,
	})
	if err != nil {
		if _, ok := ferrors.As(err); ok {
			return nil, err
		}
		return nil, ferrors.New(ferrors.ErrCodeSearchFailed, fmt.Sprintf("Search failed: %v", err), err)
	}
	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	// A scan may have started while the query ran.
	if s.cache != nil && key.generation == s.generation.Load() {
		s.cache.Add(key, append([]store.Hit(nil), hits...))
	}
	s.record(query, len(hits), start, false)
	return hits, nil
}

func (s *Service) normalize(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = s.defaultLimit
	}
	opts.Limit = clampLimit(opts.Limit)
	opts.Extension = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(opts.Extension), "."))
	return opts
}

func (s *Service) record(query string, n int, start time.Time, cached bool) {
	latency := time.Since(start)
	s.metrics.Record(telemetry.QueryEvent{Query: query, ResultCount: n, Latency: latency, Cached: cached})
	slog.Debug("search_completed",
		slog.Int("results", n),
		slog.Bool("cached", cached),
		slog.Duration("latency", latency))
}

// Invalidate drops every cached result. The coordinator calls it when a
// scan starts.
func (s *Service) Invalidate() {
	s.generation.Add(1)
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Generation returns the current index generation.
func (s *Service) Generation() uint64 {
	return s.generation.Load()
}

// Metrics returns a snapshot of the query statistics.
func (s *Service) Metrics() *telemetry.QueryMetricsSnapshot {
	return s.metrics.Snapshot()
}

// Hits converts store hits to their event shape.
func Hits(hits []store.Hit) []job.Hit {
	out := make([]job.Hit, 0, len(hits))
	for _, h := range hits {
		out = append(out, job.Hit{
			Path:      h.Path,
			Name:      h.Name,
			Size:      h.Size,
			Modified:  h.Modified,
			Extension: h.Extension,
		})
	}
	return out
}

// Event runs a query and wraps the outcome as a SearchResults or Error
// event.
func (s *Service) Event(ctx context.Context, query string, opts Options) job.Event {
	var e job.Event
	hits, err := s.Search(ctx, query, opts)
	if err != nil {
		e = job.Error(err)
	} else {
		e = job.SearchResults(Hits(hits))
	}
	e.Stage = job.StageSearch
	e.Time = time.Now()
	return e
}
