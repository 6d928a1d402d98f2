// Package store provides the document index the index stage writes to and
// the search service reads from. Three backends implement DocumentIndex:
// an embedded bleve index, an SQLite FTS5 database and a remote Meilisearch
// service.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/Aman-CERP/findex/internal/features"
)

// ErrClosed is returned by operations on a closed index.
var ErrClosed = errors.New("index is closed")

// SearchOptions narrows a query.
type SearchOptions struct {
	// Limit caps the number of hits. Zero means DefaultLimit.
	Limit int
	// Extension keeps only records with this extension (dot optional).
	Extension string
	// TextOnly keeps only text-eligible records.
	TextOnly bool
}

// DefaultLimit is the result cap when SearchOptions.Limit is zero.
const DefaultLimit = 50

func (o SearchOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

func (o SearchOptions) extension() string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(o.Extension), "."))
}

// Hit is one search result.
type Hit struct {
	Path      string
	Name      string
	Size      int64
	Modified  time.Time
	Extension string
	Score     float64
}

// DocumentIndex is the sink for file records and the source for queries.
//
// Reset and AddDocuments are only ever called by one index stage at a time.
// Search and Count may run concurrently with them.
type DocumentIndex interface {
	// Reset removes every document. It completes before any AddDocuments
	// of the same run.
	Reset(ctx context.Context) error

	// AddDocuments stores a batch. Records with the same path replace
	// earlier ones. Ownership of docs passes to the index.
	AddDocuments(ctx context.Context, docs []features.Record) error

	// Search returns hits ranked best first.
	Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases the index. It is idempotent.
	Close() error
}

// DocID derives the primary key for a path. Paths contain characters some
// backends reject in keys, so the key is a hex digest.
func DocID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}
