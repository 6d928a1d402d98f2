package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/findex/internal/features"
)

const (
	// FileTokenizerName is the registered name of the path-aware tokenizer.
	FileTokenizerName = "findex_file_tokenizer"

	// FileAnalyzerName is the analyzer used for path, name and content.
	FileAnalyzerName = "findex_file_analyzer"
)

// removeAll is os.RemoveAll, replaced in tests.
var removeAll = os.RemoveAll

func init() {
	_ = registry.RegisterTokenizer(FileTokenizerName, fileTokenizerConstructor)
}

// Fields returned with every hit.
var hitFields = []string{"path", "name", "size", "modified", "extension"}

// BleveIndex stores records in an embedded bleve index.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ DocumentIndex = (*BleveIndex)(nil)

// NewBleveIndex opens or creates a bleve index at path. An empty path
// creates an in-memory index. A corrupt on-disk index is cleared and
// recreated.
func NewBleveIndex(path string) (*BleveIndex, error) {
	idx, err := openBleve(path)
	if err != nil {
		return nil, err
	}
	return &BleveIndex{index: idx, path: path}, nil
}

func openBleve(path string) (bleve.Index, error) {
	m, err := newFileMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	if path == "" {
		return bleve.NewMemOnly(m)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}

	if validErr := validateBleveIntegrity(path); validErr != nil {
		slog.Warn("bleve_index_corrupted",
			slog.String("path", path),
			slog.String("error", validErr.Error()))
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
		}
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}
	return idx, nil
}

// validateBleveIntegrity checks index_meta.json before bleve.Open touches
// the index. A missing index is valid.
func validateBleveIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(path, "index_meta.json"))
	if err != nil {
		return fmt.Errorf("index_meta.json unreadable: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func newFileMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(FileAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": FileTokenizerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add analyzer: %w", err)
	}
	im.DefaultAnalyzer = FileAnalyzerName

	text := bleve.NewTextFieldMapping()
	text.Analyzer = FileAnalyzerName

	content := bleve.NewTextFieldMapping()
	content.Analyzer = FileAnalyzerName
	content.Store = false

	kw := bleve.NewKeywordFieldMapping()

	grams := bleve.NewKeywordFieldMapping()
	grams.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("path", text)
	doc.AddFieldMappingsAt("name", text)
	doc.AddFieldMappingsAt("content", content)
	doc.AddFieldMappingsAt("extension", kw)
	doc.AddFieldMappingsAt("trigrams", grams)
	doc.AddFieldMappingsAt("size", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("modified", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("created", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("isTextFile", bleve.NewBooleanFieldMapping())
	doc.AddFieldMappingsAt("isDir", bleve.NewBooleanFieldMapping())
	im.DefaultMapping = doc

	return im, nil
}

// bleveDocument flattens a record. Timestamps are stored as Unix
// milliseconds.
func bleveDocument(r features.Record) map[string]any {
	doc := map[string]any{
		"path":       r.Path,
		"name":       r.Name,
		"extension":  r.Extension,
		"trigrams":   r.Trigrams,
		"size":       float64(r.Size),
		"modified":   float64(r.Modified.UnixMilli()),
		"created":    float64(r.Created.UnixMilli()),
		"isTextFile": r.IsTextFile,
		"isDir":      r.IsDir,
	}
	if r.Content != nil {
		doc["content"] = *r.Content
	}
	return doc
}

// Reset drops every document by recreating the index.
func (b *BleveIndex) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if err := b.index.Close(); err != nil {
		slog.Warn("bleve_close_failed", slog.String("error", err.Error()))
	}
	if b.path != "" {
		if err := removeAll(b.path); err != nil {
			b.closed = true
			return fmt.Errorf("failed to remove index: %w", err)
		}
	}

	idx, err := openBleve(b.path)
	if err != nil {
		b.closed = true
		return err
	}
	b.index = idx
	return nil
}

// AddDocuments indexes docs in one bleve batch.
func (b *BleveIndex) AddDocuments(ctx context.Context, docs []features.Record) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	batch := b.index.NewBatch()
	for _, r := range docs {
		if err := batch.Index(DocID(r.Path), bleveDocument(r)); err != nil {
			return fmt.Errorf("failed to index document %s: %w", r.Path, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search matches query against name, path, extension and content, with a
// trigram conjunction so fragments inside longer words also hit.
func (b *BleveIndex) Search(ctx context.Context, q string, opts SearchOptions) ([]Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}
	if strings.TrimSpace(q) == "" {
		return []Hit{}, nil
	}

	req := bleve.NewSearchRequest(buildBleveQuery(q, opts))
	req.Size = opts.limit()
	req.Fields = hitFields

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, dm := range result.Hits {
		hits = append(hits, hitFromMatch(dm))
	}
	return hits, nil
}

func buildBleveQuery(q string, opts SearchOptions) query.Query {
	var should []query.Query

	for _, f := range []struct {
		field string
		boost float64
	}{
		{"name", 3},
		{"path", 1.5},
		{"content", 1},
	} {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(f.field)
		mq.SetBoost(f.boost)
		should = append(should, mq)
	}

	ext := bleve.NewTermQuery(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(q), ".")))
	ext.SetField("extension")
	ext.SetBoost(2)
	should = append(should, ext)

	if grams := features.Trigrams(q); len(grams) > 0 {
		terms := make([]query.Query, 0, len(grams))
		for _, g := range grams {
			tq := bleve.NewTermQuery(g)
			tq.SetField("trigrams")
			terms = append(terms, tq)
		}
		conj := bleve.NewConjunctionQuery(terms...)
		conj.SetBoost(0.5)
		should = append(should, conj)
	}

	match := bleve.NewDisjunctionQuery(should...)

	must := []query.Query{match}
	if ext := opts.extension(); ext != "" {
		tq := bleve.NewTermQuery(ext)
		tq.SetField("extension")
		must = append(must, tq)
	}
	if opts.TextOnly {
		bq := bleve.NewBoolFieldQuery(true)
		bq.SetField("isTextFile")
		must = append(must, bq)
	}
	if len(must) == 1 {
		return match
	}
	return bleve.NewConjunctionQuery(must...)
}

func hitFromMatch(dm *search.DocumentMatch) Hit {
	h := Hit{Score: dm.Score}
	if v, ok := dm.Fields["path"].(string); ok {
		h.Path = v
	}
	if v, ok := dm.Fields["name"].(string); ok {
		h.Name = v
	}
	if v, ok := dm.Fields["extension"].(string); ok {
		h.Extension = v
	}
	if v, ok := dm.Fields["size"].(float64); ok {
		h.Size = int64(v)
	}
	if v, ok := dm.Fields["modified"].(float64); ok {
		h.Modified = time.UnixMilli(int64(v))
	}
	return h
}

// Count returns the number of indexed documents.
func (b *BleveIndex) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrClosed
	}
	n, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(n), nil
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func fileTokenizerConstructor(config map[string]any, cache *registry.Cache) (analysis.Tokenizer, error) {
	return fileTokenizer{}, nil
}

// fileTokenizer adapts Tokenize to bleve.
type fileTokenizer struct{}

func (fileTokenizer) Tokenize(input []byte) analysis.TokenStream {
	spans := tokenSpans(string(input))
	stream := make(analysis.TokenStream, 0, len(spans))
	for i, s := range spans {
		stream = append(stream, &analysis.Token{
			Term:     []byte(s.term),
			Start:    s.start,
			End:      s.end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return stream
}
