package mcp

import (
	"time"

	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/telemetry"
)

// StartScanInput defines the input schema for the start_scan tool.
type StartScanInput struct {
	Root string `json:"root" jsonschema:"absolute or relative directory to crawl and index"`
}

// StartScanOutput defines the output schema for the start_scan tool.
type StartScanOutput struct {
	JobID string `json:"job_id" jsonschema:"identifier of the started scan job"`
	Root  string `json:"root" jsonschema:"directory being scanned"`
}

// SetPausedInput defines the input schema for the set_paused tool.
type SetPausedInput struct {
	Paused bool `json:"paused" jsonschema:"true to pause the running scan, false to resume it"`
}

// ControlOutput is returned by the pause and cancel tools.
type ControlOutput struct {
	JobID  string    `json:"job_id"`
	Phase  job.Phase `json:"phase"`
	Paused bool      `json:"paused"`
}

// CancelScanInput defines the (empty) input schema for the cancel_scan tool.
type CancelScanInput struct{}

// ScanStatusInput defines the (empty) input schema for the scan_status tool.
type ScanStatusInput struct{}

// ScanStatusOutput defines the output schema for the scan_status tool.
type ScanStatusOutput struct {
	Job       job.Snapshot `json:"job"`
	Documents int          `json:"documents" jsonschema:"number of documents in the index"`
	Backend   string       `json:"backend,omitempty"`
}

// SearchFilesInput defines the input schema for the search_files tool.
type SearchFilesInput struct {
	Query     string `json:"query" jsonschema:"words or fragments of a file name, path or content"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results, default and cap 50"`
	Extension string `json:"extension,omitempty" jsonschema:"keep only files with this extension, e.g. go or md"`
	TextOnly  bool   `json:"text_only,omitempty" jsonschema:"keep only text files"`
}

// SearchFilesOutput defines the output schema for the search_files tool.
type SearchFilesOutput struct {
	Results []FileHit `json:"results" jsonschema:"matching files, best first"`
}

// FileHit is a single file in search_files output.
type FileHit struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
	Extension string    `json:"extension,omitempty"`
	MIMEType  string    `json:"mime_type"`
}

// QueryMetricsOutput is the body of the queries resource.
type QueryMetricsOutput struct {
	TotalQueries        int64                 `json:"total_queries"`
	CacheHitRate        float64               `json:"cache_hit_rate"`
	ZeroResultQueries   []string              `json:"zero_result_queries,omitempty"`
	TopTerms            []telemetry.TermCount `json:"top_terms,omitempty"`
	LatencyDistribution map[string]int64      `json:"latency_distribution"`
	Since               time.Time             `json:"since"`
}

func toFileHits(hits []job.Hit) []FileHit {
	out := make([]FileHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, FileHit{
			Path:      h.Path,
			Name:      h.Name,
			Size:      h.Size,
			Modified:  h.Modified,
			Extension: h.Extension,
			MIMEType:  MimeTypeForExtension(h.Extension),
		})
	}
	return out
}

func toQueryMetricsOutput(s *telemetry.QueryMetricsSnapshot) QueryMetricsOutput {
	out := QueryMetricsOutput{
		TotalQueries:        s.TotalQueries,
		CacheHitRate:        s.CacheHitRate(),
		ZeroResultQueries:   s.ZeroResultQueries,
		TopTerms:            s.TopTerms,
		LatencyDistribution: make(map[string]int64, len(s.LatencyDistribution)),
		Since:               s.Since,
	}
	for bucket, n := range s.LatencyDistribution {
		out.LatencyDistribution[string(bucket)] = n
	}
	return out
}
