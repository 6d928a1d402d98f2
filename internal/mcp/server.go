package mcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/search"
	"github.com/Aman-CERP/findex/internal/store"
	"github.com/Aman-CERP/findex/pkg/version"
)

// Jobs is the job control surface the server drives.
type Jobs interface {
	StartScan(root string) (string, error)
	SetPaused(paused bool) error
	Cancel() error
	Status() job.Snapshot
}

// Server is the MCP server for findex.
// It lets an agent start and steer scans and query the resulting index.
type Server struct {
	mcp     *mcp.Server
	jobs    Jobs
	search  *search.Service
	index   store.DocumentIndex
	backend string
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBackendName sets the backend name reported by scan_status.
func WithBackendName(name string) Option {
	return func(s *Server) { s.backend = name }
}

// NewServer creates a new MCP server.
func NewServer(jobs Jobs, svc *search.Service, index store.DocumentIndex, opts ...Option) (*Server, error) {
	if jobs == nil {
		return nil, errors.New("job coordinator is required")
	}
	if svc == nil {
		return nil, errors.New("search service is required")
	}
	if index == nil {
		return nil, errors.New("document index is required")
	}

	s := &Server{
		jobs:   jobs,
		search: svc,
		index:  index,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "findex",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server over stdio until ctx is done or the client goes away.
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves a single session over t.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("mcp_server_started", slog.String("version", version.Version))
	err := s.mcp.Run(ctx, t)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "start_scan",
		Description: "Crawl a directory and rebuild the file index from it. Replaces any scan in progress. Returns immediately with a job id; poll scan_status for progress.",
	}, s.startScanHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "set_paused",
		Description: "Pause or resume the running scan. Pausing twice is harmless.",
	}, s.setPausedHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cancel_scan",
		Description: "Stop the running scan. Files already indexed stay searchable.",
	}, s.cancelScanHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "scan_status",
		Description: "Report the phase and counters of the current or last scan, and the number of indexed documents.",
	}, s.scanStatusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_files",
		Description: "Find files by name, path or text content. Fragments match too. Returns at most 50 files.",
	}, s.searchFilesHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 5))
}

func (s *Server) startScanHandler(_ context.Context, _ *mcp.CallToolRequest, input StartScanInput) (
	*mcp.CallToolResult,
	StartScanOutput,
	error,
) {
	if input.Root == "" {
		return nil, StartScanOutput{}, NewInvalidParamsError("root parameter is required")
	}
	id, err := s.jobs.StartScan(input.Root)
	if err != nil {
		return nil, StartScanOutput{}, MapError(err)
	}
	return nil, StartScanOutput{JobID: id, Root: s.jobs.Status().Root}, nil
}

func (s *Server) setPausedHandler(_ context.Context, _ *mcp.CallToolRequest, input SetPausedInput) (
	*mcp.CallToolResult,
	ControlOutput,
	error,
) {
	if err := s.jobs.SetPaused(input.Paused); err != nil {
		return nil, ControlOutput{}, MapError(err)
	}
	return nil, s.controlOutput(), nil
}

func (s *Server) cancelScanHandler(_ context.Context, _ *mcp.CallToolRequest, _ CancelScanInput) (
	*mcp.CallToolResult,
	ControlOutput,
	error,
) {
	if err := s.jobs.Cancel(); err != nil {
		return nil, ControlOutput{}, MapError(err)
	}
	return nil, s.controlOutput(), nil
}

func (s *Server) controlOutput() ControlOutput {
	snap := s.jobs.Status()
	return ControlOutput{JobID: snap.JobID, Phase: snap.Phase, Paused: snap.Paused}
}

func (s *Server) scanStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ScanStatusInput) (
	*mcp.CallToolResult,
	ScanStatusOutput,
	error,
) {
	out, err := s.status(ctx)
	if err != nil {
		return nil, ScanStatusOutput{}, MapError(err)
	}
	return nil, out, nil
}

func (s *Server) status(ctx context.Context) (ScanStatusOutput, error) {
	n, err := s.index.Count(ctx)
	if err != nil {
		return ScanStatusOutput{}, err
	}
	return ScanStatusOutput{
		Job:       s.jobs.Status(),
		Documents: n,
		Backend:   s.backend,
	}, nil
}

func (s *Server) searchFilesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchFilesInput) (
	*mcp.CallToolResult,
	SearchFilesOutput,
	error,
) {
	start := time.Now()
	hits, err := s.search.Search(ctx, input.Query, search.Options{
		Limit:     input.Limit,
		Extension: input.Extension,
		TextOnly:  input.TextOnly,
	})
	if err != nil {
		return nil, SearchFilesOutput{}, MapError(err)
	}

	s.logger.Debug("mcp_search",
		slog.String("query", input.Query),
		slog.Int("results", len(hits)),
		slog.Duration("duration", time.Since(start)))

	return nil, SearchFilesOutput{Results: toFileHits(search.Hits(hits))}, nil
}
