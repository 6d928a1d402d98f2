package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	StatusURI  = "findex://scan/status"
	QueriesURI = "findex://queries"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "scan_status",
			URI:         StatusURI,
			Description: "Phase and counters of the current or last scan",
			MIMEType:    "application/json",
		},
		s.readStatus,
	)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         QueriesURI,
			Description: "Search telemetry for this session",
			MIMEType:    "application/json",
		},
		s.readQueryMetrics,
	)
}

func (s *Server) readStatus(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.status(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	return jsonResource(StatusURI, out)
}

func (s *Server) readQueryMetrics(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(QueriesURI, toQueryMetricsOutput(s.search.Metrics()))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
