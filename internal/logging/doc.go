// Package logging configures structured slog output for findex.
//
// Logs are JSON lines written to a size-rotated file under the findex data
// directory (~/.findex/logs/findex.log). Interactive commands may tee to
// stderr; the MCP server never does, since stdout and stderr belong to the
// host.
package logging
