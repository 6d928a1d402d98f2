// Package preflight checks that this machine can hold and write a findex
// index before a scan is started.
//
// The package validates:
//   - Write access to the data directory
//   - Free disk space under the data directory (minimum 100MB)
//   - The open file descriptor limit (minimum 1024)
//   - That the configured backend opens and answers
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithBackendProbe("bleve", probe))
//	results := checker.RunAll(ctx, dataDir)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
