// Package api provides the HTTP API server for study content, assessments and
// learner progress.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// DisableMCP leaves the /mcp endpoint unmounted
	DisableMCP bool
}
