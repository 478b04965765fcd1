package store

import "errors"

var (
	// ErrConnection is fatal to the whole run: the store is unreachable or
	// rejected the credentials.
	ErrConnection = errors.New("failed to connect to telemetry store")
	// ErrRowQuery marks a recoverable per-window failure; the runner skips
	// the window and continues with reduced coverage.
	ErrRowQuery   = errors.New("window row query failed")
	ErrCountQuery = errors.New("count query failed")
	ErrDiscovery  = errors.New("measurement discovery failed")
)
