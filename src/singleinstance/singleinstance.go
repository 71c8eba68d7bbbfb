package singleinstance

// This file defines the API for single-instance ownership and run-once delegation.

import (
	"context"
)

// Server owns the TCP endpoint and answers run-once requests.
type Server interface {
	// Start begins listening on the first free port in the configured range and accepting client requests.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess sends success followed by the saved screenshot path.
	RespondSuccess(path string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request is one delegated capture. An empty Mode means the resident's stored capture mode.
type Request struct {
	Mode string
}

// Client tries to delegate a run-once capture to the resident instance.
type Client interface {
	// TryRunOnce returns delegated=false when no resident answered; the caller then captures itself.
	TryRunOnce(ctx context.Context, mode string) (delegated bool, path string, err error)
}

func NewServer() Server { return newTcpServer() }

func NewClient() Client { return newTcpClient() }
