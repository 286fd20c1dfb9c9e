// Package backend picks the data source behind every surface: the remote
// finance API or the in-process memory store.
package backend

import (
	"context"
	"time"

	"finanzas/internal/source"
)

type Backend = source.Source

// BackendResult is a ready backend plus whatever releases it. Cleanup may be nil.
type BackendResult struct {
	Backend Backend
	Cleanup func() error
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type BackendType string

const (
	APIBackend    BackendType = "api"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return bt == APIBackend || bt == MemoryBackend
}

// Config selects and parameterises a backend. API fields are ignored by
// the memory store and DataDirectory by the API client.
type Config struct {
	Type BackendType

	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int

	DataDirectory string
}
