package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/crmkit/segmint/internal/rules"
)

// Generation status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrNotFound is returned when a generation does not exist.
var ErrNotFound = errors.New("generation not found")

// Store defines the interface for rule-generation history.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// RecordGeneration appends one generation attempt to the history.
	RecordGeneration(ctx context.Context, params RecordParams) (*Generation, error)

	// ListGenerations returns up to limit generations, newest first.
	// A limit <= 0 returns every retained generation.
	ListGenerations(ctx context.Context, limit int) ([]Generation, error)

	// GetGeneration retrieves a single generation by ID.
	// Returns ErrNotFound if it does not exist.
	GetGeneration(ctx context.Context, id uuid.UUID) (*Generation, error)

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}

// Generation is one natural-language to rule-tree translation.
type Generation struct {
	ID          uuid.UUID   `json:"id"`
	Prompt      string      `json:"prompt"`
	Provider    string      `json:"provider"`
	Rules       rules.Group `json:"rules"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	Status      string      `json:"status"`
	Error       string      `json:"error,omitempty"`
	DurationMS  int64       `json:"durationMs"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// RecordParams contains the parameters for recording a generation.
type RecordParams struct {
	Prompt   string
	Provider string
	Rules    rules.Group
	Err      error
	Duration time.Duration
}

// newGeneration stamps params with an ID, status, fingerprint and time.
func newGeneration(params RecordParams) Generation {
	g := Generation{
		ID:         uuid.New(),
		Prompt:     params.Prompt,
		Provider:   params.Provider,
		Rules:      rules.Clone(params.Rules),
		Status:     StatusOK,
		DurationMS: params.Duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if params.Err != nil {
		g.Status = StatusError
		g.Error = params.Err.Error()
	} else {
		g.Fingerprint = rules.Fingerprint(g.Rules)
	}
	return g
}
