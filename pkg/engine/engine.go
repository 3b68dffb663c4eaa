// Package engine orchestrates agent sessions: it owns the session
// lifecycle, the step loop that folds stream state into the next
// action, and the LLM and tool steps that append new events. All
// policy about what to do next lives in the projection package; the
// engine only executes the step it is told.
package engine

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentfold/agentfold/pkg/llm"
	"github.com/agentfold/agentfold/pkg/store"
	"github.com/agentfold/agentfold/pkg/tools"
)

const (
	// DefaultMaxIterations caps one processing pass.
	DefaultMaxIterations = 100

	// DefaultMaxRetries is the ephemeral retry budget for one LLM step.
	DefaultMaxRetries = 2
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Category      string // stream category, default "agent"
	Version       string // stream schema version, default "v0"
	MaxIterations int    // loop cap per processing pass
	MaxRetries    int    // LLM retry budget per step, negative disables retries
	SystemPrompt  string // default llm.DefaultSystemPrompt
	Logger        *slog.Logger
}

// Engine drives event-sourced agent sessions against one store.
type Engine struct {
	store    EventStore
	llm      llm.Client
	registry *tools.Registry

	category      string
	version       string
	maxIterations int
	maxRetries    int
	systemPrompt  string

	log    *slog.Logger
	tracer trace.Tracer
}

// New builds an engine. The store, LLM client and registry are
// required; everything else falls back to defaults.
func New(eventStore EventStore, llmClient llm.Client, registry *tools.Registry, opts Options) (*Engine, error) {
	if eventStore == nil {
		return nil, fmt.Errorf("event store cannot be nil")
	}
	if llmClient == nil {
		return nil, fmt.Errorf("llm client cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}

	e := &Engine{
		store:         eventStore,
		llm:           llmClient,
		registry:      registry,
		category:      opts.Category,
		version:       opts.Version,
		maxIterations: opts.MaxIterations,
		maxRetries:    opts.MaxRetries,
		systemPrompt:  opts.SystemPrompt,
		log:           opts.Logger,
		tracer:        otel.Tracer("agentfold/engine"),
	}
	if e.category == "" {
		e.category = store.DefaultCategory
	}
	if e.version == "" {
		e.version = store.DefaultVersion
	}
	if e.maxIterations <= 0 {
		e.maxIterations = DefaultMaxIterations
	}
	if e.maxRetries == 0 {
		e.maxRetries = DefaultMaxRetries
	} else if e.maxRetries < 0 {
		// Negative disables retries entirely.
		e.maxRetries = 0
	}
	if e.systemPrompt == "" {
		e.systemPrompt = llm.DefaultSystemPrompt
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e, nil
}

// streamName builds the stream identity for a thread under the
// engine's category and version.
func (e *Engine) streamName(threadID string) (string, error) {
	return store.BuildStreamName(e.category, e.version, threadID)
}
