package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentfold/agentfold/pkg/config"
	"github.com/agentfold/agentfold/pkg/engine"
	"github.com/agentfold/agentfold/pkg/llm"
	"github.com/agentfold/agentfold/pkg/store"
	"github.com/agentfold/agentfold/pkg/tools"
)

// runtime bundles the wired components a processing command needs.
type runtime struct {
	cfg             config.Config
	store           *store.Client
	engine          *engine.Engine
	tracingShutdown func(context.Context) error
}

// newRuntime wires config, tracing, store, LLM client, tools and the
// engine. maxIterations overrides the configured cap when positive.
func newRuntime(ctx context.Context, flags *globalFlags, maxIterations int) (*runtime, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if maxIterations > 0 {
		cfg.MaxIterations = maxIterations
	}

	tracingShutdown, err := config.InitTracing(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := newStoreClient(ctx)
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.NewClient(cfg.ModelName, "")
	if err != nil {
		client.Close()
		return nil, err
	}

	eng, err := engine.New(client, llmClient, tools.NewBuiltinRegistry(), engine.Options{
		Category:      flags.category,
		Version:       flags.version,
		MaxIterations: cfg.MaxIterations,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	return &runtime{
		cfg:             cfg,
		store:           client,
		engine:          eng,
		tracingShutdown: tracingShutdown,
	}, nil
}

func (r *runtime) Close(ctx context.Context) {
	r.store.Close()
	if err := r.tracingShutdown(ctx); err != nil {
		slog.Warn("Tracing shutdown failed", "error", err)
	}
}

// newStoreClient connects to Message DB using DB_* environment
// configuration. Used directly by the read-only commands that do not
// need an LLM client.
func newStoreClient(ctx context.Context) (*store.Client, error) {
	dbConfig, err := store.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}
	client, err := store.NewClient(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return client, nil
}
