package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentfold/agentfold/pkg/api"
	"github.com/agentfold/agentfold/pkg/engine"
	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/projection"
	"github.com/agentfold/agentfold/pkg/store"
)

func runStart(cmd *cobra.Command, flags *globalFlags, message string, maxIterations int) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, flags, maxIterations)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	fmt.Printf("Starting new session with message: %s\n", message)
	threadID, err := rt.engine.StartSession(ctx, message)
	if err != nil {
		return err
	}
	fmt.Printf("Session started with thread ID: %s\n", threadID)

	return processAndReport(ctx, rt, threadID)
}

func runMessage(cmd *cobra.Command, flags *globalFlags, threadID, message string, process bool) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, flags, 0)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	if err := requireSession(ctx, rt.store, flags, threadID); err != nil {
		return err
	}
	if err := rt.engine.AddUserMessage(ctx, threadID, message); err != nil {
		return err
	}
	fmt.Printf("Message added to session: %s\n", threadID)

	if !process {
		return nil
	}
	return processAndReport(ctx, rt, threadID)
}

func runContinue(cmd *cobra.Command, flags *globalFlags, threadID string, maxIterations int) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, flags, maxIterations)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	if err := requireSession(ctx, rt.store, flags, threadID); err != nil {
		return err
	}
	fmt.Printf("Continuing session: %s\n", threadID)

	return processAndReport(ctx, rt, threadID)
}

func processAndReport(ctx context.Context, rt *runtime, threadID string) error {
	fmt.Printf("Processing session (max %d iterations)...\n", rt.cfg.MaxIterations)

	state, err := rt.engine.ProcessThread(ctx, threadID)
	if err != nil {
		var maxErr *engine.MaxIterationsError
		if errors.As(err, &maxErr) {
			// The session was completed with a timeout; the summary is
			// still worth printing before failing.
			printSummary(os.Stdout, state)
		}
		return err
	}
	printSummary(os.Stdout, state)
	return nil
}

func runShow(cmd *cobra.Command, flags *globalFlags, threadID, format string, full bool) error {
	ctx := cmd.Context()
	client, err := newStoreClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	streamName, err := store.BuildStreamName(flags.category, flags.version, threadID)
	if err != nil {
		return err
	}
	messages, err := client.ReadAll(ctx, streamName, 0)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return fmt.Errorf("no events found for thread ID: %s", threadID)
	}
	events, err := event.FromMessages(messages)
	if err != nil {
		return err
	}

	if format == "json" {
		return renderEventsJSON(os.Stdout, events, full)
	}
	return renderEventsText(os.Stdout, threadID, streamName, events, full)
}

func runList(cmd *cobra.Command, flags *globalFlags, limit int, format string) error {
	ctx := cmd.Context()
	client, err := newStoreClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	streams, err := client.ListStreams(ctx, flags.category, limit)
	if err != nil {
		return err
	}
	if len(streams) == 0 {
		fmt.Printf("No sessions found for category: %s:%s\n", flags.category, flags.version)
		return nil
	}

	var states []projection.SessionState
	for _, streamName := range streams {
		messages, err := client.ReadAll(ctx, streamName, 0)
		if err != nil {
			return err
		}
		events, err := event.FromMessages(messages)
		if err != nil {
			return err
		}
		state, err := projection.ProjectSessionState(events)
		if err != nil {
			continue // skip streams outside the session shape
		}
		states = append(states, state)
	}

	if format == "json" {
		return renderSessionsJSON(os.Stdout, states)
	}
	renderSessionsText(os.Stdout, flags.category, flags.version, states)
	return nil
}

func runServe(cmd *cobra.Command, flags *globalFlags, port int) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, flags, 0)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	if port == 0 {
		port = rt.cfg.HTTPPort
	}
	addr := fmt.Sprintf(":%d", port)
	server := api.NewServer(rt.engine, rt.store)

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("HTTP API listening on %s\n", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		fmt.Printf("Shutdown signal received: %s\n", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// requireSession fails with a not-found error when the thread has no
// stream yet.
func requireSession(ctx context.Context, client *store.Client, flags *globalFlags, threadID string) error {
	streamName, err := store.BuildStreamName(flags.category, flags.version, threadID)
	if err != nil {
		return err
	}
	version, err := client.StreamVersion(ctx, streamName)
	if err != nil {
		return err
	}
	if version < 0 {
		return fmt.Errorf("no session found with thread ID: %s", threadID)
	}
	return nil
}
