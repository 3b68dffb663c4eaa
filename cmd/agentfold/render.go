package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/projection"
)

const rule = "================================================================================"

// printSummary renders the post-processing session summary.
func printSummary(w io.Writer, state projection.SessionState) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SESSION COMPLETE")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Thread ID: %s\n", state.ThreadID)
	fmt.Fprintf(w, "Status: %s\n", state.Status)
	fmt.Fprintf(w, "Messages: %d\n", state.UserMessageCount)
	fmt.Fprintf(w, "LLM Calls: %d\n", state.LLMCallCount)
	fmt.Fprintf(w, "Tool Calls: %d\n", state.ToolCallCount)
	fmt.Fprintf(w, "Errors: %d\n", state.ErrorCount)
	if !state.StartedAt.IsZero() && state.EndedAt != nil {
		fmt.Fprintf(w, "Duration: %.2fs\n", state.Duration().Seconds())
	}
}

type eventJSON struct {
	ID             string         `json:"id"`
	Kind           string         `json:"kind"`
	Position       int64          `json:"position"`
	GlobalPosition int64          `json:"global_position"`
	Time           string         `json:"time"`
	Data           map[string]any `json:"data"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func renderEventsJSON(w io.Writer, events []event.Envelope, full bool) error {
	out := make([]eventJSON, 0, len(events))
	for _, ev := range events {
		item := eventJSON{
			ID:             ev.ID,
			Kind:           ev.Kind,
			Position:       ev.Position,
			GlobalPosition: ev.GlobalPosition,
			Time:           ev.Time.UTC().Format(time.RFC3339Nano),
			Data:           ev.DataMap(),
		}
		if full && len(ev.Metadata) > 0 {
			var meta map[string]any
			if err := json.Unmarshal(ev.Metadata, &meta); err == nil {
				item.Metadata = meta
			}
		}
		out = append(out, item)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderEventsText(w io.Writer, threadID, streamName string, events []event.Envelope, full bool) error {
	fmt.Fprintf(w, "Events for session: %s\n", threadID)
	fmt.Fprintf(w, "Stream: %s\n", streamName)
	fmt.Fprintf(w, "Total events: %d\n", len(events))
	fmt.Fprintln(w, rule)

	for _, ev := range events {
		fmt.Fprintf(w, "\n[%d] %s\n", ev.Position, ev.Kind)
		fmt.Fprintf(w, "  ID: %s\n", ev.ID)
		fmt.Fprintf(w, "  Time: %s\n", ev.Time.UTC().Format(time.RFC3339Nano))
		fmt.Fprintf(w, "  Global Position: %d\n", ev.GlobalPosition)

		if data := ev.DataMap(); len(data) > 0 {
			fmt.Fprintln(w, "  Data:")
			printSortedMap(w, data, full)
		}
		if full && len(ev.Metadata) > 0 {
			var meta map[string]any
			if err := json.Unmarshal(ev.Metadata, &meta); err == nil && len(meta) > 0 {
				fmt.Fprintln(w, "  Metadata:")
				printSortedMap(w, meta, full)
			}
		}
	}

	state, err := projection.ProjectSessionState(events)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SESSION SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Status: %s\n", state.Status)
	fmt.Fprintf(w, "Messages: %d\n", state.UserMessageCount)
	fmt.Fprintf(w, "LLM Calls: %d\n", state.LLMCallCount)
	fmt.Fprintf(w, "Tool Calls: %d\n", state.ToolCallCount)
	fmt.Fprintf(w, "Errors: %d\n", state.ErrorCount)
	return nil
}

func printSortedMap(w io.Writer, m map[string]any, full bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value := fmt.Sprintf("%v", m[k])
		if len(value) > 100 && !full {
			value = value[:97] + "..."
		}
		fmt.Fprintf(w, "    %s: %s\n", k, value)
	}
}

type sessionJSON struct {
	ThreadID     string `json:"thread_id"`
	Status       string `json:"status"`
	Messages     int    `json:"message_count"`
	LLMCalls     int    `json:"llm_call_count"`
	ToolCalls    int    `json:"tool_call_count"`
	Errors       int    `json:"error_count"`
	LastActivity string `json:"last_activity"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
}

func renderSessionsJSON(w io.Writer, states []projection.SessionState) error {
	out := make([]sessionJSON, 0, len(states))
	for _, state := range states {
		item := sessionJSON{
			ThreadID:     state.ThreadID,
			Status:       string(state.Status),
			Messages:     state.UserMessageCount,
			LLMCalls:     state.LLMCallCount,
			ToolCalls:    state.ToolCallCount,
			Errors:       state.ErrorCount,
			LastActivity: state.LastActivityAt.UTC().Format(time.RFC3339Nano),
		}
		if !state.StartedAt.IsZero() {
			item.StartTime = state.StartedAt.UTC().Format(time.RFC3339Nano)
		}
		if state.EndedAt != nil {
			item.EndTime = state.EndedAt.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, item)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderSessionsText(w io.Writer, category, version string, states []projection.SessionState) {
	fmt.Fprintf(w, "Recent sessions (category: %s:%s)\n", category, version)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-40s %-12s %-10s %-20s\n", "Thread ID", "Status", "Messages", "Last Activity")
	fmt.Fprintln(w, rule)
	for _, state := range states {
		fmt.Fprintf(w, "%-40s %-12s %-10d %-20s\n",
			state.ThreadID,
			state.Status,
			state.UserMessageCount,
			state.LastActivityAt.UTC().Format("2006-01-02 15:04:05"))
	}
}
