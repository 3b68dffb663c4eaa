// Package store provides the Message DB event store adapter: stream
// naming, a pooled PostgreSQL client, and append/read operations with
// optimistic concurrency control.
package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Default stream identity segments.
const (
	DefaultCategory = "agent"
	DefaultVersion  = "v0"
)

// GenerateThreadID returns a fresh UUIDv4 string identifying a session.
func GenerateThreadID() string {
	return uuid.NewString()
}

// BuildStreamName assembles a Message DB stream name of the form
// "{category}:{version}-{threadID}". Category must not contain ':' and
// version must not contain '-' so the name parses unambiguously.
func BuildStreamName(category, version, threadID string) (string, error) {
	if strings.TrimSpace(category) == "" {
		return "", fmt.Errorf("category cannot be empty")
	}
	if strings.TrimSpace(version) == "" {
		return "", fmt.Errorf("version cannot be empty")
	}
	if strings.TrimSpace(threadID) == "" {
		return "", fmt.Errorf("thread id cannot be empty")
	}
	if strings.Contains(category, ":") {
		return "", fmt.Errorf("category %q cannot contain ':'", category)
	}
	if strings.Contains(version, "-") {
		return "", fmt.Errorf("version %q cannot contain '-'", version)
	}
	return category + ":" + version + "-" + threadID, nil
}

// ParseStreamName splits a stream name back into its category, version
// and thread id segments. The name is case-sensitive.
func ParseStreamName(streamName string) (category, version, threadID string, err error) {
	if strings.TrimSpace(streamName) == "" {
		return "", "", "", fmt.Errorf("stream name cannot be empty")
	}

	category, rest, ok := strings.Cut(streamName, ":")
	if !ok {
		return "", "", "", fmt.Errorf("invalid stream name %q: expected category:version-threadID", streamName)
	}
	version, threadID, ok = strings.Cut(rest, "-")
	if !ok {
		return "", "", "", fmt.Errorf("invalid stream name %q: expected category:version-threadID", streamName)
	}

	if strings.TrimSpace(category) == "" || strings.TrimSpace(version) == "" || strings.TrimSpace(threadID) == "" {
		return "", "", "", fmt.Errorf("invalid stream name %q: empty segment", streamName)
	}
	return category, version, threadID, nil
}

// ThreadStream builds the stream name for a thread using the default
// category and version.
func ThreadStream(threadID string) string {
	name, _ := BuildStreamName(DefaultCategory, DefaultVersion, threadID)
	return name
}
