package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), Config{EnableTracing: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_Enabled(t *testing.T) {
	// The gRPC exporter dials lazily, so construction succeeds even
	// without a collector; shutdown flushes into the void.
	shutdown, err := InitTracing(context.Background(), Config{
		EnableTracing: true,
		OTLPEndpoint:  "localhost:1", // nothing listens here
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
