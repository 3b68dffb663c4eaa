package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "test tool",
		Fn: func(_ context.Context, _ map[string]any) (any, error) {
			return "ok", nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(noopTool("alpha")))

		tool, err := r.Get("alpha")
		require.NoError(t, err)
		assert.Equal(t, "alpha", tool.Name)
		assert.True(t, r.Has("alpha"))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(noopTool("alpha")))

		err := r.Register(noopTool("alpha"))
		require.Error(t, err)
		var regErr *RegistrationError
		require.ErrorAs(t, err, &regErr)
		assert.Contains(t, regErr.Reason, "already registered")
	})

	t.Run("validation failures", func(t *testing.T) {
		r := NewRegistry()

		bad := noopTool("")
		assert.Error(t, r.Register(bad))

		bad = noopTool("beta")
		bad.Description = ""
		assert.Error(t, r.Register(bad))

		bad = noopTool("beta")
		bad.Fn = nil
		assert.Error(t, r.Register(bad))
	})

	t.Run("invalid schema is rejected at registration", func(t *testing.T) {
		r := NewRegistry()
		bad := noopTool("beta")
		bad.Parameters = map[string]any{
			"type":       "object",
			"properties": map[string]any{"x": map[string]any{"type": "not-a-type"}},
		}
		err := r.Register(bad)
		require.Error(t, err)
		var regErr *RegistrationError
		assert.ErrorAs(t, err, &regErr)
	})

	t.Run("unknown tool lists available names", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(noopTool("alpha")))
		require.NoError(t, r.Register(noopTool("beta")))

		_, err := r.Get("gamma")
		require.Error(t, err)
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, []string{"alpha", "beta"}, notFound.Available)
	})

	t.Run("names and list are sorted", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(noopTool("zeta")))
		require.NoError(t, r.Register(noopTool("alpha")))

		assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
		list := r.List()
		require.Len(t, list, 2)
		assert.Equal(t, "alpha", list[0].Name)
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(noopTool("alpha")))
		require.NoError(t, r.Unregister("alpha"))
		assert.False(t, r.Has("alpha"))
		assert.Error(t, r.Unregister("alpha"))
	})
}

func TestTool_ValidateArgs(t *testing.T) {
	r := NewRegistry()
	tool := noopTool("calc")
	tool.Parameters = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{"type": "string"},
		},
		"required": []string{"expression"},
	}
	require.NoError(t, r.Register(tool))

	registered, err := r.Get("calc")
	require.NoError(t, err)

	assert.NoError(t, registered.ValidateArgs(map[string]any{"expression": "1+1"}))
	assert.Error(t, registered.ValidateArgs(map[string]any{"expression": 42}))
	assert.Error(t, registered.ValidateArgs(map[string]any{}))

	// Tools without a schema accept anything.
	require.NoError(t, r.Register(noopTool("free")))
	free, err := r.Get("free")
	require.NoError(t, err)
	assert.NoError(t, free.ValidateArgs(map[string]any{"anything": true}))
}
