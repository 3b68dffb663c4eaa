package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_ProviderSelection(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-anthropic-key")
	t.Setenv("OPENAI_API_KEY", "test-openai-key")

	tests := []struct {
		name      string
		modelName string
		wantType  any
		wantErr   bool
	}{
		{
			name:      "claude model routes to anthropic",
			modelName: "claude-sonnet-4-5",
			wantType:  &AnthropicClient{},
		},
		{
			name:      "gpt model routes to openai",
			modelName: "gpt-4o",
			wantType:  &OpenAIClient{},
		},
		{
			name:      "openai prefix routes to openai",
			modelName: "openai-o3",
			wantType:  &OpenAIClient{},
		},
		{
			name:      "unknown prefix is rejected",
			modelName: "llama-3-70b",
			wantErr:   true,
		},
		{
			name:      "empty model name is rejected",
			modelName: "",
			wantErr:   true,
		},
		{
			name:      "whitespace model name is rejected",
			modelName: "   ",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.modelName, "")
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, client)
			assert.Equal(t, tt.modelName, client.ModelName())
		})
	}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	client, err := NewClient("claude-sonnet-4-5", "")
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestNewClient_ExplicitKeyWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewClient("gpt-4o", "explicit-key")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", client.ModelName())
}
