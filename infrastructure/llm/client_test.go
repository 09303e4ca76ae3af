package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderTrackingLLM records the order middleware layers execute in.
type orderTrackingLLM struct {
	CoreLLM
	order *[]string
	name  string
}

func (o *orderTrackingLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*o.order = append(*o.order, o.name)
	return o.CoreLLM.DoRequest(ctx, prompt, opts)
}

func TestNewCoreClient_Validation(t *testing.T) {
	tests := []struct {
		name         string
		providerType string
		config       ClientConfig
		expectedErr  error
	}{
		{
			name:         "empty API key",
			providerType: "openai",
			config:       ClientConfig{Model: "gpt-4"},
			expectedErr:  ErrEmptyAPIKey,
		},
		{
			name:         "empty model",
			providerType: "openai",
			config:       ClientConfig{APIKey: "sk-test"},
			expectedErr:  ErrInvalidModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCoreClient(tt.providerType, tt.config)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestNewCoreClient_UnknownProvider(t *testing.T) {
	_, err := NewCoreClient("nonexistent", ClientConfig{APIKey: "key", Model: "model"})

	require.Error(t, err)
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ErrorTypeBadRequest, providerErr.Type)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewCoreClient_MiddlewareOrder(t *testing.T) {
	mock := NewMockCoreLLM()
	RegisterProviderFactory("ordertest", func(config ClientConfig) (CoreLLM, error) {
		return mock, nil
	})

	var order []string
	outer := func(next CoreLLM) CoreLLM {
		return &orderTrackingLLM{CoreLLM: next, order: &order, name: "outer"}
	}
	inner := func(next CoreLLM) CoreLLM {
		return &orderTrackingLLM{CoreLLM: next, order: &order, name: "inner"}
	}

	client, err := NewCoreClient("ordertest", ClientConfig{
		APIKey:     "key",
		Model:      "model",
		Middleware: []Middleware{outer, inner},
	})
	require.NoError(t, err)

	_, _, _, err = client.DoRequest(context.Background(), "test prompt", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"outer", "inner"}, order,
		"the first configured middleware must be the outermost layer")
}

func TestRegisterProviderFactory_CustomProvider(t *testing.T) {
	mock := NewMockCoreLLM()
	RegisterProviderFactory("customtest", func(config ClientConfig) (CoreLLM, error) {
		mock.SetModel(config.Model)
		return mock, nil
	})

	client, err := NewCoreClient("customtest", ClientConfig{APIKey: "key", Model: "my-model"})
	require.NoError(t, err)

	assert.Equal(t, "my-model", client.GetModel())
}
