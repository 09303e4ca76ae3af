// Package llm provides the judge-model client layer: a unified interface
// over multiple LLM providers with built-in support for timeouts, retries,
// rate limiting, metrics, and tracing.
//
// The package abstracts the providers (OpenAI, Anthropic, Google) behind
// the CoreLLM interface while adding operational cross-cutting concerns
// through a middleware pattern. The JudgeRegistry composes the pieces into
// a ports.JudgeClient that routes "provider:/model" URIs to lazily created,
// cached provider clients.
//
// Basic usage:
//
//	registry, err := llm.NewJudgeRegistry(llm.RegistryConfig{
//	    Providers: llm.DefaultProviders,
//	})
//	response, err := registry.Score(ctx, "openai:/gpt-4", payload)
package llm

import (
	"context"
	"time"
)

// CoreLLM defines the minimal interface that LLM providers must implement.
// This interface abstracts the core functionality needed to make requests
// to different LLM services, allowing the middleware system to wrap any
// conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt to the LLM provider and returns the response.
	// The opts parameter allows provider-specific configuration such as
	// temperature, max tokens, or other sampling parameters.
	// Returns the response text, input token count, output token count, and any error.
	DoRequest(
		ctx context.Context,
		prompt string,
		opts map[string]any,
	) (
		response string,
		tokensIn, tokensOut int,
		err error,
	)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model to use for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM implementation to add cross-cutting
// functionality. This pattern allows composition of features like rate
// limiting, retries, metrics collection, and tracing without modifying
// core provider logic.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds all configuration options for creating a provider
// client.
type ClientConfig struct {
	// APIKey authenticates requests to the LLM provider.
	APIKey string

	// Model specifies which LLM model to use for requests.
	Model string

	// BaseURL overrides the default API endpoint for the provider.
	// Leave empty to use the provider's default endpoint.
	BaseURL string

	// Timeout sets the maximum duration for individual requests.
	// Zero value means no timeout.
	Timeout time.Duration

	// Middleware allows custom middleware insertion.
	// These are applied in the order specified.
	Middleware []Middleware
}

// NewCoreClient creates a provider client wrapped with the configured
// middleware chain. The first middleware in the list becomes the
// outermost wrapper.
func NewCoreClient(providerType string, config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, ErrInvalidModel
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, NewProviderError(providerType, ErrorTypeBadRequest, 0, "unknown provider", nil)
	}

	core, err := factory(config)
	if err != nil {
		return nil, err
	}

	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return core, nil
}

// ProviderFactory creates a CoreLLM implementation from configuration.
// This function signature allows the provider registry to create provider
// instances without knowing their specific implementation details.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

// Provider factory registry for extensibility.
// This allows registration of custom providers at runtime
// while maintaining type safety and initialization validation.
var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory allows registration of custom LLM provider
// factories. This enables extension of the client with additional
// providers without modifying the core library code.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
