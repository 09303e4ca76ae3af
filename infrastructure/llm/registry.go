package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-rubric/internal/domain"
	"github.com/ahrav/go-rubric/internal/ports"
)

// Compile-time check that the registry satisfies the judge client port.
var _ ports.JudgeClient = (*JudgeRegistry)(nil)

// JudgeRegistry routes judge model URIs to provider clients. It resolves
// "provider:/model" URIs, creates clients lazily with API keys from the
// environment, and caches them per provider/model pair so a scoring run
// reuses one client across all its rows.
type JudgeRegistry struct {
	// providers maps provider names to their configuration.
	providers map[string]ProviderConfig
	// clients maps "provider/model" keys to provider clients.
	clients map[string]CoreLLM
	// defaultMiddleware is applied to all providers unless overridden.
	defaultMiddleware []Middleware
	// defaultTimeout sets the default request timeout for all providers.
	defaultTimeout time.Duration
	// mu provides thread-safe access to the client cache.
	mu sync.RWMutex
}

// ProviderConfig holds provider-specific configuration.
// This struct allows fine-grained control over individual provider
// settings, overriding registry defaults for specific providers.
type ProviderConfig struct {
	// Type specifies the provider implementation type (openai, anthropic, google).
	Type string
	// EnvVar specifies the environment variable name for the API key.
	EnvVar string
	// BaseURL overrides the default API endpoint for the provider.
	BaseURL string
	// Middleware specifies provider-specific middleware.
	Middleware []Middleware
}

// RegistryConfig holds configuration for the judge registry.
// Defaults apply to all providers unless overridden per provider.
type RegistryConfig struct {
	// Providers defines the available providers and their configurations.
	Providers map[string]ProviderConfig
	// DefaultTimeout sets the default request timeout for all providers.
	DefaultTimeout time.Duration
	// DefaultMiddleware specifies default middleware applied to all providers.
	DefaultMiddleware []Middleware
}

// DefaultProviders provides standard provider configurations for common
// LLM services. Applications can use this as a starting point and
// override specific settings.
var DefaultProviders = map[string]ProviderConfig{
	"openai": {
		Type:   "openai",
		EnvVar: "OPENAI_API_KEY",
	},
	"anthropic": {
		Type:   "anthropic",
		EnvVar: "ANTHROPIC_API_KEY",
	},
	"google": {
		Type:   "google",
		EnvVar: "GOOGLE_API_KEY",
	},
}

// NewJudgeRegistry creates a judge registry from config. An empty provider
// map falls back to DefaultProviders.
func NewJudgeRegistry(config RegistryConfig) (*JudgeRegistry, error) {
	providers := config.Providers
	if len(providers) == 0 {
		providers = DefaultProviders
	}

	for name, providerConfig := range providers {
		if providerConfig.Type == "" {
			return nil, domain.NewConfigError("provider %q has no type", name)
		}
		if providerConfig.EnvVar == "" {
			return nil, domain.NewConfigError("provider %q has no API key environment variable", name)
		}
	}

	return &JudgeRegistry{
		providers:         providers,
		clients:           make(map[string]CoreLLM),
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    config.DefaultTimeout,
	}, nil
}

// ParseModelURI splits a "provider:/model" URI into its parts.
// Both parts must be non-empty.
func ParseModelURI(modelURI string) (provider, model string, err error) {
	parts := strings.SplitN(modelURI, ":/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", domain.NewConfigError(
			"model URI must be in \"provider:/model\" form (e.g. \"openai:/gpt-4\"), got %q", modelURI)
	}
	return parts[0], parts[1], nil
}

// Score sends payload to the model identified by modelURI and returns the
// raw judge response. Provider errors carry a severity classification:
// authentication and bad-request failures are fatal, everything else is
// recoverable and degrades only the row that hit it.
func (r *JudgeRegistry) Score(ctx context.Context, modelURI string, payload domain.Payload) (domain.RawJudgeResponse, error) {
	client, err := r.clientFor(modelURI)
	if err != nil {
		return domain.RawJudgeResponse{}, err
	}

	text, _, _, err := client.DoRequest(ctx, payload.Prompt, payload.Parameters)
	if err != nil {
		return domain.RawJudgeResponse{}, err
	}

	return domain.RawJudgeResponse{
		Candidates: []domain.Candidate{{Text: text}},
	}, nil
}

// clientFor resolves modelURI to a cached client, creating one on first
// use.
func (r *JudgeRegistry) clientFor(modelURI string) (CoreLLM, error) {
	provider, model, err := ParseModelURI(modelURI)
	if err != nil {
		return nil, err
	}

	key := provider + "/" + model

	r.mu.RLock()
	if client, exists := r.clients[key]; exists {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[key]; exists {
		return client, nil
	}

	client, err := r.createClient(provider, model)
	if err != nil {
		return nil, err
	}

	r.clients[key] = client
	return client, nil
}

// createClient creates a new client instance for the given provider and
// model. It handles environment variable loading, configuration merging,
// and client initialization. A missing API key is an authentication
// failure, which the scorer treats as fatal for the whole batch.
func (r *JudgeRegistry) createClient(provider, model string) (CoreLLM, error) {
	providerConfig, exists := r.providers[provider]
	if !exists {
		return nil, domain.NewConfigError("unknown judge provider %q", provider)
	}

	apiKey := os.Getenv(providerConfig.EnvVar)
	if apiKey == "" {
		return nil, NewProviderError(provider, ErrorTypeAuthentication, 0,
			fmt.Sprintf("%s environment variable not set", providerConfig.EnvVar), nil)
	}

	config := ClientConfig{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: providerConfig.BaseURL,
		Timeout: r.defaultTimeout,
	}

	config.Middleware = append([]Middleware{}, r.defaultMiddleware...)
	config.Middleware = append(config.Middleware, providerConfig.Middleware...)

	return NewCoreClient(providerConfig.Type, config)
}

// RegisterClient registers a pre-built client under the given model URI,
// bypassing lazy creation. Useful for custom providers and tests.
func (r *JudgeRegistry) RegisterClient(modelURI string, client CoreLLM) error {
	if client == nil {
		return domain.NewConfigError("client cannot be nil")
	}
	provider, model, err := ParseModelURI(modelURI)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[provider+"/"+model] = client
	return nil
}

// RegisteredProviders returns the names of all configured providers.
func (r *JudgeRegistry) RegisteredProviders() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
