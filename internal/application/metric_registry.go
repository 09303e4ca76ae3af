package application

import (
	"slices"
	"sync"

	"github.com/ahrav/go-rubric/internal/domain"
)

// MetricRegistry is a thread-safe registry of evaluation metrics keyed by
// name. It lets an evaluation harness look up metrics declaratively
// instead of threading metric values through every call site.
type MetricRegistry struct {
	mu      sync.RWMutex
	metrics map[string]domain.EvaluationMetric
}

// NewMetricRegistry creates an empty registry.
func NewMetricRegistry() *MetricRegistry {
	return &MetricRegistry{metrics: make(map[string]domain.EvaluationMetric)}
}

// Register adds a metric under its name. Registering a name twice is a
// ConfigError: silently replacing a metric mid-run would make results
// unattributable.
func (r *MetricRegistry) Register(metric domain.EvaluationMetric) error {
	if metric.Name == "" {
		return domain.NewConfigError("metric name cannot be empty")
	}
	if metric.Eval == nil {
		return domain.NewConfigError("metric %q has no eval function", metric.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.metrics[metric.Name]; exists {
		return domain.NewConfigError("metric %q is already registered", metric.Name)
	}
	r.metrics[metric.Name] = metric
	return nil
}

// Get returns the metric registered under name, or a ConfigError if no
// such metric exists.
func (r *MetricRegistry) Get(name string) (domain.EvaluationMetric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metric, ok := r.metrics[name]
	if !ok {
		return domain.EvaluationMetric{}, domain.NewConfigError("metric %q is not registered", name)
	}
	return metric, nil
}

// List returns the registered metric names in sorted order.
func (r *MetricRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
