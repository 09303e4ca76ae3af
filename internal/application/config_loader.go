package application

import (
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-rubric/internal/domain"
	"github.com/ahrav/go-rubric/internal/ports"
)

// metricConfigFile is the on-disk shape of a metric definition document:
// a list of metric configurations under a single "metrics" key.
type metricConfigFile struct {
	Metrics []GenAIMetricConfig `yaml:"metrics"`
}

// ParseMetricConfig decodes a single YAML metric definition. Defaults are
// applied after decoding, so a definition only needs the fields it wants
// to override.
func ParseMetricConfig(node yaml.Node) (GenAIMetricConfig, error) {
	var config GenAIMetricConfig
	if err := node.Decode(&config); err != nil {
		return GenAIMetricConfig{}, domain.NewConfigError("failed to decode metric configuration: %v", err)
	}
	return config.withDefaults(), nil
}

// LoadMetricConfigs parses a YAML document declaring evaluation metrics.
// The document carries a "metrics" list; each entry is a GenAIMetricConfig
// in its YAML form. Duplicate metric names are rejected here rather than
// at registration so the error points at the configuration file.
func LoadMetricConfigs(data []byte) ([]GenAIMetricConfig, error) {
	var file metricConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, domain.NewConfigError("failed to parse metric configuration: %v", err)
	}
	if len(file.Metrics) == 0 {
		return nil, domain.NewConfigError("metric configuration declares no metrics")
	}

	seen := make(map[string]struct{}, len(file.Metrics))
	configs := make([]GenAIMetricConfig, 0, len(file.Metrics))
	for _, config := range file.Metrics {
		if config.Name == "" {
			return nil, domain.NewConfigError("metric configuration entry has no name")
		}
		if _, dup := seen[config.Name]; dup {
			return nil, domain.NewConfigError("metric %q is declared more than once", config.Name)
		}
		seen[config.Name] = struct{}{}
		configs = append(configs, config.withDefaults())
	}
	return configs, nil
}

// BuildMetricsFromConfig loads metric definitions from a YAML document,
// builds each with MakeGenAIMetric, and registers them all in a fresh
// registry. One invalid definition fails the whole load; a partially
// populated registry would silently drop metrics from evaluation reports.
func BuildMetricsFromConfig(client ports.JudgeClient, data []byte, metrics ports.MetricsCollector) (*MetricRegistry, error) {
	configs, err := LoadMetricConfigs(data)
	if err != nil {
		return nil, err
	}

	registry := NewMetricRegistry()
	for _, config := range configs {
		metric, err := MakeGenAIMetric(client, config, metrics)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(metric); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
