// Command rubric-eval runs evaluation metrics over a dataset.
//
// It loads LLM-as-judge metric definitions from a YAML file, registers the
// built-in closed-form metrics alongside them, scores every row of a JSON
// dataset, and prints per-row results and aggregate statistics. With
// -listen set it also exposes judge request metrics on a Prometheus
// endpoint for the duration of the run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-rubric/infrastructure/llm"
	"github.com/ahrav/go-rubric/infrastructure/metrics"
	"github.com/ahrav/go-rubric/infrastructure/textmetrics"
	"github.com/ahrav/go-rubric/internal/application"
	"github.com/ahrav/go-rubric/internal/domain"
	"github.com/ahrav/go-rubric/internal/ports"
)

// dataset is the on-disk evaluation input: parallel inputs and outputs
// plus one value list per grading context column.
type dataset struct {
	Inputs         []string            `json:"inputs"`
	Outputs        []string            `json:"outputs"`
	GradingContext map[string][]string `json:"grading_context"`
}

func main() {
	var (
		configPath  = flag.String("config", "metrics.yaml", "Path to the metric definitions file")
		dataPath    = flag.String("data", "dataset.json", "Path to the evaluation dataset")
		metricNames = flag.String("metrics", "", "Comma-separated metric names to run (default: all registered)")
		listenAddr  = flag.String("listen", "", "Address for the Prometheus metrics endpoint (empty disables it)")
		timeout     = flag.Duration("timeout", 10*time.Minute, "Overall evaluation deadline")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	collector, err := setupMetrics(*listenAddr)
	if err != nil {
		log.Fatalf("Failed to start metrics endpoint: %v", err)
	}

	judgeRegistry, err := llm.NewJudgeRegistry(llm.RegistryConfig{
		Providers: llm.DefaultProviders,
		DefaultMiddleware: []llm.Middleware{
			llm.RetryMiddleware(2, 500*time.Millisecond, 5*time.Second),
			llm.RateLimitMiddleware(rate.Limit(10), 20),
		},
	})
	if err != nil {
		log.Fatalf("Failed to build judge registry: %v", err)
	}

	configData, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *configPath, err)
	}

	registry, err := application.BuildMetricsFromConfig(judgeRegistry, configData, collector)
	if err != nil {
		log.Fatalf("Failed to build metrics: %v", err)
	}

	for _, builtin := range []domain.EvaluationMetric{
		textmetrics.ExactMatchMetric(),
		textmetrics.FuzzySimilarityMetric(),
		textmetrics.TokenCountMetric(),
	} {
		if err := registry.Register(builtin); err != nil {
			log.Fatalf("Failed to register built-in metric: %v", err)
		}
	}

	data, err := loadDataset(*dataPath)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	names := registry.List()
	if *metricNames != "" {
		names = splitNames(*metricNames)
	}

	for _, name := range names {
		metric, err := registry.Get(name)
		if err != nil {
			log.Fatalf("Unknown metric: %v", err)
		}

		value, err := metric.Eval(ctx, data.Outputs, data.Inputs, data.GradingContext)
		if err != nil {
			log.Fatalf("Evaluating %s failed: %v", name, err)
		}

		printResults(metric, value)
	}
}

// setupMetrics starts a Prometheus endpoint when addr is non-empty and
// returns the collector to thread through metric construction. A nil
// collector disables telemetry entirely. The return type is the port
// interface so the disabled case stays a nil interface rather than a
// typed nil pointer wrapped in one.
func setupMetrics(addr string) (ports.MetricsCollector, error) {
	if addr == "" {
		return nil, nil
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusMetrics(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics endpoint stopped: %v", err)
		}
	}()

	return collector, nil
}

func loadDataset(path string) (*dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(data.Inputs) != len(data.Outputs) {
		return nil, fmt.Errorf("%s has %d inputs but %d outputs", path, len(data.Inputs), len(data.Outputs))
	}
	return &data, nil
}

func splitNames(csv string) []string {
	var names []string
	for _, name := range strings.Split(csv, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func printResults(metric domain.EvaluationMetric, value *domain.MetricValue) {
	direction := "lower is better"
	if metric.GreaterIsBetter {
		direction = "higher is better"
	}
	fmt.Printf("\n%s (%s, %s)\n", metric.Name, metric.Version, direction)

	for i, score := range value.Scores {
		if score == nil {
			fmt.Printf("  row %d: no score (%s)\n", i, value.Justifications[i])
			continue
		}
		if value.Justifications[i] != "" {
			fmt.Printf("  row %d: %d (%s)\n", i, *score, value.Justifications[i])
		} else {
			fmt.Printf("  row %d: %d\n", i, *score)
		}
	}

	for option, result := range value.Aggregates {
		if math.IsNaN(result) {
			fmt.Printf("  %s: undefined (no scores)\n", option)
			continue
		}
		fmt.Printf("  %s: %.2f\n", option, result)
	}
}
