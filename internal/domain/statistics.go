package domain

import (
	"fmt"
	"math"
	"sort"
)

// AggregateOption names one summary statistic computed over the non-nil
// scores of a run.
type AggregateOption string

// Supported aggregate statistics.
const (
	AggregateMin      AggregateOption = "min"
	AggregateMax      AggregateOption = "max"
	AggregateMean     AggregateOption = "mean"
	AggregateMedian   AggregateOption = "median"
	AggregateVariance AggregateOption = "variance"
	AggregateP90      AggregateOption = "p90"
)

// DefaultAggregations returns the statistics computed when the caller does
// not request a specific set.
func DefaultAggregations() []AggregateOption {
	return []AggregateOption{AggregateMean, AggregateVariance, AggregateP90}
}

// supportedAggregations is the closed set of valid statistic names.
var supportedAggregations = map[AggregateOption]struct{}{
	AggregateMin:      {},
	AggregateMax:      {},
	AggregateMean:     {},
	AggregateMedian:   {},
	AggregateVariance: {},
	AggregateP90:      {},
}

// ValidateAggregations rejects unknown statistic names with a ConfigError.
// Validation happens before any computation or judge dispatch so a typo
// fails fast rather than after a paid scoring run.
func ValidateAggregations(options []AggregateOption) error {
	for _, option := range options {
		if _, ok := supportedAggregations[option]; !ok {
			return NewConfigError("invalid aggregate option %q", option)
		}
	}
	return nil
}

// ComputeAggregates computes one value per requested statistic over the
// given scores. The options must already be validated.
//
// An empty score list is a legitimate outcome (every row failed
// recoverably), not a crash condition: each requested statistic is then
// NaN. Callers distinguish "undefined" via math.IsNaN.
func ComputeAggregates(options []AggregateOption, scores []int) map[AggregateOption]float64 {
	results := make(map[AggregateOption]float64, len(options))
	for _, option := range options {
		results[option] = computeStatistic(option, scores)
	}
	return results
}

func computeStatistic(option AggregateOption, scores []int) float64 {
	if len(scores) == 0 {
		return math.NaN()
	}

	values := make([]float64, len(scores))
	for i, s := range scores {
		values[i] = float64(s)
	}

	switch option {
	case AggregateMin:
		return minOf(values)
	case AggregateMax:
		return maxOf(values)
	case AggregateMean:
		return mean(values)
	case AggregateMedian:
		return percentile(values, 50)
	case AggregateVariance:
		return variance(values)
	case AggregateP90:
		return percentile(values, 90)
	default:
		// Unreachable when options were validated; surface loudly if not.
		panic(fmt.Sprintf("unvalidated aggregate option %q", option))
	}
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance (denominator n, not n-1).
func variance(values []float64) float64 {
	mu := mean(values)
	var sum float64
	for _, v := range values {
		d := v - mu
		sum += d * d
	}
	return sum / float64(len(values))
}

// percentile computes the p-th percentile using linear interpolation
// between closest ranks. p is in [0, 100]. Median is percentile 50.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
