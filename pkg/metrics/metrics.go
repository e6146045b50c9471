// Package metrics provides interfaces for defining self-contained, reusable metrics.
//
// Each metric is a computation unit that:
//   - Declares its input requirements
//   - Computes a typed output
//   - Provides metadata for documentation and the metric catalog
package metrics

import (
	"slices"
	"sync"
)

// Metric is the core interface that all metrics must implement.
type Metric[In, Out any] interface {
	// Name returns the machine-readable identifier (snake_case, unique).
	Name() string

	// DisplayName returns a human-readable name for reports.
	DisplayName() string

	// Description states what the metric measures and how to read it.
	Description() string

	// Type returns the metric category (e.g., "aggregate", "risk").
	Type() string

	// Compute calculates the metric value from input data.
	Compute(input In) Out
}

// Metric categories.
const (
	TypeAggregate = "aggregate"
	TypeRisk      = "risk"
)

// RiskLevel represents severity levels.
type RiskLevel string

// Risk level constants.
const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
)

// Rank orders levels from LOW (0) to CRITICAL (3). Unknown levels rank -1.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

// MetricMeta holds the common metadata for a metric.
// Embed this in metric implementations to satisfy metadata methods.
type MetricMeta struct {
	MetricName        string
	MetricDisplayName string
	MetricDescription string
	MetricType        string
}

// Name returns the machine-readable identifier.
func (m MetricMeta) Name() string { return m.MetricName }

// DisplayName returns a human-readable name for reports.
func (m MetricMeta) DisplayName() string { return m.MetricDisplayName }

// Description returns detailed documentation.
func (m MetricMeta) Description() string { return m.MetricDescription }

// Type returns the metric category.
func (m MetricMeta) Type() string { return m.MetricType }

// describer is the metadata half of Metric.
type describer interface {
	Name() string
	DisplayName() string
	Description() string
	Type() string
}

// Info is the catalog entry of a registered metric.
type Info struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Registry holds a collection of metrics. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]describer
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]describer)}
}

// Register adds a metric to the registry, replacing any metric of the same name.
func Register[In, Out any](r *Registry, m Metric[In, Out]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics[m.Name()] = m
}

// Get describes the metric registered under name.
func (r *Registry) Get(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.metrics[name]
	if !ok {
		return Info{}, false
	}

	return describe(m), true
}

// Names returns all registered metric names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metrics))

	for name := range r.metrics {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Catalog describes every registered metric, sorted by name.
func (r *Registry) Catalog() []Info {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(names))

	for _, name := range names {
		out = append(out, describe(r.metrics[name]))
	}

	return out
}

func describe(m describer) Info {
	return Info{
		Name:        m.Name(),
		DisplayName: m.DisplayName(),
		Description: m.Description(),
		Type:        m.Type(),
	}
}
