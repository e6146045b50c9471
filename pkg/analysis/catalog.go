package analysis

import (
	"github.com/Sumatoshi-tech/jarfang/pkg/abc"
	"github.com/Sumatoshi-tech/jarfang/pkg/metrics"
)

// Metric names.
const (
	MetricInheritanceDepth  = "inheritance_depth"
	MetricABCSummary        = "abc_summary"
	MetricOverriddenMethods = "overridden_methods"
	MetricFieldsPerClass    = "fields_per_class"
	MetricClassRisk         = "class_risk"
)

// Class risk thresholds on ABC magnitude.
const (
	RiskThresholdMedium   = 20.0
	RiskThresholdHigh     = 50.0
	RiskThresholdCritical = 100.0
)

// InheritanceDepthMetric computes the maximum and average depth.
type InheritanceDepthMetric struct {
	metrics.MetricMeta
}

// NewInheritanceDepthMetric creates the metric.
func NewInheritanceDepthMetric() *InheritanceDepthMetric {
	return &InheritanceDepthMetric{MetricMeta: metrics.MetricMeta{
		MetricName:        MetricInheritanceDepth,
		MetricDisplayName: "Inheritance Depth",
		MetricDescription: "Superclass links from each class up to java.lang.Object, plus one. " +
			"A superclass outside the archive counts as one more link. Maximum and mean over all classes and interfaces.",
		MetricType: metrics.TypeAggregate,
	}}
}

// Compute implements metrics.Metric.
func (m *InheritanceDepthMetric) Compute(h *Hierarchy) InheritanceMetrics {
	classes := h.Classes()

	var out InheritanceMetrics

	total := 0

	for i := range classes {
		depth := h.Depth(&classes[i])
		total += depth
		out.MaxDepth = max(out.MaxDepth, depth)
	}

	out.AverageDepth = average(total, len(classes))

	return out
}

// ABCSummaryMetric sums ABC counts over all classes.
type ABCSummaryMetric struct {
	metrics.MetricMeta
}

// NewABCSummaryMetric creates the metric.
func NewABCSummaryMetric() *ABCSummaryMetric {
	return &ABCSummaryMetric{MetricMeta: metrics.MetricMeta{
		MetricName:        MetricABCSummary,
		MetricDisplayName: "ABC Summary",
		MetricDescription: "Assignments (local stores, iinc), branches (invocations, new) and conditions " +
			"(conditional jumps, switch labels) summed over every method. Magnitude is sqrt(A²+B²+C²) of the sums.",
		MetricType: metrics.TypeAggregate,
	}}
}

// Compute implements metrics.Metric.
func (m *ABCSummaryMetric) Compute(h *Hierarchy) ABCSummary {
	var total abc.Metrics

	for _, c := range h.Classes() {
		total.Add(c.ABC)
	}

	return NewABCSummary(total)
}

// OverriddenMethodsMetric averages overriding methods per concrete class.
type OverriddenMethodsMetric struct {
	metrics.MetricMeta
}

// NewOverriddenMethodsMetric creates the metric.
func NewOverriddenMethodsMetric() *OverriddenMethodsMetric {
	return &OverriddenMethodsMetric{MetricMeta: metrics.MetricMeta{
		MetricName:        MetricOverriddenMethods,
		MetricDisplayName: "Overridden Methods",
		MetricDescription: "Methods of a class whose name and descriptor match a method of java.lang.Object, " +
			"of a superclass in the archive or of an interface reachable in the archive. Averaged over non-interface classes.",
		MetricType: metrics.TypeAggregate,
	}}
}

// Compute implements metrics.Metric.
func (m *OverriddenMethodsMetric) Compute(h *Hierarchy) float64 {
	classes := h.Classes()
	total, n := 0, 0

	for i := range classes {
		if classes[i].IsInterface {
			continue
		}

		total += h.OverriddenCount(&classes[i])
		n++
	}

	return average(total, n)
}

// FieldsPerClassMetric averages declared fields over all classes.
type FieldsPerClassMetric struct {
	metrics.MetricMeta
}

// NewFieldsPerClassMetric creates the metric.
func NewFieldsPerClassMetric() *FieldsPerClassMetric {
	return &FieldsPerClassMetric{MetricMeta: metrics.MetricMeta{
		MetricName:        MetricFieldsPerClass,
		MetricDisplayName: "Fields per Class",
		MetricDescription: "Declared fields, static and instance, averaged over all classes and interfaces.",
		MetricType:        metrics.TypeAggregate,
	}}
}

// Compute implements metrics.Metric.
func (m *FieldsPerClassMetric) Compute(h *Hierarchy) float64 {
	total := 0

	for _, c := range h.Classes() {
		total += c.FieldCount
	}

	return average(total, len(h.Classes()))
}

// ClassRiskMetric grades a class by its ABC magnitude.
type ClassRiskMetric struct {
	metrics.MetricMeta
}

// NewClassRiskMetric creates the metric.
func NewClassRiskMetric() *ClassRiskMetric {
	return &ClassRiskMetric{MetricMeta: metrics.MetricMeta{
		MetricName:        MetricClassRisk,
		MetricDisplayName: "Class Risk",
		MetricDescription: "ABC magnitude of a single class: LOW below 20, MEDIUM below 50, HIGH below 100, CRITICAL otherwise.",
		MetricType:        metrics.TypeRisk,
	}}
}

// Compute implements metrics.Metric.
func (m *ClassRiskMetric) Compute(counts abc.Metrics) metrics.RiskLevel {
	magnitude := counts.Magnitude()

	switch {
	case magnitude >= RiskThresholdCritical:
		return metrics.RiskCritical
	case magnitude >= RiskThresholdHigh:
		return metrics.RiskHigh
	case magnitude >= RiskThresholdMedium:
		return metrics.RiskMedium
	default:
		return metrics.RiskLow
	}
}

// NewCatalog registers every jarfang metric.
func NewCatalog() *metrics.Registry {
	r := metrics.NewRegistry()

	metrics.Register[*Hierarchy, InheritanceMetrics](r, NewInheritanceDepthMetric())
	metrics.Register[*Hierarchy, ABCSummary](r, NewABCSummaryMetric())
	metrics.Register[*Hierarchy, float64](r, NewOverriddenMethodsMetric())
	metrics.Register[*Hierarchy, float64](r, NewFieldsPerClassMetric())
	metrics.Register[abc.Metrics, metrics.RiskLevel](r, NewClassRiskMetric())

	return r
}

func average(total, n int) float64 {
	if n == 0 {
		return 0
	}

	return float64(total) / float64(n)
}
