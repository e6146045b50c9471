// Package analysis computes archive-level metrics from class summaries:
// inheritance depth, aggregate ABC, overridden methods and field counts.
package analysis

import (
	"cmp"
	"slices"

	"github.com/Sumatoshi-tech/jarfang/pkg/abc"
	"github.com/Sumatoshi-tech/jarfang/pkg/classinfo"
	"github.com/Sumatoshi-tech/jarfang/pkg/jar"
	"github.com/Sumatoshi-tech/jarfang/pkg/metrics"
)

// Result is the analysis report of one archive.
type Result struct {
	JarFileName              string             `json:"jarFileName"              yaml:"jarFileName"`
	TotalClasses             int                `json:"totalClasses"             yaml:"totalClasses"`
	TotalInterfaces          int                `json:"totalInterfaces"          yaml:"totalInterfaces"`
	Inheritance              InheritanceMetrics `json:"inheritance"              yaml:"inheritance"`
	ABC                      ABCSummary         `json:"abc"                      yaml:"abc"`
	AverageOverriddenMethods float64            `json:"averageOverriddenMethods" yaml:"averageOverriddenMethods"`
	AverageFieldsPerClass    float64            `json:"averageFieldsPerClass"    yaml:"averageFieldsPerClass"`
	Archive                  *ArchiveInfo       `json:"archive,omitempty"        yaml:"archive,omitempty"`
	SkippedEntries           []jar.SkippedEntry `json:"skippedEntries,omitempty" yaml:"skippedEntries,omitempty"`
	Classes                  []ClassMetrics     `json:"classes,omitempty"        yaml:"classes,omitempty"`
}

// InheritanceMetrics summarizes class hierarchy depth.
type InheritanceMetrics struct {
	MaxDepth     int     `json:"maxDepth"     yaml:"maxDepth"`
	AverageDepth float64 `json:"averageDepth" yaml:"averageDepth"`
}

// ABCSummary is the archive-wide ABC total.
type ABCSummary struct {
	TotalAssignments int     `json:"totalAssignments" yaml:"totalAssignments"`
	TotalBranches    int     `json:"totalBranches"    yaml:"totalBranches"`
	TotalConditions  int     `json:"totalConditions"  yaml:"totalConditions"`
	Magnitude        float64 `json:"magnitude"        yaml:"magnitude"`
}

// NewABCSummary converts raw counts.
func NewABCSummary(m abc.Metrics) ABCSummary {
	return ABCSummary{
		TotalAssignments: m.Assignments,
		TotalBranches:    m.Branches,
		TotalConditions:  m.Conditions,
		Magnitude:        m.Magnitude(),
	}
}

// ArchiveInfo describes the analyzed file.
type ArchiveInfo struct {
	SHA256    string        `json:"sha256"             yaml:"sha256"`
	SizeBytes int64         `json:"sizeBytes"          yaml:"sizeBytes"`
	Manifest  *jar.Manifest `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// ClassMetrics are the per-class details of a report.
type ClassMetrics struct {
	Name       string            `json:"name"                yaml:"name"`
	SuperName  string            `json:"superName,omitempty" yaml:"superName,omitempty"`
	Interface  bool              `json:"interface"           yaml:"interface"`
	Methods    int               `json:"methods"             yaml:"methods"`
	Fields     int               `json:"fields"              yaml:"fields"`
	Depth      int               `json:"depth"               yaml:"depth"`
	Overridden int               `json:"overridden"          yaml:"overridden"`
	ABC        abc.Metrics       `json:"abc"                 yaml:"abc"`
	Magnitude  float64           `json:"magnitude"           yaml:"magnitude"`
	Risk       metrics.RiskLevel `json:"risk"                yaml:"risk"`
}

// Options controls optional report content.
type Options struct {
	// IncludeClasses adds per-class details to the result.
	IncludeClasses bool
}

// Calculate computes the archive metrics of classes.
func Calculate(jarFileName string, classes []classinfo.ClassInfo, opts Options) Result {
	h := NewHierarchy(classes)

	result := Result{
		JarFileName:              jarFileName,
		Inheritance:              NewInheritanceDepthMetric().Compute(h),
		ABC:                      NewABCSummaryMetric().Compute(h),
		AverageOverriddenMethods: NewOverriddenMethodsMetric().Compute(h),
		AverageFieldsPerClass:    NewFieldsPerClassMetric().Compute(h),
	}

	for _, c := range classes {
		if c.IsInterface {
			result.TotalInterfaces++
		} else {
			result.TotalClasses++
		}
	}

	if opts.IncludeClasses {
		result.Classes = classMetrics(h)
	}

	return result
}

// FromArchive calculates the metrics of a processed archive and attaches its
// digest, size, manifest and skipped entries.
func FromArchive(archive *jar.Archive, opts Options) Result {
	result := Calculate(archive.FileName, archive.Classes, opts)

	info := &ArchiveInfo{SHA256: archive.SHA256, SizeBytes: archive.SizeBytes}
	if !archive.Manifest.IsZero() {
		manifest := archive.Manifest
		info.Manifest = &manifest
	}

	result.Archive = info
	result.SkippedEntries = archive.Skipped

	return result
}

func classMetrics(h *Hierarchy) []ClassMetrics {
	risk := NewClassRiskMetric()
	classes := h.Classes()
	out := make([]ClassMetrics, 0, len(classes))

	for i := range classes {
		c := &classes[i]

		cm := ClassMetrics{
			Name:      c.Name,
			SuperName: c.SuperName,
			Interface: c.IsInterface,
			Methods:   len(c.Methods),
			Fields:    c.FieldCount,
			Depth:     h.Depth(c),
			ABC:       c.ABC,
			Magnitude: c.ABC.Magnitude(),
			Risk:      risk.Compute(c.ABC),
		}

		if !c.IsInterface {
			cm.Overridden = h.OverriddenCount(c)
		}

		out = append(out, cm)
	}

	return out
}

// TopClasses returns up to n classes ordered by descending ABC magnitude,
// ties broken by name. n <= 0 returns all of them.
func (r Result) TopClasses(n int) []ClassMetrics {
	sorted := slices.Clone(r.Classes)

	slices.SortStableFunc(sorted, func(a, b ClassMetrics) int {
		return cmp.Or(cmp.Compare(b.Magnitude, a.Magnitude), cmp.Compare(a.Name, b.Name))
	})

	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	return sorted
}

// RiskCounts counts per-class details by risk level.
func (r Result) RiskCounts() map[metrics.RiskLevel]int {
	counts := make(map[metrics.RiskLevel]int)

	for _, c := range r.Classes {
		counts[c.Risk]++
	}

	return counts
}
