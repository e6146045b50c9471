// Package compare diffs two JSON analysis reports.
package compare

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/tidwall/gjson"
)

// Sentinel errors.
var (
	ErrInvalidReport = errors.New("report is not valid JSON")
	ErrMissingMetric = errors.New("report is missing metric")
)

// Metric is a compared report value.
type Metric struct {
	Name string
	Path string
}

// Metrics lists the compared values in report order.
var Metrics = []Metric{
	{"Total classes", "totalClasses"},
	{"Total interfaces", "totalInterfaces"},
	{"Maximum inheritance depth", "inheritance.maxDepth"},
	{"Average inheritance depth", "inheritance.averageDepth"},
	{"Assignments (A)", "abc.totalAssignments"},
	{"Branches (B)", "abc.totalBranches"},
	{"Conditions/Calls (C)", "abc.totalConditions"},
	{"ABC Magnitude", "abc.magnitude"},
	{"Average overridden methods per class", "averageOverriddenMethods"},
	{"Average fields per class", "averageFieldsPerClass"},
}

// Delta is the change of one metric between two reports.
type Delta struct {
	Metric string  `json:"metric"`
	Path   string  `json:"path"`
	Base   float64 `json:"base"`
	Head   float64 `json:"head"`
	Change float64 `json:"change"`
}

// Changed reports whether the value differs.
func (d Delta) Changed() bool {
	return d.Change != 0
}

// Compare reads every metric from both reports and returns their deltas.
func Compare(base, head []byte) ([]Delta, error) {
	if !gjson.ValidBytes(base) {
		return nil, fmt.Errorf("base: %w", ErrInvalidReport)
	}

	if !gjson.ValidBytes(head) {
		return nil, fmt.Errorf("head: %w", ErrInvalidReport)
	}

	paths := make([]string, len(Metrics))
	for i, m := range Metrics {
		paths[i] = m.Path
	}

	baseValues := gjson.GetManyBytes(base, paths...)
	headValues := gjson.GetManyBytes(head, paths...)
	deltas := make([]Delta, 0, len(Metrics))

	for i, m := range Metrics {
		b, h := baseValues[i], headValues[i]

		if !b.Exists() || b.Type != gjson.Number {
			return nil, fmt.Errorf("base: %w: %s", ErrMissingMetric, m.Path)
		}

		if !h.Exists() || h.Type != gjson.Number {
			return nil, fmt.Errorf("head: %w: %s", ErrMissingMetric, m.Path)
		}

		deltas = append(deltas, Delta{
			Metric: m.Name,
			Path:   m.Path,
			Base:   b.Float(),
			Head:   h.Float(),
			Change: h.Float() - b.Float(),
		})
	}

	return deltas, nil
}

// UnifiedText returns a line diff of a and b. Removed lines start with "-",
// added lines with "+" and unchanged lines with a space.
func UnifiedText(a, b string) string {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	var sb strings.Builder

	for _, d := range diffs {
		prefix := " "

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffEqual:
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			sb.WriteString(prefix)
			sb.WriteString(line)

			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}

	return sb.String()
}
