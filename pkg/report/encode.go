package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/jarfang/pkg/analysis"
)

const (
	jsonIndent = "  "
	yamlIndent = 2
	reportPerm = 0o644
	dirPerm    = 0o750
)

// Compact writes a single summary line.
func Compact(w io.Writer, result analysis.Result) error {
	_, err := fmt.Fprintf(w,
		"%s: classes=%d interfaces=%d maxDepth=%d avgDepth=%.2f abc=(A=%d,B=%d,C=%d) magnitude=%.2f avgOverridden=%.2f avgFields=%.2f\n",
		result.JarFileName,
		result.TotalClasses,
		result.TotalInterfaces,
		result.Inheritance.MaxDepth,
		result.Inheritance.AverageDepth,
		result.ABC.TotalAssignments,
		result.ABC.TotalBranches,
		result.ABC.TotalConditions,
		result.ABC.Magnitude,
		result.AverageOverriddenMethods,
		result.AverageFieldsPerClass,
	)
	if err != nil {
		return fmt.Errorf("write compact report: %w", err)
	}

	return nil
}

// JSON writes result as indented JSON followed by a newline.
func JSON(w io.Writer, result analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", jsonIndent)

	err := enc.Encode(result)
	if err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}

	return nil
}

// WriteJSONFile writes the JSON report to path, creating parent directories,
// and returns the absolute path written.
func WriteJSONFile(path string, result analysis.Result) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	err = os.MkdirAll(filepath.Dir(abs), dirPerm)
	if err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, reportPerm)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}

	err = JSON(f, result)
	if err != nil {
		f.Close()

		return "", err
	}

	err = f.Close()
	if err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}

	return abs, nil
}

// YAML writes result as YAML.
func YAML(w io.Writer, result analysis.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(result)
	if err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("flush yaml report: %w", err)
	}

	return nil
}
