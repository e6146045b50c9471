package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	gocache "github.com/patrickmn/go-cache"

	"github.com/Sumatoshi-tech/jarfang/pkg/analysis"
	"github.com/Sumatoshi-tech/jarfang/pkg/compare"
	"github.com/Sumatoshi-tech/jarfang/pkg/jar"
)

// Tool name constants.
const (
	ToolNameAnalyze = "jarfang_analyze"
	ToolNameCompare = "jarfang_compare"
)

// MaxReportInputBytes bounds each inline report of jarfang_compare (4 MB).
const MaxReportInputBytes = 4 << 20

// Sentinel errors for tool input validation.
var (
	// ErrEmptyJarPath indicates the jar_path parameter is empty.
	ErrEmptyJarPath = errors.New("jar_path parameter is required and must not be empty")
	// ErrJarPathNotAbsolute indicates the jar_path is not an absolute path.
	ErrJarPathNotAbsolute = errors.New("jar_path must be an absolute path")
	// ErrEmptyReport indicates a report parameter is empty.
	ErrEmptyReport = errors.New("base_report and head_report are required and must not be empty")
	// ErrReportTooLarge indicates a report exceeds MaxReportInputBytes.
	ErrReportTooLarge = errors.New("report input exceeds maximum size")
)

// AnalyzeInput is the input schema for the jarfang_analyze tool.
type AnalyzeInput struct {
	JarPath        string `json:"jar_path"                  jsonschema:"absolute path to a .jar file"`
	IncludeClasses bool   `json:"include_classes,omitempty" jsonschema:"add per-class metrics to the report"`
}

// CompareInput is the input schema for the jarfang_compare tool.
type CompareInput struct {
	BaseReport string `json:"base_report" jsonschema:"JSON report of the base archive"`
	HeadReport string `json:"head_report" jsonschema:"JSON report of the head archive"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func (s *Server) handleAnalyze(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input AnalyzeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.JarPath == "" {
		return errorResult(ErrEmptyJarPath)
	}

	if !filepath.IsAbs(input.JarPath) {
		return errorResult(fmt.Errorf("%w: %s", ErrJarPathNotAbsolute, input.JarPath))
	}

	err := jar.ValidateInput(input.JarPath)
	if err != nil {
		return errorResult(err)
	}

	info, err := os.Stat(input.JarPath)
	if err != nil {
		return errorResult(err)
	}

	key := memoKey(input, info)

	if cached, ok := s.memo.Get(key); ok {
		s.logger.DebugContext(ctx, "analysis memo hit", "path", input.JarPath)

		return jsonResult(cached)
	}

	archive, err := s.processor.Process(ctx, input.JarPath)
	if err != nil {
		return errorResult(err)
	}

	if len(archive.Classes) == 0 {
		s.logger.WarnContext(ctx, "no classes found in the JAR file", "path", input.JarPath)
	}

	result := analysis.FromArchive(archive, analysis.Options{IncludeClasses: input.IncludeClasses})
	s.memo.Set(key, result, gocache.DefaultExpiration)

	return jsonResult(result)
}

func (s *Server) handleCompare(
	_ context.Context, _ *mcpsdk.CallToolRequest, input CompareInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.BaseReport == "" || input.HeadReport == "" {
		return errorResult(ErrEmptyReport)
	}

	for _, report := range []string{input.BaseReport, input.HeadReport} {
		if len(report) > MaxReportInputBytes {
			return errorResult(fmt.Errorf("%w: %d bytes (max %d)", ErrReportTooLarge, len(report), MaxReportInputBytes))
		}
	}

	deltas, err := compare.Compare([]byte(input.BaseReport), []byte(input.HeadReport))
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(deltas)
}

// memoKey identifies an archive version by path, size and modification time.
func memoKey(input AnalyzeInput, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d|%t", input.JarPath, info.Size(), info.ModTime().UnixNano(), input.IncludeClasses)
}
