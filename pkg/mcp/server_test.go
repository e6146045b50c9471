package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/jarfang/pkg/analysis"
	"github.com/Sumatoshi-tech/jarfang/pkg/classfile/classfiletest"
	"github.com/Sumatoshi-tech/jarfang/pkg/compare"
	"github.com/Sumatoshi-tech/jarfang/pkg/mcp"
	"github.com/Sumatoshi-tech/jarfang/pkg/observability"
)

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func callText(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text, result.IsError
}

func sampleJar(t *testing.T) string {
	t.Helper()

	return classfiletest.WriteJar(t, "app.jar",
		classfiletest.ClassEntry(classfiletest.NewClass("com/example/App").Field("x", "I")),
		classfiletest.ClassEntry(classfiletest.NewInterface("com/example/Api")),
	)
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	assert.Equal(t, []string{mcp.ToolNameAnalyze, mcp.ToolNameCompare}, srv.ListToolNames())

	session := connect(t, srv)

	toolsResult, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{"jarfang_analyze", "jarfang_compare"}, names)
}

func TestServer_Analyze(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	text, isErr := callText(t, session, mcp.ToolNameAnalyze, map[string]any{
		"jar_path":        sampleJar(t),
		"include_classes": true,
	})
	require.False(t, isErr, text)

	var result analysis.Result
	require.NoError(t, json.Unmarshal([]byte(text), &result))

	assert.Equal(t, "app.jar", result.JarFileName)
	assert.Equal(t, 1, result.TotalClasses)
	assert.Equal(t, 1, result.TotalInterfaces)
	assert.Len(t, result.Classes, 2)
	require.NotNil(t, result.Archive)
	assert.Len(t, result.Archive.SHA256, 64)
}

func TestServer_Analyze_Errors(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty", "", "jar_path parameter is required"},
		{"relative", "lib/app.jar", "absolute"},
		{"missing", "/nonexistent/app.jar", "does not exist"},
		{"not a jar", os.TempDir(), ""},
	}

	for _, tt := range tests {
		text, isErr := callText(t, session, mcp.ToolNameAnalyze, map[string]any{"jar_path": tt.path})
		assert.True(t, isErr, tt.name)

		if tt.want != "" {
			assert.Contains(t, text, tt.want, tt.name)
		}
	}
}

func TestServer_Analyze_Memoized(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))
	path := sampleJar(t)

	first, isErr := callText(t, session, mcp.ToolNameAnalyze, map[string]any{"jar_path": path})
	require.False(t, isErr, first)

	info, err := os.Stat(path)
	require.NoError(t, err)

	// Same size and mtime: the memoized report is returned without reading
	// the (now corrupt) file.
	require.NoError(t, os.WriteFile(path, make([]byte, info.Size()), 0o600))
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	second, isErr := callText(t, session, mcp.ToolNameAnalyze, map[string]any{"jar_path": path})
	require.False(t, isErr, second)
	assert.JSONEq(t, first, second)

	// A new mtime invalidates the entry.
	later := info.ModTime().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	_, isErr = callText(t, session, mcp.ToolNameAnalyze, map[string]any{"jar_path": path})
	assert.True(t, isErr)
}

func TestServer_Compare(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	base, err := json.Marshal(analysis.Result{JarFileName: "a.jar", TotalClasses: 2})
	require.NoError(t, err)

	head, err := json.Marshal(analysis.Result{JarFileName: "b.jar", TotalClasses: 5})
	require.NoError(t, err)

	text, isErr := callText(t, session, mcp.ToolNameCompare, map[string]any{
		"base_report": string(base),
		"head_report": string(head),
	})
	require.False(t, isErr, text)

	var deltas []compare.Delta
	require.NoError(t, json.Unmarshal([]byte(text), &deltas))
	require.Len(t, deltas, len(compare.Metrics))
	assert.Equal(t, "totalClasses", deltas[0].Path)
	assert.InDelta(t, 3.0, deltas[0].Change, 1e-9)

	text, isErr = callText(t, session, mcp.ToolNameCompare, map[string]any{
		"base_report": "{",
		"head_report": string(head),
	})
	assert.True(t, isErr)
	assert.Contains(t, text, "not valid JSON")

	text, isErr = callText(t, session, mcp.ToolNameCompare, map[string]any{
		"base_report": string(base),
		"head_report": "",
	})
	assert.True(t, isErr)
	assert.Contains(t, text, "required")
}

func TestServer_RecordsToolMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	red, err := observability.NewREDMetrics(provider.Meter("test"))
	require.NoError(t, err)

	session := connect(t, mcp.NewServer(mcp.ServerDeps{Metrics: red}))

	_, isErr := callText(t, session, mcp.ToolNameAnalyze, map[string]any{"jar_path": ""})
	require.True(t, isErr)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var errorsTotal int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "jarfang.errors.total" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				errorsTotal += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), errorsTotal)
}
