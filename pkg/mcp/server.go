// Package mcp implements a Model Context Protocol server exposing jarfang
// archive analysis as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/jarfang/pkg/jar"
	"github.com/Sumatoshi-tech/jarfang/pkg/observability"
	"github.com/Sumatoshi-tech/jarfang/pkg/version"
)

const (
	serverName = "jarfang"

	toolCount = 2

	// DefaultMemoTTL is how long an analysis result is reused for an
	// unchanged archive.
	DefaultMemoTTL = 5 * time.Minute
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil discards SDK logs.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// Processor parses archives. Nil uses a zero-value jar.Processor.
	Processor *jar.Processor

	// MemoTTL overrides DefaultMemoTTL.
	MemoTTL time.Duration
}

// Server wraps the MCP SDK server with jarfang tool registrations.
type Server struct {
	inner     *mcpsdk.Server
	mu        sync.RWMutex
	tools     []string
	metrics   *observability.REDMetrics
	tracer    trace.Tracer
	processor *jar.Processor
	memo      *gocache.Cache
	logger    *slog.Logger
}

// NewServer creates a new MCP server with all jarfang tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	processor := deps.Processor
	if processor == nil {
		processor = &jar.Processor{Logger: deps.Logger, Tracer: deps.Tracer}
	}

	ttl := deps.MemoTTL
	if ttl <= 0 {
		ttl = DefaultMemoTTL
	}

	srv := &Server{
		inner:     inner,
		tools:     make([]string, 0, toolCount),
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		processor: processor,
		memo:      gocache.New(ttl, 2*ttl),
		logger:    observability.Component(deps.Logger, "mcp"),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := slices.Clone(s.tools)
	slices.Sort(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameAnalyze,
		Description: analyzeToolDescription,
	}, withMetrics(s.metrics, ToolNameAnalyze, withTracing(s.tracer, ToolNameAnalyze, s.handleAnalyze)))
	s.trackTool(ToolNameAnalyze)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameCompare,
		Description: compareToolDescription,
	}, withMetrics(s.metrics, ToolNameCompare, withTracing(s.tracer, ToolNameCompare, s.handleCompare)))
	s.trackTool(ToolNameCompare)
}

const (
	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

// withTracing wraps a tool handler in a server span and appends the trace id
// to the response when the span is sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			result.Content = append(result.Content,
				&mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())})
		}

		return result, output, err
	}
}

// withMetrics records RED metrics per invocation. Tool-level failures count
// as errors.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()
		op := mcpSpanPrefix + toolName

		decInflight := metrics.TrackInflight(ctx, op)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, op, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const (
	analyzeToolDescription = "Analyze a JAR archive for object-oriented bytecode metrics " +
		"(inheritance depth, ABC complexity, overridden methods, fields per class). " +
		"Accepts an absolute path to a .jar file."

	compareToolDescription = "Compare two jarfang JSON reports and return the change " +
		"of every core metric from base to head."
)
