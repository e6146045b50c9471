package config

// Analysis defaults.
const (
	DefaultAnalysisWorkers        = 0
	DefaultAnalysisMaxClassSize   = "16MiB"
	DefaultAnalysisStrict         = false
	DefaultAnalysisIncludeClasses = false
	DefaultAnalysisTopClasses     = 10
)

// Output defaults.
const (
	DefaultOutputFormat  = "text"
	DefaultOutputNoColor = false
)

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)

// Cache defaults. An empty directory selects the user cache directory.
const (
	DefaultCacheEnabled = false
	DefaultCacheDir     = ""
)

// Telemetry defaults.
const (
	DefaultTelemetryOTLPEndpoint    = ""
	DefaultTelemetryOTLPInsecure    = false
	DefaultTelemetryMetricsTextfile = ""
)
