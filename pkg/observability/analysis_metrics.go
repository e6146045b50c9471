package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricArchivesTotal    = "jarfang.analysis.archives.total"
	metricClassesParsed    = "jarfang.analysis.classes.parsed.total"
	metricClassesSkipped   = "jarfang.analysis.classes.skipped.total"
	metricArchiveDuration  = "jarfang.analysis.archive.duration.seconds"
	metricCacheHitsTotal   = "jarfang.analysis.cache.hits.total"
	metricCacheMissesTotal = "jarfang.analysis.cache.misses.total"

	attrCache  = "cache"
	attrReason = "reason"
)

// AnalysisMetrics holds OTel instruments for jar analysis.
type AnalysisMetrics struct {
	archivesTotal   metric.Int64Counter
	classesParsed   metric.Int64Counter
	classesSkipped  metric.Int64Counter
	archiveDuration metric.Float64Histogram
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// ArchiveStats holds the statistics of one processed archive.
type ArchiveStats struct {
	Classes  int
	Duration time.Duration
	// Skipped counts skipped entries by reason.
	Skipped map[string]int
}

// NewAnalysisMetrics creates analysis metric instruments from the given meter.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	archives, err := mt.Int64Counter(metricArchivesTotal,
		metric.WithDescription("Total archives processed"),
		metric.WithUnit("{archive}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricArchivesTotal, err)
	}

	parsed, err := mt.Int64Counter(metricClassesParsed,
		metric.WithDescription("Total class files parsed"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricClassesParsed, err)
	}

	skipped, err := mt.Int64Counter(metricClassesSkipped,
		metric.WithDescription("Class entries skipped by reason"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricClassesSkipped, err)
	}

	duration, err := mt.Float64Histogram(metricArchiveDuration,
		metric.WithDescription("Per-archive processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricArchiveDuration, err)
	}

	hits, err := mt.Int64Counter(metricCacheHitsTotal,
		metric.WithDescription("Cache hits by cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheHitsTotal, err)
	}

	misses, err := mt.Int64Counter(metricCacheMissesTotal,
		metric.WithDescription("Cache misses by cache"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheMissesTotal, err)
	}

	return &AnalysisMetrics{
		archivesTotal:   archives,
		classesParsed:   parsed,
		classesSkipped:  skipped,
		archiveDuration: duration,
		cacheHits:       hits,
		cacheMisses:     misses,
	}, nil
}

// RecordArchive records the statistics of a processed archive.
// Safe to call on a nil receiver (no-op).
func (am *AnalysisMetrics) RecordArchive(ctx context.Context, stats ArchiveStats) {
	if am == nil {
		return
	}

	am.archivesTotal.Add(ctx, 1)
	am.classesParsed.Add(ctx, int64(stats.Classes))
	am.archiveDuration.Record(ctx, stats.Duration.Seconds())

	for reason, n := range stats.Skipped {
		am.classesSkipped.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrReason, reason)))
	}
}

// RecordCache records one lookup in the named cache.
// Safe to call on a nil receiver (no-op).
func (am *AnalysisMetrics) RecordCache(ctx context.Context, cache string, hit bool) {
	if am == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrCache, cache))

	if hit {
		am.cacheHits.Add(ctx, 1, attrs)

		return
	}

	am.cacheMisses.Add(ctx, 1, attrs)
}
