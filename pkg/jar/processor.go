// Package jar reads JAR archives and turns every class entry into a
// classinfo.ClassInfo.
package jar

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/jarfang/pkg/cache"
	"github.com/Sumatoshi-tech/jarfang/pkg/classinfo"
	"github.com/Sumatoshi-tech/jarfang/pkg/observability"
)

// Processing errors.
var (
	ErrNotZip   = errors.New("not a valid zip archive")
	ErrBadClass = errors.New("unreadable class entry")
)

// Skip reasons recorded in SkippedEntry.Reason.
const (
	SkipParse = "parse"
	SkipSize  = "size"
	SkipRead  = "read"
)

// DefaultMaxClassSize bounds the uncompressed size of a single class entry.
const DefaultMaxClassSize = 16 << 20

const (
	classExtension = ".class"
	cacheName      = "classes"
)

// SkippedEntry is a class entry that produced no ClassInfo.
type SkippedEntry struct {
	Name   string `json:"name"   yaml:"name"`
	Reason string `json:"reason" yaml:"reason"`
	Error  string `json:"error"  yaml:"error"`
}

// Archive is the result of processing one JAR.
type Archive struct {
	FileName  string
	Path      string
	SizeBytes int64
	SHA256    string
	Manifest  Manifest
	// Classes are in zip entry order.
	Classes []classinfo.ClassInfo
	Skipped []SkippedEntry
	// FromCache is set when Classes were loaded from the cache.
	FromCache bool
}

// Processor parses the class entries of JAR archives. The zero value parses
// with GOMAXPROCS workers, the default size limit and no telemetry.
type Processor struct {
	// Workers bounds concurrent class parsing. Zero or less uses GOMAXPROCS.
	Workers int
	// MaxClassSize is the largest uncompressed class entry parsed, in bytes.
	// Zero or less uses DefaultMaxClassSize.
	MaxClassSize int64
	// Strict makes the first unreadable class fail the whole archive.
	Strict bool

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.AnalysisMetrics
	// Cache, when set, stores classes of archives that had no skipped
	// entries, keyed by archive SHA-256.
	Cache *cache.ClassStore
}

// slot is the per-entry outcome; exactly one field is set.
type slot struct {
	info *classinfo.ClassInfo
	skip *SkippedEntry
}

// Process reads the archive at path.
func (p *Processor) Process(ctx context.Context, path string) (*Archive, error) {
	ctx, span := p.tracer().Start(ctx, "jarfang.jar.process",
		trace.WithAttributes(attribute.String("jar.path", path)))
	defer span.End()

	archive, err := p.process(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("jar.classes", len(archive.Classes)),
		attribute.Int("jar.skipped", len(archive.Skipped)),
		attribute.Bool("jar.cached", archive.FromCache),
	)

	return archive, nil
}

func (p *Processor) process(ctx context.Context, path string) (*Archive, error) {
	start := time.Now()
	logger := p.logger()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jar: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat jar: %w", err)
	}

	digest, err := sha256Hex(file)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotZip, filepath.Base(path), err)
	}

	archive := &Archive{
		FileName:  filepath.Base(path),
		Path:      path,
		SizeBytes: info.Size(),
		SHA256:    digest,
		Manifest:  readManifest(zr),
	}

	logger.DebugContext(ctx, "opened jar", "file", archive.FileName, "entries", len(zr.File))

	entries := classEntries(zr)

	if p.lookupCache(ctx, archive, entries) {
		logger.InfoContext(ctx, "loaded classes from cache", "classes", len(archive.Classes))

		return archive, nil
	}

	slots, err := p.parseAll(ctx, entries)
	if err != nil {
		return nil, err
	}

	skipped := make(map[string]int)

	for i, s := range slots {
		if s.skip != nil {
			logger.WarnContext(ctx, "failed to process class",
				"entry", entries[i].Name, "reason", s.skip.Reason, "error", s.skip.Error)

			archive.Skipped = append(archive.Skipped, *s.skip)
			skipped[s.skip.Reason]++

			continue
		}

		archive.Classes = append(archive.Classes, *s.info)
	}

	p.Metrics.RecordArchive(ctx, observability.ArchiveStats{
		Classes:  len(archive.Classes),
		Duration: time.Since(start),
		Skipped:  skipped,
	})

	logger.InfoContext(ctx, "processed jar",
		"file", archive.FileName, "classes", len(archive.Classes), "skipped", len(archive.Skipped))

	p.storeCache(ctx, archive)

	return archive, nil
}

func (p *Processor) parseAll(ctx context.Context, entries []*zip.File) ([]slot, error) {
	slots := make([]slot, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())

	for i, entry := range entries {
		g.Go(func() error {
			err := gctx.Err()
			if err != nil {
				return err
			}

			s := p.parseEntry(entry)
			if s.skip != nil && p.Strict {
				return fmt.Errorf("%w: %s: %s", ErrBadClass, s.skip.Name, s.skip.Error)
			}

			slots[i] = s

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return slots, nil
}

func (p *Processor) parseEntry(entry *zip.File) slot {
	limit := p.maxClassSize()

	if entry.UncompressedSize64 > uint64(limit) { //nolint:gosec // limit is positive
		return skipSlot(entry.Name, SkipSize,
			fmt.Sprintf("entry size %d exceeds limit %d", entry.UncompressedSize64, limit))
	}

	data, err := readEntry(entry, limit)
	if err != nil {
		return skipSlot(entry.Name, SkipRead, err.Error())
	}

	info, err := classinfo.Parse(data)
	if err != nil {
		return skipSlot(entry.Name, SkipParse, err.Error())
	}

	return slot{info: &info}
}

func skipSlot(name, reason, msg string) slot {
	return slot{skip: &SkippedEntry{Name: name, Reason: reason, Error: msg}}
}

func readEntry(entry *zip.File, limit int64) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}

	if int64(len(data)) > limit {
		return nil, fmt.Errorf("entry exceeds limit %d", limit)
	}

	return data, nil
}

// classEntries selects non-directory entries named *.class, in archive order.
func classEntries(zr *zip.Reader) []*zip.File {
	var out []*zip.File

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, classExtension) {
			continue
		}

		out = append(out, f)
	}

	return out
}

func readManifest(zr *zip.Reader) Manifest {
	for _, f := range zr.File {
		if !strings.EqualFold(f.Name, ManifestPath) {
			continue
		}

		data, err := readEntry(f, DefaultMaxClassSize)
		if err != nil {
			return Manifest{}
		}

		return ParseManifest(data)
	}

	return Manifest{}
}

func sha256Hex(r io.ReadSeeker) (string, error) {
	h := sha256.New()

	_, err := io.Copy(h, r)
	if err != nil {
		return "", fmt.Errorf("hash jar: %w", err)
	}

	_, err = r.Seek(0, io.SeekStart)
	if err != nil {
		return "", fmt.Errorf("rewind jar: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// lookupCache loads the classes of a previously clean run. Only archives with
// no skipped entries are cached, so a hit is valid when every class entry
// still fits the current size limit and the entry count matches.
func (p *Processor) lookupCache(ctx context.Context, archive *Archive, entries []*zip.File) bool {
	if p.Cache == nil {
		return false
	}

	classes, ok, err := p.Cache.Get(archive.SHA256)
	if err != nil {
		p.logger().WarnContext(ctx, "cache lookup failed", "error", err)
	}

	if ok && !p.cacheUsable(classes, entries) {
		p.logger().DebugContext(ctx, "cached classes do not match current limits", "file", archive.FileName)

		ok = false
	}

	p.Metrics.RecordCache(ctx, cacheName, ok)

	if !ok {
		return false
	}

	archive.Classes = classes
	archive.FromCache = true

	return true
}

func (p *Processor) cacheUsable(classes []classinfo.ClassInfo, entries []*zip.File) bool {
	if len(classes) != len(entries) {
		return false
	}

	limit := uint64(p.maxClassSize()) //nolint:gosec // limit is positive

	for _, entry := range entries {
		if entry.UncompressedSize64 > limit {
			return false
		}
	}

	return true
}

func (p *Processor) storeCache(ctx context.Context, archive *Archive) {
	if p.Cache == nil || len(archive.Skipped) > 0 {
		return
	}

	err := p.Cache.Put(archive.SHA256, archive.Classes)
	if err != nil {
		p.logger().WarnContext(ctx, "cache store failed", "error", err)
	}
}

func (p *Processor) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}

	return runtime.GOMAXPROCS(0)
}

func (p *Processor) maxClassSize() int64 {
	if p.MaxClassSize > 0 {
		return p.MaxClassSize
	}

	return DefaultMaxClassSize
}

func (p *Processor) logger() *slog.Logger {
	return observability.Component(p.Logger, "jar")
}

func (p *Processor) tracer() trace.Tracer {
	if p.Tracer != nil {
		return p.Tracer
	}

	return nooptrace.NewTracerProvider().Tracer("jarfang")
}
