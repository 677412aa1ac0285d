// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sizediff gates package size growth between two builds. It compares
// per-package size reports, fails the check when any compressed delta reaches
// the threshold, and records the outcome for audit.
package sizediff

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bcfglog "github.com/ManuGH/buildcfg/internal/log"

	"github.com/ManuGH/buildcfg/internal/history"
	"github.com/ManuGH/buildcfg/internal/metrics"
	"github.com/ManuGH/buildcfg/internal/telemetry"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxDeltaBytes is the compressed growth a single package may reach
// before the check fails.
const DefaultMaxDeltaBytes int64 = 12 * 1024

// SizesFileName is the per-build package size report.
const SizesFileName = "package_sizes.json"

const sizesSubdir = "sizes"

// PackageSizes holds the measured byte totals of one package.
type PackageSizes struct {
	Compressed   int64 `json:"compressed"`
	Uncompressed int64 `json:"uncompressed"`
}

// SizesPath returns the size report location inside a build output directory.
func SizesPath(buildDir string) string {
	return filepath.Join(buildDir, sizesSubdir, SizesFileName)
}

// ReadSizes parses a package size report.
func ReadSizes(path string) (map[string]PackageSizes, error) {
	// #nosec G304 - report path is operator-supplied
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read size report: %w", err)
	}

	var sizes map[string]PackageSizes
	if err := json.Unmarshal(data, &sizes); err != nil {
		return nil, fmt.Errorf("parse size report %s: %w", path, err)
	}
	for name, ps := range sizes {
		if ps.Compressed < 0 || ps.Uncompressed < 0 {
			return nil, fmt.Errorf("size report %s: package %s has a negative size", path, name)
		}
	}
	return sizes, nil
}

// Result is the outcome of one size comparison. The exported fields are the
// results-file wire format.
type Result struct {
	Compressed       map[string]int64 `json:"compressed"`
	Uncompressed     map[string]int64 `json:"uncompressed"`
	StatusCode       int              `json:"status_code"`
	Summary          string           `json:"summary"`
	ArchiveFilenames []string         `json:"archive_filenames"`
	Links            []string         `json:"links"`

	failed []string
}

// Passed reports whether every package stayed under the threshold.
func (r *Result) Passed() bool { return r.StatusCode == 0 }

// Status returns the result as a history/metrics label.
func (r *Result) Status() string {
	if r.Passed() {
		return "pass"
	}
	return "fail"
}

// Packages returns the number of packages compared.
func (r *Result) Packages() int { return len(r.Compressed) }

// FailedPackages returns the packages that breached the threshold, sorted.
func (r *Result) FailedPackages() []string { return r.failed }

// LargestGrowth returns the biggest compressed delta. It is negative when
// every package shrank and zero when nothing was compared.
func (r *Result) LargestGrowth() int64 {
	var largest int64
	first := true
	for _, delta := range r.Compressed {
		if first || delta > largest {
			largest = delta
			first = false
		}
	}
	return largest
}

// Compare computes per-package deltas between two size reports. A package
// missing from before counts from zero; one missing from after counts as
// removed. maxDelta <= 0 selects the default threshold.
func Compare(before, after map[string]PackageSizes, maxDelta int64) *Result {
	if maxDelta <= 0 {
		maxDelta = DefaultMaxDeltaBytes
	}

	names := make(map[string]struct{}, len(after))
	for name := range before {
		names[name] = struct{}{}
	}
	for name := range after {
		names[name] = struct{}{}
	}

	res := &Result{
		Compressed:       make(map[string]int64, len(names)),
		Uncompressed:     make(map[string]int64, len(names)),
		ArchiveFilenames: []string{},
		Links:            []string{},
	}

	var lines []string
	for _, name := range sortedKeys(names) {
		b, a := before[name], after[name]
		res.Compressed[name] = a.Compressed - b.Compressed
		res.Uncompressed[name] = a.Uncompressed - b.Uncompressed

		if res.Compressed[name] < maxDelta {
			continue
		}
		res.StatusCode = 1
		res.failed = append(res.failed, name)
		if _, existed := before[name]; !existed {
			lines = append(lines, fmt.Sprintf("- %s added at %d bytes", name, res.Compressed[name]))
		} else {
			lines = append(lines, fmt.Sprintf("- %s grew by %d bytes", name, res.Compressed[name]))
		}
	}

	if res.StatusCode != 0 {
		summary := "Size check failed! The following package(s) are affected:\n"
		for _, line := range lines {
			summary += line + "\n"
		}
		res.Summary = summary
	} else {
		res.Summary = fmt.Sprintf("All %d package(s) within the size limit.", len(names))
	}
	return res
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteResults writes the comparison result atomically.
func WriteResults(path string, res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	data = append(data, '\n')

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// Options holds the inputs for one size check.
type Options struct {
	// BeforePath and AfterPath are the size reports to compare.
	BeforePath string
	AfterPath  string

	// MaxDeltaBytes is the failure threshold. Zero selects the default.
	MaxDeltaBytes int64

	// ResultsPath, when set, receives the result JSON.
	ResultsPath string

	// SnapshotID optionally links the check to an evaluation snapshot.
	SnapshotID string

	// History, when set, receives the audit row.
	History *history.Store
}

// Run executes one size check. A completed comparison always returns a
// result; the check outcome is in Result.Passed.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := bcfglog.WithComponentFromContext(ctx, "sizediff")
	tracer := telemetry.Tracer("buildcfg.sizediff")
	_, span := tracer.Start(ctx, "buildcfg.sizediff", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	threshold := opts.MaxDeltaBytes
	if threshold <= 0 {
		threshold = DefaultMaxDeltaBytes
	}

	start := time.Now()
	logger.Info().
		Str("event", "sizediff.start").
		Str("before", opts.BeforePath).
		Str("after", opts.AfterPath).
		Int64("threshold_bytes", threshold).
		Msg("starting size check")

	before, err := ReadSizes(opts.BeforePath)
	if err != nil {
		return nil, fail(span, logger, "before report unreadable", err)
	}
	after, err := ReadSizes(opts.AfterPath)
	if err != nil {
		return nil, fail(span, logger, "after report unreadable", err)
	}

	res := Compare(before, after, threshold)
	span.SetAttributes(telemetry.SizeDiffAttributes(res.Packages(), threshold, res.LargestGrowth())...)

	if opts.ResultsPath != "" {
		if err := WriteResults(opts.ResultsPath, res); err != nil {
			return nil, fail(span, logger, "results write failed", err)
		}
	}

	metrics.RecordSizeDiff(res.Status(), res.LargestGrowth())

	if opts.History != nil {
		_, err := opts.History.RecordSizeDiff(ctx, history.SizeDiff{
			SnapshotID:         opts.SnapshotID,
			Status:             res.Status(),
			Packages:           res.Packages(),
			ThresholdBytes:     threshold,
			LargestGrowthBytes: res.LargestGrowth(),
		})
		if err != nil {
			logger.Warn().
				Err(err).
				Str("event", "sizediff.history_error").
				Msg("size check result not recorded in history")
		}
	}

	evt := logger.Info()
	if !res.Passed() {
		evt = logger.Warn()
	}
	evt.
		Str("event", "sizediff."+res.Status()).
		Int("packages", res.Packages()).
		Int("failed_packages", len(res.FailedPackages())).
		Int64("largest_growth_bytes", res.LargestGrowth()).
		Dur("elapsed", time.Since(start)).
		Msg("size check completed")
	return res, nil
}

func fail(span trace.Span, logger zerolog.Logger, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	logger.Error().
		Err(err).
		Str("event", "sizediff.failed").
		Msg(msg)
	return err
}
