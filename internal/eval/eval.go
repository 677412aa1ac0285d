// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package eval runs a full configuration evaluation pass: load declared
// arguments, resolve the target environment, and capture the result as a
// snapshot together with every environment variable the pass consumed.
package eval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bcfglog "github.com/ManuGH/buildcfg/internal/log"

	"github.com/ManuGH/buildcfg/internal/args"
	"github.com/ManuGH/buildcfg/internal/envdep"
	"github.com/ManuGH/buildcfg/internal/metrics"
	"github.com/ManuGH/buildcfg/internal/snapshot"
	"github.com/ManuGH/buildcfg/internal/target"
	"github.com/ManuGH/buildcfg/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options holds the inputs for one evaluation pass.
type Options struct {
	// ArgsFile is an optional YAML file of argument values.
	ArgsFile string

	// Overrides are explicit name=value pairs that win over file and
	// environment values.
	Overrides map[string]string

	// Registry declares the accepted arguments. Nil means the builtin set.
	Registry *args.Registry

	// DataDir, when set, receives snapshot.json and environment.used.json.
	DataDir string
}

// Run executes one evaluation pass. On success the returned snapshot holds
// the resolved configuration; when DataDir is set it has also been written
// out. Any invalid value aborts the pass with no partial output.
func Run(ctx context.Context, opts Options) (*snapshot.Snapshot, error) {
	logger := bcfglog.WithComponentFromContext(ctx, "eval")
	tracer := telemetry.Tracer("buildcfg.eval")
	_, span := tracer.Start(ctx, "buildcfg.evaluate", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	start := time.Now()
	logger.Info().
		Str("event", "eval.start").
		Str("args_file", opts.ArgsFile).
		Msg("starting evaluation")

	loader := args.NewLoader(opts.Registry, envdep.NewRecorder())
	set, err := loader.Load(opts.ArgsFile, opts.Overrides)
	if err != nil {
		return nil, fail(span, logger, start, "argument loading failed", err)
	}

	resolved, err := target.ResolveConfig(set.TargetConfig())
	if err != nil {
		return nil, fail(span, logger, start, "environment resolution failed", err)
	}

	snap := snapshot.New(resolved, set, loader.Recorder().Snapshot())

	span.SetAttributes(telemetry.EvaluationAttributes(
		string(resolved.Environment), string(resolved.CPU), resolved.CronetBuild)...)
	span.SetAttributes(attribute.String(telemetry.EvalSnapshotIDKey, snap.ID))

	if opts.DataDir != "" {
		if err := writeOutputs(logger, opts.DataDir, snap); err != nil {
			return nil, fail(span, logger, start, "snapshot write failed", err)
		}
	}

	elapsed := time.Since(start).Seconds()
	metrics.RecordEvaluation("success", elapsed)
	metrics.SetSnapshotTimestamp(float64(snap.CreatedAt.Unix()))

	logger.Info().
		Str("event", "eval.success").
		Str("snapshot_id", snap.ID).
		Str("target_environment", string(resolved.Environment)).
		Str("target_cpu", string(resolved.CPU)).
		Bool("is_cronet_build", resolved.CronetBuild).
		Msg("evaluation completed")
	return snap, nil
}

// fail records the span error, counts the failed pass, and emits the
// diagnostic naming the offending field.
func fail(span trace.Span, logger zerolog.Logger, start time.Time, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	field := FailureField(err)
	result := "error"
	if errors.Is(err, target.ErrInvalidValue) {
		result = "invalid"
		metrics.RecordValidationFailure(field)
	}
	span.SetAttributes(telemetry.ErrorAttributes(err, result)...)
	metrics.RecordEvaluation(result, time.Since(start).Seconds())

	logger.Error().
		Err(err).
		Str("event", "eval.failed").
		Str("result", result).
		Str("field", field).
		Msg(msg)
	return err
}

func writeOutputs(logger zerolog.Logger, dataDir string, snap *snapshot.Snapshot) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	snapPath := filepath.Join(dataDir, snapshot.DefaultFileName)
	if err := snap.Write(snapPath); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	envPath := filepath.Join(dataDir, envdep.DefaultFileName)
	if err := envdep.WriteFile(envPath, snap.ConsumedEnv); err != nil {
		return fmt.Errorf("write environment deps: %w", err)
	}

	logger.Info().
		Str("event", "snapshot.write").
		Str("path", snapPath).
		Str("snapshot_id", snap.ID).
		Msg("snapshot written")
	return nil
}

// FailureField extracts the offending field name from an invalid-value error,
// for metrics labels and diagnostics. Unknown errors map to "unknown".
func FailureField(err error) string {
	var ive *target.InvalidValueError
	if errors.As(err, &ive) {
		return ive.Field
	}
	return "unknown"
}
