// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
// HTTP server spans carry the semconv attributes otelhttp records.
const (
	// Evaluation attributes
	EvalEnvironmentKey = "eval.target_environment"
	EvalCPUKey         = "eval.target_cpu"
	EvalCronetKey      = "eval.is_cronet_build"
	EvalArgsFileKey    = "eval.args_file"
	EvalSnapshotIDKey  = "eval.snapshot_id"

	// Test run attributes
	RunIDKey          = "run.id"
	RunEnvironmentKey = "run.target_environment"
	RunExecutableKey  = "run.executable"
	RunExitCodeKey    = "run.exit_code"

	// Size check attributes
	SizeDiffPackagesKey      = "sizediff.packages"
	SizeDiffThresholdKey     = "sizediff.threshold_bytes"
	SizeDiffLargestGrowthKey = "sizediff.largest_growth_bytes"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// EvaluationAttributes creates evaluation-related span attributes.
func EvaluationAttributes(environment, cpu string, cronetBuild bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(EvalEnvironmentKey, environment),
		attribute.Bool(EvalCronetKey, cronetBuild),
	}
	if cpu != "" {
		attrs = append(attrs, attribute.String(EvalCPUKey, cpu))
	}
	return attrs
}

// RunAttributes creates test-run span attributes.
func RunAttributes(runID, environment, executable string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if runID != "" {
		attrs = append(attrs, attribute.String(RunIDKey, runID))
	}
	if environment != "" {
		attrs = append(attrs, attribute.String(RunEnvironmentKey, environment))
	}
	if executable != "" {
		attrs = append(attrs, attribute.String(RunExecutableKey, executable))
	}
	return attrs
}

// SizeDiffAttributes creates size-comparison span attributes.
func SizeDiffAttributes(packages int, thresholdBytes, largestGrowthBytes int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(SizeDiffPackagesKey, packages),
		attribute.Int64(SizeDiffThresholdKey, thresholdBytes),
		attribute.Int64(SizeDiffLargestGrowthKey, largestGrowthBytes),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
