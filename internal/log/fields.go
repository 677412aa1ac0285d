// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldRunID         = "run_id"
	FieldSnapshotID    = "snapshot_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Build configuration fields
	FieldTargetEnvironment = "target_environment"
	FieldTargetCPU         = "target_cpu"
	FieldCronetBuild       = "is_cronet_build"
	FieldArgName           = "arg"
	FieldSource            = "source"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath     = "path"
	FieldOutDir   = "out_dir"
	FieldArgsFile = "args_file"
	FieldDataDir  = "data_dir"
)
