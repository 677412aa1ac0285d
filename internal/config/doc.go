// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config provides configuration management for buildcfg.
//
// Precedence is ENV > file > defaults; the file is parsed strictly and the
// merged result is validated once before anything consumes it.
package config
