// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// envcheck reports whether a recorded evaluation still matches the current
// environment. Build recipes run it to decide whether a cached snapshot can
// be reused or the evaluation must be repeated.
//
// Usage:
//
//	envcheck -deps-file data/environment.used.json
//	BCFG_DATA_DIR=data envcheck
//
// Exit codes:
//   - 0: environment unchanged since the recorded evaluation
//   - 1: environment changed, or the dependency file is missing or unreadable
//   - 2: usage error (no dependency file given)
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/buildcfg/internal/config"
	"github.com/ManuGH/buildcfg/internal/envdep"
	"github.com/ManuGH/buildcfg/internal/version"
)

func main() {
	var (
		depsFile    string
		quiet       bool
		showVersion bool
	)

	flag.StringVar(&depsFile, "deps-file", "", "recorded environment dependency file")
	flag.StringVar(&depsFile, "f", "", "recorded environment dependency file (shorthand)")
	flag.BoolVar(&quiet, "quiet", false, "suppress output, report by exit code only")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}

	if depsFile == "" {
		if dataDir := config.ParseString("BCFG_DATA_DIR", ""); dataDir != "" {
			depsFile = filepath.Join(dataDir, envdep.DefaultFileName)
		}
	}
	if depsFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --deps-file is required (or set BCFG_DATA_DIR)")
		os.Exit(2)
	}

	deps, err := envdep.ReadFile(depsFile)
	if err != nil {
		if !quiet {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	changed := envdep.Changed(deps)
	if len(changed) == 0 {
		if !quiet {
			fmt.Printf("✓ %s matches the current environment (%d variables)\n", depsFile, len(deps))
		}
		return
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "Environment changed since the recorded evaluation:\n")
		for _, name := range changed {
			fmt.Fprintf(os.Stderr, "  - %s\n", name)
		}
	}
	os.Exit(1)
}
