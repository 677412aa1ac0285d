// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// validate checks buildcfg input files without running an evaluation.
// It validates a daemon config file, an arguments file, or both, and
// reports every violation it finds in one pass.
//
// Usage:
//
//	validate -config config.yaml
//	validate -args args.yaml
//	validate -config config.yaml -args args.yaml
//
// Exit codes:
//   - 0: all inputs are valid
//   - 1: at least one input is invalid (parse or validation error)
//   - 2: usage error (no input given)
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ManuGH/buildcfg/internal/args"
	"github.com/ManuGH/buildcfg/internal/config"
	"github.com/ManuGH/buildcfg/internal/version"
)

func main() {
	var (
		configFile  string
		argsFile    string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "path to daemon YAML config file")
	flag.StringVar(&configFile, "c", "", "path to daemon YAML config file (shorthand)")
	flag.StringVar(&argsFile, "args", "", "path to YAML arguments file")
	flag.StringVar(&argsFile, "a", "", "path to YAML arguments file (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}

	if configFile == "" && argsFile == "" {
		fmt.Fprintln(os.Stderr, "Error: at least one of --config or --args is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  validate -config config.yaml")
		fmt.Fprintln(os.Stderr, "  validate -args args.yaml")
		os.Exit(2)
	}

	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	failed := false

	if configFile != "" {
		// Load applies strict YAML parsing, env merging and the full
		// validation bundle, so a failure lists every bad field at once.
		if _, err := config.NewLoader(configFile, version.Version).Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", configFile)
			fmt.Fprintf(os.Stderr, "  %v\n", err)
			failed = true
		} else {
			fmt.Printf("✓ %s is valid\n", configFile)
		}
	}

	if argsFile != "" {
		loader := args.NewLoader(nil, nil)
		if _, err := loader.Load(argsFile, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Arguments error in %s:\n", argsFile)
			fmt.Fprintf(os.Stderr, "  %v\n", err)
			failed = true
		} else {
			fmt.Printf("✓ %s is valid\n", argsFile)
		}
	}

	if failed {
		os.Exit(1)
	}
}
