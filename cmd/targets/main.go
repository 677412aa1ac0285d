// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// targets lists the build targets of an output directory.
//
// Usage:
//
//	targets -out-dir out/Default
//	targets -out-dir out/Default -type ios_app_bundle -gn-labels
//	targets -out-dir out/Default -print-types
//	targets -out-dir out/Default -stats
//
// Exit codes:
//   - 0: listing succeeded
//   - 1: target list or metadata unreadable, or a metadata type is invalid
//   - 2: usage error (no out dir, unknown type)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ManuGH/buildcfg/internal/buildgraph"
	"github.com/ManuGH/buildcfg/internal/config"
	"github.com/ManuGH/buildcfg/internal/version"
)

func main() {
	var (
		outDir      string
		gnLabels    bool
		printTypes  bool
		stats       bool
		typeFilter  string
		nested      bool
		verbose     bool
		showVersion bool
	)

	flag.StringVar(&outDir, "out-dir", "", "build output directory (falls back to BCFG_OUT_DIR)")
	flag.BoolVar(&gnLabels, "gn-labels", false, "print GN labels rather than ninja targets")
	flag.BoolVar(&printTypes, "print-types", false, "print the type of each target")
	flag.BoolVar(&stats, "stats", false, "print counts of each target type")
	flag.StringVar(&typeFilter, "type", "", "restrict to targets of the given types (comma-separated)")
	flag.BoolVar(&nested, "nested", false, "do not fold generated sub-targets onto their top-level name")
	flag.BoolVar(&verbose, "verbose", false, "log listing progress")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}
	if !verbose {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	if outDir == "" {
		outDir = config.ParseString("BCFG_OUT_DIR", "")
	}
	if outDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --out-dir is required (or set BCFG_OUT_DIR)")
		os.Exit(2)
	}

	var want []buildgraph.Type
	for _, name := range strings.Split(typeFilter, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t := buildgraph.Type(name)
		if !t.Valid() {
			fmt.Fprintf(os.Stderr, "Error: unknown type %q (want one of %s)\n",
				name, strings.Join(buildgraph.TypeNames(), ", "))
			os.Exit(2)
		}
		want = append(want, t)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, err := buildgraph.Load(outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if stats || printTypes || len(want) > 0 {
		if err := g.LoadTypes(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	entries := g.Entries()
	if len(want) > 0 {
		entries = g.FilterByType(want...)
	}

	if stats {
		counts := make(map[string]int)
		for _, e := range entries {
			counts[string(e.Type())]++
		}
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s: %d\n", name, counts[name])
		}
		return
	}

	for _, e := range entries {
		line := e.NinjaTarget()
		if gnLabels {
			line = e.GNLabel()
		}
		if !nested {
			line = buildgraph.TopLevelName(line)
		}
		if printTypes {
			line = fmt.Sprintf("%s: %s", line, e.Type())
		}
		fmt.Println(line)
	}
}
