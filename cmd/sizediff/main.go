// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// sizediff compares the package size reports of two builds and fails when
// any package grew past the threshold.
//
// Usage:
//
//	sizediff -before out/base -after out/patched
//	sizediff -before out/base -after out/patched -results results.json
//	sizediff -before base_sizes.json -after patched_sizes.json -max-delta 16384
//
// -before and -after accept either a build output directory (the report is
// read from <dir>/sizes/package_sizes.json) or a report file directly.
//
// Exit codes:
//   - 0: every package stayed under the threshold
//   - 1: a package breached the threshold, or a report was unreadable
//   - 2: usage error (missing report path)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ManuGH/buildcfg/internal/history"
	"github.com/ManuGH/buildcfg/internal/sizediff"
	"github.com/ManuGH/buildcfg/internal/version"
)

func main() {
	var (
		before      string
		after       string
		maxDelta    int64
		results     string
		historyPath string
		snapshotID  string
		verbose     bool
		showVersion bool
	)

	flag.StringVar(&before, "before", "", "build dir or size report without the change")
	flag.StringVar(&after, "after", "", "build dir or size report with the change")
	flag.Int64Var(&maxDelta, "max-delta", 0, "compressed growth budget per package in bytes (0 selects the default)")
	flag.StringVar(&results, "results", "", "output path for the result JSON")
	flag.StringVar(&historyPath, "history", "", "SQLite history database recording the outcome")
	flag.StringVar(&snapshotID, "snapshot-id", "", "evaluation snapshot to link the result to")
	flag.BoolVar(&verbose, "verbose", false, "log comparison progress")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}

	if before == "" || after == "" {
		fmt.Fprintln(os.Stderr, "Error: --before and --after are required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  sizediff -before out/base -after out/patched")
		os.Exit(2)
	}
	if !verbose {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := sizediff.Options{
		BeforePath:    sizesFile(before),
		AfterPath:     sizesFile(after),
		MaxDeltaBytes: maxDelta,
		ResultsPath:   results,
		SnapshotID:    snapshotID,
	}

	if historyPath != "" {
		hist, err := history.NewStore(historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: open history: %v\n", err)
			os.Exit(1)
		}
		opts.History = hist
	}

	res, err := sizediff.Run(ctx, opts)
	if opts.History != nil {
		// Closed before the exit paths below; deferred closes never run
		// past os.Exit.
		_ = opts.History.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(res.Summary)
	if !res.Passed() {
		os.Exit(1)
	}
}

// sizesFile maps a build dir to its size report, passing report files through.
func sizesFile(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return sizediff.SizesPath(path)
}
