// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// resolve runs one evaluation pass and prints the resolved build
// configuration.
//
// Usage:
//
//	resolve -cpu arm64
//	resolve -args args.yaml -env simulator -format json
//	resolve -config config.yaml -out ./data
//
// Exit codes:
//   - 0: resolution succeeded
//   - 1: invalid configuration value or failed evaluation
//   - 2: usage error (unknown format)
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ManuGH/buildcfg/internal/config"
	"github.com/ManuGH/buildcfg/internal/eval"
	"github.com/ManuGH/buildcfg/internal/version"
)

func main() {
	var (
		configFile  string
		argsFile    string
		cpu         string
		env         string
		cronet      bool
		outDir      string
		format      string
		verbose     bool
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "daemon config file supplying args/out defaults")
	flag.StringVar(&argsFile, "args", "", "YAML arguments file")
	flag.StringVar(&cpu, "cpu", "", "target CPU (x86, x64, arm, arm64)")
	flag.StringVar(&env, "env", "", "target environment; empty applies the CPU default")
	flag.BoolVar(&cronet, "cronet", false, "resolve for a cronet build")
	flag.StringVar(&outDir, "out", "", "directory receiving snapshot.json and environment.used.json")
	flag.StringVar(&format, "format", "text", "output format: text or json")
	flag.BoolVar(&verbose, "verbose", false, "log evaluation progress")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}

	if format != "text" && format != "json" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (want text or json)\n", format)
		os.Exit(2)
	}
	if !verbose {
		// Keep stdout clean for the resolved output.
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := eval.Options{
		ArgsFile:  argsFile,
		DataDir:   outDir,
		Overrides: map[string]string{},
	}

	if configFile != "" {
		cfg, err := config.NewLoader(configFile, version.Version).Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", configFile)
			fmt.Fprintf(os.Stderr, "  %v\n", err)
			os.Exit(1)
		}
		if opts.ArgsFile == "" {
			opts.ArgsFile = cfg.ArgsFile
		}
		if opts.DataDir == "" {
			opts.DataDir = cfg.DataDir
		}
	}

	// Only flags the caller actually set become overrides; -cronet=false is
	// an explicit override while an untouched flag is not.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cpu":
			opts.Overrides["target_cpu"] = cpu
		case "env":
			opts.Overrides["target_environment"] = env
		case "cronet":
			opts.Overrides["is_cronet_build"] = strconv.FormatBool(cronet)
		}
	})

	snap, err := eval.Run(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error: encode snapshot: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// gn-args style, importable into an args file.
	fmt.Printf("target_environment = %q\n", snap.TargetEnvironment)
	fmt.Printf("target_cpu = %q\n", snap.TargetCPU)
	fmt.Printf("is_cronet_build = %v\n", snap.IsCronetBuild)
}
