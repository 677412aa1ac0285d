// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// runtests dispatches a test launcher run against the resolved target
// environment. Simulator environments run locally in their own process
// group; device environments deploy to an allowlisted device host.
// Arguments after "--" are passed to the launcher verbatim.
//
// Usage:
//
//	runtests -package out/sim/base_unittests -cpu x64
//	runtests -package out/dev/base_unittests -env device \
//	    -device-host 192.0.2.10 -allow-host 192.0.2.10
//	runtests -package out/sim/base_unittests -filter 'HTTPCache*' -- --vmodule=cache=2
//
// Exit codes:
//   - 0: every test passed
//   - 1: the run could not be carried out (bad options, deploy refused,
//     hardware acceleration missing)
//   - 2: usage error
//   - other: the launcher's own exit code when tests failed
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	netx "github.com/ManuGH/buildcfg/internal/platform/net"
	"github.com/ManuGH/buildcfg/internal/runner"
	"github.com/ManuGH/buildcfg/internal/target"
	"github.com/ManuGH/buildcfg/internal/version"
)

func main() {
	var (
		pkg            string
		env            string
		cpu            string
		filter         string
		filterFile     string
		repeat         int
		retryLimit     int
		batchLimit     int
		jobs           int
		botMode        bool
		singleProcess  bool
		breakOnFailure bool
		summaryPath    string
		deviceHost     string
		allowHosts     string
		allowCIDRs     string
		allowPorts     string
		grace          time.Duration
		showVersion    bool
	)

	flag.StringVar(&pkg, "package", "", "test executable (simulator) or bundle pushed to the device")
	flag.StringVar(&pkg, "p", "", "test executable or bundle (shorthand)")
	flag.StringVar(&env, "env", "", "target environment; empty applies the CPU default")
	flag.StringVar(&cpu, "cpu", "", "target CPU the package was built for")
	flag.StringVar(&filter, "filter", "", "gtest filter expression")
	flag.StringVar(&filterFile, "filter-file", "", "test launcher filter file")
	flag.IntVar(&repeat, "repeat", 0, "rerun the suite N times (disables the launcher timeout)")
	flag.IntVar(&retryLimit, "retry-limit", 0, "retry failed tests up to N times")
	flag.IntVar(&batchLimit, "batch-limit", 0, "cap tests per launcher batch")
	flag.IntVar(&jobs, "jobs", runner.DefaultJobs, "test launcher parallelism")
	flag.BoolVar(&botMode, "bot-mode", false, "run as a bot (x64 requires hardware acceleration)")
	flag.BoolVar(&singleProcess, "single-process", false, "run tests in a single process")
	flag.BoolVar(&breakOnFailure, "break-on-failure", false, "stop at the first failing test")
	flag.StringVar(&summaryPath, "summary", "", "local path receiving the launcher's JSON summary")
	flag.StringVar(&deviceHost, "device-host", "", "device address for non-simulator environments")
	flag.StringVar(&allowHosts, "allow-host", "", "allowed device hosts (comma-separated)")
	flag.StringVar(&allowCIDRs, "allow-cidr", "", "allowed device CIDRs (comma-separated)")
	flag.StringVar(&allowPorts, "allow-port", "", "allowed device ports (comma-separated)")
	flag.DurationVar(&grace, "grace", runner.DefaultGracePeriod, "group shutdown grace after cancellation")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}

	if pkg == "" {
		fmt.Fprintln(os.Stderr, "Error: --package is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  runtests -package out/sim/base_unittests -cpu x64")
		os.Exit(2)
	}

	ports, err := parsePorts(allowPorts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	resolved, err := target.Resolve(target.Environment(env), target.CPU(cpu))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := runner.Run(ctx, runner.Options{
		Spec: runner.RunSpec{
			Package:        pkg,
			Filter:         filter,
			FilterFile:     filterFile,
			Repeat:         repeat,
			RetryLimit:     retryLimit,
			BatchLimit:     batchLimit,
			Jobs:           jobs,
			BotMode:        botMode,
			SingleProcess:  singleProcess,
			BreakOnFailure: breakOnFailure,
			SummaryPath:    summaryPath,
			ExtraArgs:      flag.Args(),
		},
		Environment: resolved,
		CPU:         target.CPU(cpu),
		DeviceHost:  deviceHost,
		DevicePolicy: netx.DevicePolicy{
			// Deploys stay disabled unless a device host is named; the
			// allowlist must still admit that host.
			Enabled: deviceHost != "",
			Allow: netx.DeviceAllowlist{
				Hosts: splitList(allowHosts),
				CIDRs: splitList(allowCIDRs),
				Ports: ports,
			},
		},
		GracePeriod: grace,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(res.ExitCode)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parsePorts(raw string) ([]int, error) {
	var ports []int
	for _, item := range splitList(raw) {
		port, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", item)
		}
		ports = append(ports, port)
	}
	return ports, nil
}
