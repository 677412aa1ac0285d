// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package runner launches test executables against a resolved target
// environment. Simulator environments run locally inside their own
// process group; device environments deploy to an allowlisted device
// host and collect results afterwards.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	bcfglog "github.com/ManuGH/buildcfg/internal/log"

	"github.com/ManuGH/buildcfg/internal/metrics"
	netx "github.com/ManuGH/buildcfg/internal/platform/net"
	"github.com/ManuGH/buildcfg/internal/procgroup"
	"github.com/ManuGH/buildcfg/internal/target"
	"github.com/ManuGH/buildcfg/internal/telemetry"
	"github.com/ManuGH/buildcfg/internal/validate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultJobs is the launcher parallelism used when the caller does
	// not request one.
	DefaultJobs = 4

	// DefaultGracePeriod bounds how long a canceled run may keep running
	// before its process group is killed.
	DefaultGracePeriod = 10 * time.Second

	// Device-side landing paths for pushed filter files and collected
	// summaries.
	deviceSummaryPath = "/data/test_summary.json"
	deviceFilterPath  = "/data/test_filter.txt"
)

// ErrHWAccelUnavailable is returned when a bot-mode x64 run cannot get
// hardware virtualization on the host.
var ErrHWAccelUnavailable = errors.New("hardware acceleration unavailable")

// hwAccelProbe reports whether the host can hardware-accelerate a
// simulator. Swapped out in tests.
var hwAccelProbe = detectHWAccel

func detectHWAccel() bool {
	switch runtime.GOOS {
	case "darwin":
		// Hypervisor.framework ships with the OS.
		return true
	case "linux":
		_, err := os.Stat("/dev/kvm")
		return err == nil
	default:
		return false
	}
}

// RunSpec describes a single test launcher invocation.
type RunSpec struct {
	// Package is the test executable for simulator runs, or the bundle
	// pushed to the device for device runs.
	Package string

	// Filter is passed through as --gtest_filter.
	Filter string

	// FilterFile names a local launcher filter file. Device runs push it
	// to the device first and reference the device-side copy.
	FilterFile string

	// Repeat reruns the suite N times when positive. Repeated runs take
	// as long as they take, so the launcher timeout is disabled.
	Repeat int

	// RetryLimit retries failed tests up to N times when positive. The
	// launcher default is 0.
	RetryLimit int

	// BatchLimit caps tests per launcher batch when positive.
	BatchLimit int

	// Jobs is the launcher parallelism. Zero means DefaultJobs.
	Jobs int

	BotMode        bool
	SingleProcess  bool
	BreakOnFailure bool

	// SummaryPath is where the launcher's JSON summary ends up on the
	// local machine. Device runs collect it after the run.
	SummaryPath string

	// ExtraArgs are appended verbatim after the assembled flags.
	ExtraArgs []string
}

// ChildArgs assembles the launcher argument vector. summaryOutput and
// filterFile carry the paths the child should see, which differ between
// local and device runs; an empty string omits the flag.
func (s RunSpec) ChildArgs(summaryOutput, filterFile string) []string {
	args := []string{"--test-launcher-retry-limit=0"}
	if s.SingleProcess {
		args = append(args, "--single-process-tests")
	}
	if s.BotMode {
		args = append(args, "--test-launcher-bot-mode")
	}
	if s.BatchLimit > 0 {
		args = append(args, "--test-launcher-batch-limit="+strconv.Itoa(s.BatchLimit))
	}
	jobs := s.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs
	}
	args = append(args, "--test-launcher-jobs="+strconv.Itoa(jobs))
	if s.Filter != "" {
		args = append(args, "--gtest_filter="+s.Filter)
	}
	if s.Repeat > 0 {
		args = append(args, "--gtest_repeat="+strconv.Itoa(s.Repeat), "--test-launcher-timeout=-1")
	}
	if s.RetryLimit > 0 {
		// Appended after the baseline; the launcher's last flag wins.
		args = append(args, "--test-launcher-retry-limit="+strconv.Itoa(s.RetryLimit))
	}
	if s.BreakOnFailure {
		args = append(args, "--gtest_break_on_failure")
	}
	if summaryOutput != "" {
		args = append(args, "--test-launcher-summary-output="+summaryOutput)
	}
	args = append(args, s.ExtraArgs...)
	if filterFile != "" {
		args = append(args, "--test-launcher-filter-file="+filterFile)
	}
	return args
}

// Options configures a test run against an already-resolved environment.
type Options struct {
	Spec RunSpec

	// Environment decides the dispatch path. Simulator flavors run
	// locally, everything else deploys to DeviceHost.
	Environment target.Environment

	// CPU is the build's target CPU, used for host preconditions.
	CPU target.CPU

	// DeviceHost is the raw operator-supplied device address. It must
	// pass the outbound allowlist before anything is sent to it.
	DeviceHost   string
	DevicePolicy netx.DevicePolicy

	// Deployer overrides the transport for device runs. Nil selects an
	// SSHDeployer for the validated host.
	Deployer Deployer

	// GracePeriod bounds group shutdown on cancellation. Zero means
	// DefaultGracePeriod.
	GracePeriod time.Duration

	// Stdout and Stderr receive the child's output. Nil means the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

func (o Options) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

func (o Options) stderr() io.Writer {
	if o.Stderr != nil {
		return o.Stderr
	}
	return os.Stderr
}

// Result is the outcome of one dispatched run.
type Result struct {
	RunID       string
	Environment target.Environment
	ExitCode    int
	Duration    time.Duration
}

// Passed reports whether the child exited cleanly.
func (r *Result) Passed() bool {
	return r.ExitCode == 0
}

// Run dispatches one test run and reports the child's exit code. A
// non-zero exit is a completed run with test failures, not an error;
// errors mean the run could not be carried out at all.
func Run(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	ctx = bcfglog.ContextWithRunID(ctx, runID)
	logger := bcfglog.WithComponentFromContext(ctx, "runner")

	tracer := telemetry.Tracer("buildcfg.runner")
	ctx, span := tracer.Start(ctx, "buildcfg.testrun",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(telemetry.RunAttributes(runID, opts.Environment.String(), opts.Spec.Package)...))
	defer span.End()

	start := time.Now()

	if err := validateOptions(opts); err != nil {
		return nil, fail(span, logger, opts.Environment, start, "run options rejected", err)
	}
	if opts.Spec.BotMode && opts.CPU == target.CPUX64 && !hwAccelProbe() {
		// x64 bots virtualize the simulator; without acceleration the
		// suite times out instead of failing cleanly. Refuse up front.
		return nil, fail(span, logger, opts.Environment, start, "hardware acceleration probe failed", ErrHWAccelUnavailable)
	}

	logger.Info().
		Str("event", "runner.start").
		Str("environment", opts.Environment.String()).
		Str("package", opts.Spec.Package).
		Msg("dispatching test run")

	var (
		code int
		err  error
	)
	if opts.Environment.IsSimulator() {
		code, err = runLocal(ctx, logger, opts)
	} else {
		code, err = runDevice(ctx, logger, opts)
	}
	elapsed := time.Since(start)
	if err != nil {
		return nil, fail(span, logger, opts.Environment, start, "test run did not complete", err)
	}

	res := &Result{
		RunID:       runID,
		Environment: opts.Environment,
		ExitCode:    code,
		Duration:    elapsed,
	}
	span.SetAttributes(attribute.Int(telemetry.RunExitCodeKey, code))

	outcome := "pass"
	if code != 0 {
		outcome = "fail"
		span.SetStatus(codes.Error, "test failures")
	}
	metrics.RecordTestRun(opts.Environment.String(), outcome, elapsed.Seconds())

	evt := logger.Info()
	if code != 0 {
		evt = logger.Warn()
	}
	evt.
		Str("event", "runner."+outcome).
		Int("exit_code", code).
		Dur("duration", elapsed).
		Msg("test run finished")
	return res, nil
}

func validateOptions(opts Options) error {
	v := validate.New()
	v.NotEmpty("package", opts.Spec.Package)
	v.OneOf("target_environment", opts.Environment.String(), target.EnvironmentNames())
	if opts.Environment.IsValid() && !opts.Environment.IsSimulator() {
		v.NotEmpty("device_host", opts.DeviceHost)
	}
	return v.Err()
}

// fail records the span error, counts the failed run, and emits the
// diagnostic before handing the error back.
func fail(span trace.Span, logger zerolog.Logger, env target.Environment, start time.Time, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	metrics.RecordTestRun(env.String(), "error", time.Since(start).Seconds())

	logger.Error().
		Err(err).
		Str("event", "runner.failed").
		Msg(msg)
	return err
}

func runLocal(ctx context.Context, logger zerolog.Logger, opts Options) (int, error) {
	args := opts.Spec.ChildArgs(opts.Spec.SummaryPath, opts.Spec.FilterFile)
	cmd := exec.Command(opts.Spec.Package, args...) // #nosec G204
	cmd.Stdout = opts.stdout()
	cmd.Stderr = opts.stderr()

	logger.Info().
		Str("event", "runner.exec").
		Str("command", cmd.String()).
		Msg("starting test launcher")
	return runCommand(ctx, cmd, opts.GracePeriod)
}

func runDevice(ctx context.Context, logger zerolog.Logger, opts Options) (int, error) {
	host, err := netx.ValidateDeviceHost(ctx, opts.DeviceHost, opts.DevicePolicy)
	if err != nil {
		return 0, fmt.Errorf("device host: %w", err)
	}

	dep := opts.Deployer
	if dep == nil {
		dep = &SSHDeployer{
			Host:   host,
			Grace:  opts.GracePeriod,
			Stdout: opts.stdout(),
			Stderr: opts.stderr(),
		}
	}

	summary := ""
	if opts.Spec.SummaryPath != "" {
		summary = deviceSummaryPath
	}
	args := opts.Spec.ChildArgs(summary, "")
	if opts.Spec.FilterFile != "" {
		if err := dep.Push(ctx, opts.Spec.FilterFile, deviceFilterPath); err != nil {
			return 0, fmt.Errorf("push filter file: %w", err)
		}
		args = append(args, "--test-launcher-filter-file="+deviceFilterPath)
	}

	logger.Info().
		Str("event", "runner.deploy").
		Str("host", host).
		Str("package", opts.Spec.Package).
		Msg("running on device host")
	code, err := dep.Run(ctx, opts.Spec.Package, args)
	if err != nil {
		return 0, fmt.Errorf("device run: %w", err)
	}

	if opts.Spec.SummaryPath != "" {
		if err := dep.Pull(ctx, deviceSummaryPath, opts.Spec.SummaryPath); err != nil {
			return 0, fmt.Errorf("collect summary: %w", err)
		}
	}
	return code, nil
}

// runCommand starts cmd in its own process group and waits for it,
// killing the whole group when ctx is canceled first.
func runCommand(ctx context.Context, cmd *exec.Cmd, grace time.Duration) (int, error) {
	procgroup.Set(cmd)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", filepath.Base(cmd.Path), err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	select {
	case err := <-waitCh:
		return exitStatus(err)
	case <-ctx.Done():
		if grace <= 0 {
			grace = DefaultGracePeriod
		}
		_ = procgroup.Terminate(cmd, waitCh, grace)
		return 0, ctx.Err()
	}
}

// exitStatus maps a Wait error to the child's exit code. Launcher test
// failures surface as the code; everything else stays an error.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("wait: %w", err)
}
