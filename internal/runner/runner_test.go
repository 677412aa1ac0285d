// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	netx "github.com/ManuGH/buildcfg/internal/platform/net"
	"github.com/ManuGH/buildcfg/internal/target"
	"github.com/ManuGH/buildcfg/internal/validate"
	"github.com/stretchr/testify/require"
)

type fakeDeployer struct {
	pushes  [][2]string
	pulls   [][2]string
	runPkg  string
	runArgs []string
	code    int
	runErr  error
	pushErr error
}

func (f *fakeDeployer) Push(_ context.Context, local, remote string) error {
	f.pushes = append(f.pushes, [2]string{local, remote})
	return f.pushErr
}

func (f *fakeDeployer) Pull(_ context.Context, remote, local string) error {
	f.pulls = append(f.pulls, [2]string{remote, local})
	return nil
}

func (f *fakeDeployer) Run(_ context.Context, bundle string, args []string) (int, error) {
	f.runPkg = bundle
	f.runArgs = args
	return f.code, f.runErr
}

func stubHWAccel(t *testing.T, ok bool) {
	t.Helper()
	orig := hwAccelProbe
	hwAccelProbe = func() bool { return ok }
	t.Cleanup(func() { hwAccelProbe = orig })
}

func labPolicy(hosts ...string) netx.DevicePolicy {
	return netx.DevicePolicy{
		Enabled: true,
		Allow:   netx.DeviceAllowlist{Hosts: hosts},
	}
}

func TestChildArgsFullOrder(t *testing.T) {
	spec := RunSpec{
		Filter:         "Foo.*",
		Repeat:         3,
		RetryLimit:     2,
		BatchLimit:     50,
		Jobs:           8,
		BotMode:        true,
		SingleProcess:  true,
		BreakOnFailure: true,
		ExtraArgs:      []string{"--vmodule=foo=1"},
	}

	got := spec.ChildArgs("/tmp/summary.json", "/tmp/filter.txt")
	want := []string{
		"--test-launcher-retry-limit=0",
		"--single-process-tests",
		"--test-launcher-bot-mode",
		"--test-launcher-batch-limit=50",
		"--test-launcher-jobs=8",
		"--gtest_filter=Foo.*",
		"--gtest_repeat=3",
		"--test-launcher-timeout=-1",
		"--test-launcher-retry-limit=2",
		"--gtest_break_on_failure",
		"--test-launcher-summary-output=/tmp/summary.json",
		"--vmodule=foo=1",
		"--test-launcher-filter-file=/tmp/filter.txt",
	}
	require.Equal(t, want, got)
}

func TestChildArgsDefaults(t *testing.T) {
	got := RunSpec{}.ChildArgs("", "")
	require.Equal(t, []string{
		"--test-launcher-retry-limit=0",
		"--test-launcher-jobs=4",
	}, got)
}

func TestChildArgsRetryOverrideAfterBaseline(t *testing.T) {
	got := RunSpec{RetryLimit: 5}.ChildArgs("", "")

	require.Equal(t, "--test-launcher-retry-limit=0", got[0])
	require.Contains(t, got, "--test-launcher-retry-limit=5")
	// The override must come after the baseline so it wins.
	require.Greater(t,
		indexOf(t, got, "--test-launcher-retry-limit=5"),
		indexOf(t, got, "--test-launcher-retry-limit=0"))
}

func indexOf(t *testing.T, args []string, want string) int {
	t.Helper()
	for i, a := range args {
		if a == want {
			return i
		}
	}
	t.Fatalf("argument %q not found in %v", want, args)
	return -1
}

func TestRunRejectsEmptyPackage(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Environment: target.EnvSimulator,
		CPU:         target.CPUArm64,
	})
	require.Error(t, err)

	var verr validate.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "package", verr.Errors()[0].Field)
}

func TestRunRejectsUnknownEnvironment(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Spec:        RunSpec{Package: "/build/out/base_unittests"},
		Environment: target.Environment("frobnicator"),
	})
	require.ErrorContains(t, err, "target_environment")
}

func TestRunDeviceRequiresHost(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Spec:        RunSpec{Package: "/build/out/base_unittests"},
		Environment: target.EnvDevice,
	})
	require.ErrorContains(t, err, "device_host")
}

func TestRunRequiresHWAccelOnX64Bots(t *testing.T) {
	stubHWAccel(t, false)

	_, err := Run(context.Background(), Options{
		Spec:        RunSpec{Package: "/build/out/base_unittests", BotMode: true},
		Environment: target.EnvSimulator,
		CPU:         target.CPUX64,
	})
	require.ErrorIs(t, err, ErrHWAccelUnavailable)
}

func TestRunSkipsHWAccelProbeOffBots(t *testing.T) {
	stubHWAccel(t, false)

	// Same missing probe, but arm64: the gate does not apply and the run
	// proceeds until the nonexistent launcher fails to start.
	_, err := Run(context.Background(), Options{
		Spec:        RunSpec{Package: filepath.Join(t.TempDir(), "missing"), BotMode: true},
		Environment: target.EnvSimulator,
		CPU:         target.CPUArm64,
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrHWAccelUnavailable)
}

func TestRunDeviceDispatch(t *testing.T) {
	filter := filepath.Join(t.TempDir(), "filter.txt")
	require.NoError(t, os.WriteFile(filter, []byte("-Flaky.*\n"), 0o644))
	summary := filepath.Join(t.TempDir(), "summary.json")

	dep := &fakeDeployer{code: 3}
	res, err := Run(context.Background(), Options{
		Spec: RunSpec{
			Package:     "/build/out/base_unittests",
			FilterFile:  filter,
			SummaryPath: summary,
			Jobs:        2,
		},
		Environment:  target.EnvDevice,
		CPU:          target.CPUArm64,
		DeviceHost:   "192.168.7.9",
		DevicePolicy: labPolicy("192.168.7.9"),
		Deployer:     dep,
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)
	require.False(t, res.Passed())
	require.NotEmpty(t, res.RunID)
	require.Equal(t, target.EnvDevice, res.Environment)

	require.Equal(t, [][2]string{{filter, "/data/test_filter.txt"}}, dep.pushes)
	require.Equal(t, "/build/out/base_unittests", dep.runPkg)
	require.Contains(t, dep.runArgs, "--test-launcher-jobs=2")
	require.Contains(t, dep.runArgs, "--test-launcher-summary-output=/data/test_summary.json")
	require.Equal(t, "--test-launcher-filter-file=/data/test_filter.txt", dep.runArgs[len(dep.runArgs)-1])
	require.Equal(t, [][2]string{{"/data/test_summary.json", summary}}, dep.pulls)
}

func TestRunDeviceWithoutSummaryOrFilter(t *testing.T) {
	dep := &fakeDeployer{}
	res, err := Run(context.Background(), Options{
		Spec:         RunSpec{Package: "/build/out/base_unittests"},
		Environment:  target.EnvAppleTVOS,
		CPU:          target.CPUArm64,
		DeviceHost:   "192.168.7.9:22",
		DevicePolicy: labPolicy("192.168.7.9"),
		Deployer:     dep,
	})
	require.NoError(t, err)
	require.True(t, res.Passed())

	require.Empty(t, dep.pushes)
	require.Empty(t, dep.pulls)
	for _, a := range dep.runArgs {
		require.NotContains(t, a, "--test-launcher-summary-output")
		require.NotContains(t, a, "--test-launcher-filter-file")
	}
}

func TestRunDeviceHostRejected(t *testing.T) {
	dep := &fakeDeployer{}
	_, err := Run(context.Background(), Options{
		Spec:         RunSpec{Package: "/build/out/base_unittests"},
		Environment:  target.EnvDevice,
		CPU:          target.CPUArm64,
		DeviceHost:   "203.0.113.5",
		DevicePolicy: labPolicy("192.168.7.9"),
		Deployer:     dep,
	})
	require.ErrorIs(t, err, netx.ErrHostNotAllowed)
	require.Empty(t, dep.runPkg)
}

func TestRunDeviceDeployDisabled(t *testing.T) {
	dep := &fakeDeployer{}
	_, err := Run(context.Background(), Options{
		Spec:        RunSpec{Package: "/build/out/base_unittests"},
		Environment: target.EnvCatalyst,
		CPU:         target.CPUArm64,
		DeviceHost:  "192.168.7.9",
		Deployer:    dep,
	})
	require.ErrorIs(t, err, netx.ErrDeployDisabled)
	require.Empty(t, dep.runPkg)
}

func TestRunDevicePushFailureAborts(t *testing.T) {
	filter := filepath.Join(t.TempDir(), "filter.txt")
	require.NoError(t, os.WriteFile(filter, []byte("-Flaky.*\n"), 0o644))

	dep := &fakeDeployer{pushErr: errors.New("connection refused")}
	_, err := Run(context.Background(), Options{
		Spec:         RunSpec{Package: "/build/out/base_unittests", FilterFile: filter},
		Environment:  target.EnvDevice,
		CPU:          target.CPUArm64,
		DeviceHost:   "192.168.7.9",
		DevicePolicy: labPolicy("192.168.7.9"),
		Deployer:     dep,
	})
	require.ErrorContains(t, err, "push filter file")
	require.Empty(t, dep.runPkg)
}
