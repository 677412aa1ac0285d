// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build unix

package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/buildcfg/internal/target"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o755))
	return p
}

func TestRunLocalSimulatorPass(t *testing.T) {
	launcher := writeScript(t, "launcher", "#!/bin/sh\necho launcher-started\nexit 0\n")

	var out bytes.Buffer
	res, err := Run(context.Background(), Options{
		Spec:        RunSpec{Package: launcher},
		Environment: target.EnvSimulator,
		CPU:         target.CPUArm64,
		Stdout:      &out,
	})
	require.NoError(t, err)
	require.True(t, res.Passed())
	require.Equal(t, 0, res.ExitCode)
	require.Contains(t, out.String(), "launcher-started")
}

func TestRunLocalSimulatorExitCode(t *testing.T) {
	launcher := writeScript(t, "launcher", "#!/bin/sh\nexit 7\n")

	res, err := Run(context.Background(), Options{
		Spec:        RunSpec{Package: launcher},
		Environment: target.EnvAppleTVSimulator,
		CPU:         target.CPUX64,
	})
	require.NoError(t, err)
	require.False(t, res.Passed())
	require.Equal(t, 7, res.ExitCode)
}

func TestRunLocalArgsForwarded(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "args.txt")
	t.Setenv("LAUNCHER_CAPTURE", capture)
	launcher := writeScript(t, "launcher", "#!/bin/sh\nprintf '%s\\n' \"$@\" > \"$LAUNCHER_CAPTURE\"\n")

	summary := filepath.Join(t.TempDir(), "summary.json")
	filter := filepath.Join(t.TempDir(), "filter.txt")
	require.NoError(t, os.WriteFile(filter, []byte("-Flaky.*\n"), 0o644))

	res, err := Run(context.Background(), Options{
		Spec: RunSpec{
			Package:     launcher,
			Filter:      "Foo.*",
			SummaryPath: summary,
			FilterFile:  filter,
		},
		Environment: target.EnvSimulator,
		CPU:         target.CPUArm64,
	})
	require.NoError(t, err)
	require.True(t, res.Passed())

	raw, err := os.ReadFile(capture)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(raw)), "\n")

	require.Equal(t, "--test-launcher-retry-limit=0", args[0])
	require.Contains(t, args, "--test-launcher-jobs=4")
	require.Contains(t, args, "--gtest_filter=Foo.*")
	// Local runs point the child at the local paths directly.
	require.Contains(t, args, "--test-launcher-summary-output="+summary)
	require.Equal(t, "--test-launcher-filter-file="+filter, args[len(args)-1])
}

func TestRunLocalCancelKillsGroup(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	launcher := writeScript(t, "launcher", "#!/bin/sh\nsleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Run(ctx, Options{
		Spec:        RunSpec{Package: launcher},
		Environment: target.EnvSimulator,
		CPU:         target.CPUArm64,
		GracePeriod: 200 * time.Millisecond,
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestRunLocalMissingLauncher(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Spec:        RunSpec{Package: filepath.Join(t.TempDir(), "missing")},
		Environment: target.EnvSimulator,
		CPU:         target.CPUArm64,
	})
	require.ErrorContains(t, err, "start missing")
}

func TestSSHDeployerRunThroughFakes(t *testing.T) {
	scpLog := filepath.Join(t.TempDir(), "scp.log")
	sshLog := filepath.Join(t.TempDir(), "ssh.log")
	t.Setenv("SCP_LOG", scpLog)
	t.Setenv("SSH_LOG", sshLog)

	scpFake := writeScript(t, "scp", "#!/bin/sh\nprintf '%s\\n' \"$@\" >> \"$SCP_LOG\"\nexit 0\n")
	sshFake := writeScript(t, "ssh", "#!/bin/sh\nprintf '%s\\n' \"$@\" > \"$SSH_LOG\"\nexit 4\n")

	bundle := filepath.Join(t.TempDir(), "base_unittests")
	require.NoError(t, os.WriteFile(bundle, []byte("binary"), 0o755))

	d := &SSHDeployer{
		Host:   "192.168.7.9:2222",
		User:   "mobile",
		SSHBin: sshFake,
		SCPBin: scpFake,
	}
	code, err := d.Run(context.Background(), bundle, []string{"--test-launcher-jobs=4", "--gtest_filter=Foo.*"})
	require.NoError(t, err)
	require.Equal(t, 4, code)

	scpArgs, err := os.ReadFile(scpLog)
	require.NoError(t, err)
	require.Contains(t, string(scpArgs), "-P\n2222\n")
	require.Contains(t, string(scpArgs), bundle)
	require.Contains(t, string(scpArgs), "mobile@192.168.7.9:/data/base_unittests")

	sshArgs, err := os.ReadFile(sshLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(sshArgs)), "\n")
	require.Contains(t, lines, "mobile@192.168.7.9")
	remoteCmd := lines[len(lines)-1]
	require.Contains(t, remoteCmd, "chmod +x /data/base_unittests && /data/base_unittests")
	require.Contains(t, remoteCmd, "--test-launcher-jobs=4")
	// Glob characters must reach the remote shell quoted.
	require.Contains(t, remoteCmd, "'--gtest_filter=Foo.*'")
}

func TestSSHDeployerTransportFailure(t *testing.T) {
	scpFake := writeScript(t, "scp", "#!/bin/sh\nexit 0\n")
	sshFake := writeScript(t, "ssh", "#!/bin/sh\nexit 255\n")

	bundle := filepath.Join(t.TempDir(), "base_unittests")
	require.NoError(t, os.WriteFile(bundle, []byte("binary"), 0o755))

	d := &SSHDeployer{Host: "192.168.7.9:22", SSHBin: sshFake, SCPBin: scpFake}
	_, err := d.Run(context.Background(), bundle, nil)
	require.ErrorContains(t, err, "ssh session failed")
}

func TestSSHDeployerPushFailure(t *testing.T) {
	scpFake := writeScript(t, "scp", "#!/bin/sh\necho 'scp: connection refused' >&2\nexit 1\n")

	d := &SSHDeployer{Host: "192.168.7.9:22", SCPBin: scpFake}
	err := d.Push(context.Background(), "/tmp/src", "/data/dst")
	require.ErrorContains(t, err, "scp")
	require.ErrorContains(t, err, "connection refused")
}
