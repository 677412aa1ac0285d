// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/buildcfg/internal/version"
)

// scrubEnv returns the process environment without BCFG_ overrides and with
// the data dir pinned to tmpDir, so ambient daemon configuration cannot leak
// into validation results.
func scrubEnv(tmpDir string) []string {
	env := make([]string, 0, len(os.Environ())+1)
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "BCFG_") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "BCFG_DATA_DIR="+tmpDir)
}

func buildValidateBinary(t *testing.T) string {
	t.Helper()
	binaryPath := filepath.Join(t.TempDir(), "validate-test")
	// #nosec G204 -- Test code: building test binary with controlled arguments
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build validate binary: %v\n%s", err, out)
	}
	return binaryPath
}

func runValidate(t *testing.T, binaryPath string, env []string, args ...string) (string, int) {
	t.Helper()
	// #nosec G204 -- Test code: running test binary with controlled arguments
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = env

	output, err := cmd.CombinedOutput()
	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			t.Fatalf("unexpected error running validate: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return string(output), exitCode
}

func TestValidateCLI_Config(t *testing.T) {
	binaryPath := buildValidateBinary(t)
	env := scrubEnv(t.TempDir())

	tests := []struct {
		name       string
		configFile string // relative to ../../internal/config/testdata/
		wantExit   int
		wantOutput string // substring expected in combined output
	}{
		{
			name:       "valid minimal config",
			configFile: "../../internal/config/testdata/valid-minimal.yaml",
			wantExit:   0,
			wantOutput: "is valid",
		},
		{
			name:       "invalid unknown key",
			configFile: "../../internal/config/testdata/invalid-unknown-key.yaml",
			wantExit:   1,
			wantOutput: "Configuration error",
		},
		{
			name:       "invalid type mismatch",
			configFile: "../../internal/config/testdata/invalid-type.yaml",
			wantExit:   1,
			wantOutput: "Configuration error",
		},
		{
			name:       "non-existent file",
			configFile: "does-not-exist.yaml",
			wantExit:   1,
			wantOutput: "Configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, exitCode := runValidate(t, binaryPath, env, "-config", tt.configFile)
			if exitCode != tt.wantExit {
				t.Errorf("exit code = %d, want %d\nOutput:\n%s", exitCode, tt.wantExit, output)
			}
			if !strings.Contains(output, tt.wantOutput) {
				t.Errorf("output does not contain %q\nGot:\n%s", tt.wantOutput, output)
			}
		})
	}
}

func TestValidateCLI_Args(t *testing.T) {
	binaryPath := buildValidateBinary(t)
	tmpDir := t.TempDir()
	env := scrubEnv(tmpDir)

	validArgs := filepath.Join(tmpDir, "args.yaml")
	if err := os.WriteFile(validArgs, []byte("target_cpu: arm64\nis_cronet_build: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	unknownArgs := filepath.Join(tmpDir, "unknown.yaml")
	if err := os.WriteFile(unknownArgs, []byte("bogus_toggle: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("valid arguments file", func(t *testing.T) {
		output, exitCode := runValidate(t, binaryPath, env, "-args", validArgs)
		if exitCode != 0 {
			t.Errorf("exit code = %d, want 0\nOutput:\n%s", exitCode, output)
		}
		if !strings.Contains(output, "is valid") {
			t.Errorf("output does not contain %q\nGot:\n%s", "is valid", output)
		}
	})

	t.Run("unknown argument", func(t *testing.T) {
		output, exitCode := runValidate(t, binaryPath, env, "-args", unknownArgs)
		if exitCode != 1 {
			t.Errorf("exit code = %d, want 1\nOutput:\n%s", exitCode, output)
		}
		if !strings.Contains(output, "Arguments error") {
			t.Errorf("output does not contain %q\nGot:\n%s", "Arguments error", output)
		}
	})

	t.Run("config and args together", func(t *testing.T) {
		output, exitCode := runValidate(t, binaryPath, env,
			"-config", "../../internal/config/testdata/valid-minimal.yaml",
			"-args", validArgs)
		if exitCode != 0 {
			t.Errorf("exit code = %d, want 0\nOutput:\n%s", exitCode, output)
		}
		if got := strings.Count(output, "is valid"); got != 2 {
			t.Errorf("expected both inputs reported valid, got %d\nOutput:\n%s", got, output)
		}
	})
}

func TestValidateCLI_NoInput(t *testing.T) {
	binaryPath := buildValidateBinary(t)
	output, exitCode := runValidate(t, binaryPath, scrubEnv(t.TempDir()))
	if exitCode != 2 {
		t.Errorf("exit code = %d, want 2\nOutput:\n%s", exitCode, output)
	}
	if !strings.Contains(output, "at least one of --config or --args is required") {
		t.Errorf("missing usage error\nGot:\n%s", output)
	}
}

func TestValidateCLI_Version(t *testing.T) {
	binaryPath := buildValidateBinary(t)
	output, exitCode := runValidate(t, binaryPath, scrubEnv(t.TempDir()), "-version")
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0\nOutput:\n%s", exitCode, output)
	}
	if got := strings.TrimSpace(output); got != version.Version {
		t.Errorf("version output = %q, want %q", got, version.Version)
	}
}
