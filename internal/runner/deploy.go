// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Deployer moves files to and from a provisioned device host and
// launches test bundles on it.
type Deployer interface {
	Push(ctx context.Context, local, remote string) error
	Pull(ctx context.Context, remote, local string) error
	Run(ctx context.Context, bundle string, args []string) (int, error)
}

// SSHDeployer drives a provisioned device host over ssh and scp. Host
// must be the "host:port" address produced by net.ValidateDeviceHost.
type SSHDeployer struct {
	Host string

	// User logs in as a specific account when set.
	User string

	// IdentityFile selects an ssh key.
	IdentityFile string

	// RemoteDir is where pushed bundles land. Default /data.
	RemoteDir string

	// SSHBin and SCPBin override the client binaries.
	SSHBin string
	SCPBin string

	// Grace bounds group shutdown when the context is canceled.
	Grace time.Duration

	// Stdout and Stderr receive remote command output.
	Stdout io.Writer
	Stderr io.Writer
}

func (d *SSHDeployer) sshBin() string {
	if d.SSHBin != "" {
		return d.SSHBin
	}
	return "ssh"
}

func (d *SSHDeployer) scpBin() string {
	if d.SCPBin != "" {
		return d.SCPBin
	}
	return "scp"
}

func (d *SSHDeployer) remoteDir() string {
	if d.RemoteDir != "" {
		return d.RemoteDir
	}
	return "/data"
}

func (d *SSHDeployer) hostPort() (string, string) {
	host, port, err := net.SplitHostPort(d.Host)
	if err != nil {
		return d.Host, ""
	}
	return host, port
}

// commonArgs builds the client options shared by ssh and scp. portFlag
// differs between the two ("-p" vs "-P"). Lab devices are reflashed
// between runs, so host keys are not pinned.
func (d *SSHDeployer) commonArgs(portFlag string) []string {
	args := []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=10",
	}
	_, port := d.hostPort()
	if port != "" {
		args = append(args, portFlag, port)
	}
	if d.IdentityFile != "" {
		args = append(args, "-i", d.IdentityFile)
	}
	return args
}

func (d *SSHDeployer) target() string {
	host, _ := d.hostPort()
	if d.User != "" {
		return d.User + "@" + host
	}
	return host
}

// scpTarget wraps IPv6 literals in brackets so scp does not read the
// colons as a path separator.
func (d *SSHDeployer) scpTarget() string {
	host, _ := d.hostPort()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if d.User != "" {
		return d.User + "@" + host
	}
	return host
}

// Push copies a local file onto the device.
func (d *SSHDeployer) Push(ctx context.Context, local, remote string) error {
	args := append(d.commonArgs("-P"), local, d.scpTarget()+":"+remote)
	return d.runSCP(ctx, args)
}

// Pull copies a device file back to the local machine.
func (d *SSHDeployer) Pull(ctx context.Context, remote, local string) error {
	args := append(d.commonArgs("-P"), d.scpTarget()+":"+remote, local)
	return d.runSCP(ctx, args)
}

func (d *SSHDeployer) runSCP(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, d.scpBin(), args...) // #nosec G204
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("scp: %w: %s", err, bytes.TrimSpace(out))
	}
	return nil
}

// Run pushes the bundle into RemoteDir, marks it executable, and runs
// it with the given arguments. The remote exit code is returned as-is.
func (d *SSHDeployer) Run(ctx context.Context, bundle string, args []string) (int, error) {
	remote := path.Join(d.remoteDir(), filepath.Base(bundle))
	if err := d.Push(ctx, bundle, remote); err != nil {
		return 0, fmt.Errorf("push %s: %w", filepath.Base(bundle), err)
	}

	command := []string{"chmod", "+x", shellQuote(remote), "&&", shellQuote(remote)}
	for _, a := range args {
		command = append(command, shellQuote(a))
	}

	sshArgs := append(d.commonArgs("-p"), d.target(), strings.Join(command, " "))
	cmd := exec.Command(d.sshBin(), sshArgs...) // #nosec G204
	cmd.Stdout = d.Stdout
	cmd.Stderr = d.Stderr

	code, err := runCommand(ctx, cmd, d.Grace)
	if err != nil {
		return 0, err
	}
	if code == 255 {
		// ssh reserves 255 for its own failures.
		return 0, errors.New("ssh session failed")
	}
	return code, nil
}

var safeShellWord = regexp.MustCompile(`^[A-Za-z0-9@%+=:,./_-]+$`)

// shellQuote makes a single argument safe for the remote shell command
// line, following the same rules as shlex.quote.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if safeShellWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
