// Package tunnel manages an ssh local port forward used to reach deployments
// that are not directly routable, i.e. staging behind a bastion host. The
// forward runs as a child ssh process for the lifetime of the QA session.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
)

// Tunnel is a single ssh -L forward
type Tunnel struct {
	LocalPort  int           // local side of the forward
	RemoteHost string        // ssh destination, user@host form
	RemotePort int           // port on the remote side
	SSHBin     string        // ssh binary, "ssh" if not set
	WaitReady  time.Duration // wait budget for the forward to accept connections, 10s if not set

	cmd *exec.Cmd
}

// Open starts the ssh process and waits until the local port accepts
// connections. The process is killed when ctx is canceled.
func (t *Tunnel) Open(ctx context.Context) error {
	if t.RemoteHost == "" {
		return fmt.Errorf("tunnel remote host not set")
	}
	if t.LocalPort == 0 || t.RemotePort == 0 {
		return fmt.Errorf("tunnel ports not set")
	}

	bin := t.SSHBin
	if bin == "" {
		bin = "ssh"
	}

	t.cmd = exec.CommandContext(ctx, bin, t.args()...) //nolint:gosec // args are built from validated config
	t.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := t.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ssh tunnel: %w", err)
	}
	log.Printf("[INFO] ssh tunnel started, pid %d, 127.0.0.1:%d -> %s:%d",
		t.cmd.Process.Pid, t.LocalPort, t.RemoteHost, t.RemotePort)

	if err := t.waitForPort(ctx); err != nil {
		_ = t.Close()
		return err
	}
	return nil
}

// Close terminates the ssh process and reaps it
func (t *Tunnel) Close() error {
	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	if err := t.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill ssh tunnel: %w", err)
	}
	_ = t.cmd.Wait() // the error is always "killed" here
	log.Printf("[INFO] ssh tunnel closed")
	return nil
}

// Addr returns the local address of the forward
func (t *Tunnel) Addr() string {
	return "127.0.0.1:" + strconv.Itoa(t.LocalPort)
}

func (t *Tunnel) args() []string {
	forward := fmt.Sprintf("%d:127.0.0.1:%d", t.LocalPort, t.RemotePort)
	return []string{
		"-N", // no remote command, forward only
		"-o", "BatchMode=yes",
		"-o", "ExitOnForwardFailure=yes",
		"-o", "ServerAliveInterval=30",
		"-L", forward,
		t.RemoteHost,
	}
}

// waitForPort polls the local side of the forward until it accepts a
// connection or the wait budget runs out
func (t *Tunnel) waitForPort(ctx context.Context) error {
	wait := t.WaitReady
	if wait <= 0 {
		wait = 10 * time.Second
	}
	deadline := time.Now().Add(wait)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := net.DialTimeout("tcp", t.Addr(), 500*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("ssh tunnel on %s not ready after %v", t.Addr(), wait)
}
