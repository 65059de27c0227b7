package tunnel

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSSH writes a stand-in ssh binary that just blocks, the test itself
// provides the listener on the forwarded port
func fakeSSH(t *testing.T) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "ssh")
	err := os.WriteFile(script, []byte("#!/bin/sh\nsleep 60\n"), 0o755) //nolint:gosec // test helper script
	require.NoError(t, err)
	return script
}

func freePort(t *testing.T) (port int, ln net.Listener) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln.Addr().(*net.TCPAddr).Port, ln
}

func TestTunnel_OpenAndClose(t *testing.T) {
	port, ln := freePort(t)
	defer ln.Close()

	tun := Tunnel{LocalPort: port, RemoteHost: "qa@bastion.dumont.cloud", RemotePort: 3000,
		SSHBin: fakeSSH(t), WaitReady: 3 * time.Second}
	require.NoError(t, tun.Open(context.Background()))
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(port), tun.Addr())
	require.NoError(t, tun.Close())
}

func TestTunnel_OpenFailsWithoutListener(t *testing.T) {
	port, ln := freePort(t)
	ln.Close() // free the port so nothing listens on it

	tun := Tunnel{LocalPort: port, RemoteHost: "qa@bastion.dumont.cloud", RemotePort: 3000,
		SSHBin: fakeSSH(t), WaitReady: 500 * time.Millisecond}
	err := tun.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestTunnel_OpenValidation(t *testing.T) {
	err := (&Tunnel{LocalPort: 1234, RemotePort: 3000}).Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote host not set")

	err = (&Tunnel{RemoteHost: "qa@bastion"}).Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ports not set")
}

func TestTunnel_OpenBadBinary(t *testing.T) {
	tun := Tunnel{LocalPort: 1234, RemoteHost: "qa@bastion", RemotePort: 3000,
		SSHBin: "/no/such/ssh", WaitReady: 100 * time.Millisecond}
	err := tun.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start ssh tunnel")
}

func TestTunnel_CloseWithoutOpen(t *testing.T) {
	assert.NoError(t, (&Tunnel{}).Close())
}

func TestTunnel_Args(t *testing.T) {
	tun := Tunnel{LocalPort: 8080, RemoteHost: "qa@bastion.dumont.cloud", RemotePort: 3000}
	args := tun.args()
	assert.Contains(t, args, "-N")
	assert.Contains(t, args, "8080:127.0.0.1:3000")
	assert.Equal(t, "qa@bastion.dumont.cloud", args[len(args)-1])
}
