package fetch

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"netback/internal/netback"
)

// SSHFetcher retrieves configuration exports over SSH by running the export
// command on the device and capturing its output.
type SSHFetcher struct {
	command string
	timeout time.Duration
}

var _ netback.Fetcher = (*SSHFetcher)(nil)

// NewSSHFetcher creates a fetcher that runs the given export command with a
// per-device connect/exec timeout.
func NewSSHFetcher(command string, timeout time.Duration) *SSHFetcher {
	return &SSHFetcher{command: command, timeout: timeout}
}

// Fetch connects to the device, runs the export command, and returns its
// output. Host keys are not verified: devices in the field regenerate keys
// on reinstall, and operators register devices by address.
func (f *SSHFetcher) Fetch(ctx context.Context, target netback.FetchTarget) (string, error) {
	port := target.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(target.Hostname, strconv.Itoa(port))

	config := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(target.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         f.timeout,
	}

	dialer := net.Dialer{Timeout: f.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w", addr, err)
	}

	// Bound the handshake and command execution as well; the ssh package
	// only applies config.Timeout to its own dialing.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(f.timeout))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("opening session on %s: %w", addr, err)
	}
	defer session.Close()

	output, err := session.Output(f.command)
	if err != nil {
		return "", fmt.Errorf("running export on %s: %w", addr, err)
	}
	return string(output), nil
}
