package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPTransport reads files over an SSH connection.
type SFTPTransport struct {
	client *sftp.Client
	conn   *ssh.Client
}

// DialSFTP opens an SSH connection with password authentication and starts
// an SFTP session on it. Host keys are checked against KnownHostsFile when
// one is configured.
func DialSFTP(ctx context.Context, opts Options) (Transport, error) {
	hostKeyCallback, err := hostKeyCallback(opts.KnownHostsFile)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            opts.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(opts.Password)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.timeout(),
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.port(22)))
	dialer := net.Dialer{Timeout: opts.timeout()}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	conn := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("starting sftp session: %w", err)
	}

	return &SFTPTransport{client: client, conn: conn}, nil
}

// NewSFTP wraps an existing SFTP client. The caller keeps ownership of the
// underlying connection.
func NewSFTP(client *sftp.Client) *SFTPTransport {
	return &SFTPTransport{client: client}
}

func hostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		logger.Debug("host key verification disabled")
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // opt-in via known_hosts
	}

	cb, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts: %w", err)
	}
	return cb, nil
}

// List returns the entries of dir.
func (s *SFTPTransport) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:    info.Name(),
			Size:    info.Size(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Fetch downloads the file at path.
func (s *SFTPTransport) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.client.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Close ends the SFTP session and the SSH connection it owns.
func (s *SFTPTransport) Close() error {
	err := s.client.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ Transport = (*SFTPTransport)(nil)
