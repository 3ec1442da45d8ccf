package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/jlaffaye/ftp"
)

// FTPTransport reads files from an FTP server, optionally over explicit TLS.
type FTPTransport struct {
	conn *ftp.ServerConn
}

// DialFTP connects without encryption.
func DialFTP(ctx context.Context, opts Options) (Transport, error) {
	return dialFTP(ctx, opts, nil)
}

// DialFTPS connects and upgrades the control and data channels with AUTH TLS.
func DialFTPS(ctx context.Context, opts Options) (Transport, error) {
	return dialFTP(ctx, opts, &tls.Config{
		ServerName:         opts.Host,
		InsecureSkipVerify: opts.TLSSkipVerify, //nolint:gosec // user-controlled
		MinVersion:         tls.VersionTLS12,
	})
}

func dialFTP(ctx context.Context, opts Options, tlsConfig *tls.Config) (Transport, error) {
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.port(21)))

	dialOpts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(opts.timeout()),
	}
	if tlsConfig != nil {
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(tlsConfig))
	}

	conn, err := ftp.Dial(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	user, pass := opts.Username, opts.Password
	if user == "" {
		user, pass = "anonymous", "anonymous"
	}
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("logging in to %s: %w", addr, err)
	}

	return &FTPTransport{conn: conn}, nil
}

// List returns the entries of dir. Symbolic links are reported as files.
func (f *FTPTransport) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := f.conn.List(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if item.Name == "." || item.Name == ".." {
			continue
		}
		entries = append(entries, Entry{
			Name:    item.Name,
			Size:    int64(item.Size),
			IsDir:   item.Type == ftp.EntryTypeFolder,
			ModTime: item.Time,
		})
	}
	return entries, nil
}

// Fetch downloads the file at path.
func (f *FTPTransport) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := f.conn.Retr(path)
	if err != nil {
		return nil, fmt.Errorf("retrieving %s: %w", path, err)
	}

	data, err := io.ReadAll(resp)
	if cerr := resp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Close logs out and closes the control connection.
func (f *FTPTransport) Close() error {
	return f.conn.Quit()
}

var _ Transport = (*FTPTransport)(nil)
