// Package transport provides the remote file access used to scan a mod
// directory: listing entries and fetching whole files. Implementations exist
// for SFTP, FTP and FTPS, S3-compatible object storage, and local
// directories.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
)

var logger = logging.Get("transport")

// Entry is one item of a directory listing.
type Entry struct {
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// Transport lists a remote directory and fetches files from it.
type Transport interface {
	// List returns the entries directly inside dir.
	List(ctx context.Context, dir string) ([]Entry, error)

	// Fetch returns the full contents of the file at path.
	Fetch(ctx context.Context, path string) ([]byte, error)

	// Close releases the connection.
	Close() error
}

// Protocol names a transport implementation.
type Protocol string

// Supported protocols. Auto tries SFTP, then FTPS, then plain FTP.
const (
	Auto  Protocol = "auto"
	SFTP  Protocol = "sftp"
	FTP   Protocol = "ftp"
	FTPS  Protocol = "ftps"
	S3    Protocol = "s3"
	Local Protocol = "local"
)

var (
	// ErrUnsupportedProtocol is returned for an unknown protocol name.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrNoTransport is returned when auto-detection finds no working protocol.
	ErrNoTransport = errors.New("no transport could connect")
)

// ParseProtocol validates a protocol name. Empty means Auto.
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return Auto, nil
	case Auto, SFTP, FTP, FTPS, S3, Local:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, s)
	}
}

// S3Options configures the S3 transport.
type S3Options struct {
	Bucket   string
	Region   string
	Profile  string
	Endpoint string
}

// Options configures Dial.
type Options struct {
	Protocol Protocol
	Host     string

	// Port is the server port. Zero selects the protocol default.
	Port     int
	Username string
	Password string

	// KnownHostsFile enables SFTP host key verification when set.
	KnownHostsFile string

	// TLSSkipVerify disables FTPS certificate verification.
	TLSSkipVerify bool

	Timeout time.Duration
	S3      S3Options
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 30 * time.Second
	}
	return o.Timeout
}

func (o Options) port(fallback int) int {
	if o.Port > 0 {
		return o.Port
	}
	return fallback
}
