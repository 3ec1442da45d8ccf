package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/modwatch/pkg/modwatch/notify"
)

const defaultTemplate = `# modwatch configuration
#
# Every key can be overridden with an environment variable, e.g.
# MODWATCH_REMOTE_PASSWORD or MODWATCH_NOTIFY_DISCORD_WEBHOOK_URL.

remote:
  # auto tries sftp, then ftps, then ftp. Also: sftp, ftp, ftps, s3, local
  protocol: %s
  host: ""
  # 0 means the protocol default (22 for sftp, 21 for ftp/ftps)
  port: 0
  username: ""
  password: ""
  # Directory holding the mod archives
  path: %s
  # known_hosts file for sftp host key checking (empty disables checking)
  known_hosts: ""
  timeout: %s
  # Accept self-signed ftps certificates
  tls_skip_verify: false
  s3:
    bucket: ""
    region: ""
    profile: ""
    # Custom endpoint for S3-compatible stores (enables path-style access)
    endpoint: ""

scan:
  # Archive name patterns to ignore, e.g. "*_backup.zip"
  exclude: []

state:
  # Snapshot of the last seen mod list
  path: %q

notify:
  discord_webhook_url: ""
  # ntfy topic URL, e.g. https://ntfy.sh/my-farm-server
  ntfy_url: ""
  # Show a local desktop notification
  desktop: false
  title: %q
  timeout: %s

watch:
  # Cron expression or descriptor used by "modwatch watch"
  schedule: %q

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/modwatch/modwatch.log)
  path: ""
  # Also log to stderr at this level (empty disables console logging)
  console_level: ""
  rotation:
    max_size: 10MiB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    transport: info
    moddesc: warn
    scanner: info
    notify: info
`

// DefaultTemplate renders the commented default config file.
func DefaultTemplate() string {
	return fmt.Sprintf(defaultTemplate,
		DefaultProtocol,
		DefaultRemotePath,
		DefaultRemoteTimeout,
		DefaultStatePath(),
		notify.DefaultTitle,
		DefaultNotifyTimeout,
		DefaultSchedule,
	)
}

// WriteDefault writes the default config to path, or to DefaultConfigPath
// when path is empty. An existing file is only replaced when force is set.
// It returns the path written.
func WriteDefault(path string, force bool) (string, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			return path, fmt.Errorf("%w: %s", ErrExists, path)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return path, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Owner-only: the file holds credentials.
	if err := os.WriteFile(path, []byte(DefaultTemplate()), 0o600); err != nil {
		return path, fmt.Errorf("failed to write default config: %w", err)
	}

	return path, nil
}
