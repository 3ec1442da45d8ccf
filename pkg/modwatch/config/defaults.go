// Package config provides configuration management for modwatch.
package config

import "time"

// Default configuration values for modwatch.
const (
	// DefaultProtocol lets the transport probe SFTP, FTPS and FTP in turn.
	DefaultProtocol = "auto"

	// DefaultRemotePath is the remote mods directory.
	DefaultRemotePath = "/"

	// DefaultRemoteTimeout bounds connecting to the server.
	DefaultRemoteTimeout = 30 * time.Second

	// DefaultNotifyTimeout bounds each webhook request.
	DefaultNotifyTimeout = 10 * time.Second

	// DefaultSchedule is how often watch polls.
	DefaultSchedule = "@every 15m"

	// StateFileName is the snapshot file name inside the data directory.
	StateFileName = "mod_state.json"

	// ConfigFileName is the config file name inside the config directory.
	ConfigFileName = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. MODWATCH_REMOTE_HOST.
	EnvPrefix = "MODWATCH"
)

// DefaultExclusions are archive name patterns skipped by default.
var DefaultExclusions = []string{}

// DefaultComponentLevels are the per-component log level overrides.
var DefaultComponentLevels = map[string]string{
	"transport": "info",
	"moddesc":   "warn",
	"scanner":   "info",
	"notify":    "info",
}
