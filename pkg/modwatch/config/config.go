package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/notify"
	"github.com/jamesainslie/modwatch/pkg/modwatch/transport"
)

var logger = logging.Get("config")

var (
	// ErrInvalid wraps every validation problem.
	ErrInvalid = errors.New("invalid configuration")

	// ErrExists is returned by WriteDefault when the file is already there.
	ErrExists = errors.New("config file already exists")
)

// S3Config configures the s3 protocol.
type S3Config struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Profile  string `mapstructure:"profile"`
	Endpoint string `mapstructure:"endpoint"`
}

// RemoteConfig describes the server holding the mods.
type RemoteConfig struct {
	Protocol      string        `mapstructure:"protocol"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Path          string        `mapstructure:"path"`
	KnownHosts    string        `mapstructure:"known_hosts"`
	Timeout       time.Duration `mapstructure:"timeout"`
	TLSSkipVerify bool          `mapstructure:"tls_skip_verify"`
	S3            S3Config      `mapstructure:"s3"`
}

// NotifyConfig selects the notification channels.
type NotifyConfig struct {
	DiscordWebhookURL string        `mapstructure:"discord_webhook_url"`
	NtfyURL           string        `mapstructure:"ntfy_url"`
	Desktop           bool          `mapstructure:"desktop"`
	Title             string        `mapstructure:"title"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	Path         string            `mapstructure:"path"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	Remote RemoteConfig `mapstructure:"remote"`
	Scan   struct {
		Exclude []string `mapstructure:"exclude"`
	} `mapstructure:"scan"`
	State struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"state"`
	Notify NotifyConfig `mapstructure:"notify"`
	Watch  struct {
		Schedule string `mapstructure:"schedule"`
	} `mapstructure:"watch"`
	Logging LoggingConfig `mapstructure:"logging"`

	// File is the config file that was read, empty when running on
	// defaults and environment only.
	File string `mapstructure:"-"`
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFileName, filepath.Ext(ConfigFileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())

		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "modwatch"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("remote.protocol", DefaultProtocol)
	v.SetDefault("remote.host", "")
	v.SetDefault("remote.port", 0)
	v.SetDefault("remote.username", "")
	v.SetDefault("remote.password", "")
	v.SetDefault("remote.path", DefaultRemotePath)
	v.SetDefault("remote.known_hosts", "")
	v.SetDefault("remote.timeout", DefaultRemoteTimeout)
	v.SetDefault("remote.tls_skip_verify", false)
	v.SetDefault("remote.s3.bucket", "")
	v.SetDefault("remote.s3.region", "")
	v.SetDefault("remote.s3.profile", "")
	v.SetDefault("remote.s3.endpoint", "")

	v.SetDefault("scan.exclude", DefaultExclusions)
	v.SetDefault("state.path", DefaultStatePath())

	v.SetDefault("notify.discord_webhook_url", "")
	v.SetDefault("notify.ntfy_url", "")
	v.SetDefault("notify.desktop", false)
	v.SetDefault("notify.title", notify.DefaultTitle)
	v.SetDefault("notify.timeout", DefaultNotifyTimeout)

	v.SetDefault("watch.schedule", DefaultSchedule)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.console_level", "")
	v.SetDefault("logging.rotation.max_size", "10MiB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", maps.Clone(DefaultComponentLevels))
}

// Load reads configuration from path, or from the default locations when
// path is empty, layering MODWATCH_* environment variables on top.
// Default locations, in order of precedence:
//   - $XDG_CONFIG_HOME/modwatch/config.yaml
//   - $HOME/.config/modwatch/config.yaml
//   - ./config.yaml
//
// A missing file in the default locations is not an error; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	statePath, err := ExpandPath(cfg.State.Path)
	if err != nil {
		return nil, err
	}
	cfg.State.Path = statePath

	knownHosts, err := ExpandPath(cfg.Remote.KnownHosts)
	if err != nil {
		return nil, err
	}
	cfg.Remote.KnownHosts = knownHosts

	return &cfg, nil
}

// Watch loads the config at path and calls onChange with a freshly decoded
// config every time the file changes. Decoding errors are passed to
// onChange and the previous config stays in effect with the caller.
func Watch(path string, onChange func(*Config, error)) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file changed", "path", e.Name, "op", e.Op.String())
		next, err := decode(v)
		if err == nil {
			err = next.Validate()
		}
		onChange(next, err)
	})
	v.WatchConfig()

	return cfg, nil
}

// Validate reports every problem with the configuration, joined into one
// error wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error

	proto, err := transport.ParseProtocol(c.Remote.Protocol)
	if err != nil {
		errs = append(errs, err)
	}

	switch proto {
	case transport.S3:
		if strings.TrimSpace(c.Remote.S3.Bucket) == "" {
			errs = append(errs, errors.New("remote.s3.bucket is required for the s3 protocol"))
		}
	case transport.Local:
	default:
		if strings.TrimSpace(c.Remote.Host) == "" {
			errs = append(errs, errors.New("remote.host is required"))
		}
	}

	if c.Remote.Port < 0 || c.Remote.Port > 65535 {
		errs = append(errs, fmt.Errorf("remote.port %d is out of range", c.Remote.Port))
	}
	if strings.TrimSpace(c.Remote.Path) == "" {
		errs = append(errs, errors.New("remote.path is required"))
	}
	if strings.TrimSpace(c.State.Path) == "" {
		errs = append(errs, errors.New("state.path is required"))
	}

	for key, raw := range map[string]string{
		"notify.discord_webhook_url": c.Notify.DiscordWebhookURL,
		"notify.ntfy_url":            c.Notify.NtfyURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an http(s) URL", key))
		}
	}

	if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("watch.schedule %q: %w", c.Watch.Schedule, err))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// TransportOptions converts the remote section for transport.Dial.
func (c *Config) TransportOptions() (transport.Options, error) {
	proto, err := transport.ParseProtocol(c.Remote.Protocol)
	if err != nil {
		return transport.Options{}, err
	}
	return transport.Options{
		Protocol:       proto,
		Host:           c.Remote.Host,
		Port:           c.Remote.Port,
		Username:       c.Remote.Username,
		Password:       c.Remote.Password,
		KnownHostsFile: c.Remote.KnownHosts,
		TLSSkipVerify:  c.Remote.TLSSkipVerify,
		Timeout:        c.Remote.Timeout,
		S3: transport.S3Options{
			Bucket:   c.Remote.S3.Bucket,
			Region:   c.Remote.S3.Region,
			Profile:  c.Remote.S3.Profile,
			Endpoint: c.Remote.S3.Endpoint,
		},
	}, nil
}

// Channels converts the notify section for notify.FromChannels.
func (c *Config) Channels() notify.Channels {
	return notify.Channels{
		DiscordWebhookURL: c.Notify.DiscordWebhookURL,
		NtfyURL:           c.Notify.NtfyURL,
		Desktop:           c.Notify.Desktop,
		Timeout:           c.Notify.Timeout,
	}
}

// ConfigDir returns $XDG_CONFIG_HOME/modwatch.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "modwatch")
}

// DefaultConfigPath returns the config file WriteDefault creates when no
// path is given.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), ConfigFileName)
}

// DataDir returns $XDG_DATA_HOME/modwatch/ for the snapshot.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "modwatch")
}

// DefaultStatePath returns the default snapshot path.
func DefaultStatePath() string {
	return filepath.Join(DataDir(), StateFileName)
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
