package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/modwatch/pkg/modwatch/config"
	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

// annotationLenientConfig marks commands that must work with a missing or
// broken config file, such as setup.
const annotationLenientConfig = "modwatch.lenient-config"

var cliLogger = logging.Get("cli")

// initializeLogging is the PersistentPreRunE hook. It creates the XDG
// directories, loads the configuration and starts logging.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	if err := ensureDirectories(); err != nil {
		return err
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		if !lenient(cmd) {
			return err
		}
		loaded = nil
	}
	cfg = loaded

	logCfg := logging.DefaultConfig()
	if loaded != nil {
		logCfg.Level = loaded.Logging.Level
		if loaded.Logging.Path != "" {
			path, err := config.ExpandPath(loaded.Logging.Path)
			if err != nil {
				return err
			}
			logCfg.Path = path
		}
		logCfg.Rotation = parseRotationConfig(loaded.Logging.Rotation)
		logCfg.Components = loaded.Logging.Components
		logCfg.ConsoleLevel = loaded.Logging.ConsoleLevel
	}
	logCfg.ConsoleLevel = consoleLevel(cmd, logCfg.ConsoleLevel)

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if cmd != nil {
		cliLogger.Debug("command started", "command", cmd.CommandPath(), "config", configSource())
	}
	return nil
}

// lenient reports whether cmd tolerates a config that fails to load.
func lenient(cmd *cobra.Command) bool {
	if cmd == nil {
		return true
	}
	return cmd.Annotations[annotationLenientConfig] == "true"
}

// consoleLevel picks the stderr log level from the flags, the config and the
// command. watch logs progress to the console unless told otherwise.
func consoleLevel(cmd *cobra.Command, configured string) string {
	switch {
	case verbose:
		return "debug"
	case quiet:
		return "error"
	case configured != "":
		return configured
	case cmd != nil && cmd.Name() == "watch":
		return "info"
	default:
		return ""
	}
}

// parseRotationConfig converts the config rotation settings. An empty or
// unparseable max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.RotationConfig{
		MaxSize:    logging.DefaultRotationConfig().MaxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}

	size, err := types.ParseSize(rc.MaxSize)
	if err == nil && size > 0 {
		out.MaxSize = size
	}
	return out
}

// ensureDirectories creates the config, data and log directories.
func ensureDirectories() error {
	for _, dir := range []string{
		config.ConfigDir(),
		config.DataDir(),
		filepath.Dir(logging.DefaultLogPath()),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// configSource describes where the configuration came from.
func configSource() string {
	if cfg == nil {
		return "unavailable"
	}
	if cfg.File == "" {
		return "defaults"
	}
	return cfg.File
}

// requireConfig returns the loaded config after validating it.
func requireConfig() (*config.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no configuration loaded; run 'modwatch setup' first")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
