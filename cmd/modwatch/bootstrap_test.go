package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/modwatch/pkg/modwatch/config"
	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
)

// isolate points HOME and the XDG directories into a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	xdg.Reload()

	oldCfgFile, oldVerbose, oldQuiet := cfgFile, verbose, quiet
	t.Cleanup(func() {
		_ = logging.Close()
		cfgFile, verbose, quiet = oldCfgFile, oldVerbose, oldQuiet
		cfg = nil
	})
	cfgFile, verbose, quiet = "", false, false
	return home
}

func TestParseRotationConfig(t *testing.T) {
	tests := []struct {
		name     string
		input    config.RotationConfig
		expected logging.RotationConfig
	}{
		{
			name: "default values",
			input: config.RotationConfig{
				MaxSize:    "10MiB",
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
		},
		{
			name: "decimal units",
			input: config.RotationConfig{
				MaxSize:    "1GB",
				MaxAge:     7,
				MaxBackups: 3,
			},
			expected: logging.RotationConfig{
				MaxSize:    1000 * 1000 * 1000,
				MaxAge:     7,
				MaxBackups: 3,
			},
		},
		{
			name: "empty max_size uses default",
			input: config.RotationConfig{
				MaxAge:     14,
				MaxBackups: 2,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     14,
				MaxBackups: 2,
				Daily:      true,
			},
		},
		{
			name: "invalid max_size uses default",
			input: config.RotationConfig{
				MaxSize:    "invalid",
				MaxAge:     21,
				MaxBackups: 4,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     21,
				MaxBackups: 4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseRotationConfig(tt.input)

			if result != tt.expected {
				t.Errorf("parseRotationConfig() = %+v, want %+v", result, tt.expected)
			}
		})
	}
}

func TestInitializeLoggingEnsuresDirectories(t *testing.T) {
	isolate(t)

	if err := initializeLogging(nil, nil); err != nil {
		t.Fatalf("initializeLogging() returned error: %v", err)
	}

	for _, dir := range []string{
		config.ConfigDir(),
		config.DataDir(),
		filepath.Dir(logging.DefaultLogPath()),
	} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("directory was not created: %s", dir)
		}
	}

	if cfg == nil {
		t.Fatal("expected defaults to be loaded without a config file")
	}
	if cfg.File != "" {
		t.Errorf("expected no config file, got %s", cfg.File)
	}
}

func TestInitializeLoggingMissingExplicitConfig(t *testing.T) {
	home := isolate(t)
	cfgFile = filepath.Join(home, "missing.yaml")

	strict := &cobra.Command{Use: "run"}
	if err := initializeLogging(strict, nil); err == nil {
		t.Error("expected an error for a missing --config file")
	}

	tolerant := &cobra.Command{
		Use:         "setup",
		Annotations: map[string]string{annotationLenientConfig: "true"},
	}
	if err := initializeLogging(tolerant, nil); err != nil {
		t.Errorf("lenient command failed: %v", err)
	}
	if cfg != nil {
		t.Error("expected no config for a lenient command whose config failed to load")
	}
}

func TestConsoleLevel(t *testing.T) {
	isolate(t)
	watch := &cobra.Command{Use: "watch"}
	run := &cobra.Command{Use: "run"}

	tests := []struct {
		name       string
		verbose    bool
		quiet      bool
		cmd        *cobra.Command
		configured string
		want       string
	}{
		{name: "verbose wins", verbose: true, cmd: run, configured: "warn", want: "debug"},
		{name: "quiet", quiet: true, cmd: watch, want: "error"},
		{name: "configured", cmd: run, configured: "warn", want: "warn"},
		{name: "watch defaults to info", cmd: watch, want: "info"},
		{name: "run stays silent", cmd: run, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbose, quiet = tt.verbose, tt.quiet
			if got := consoleLevel(tt.cmd, tt.configured); got != tt.want {
				t.Errorf("consoleLevel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireConfig(t *testing.T) {
	isolate(t)

	if _, err := requireConfig(); err == nil {
		t.Error("expected an error with no config loaded")
	}

	if err := initializeLogging(nil, nil); err != nil {
		t.Fatal(err)
	}
	// Defaults have no host, so validation must fail.
	if _, err := requireConfig(); err == nil {
		t.Error("expected validation to fail for the default config")
	}
}
