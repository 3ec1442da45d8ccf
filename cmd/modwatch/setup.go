package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/modwatch/pkg/modwatch/config"
)

var setupForce bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the configuration file",
	Long: `Write a commented configuration template to the config path
(--config, or ~/.config/modwatch/config.yaml). Edit it to fill in the
server address, credentials and Discord webhook, then run 'modwatch test'.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationLenientConfig: "true"},
	RunE:        runSetup,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the configuration",
	Long: `Inspect or edit the modwatch configuration.

Configuration is loaded from:
  1. --config
  2. $XDG_CONFIG_HOME/modwatch/config.yaml
  3. ~/.config/modwatch/config.yaml

Environment variables override file settings using the MODWATCH_ prefix:
  MODWATCH_REMOTE_HOST=farm.example.com
  MODWATCH_REMOTE_PASSWORD=secret
  MODWATCH_NOTIFY_DISCORD_WEBHOOK_URL=https://discord.com/api/webhooks/...`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in an editor",
	Long: `Open the configuration file in your editor ($VISUAL, then $EDITOR, then vi).
The file is created from the template first if it does not exist.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationLenientConfig: "true"},
	RunE:        runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Show the configuration file path",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationLenientConfig: "true"},
	RunE:        runConfigPath,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(setupCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	path, err := config.WriteDefault(cfgFile, setupForce)
	if errors.Is(err, config.ErrExists) {
		printInfo("Config file already exists: %s", path)
		printInfo("Use 'modwatch setup --force' to replace it or 'modwatch config edit' to change it.")
		return nil
	}
	if err != nil {
		return err
	}

	printInfo("%s %s", successStyle.Render("Created config file:"), path)
	printInfo("Next steps:")
	printInfo("  1. Set remote.host, remote.username, remote.password and remote.path")
	printInfo("  2. Set notify.discord_webhook_url")
	printInfo("  3. Run 'modwatch test' to check both")
	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if c.File != "" {
		fmt.Printf("Config file: %s\n\n", c.File)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("remote.protocol:            %s\n", c.Remote.Protocol)
	fmt.Printf("remote.host:                %s\n", c.Remote.Host)
	fmt.Printf("remote.port:                %d\n", c.Remote.Port)
	fmt.Printf("remote.username:            %s\n", c.Remote.Username)
	fmt.Printf("remote.password:            %s\n", redact(c.Remote.Password))
	fmt.Printf("remote.path:                %s\n", c.Remote.Path)
	fmt.Printf("remote.known_hosts:         %s\n", c.Remote.KnownHosts)
	fmt.Printf("remote.timeout:             %s\n", c.Remote.Timeout)
	if c.Remote.S3.Bucket != "" {
		fmt.Printf("remote.s3.bucket:           %s\n", c.Remote.S3.Bucket)
		fmt.Printf("remote.s3.region:           %s\n", c.Remote.S3.Region)
		fmt.Printf("remote.s3.endpoint:         %s\n", c.Remote.S3.Endpoint)
	}
	fmt.Printf("scan.exclude:               %v\n", c.Scan.Exclude)
	fmt.Printf("state.path:                 %s\n", c.State.Path)
	fmt.Printf("notify.discord_webhook_url: %s\n", redact(c.Notify.DiscordWebhookURL))
	fmt.Printf("notify.ntfy_url:            %s\n", c.Notify.NtfyURL)
	fmt.Printf("notify.desktop:             %t\n", c.Notify.Desktop)
	fmt.Printf("notify.title:               %s\n", c.Notify.Title)
	fmt.Printf("watch.schedule:             %s\n", c.Watch.Schedule)
	fmt.Printf("logging.level:              %s\n", c.Logging.Level)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	var overrides []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix+"_") {
			name, value, _ := strings.Cut(kv, "=")
			if strings.Contains(name, "PASSWORD") || strings.Contains(name, "WEBHOOK") {
				value = redact(value)
			}
			overrides = append(overrides, name+"="+value)
		}
	}
	sort.Strings(overrides)
	if len(overrides) == 0 {
		fmt.Println("(none)")
	}
	for _, o := range overrides {
		fmt.Println(o)
	}

	if err := c.Validate(); err != nil {
		fmt.Println()
		fmt.Println(warningStyle.Render(err.Error()))
	}
	return nil
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	path, err := config.WriteDefault(cfgFile, false)
	if err != nil && !errors.Is(err, config.ErrExists) {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", path, editor)

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	fmt.Println(path)

	if _, err := os.Stat(path); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}

// redact hides a secret, keeping a hint of its length.
func redact(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "********"
	default:
		return s[:4] + "…" + "(" + fmt.Sprint(len(s)) + " chars)"
	}
}
