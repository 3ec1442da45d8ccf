package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/modwatch/pkg/modwatch/config"
	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	// cfg is loaded by initializeLogging before any command runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "modwatch",
		Short: "Report changes to a Farming Simulator 25 server's mod folder",
		Long: `modwatch lists the mod archives on a game server, reads each archive's
modDesc.xml and compares the result with the snapshot from the previous run.
Added, updated and removed mods are sent to Discord (or ntfy, or the desktop).

Examples:
  modwatch setup             # Write a config template to edit
  modwatch test              # Check the server and webhook settings
  modwatch run               # Check once and notify
  modwatch run --dry-run     # Show changes without notifying or saving
  modwatch watch             # Check on the configured schedule
  modwatch status --mods     # Show the tracked mods`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Close()
		},
	}
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC3545")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#28A745"))
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/modwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+fmt.Sprintf(format, args...)))
}
