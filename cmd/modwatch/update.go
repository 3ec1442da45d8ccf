package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yaklabco/stave/pkg/sh"
)

// installPath is the package go install fetches for update.
const installPath = "github.com/jamesainslie/modwatch/cmd/modwatch"

var updateVersion string

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Install the latest modwatch with go install",
	Long: `Update runs 'go install github.com/jamesainslie/modwatch/cmd/modwatch@latest'.
It needs a Go toolchain on PATH; the new binary goes to $GOBIN or $GOPATH/bin.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationLenientConfig: "true"},
	RunE:        runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateVersion, "version", "latest", "version to install")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(_ *cobra.Command, _ []string) error {
	target := installPath + "@" + updateVersion
	printInfo("Installing %s (current: %s)...", target, version)

	if err := sh.RunV("go", "install", target); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	printInfo("%s installed %s", successStyle.Render("✓"), target)
	return nil
}
