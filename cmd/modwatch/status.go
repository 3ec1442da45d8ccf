package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/modwatch/pkg/modwatch/config"
	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/notify"
	"github.com/jamesainslie/modwatch/pkg/modwatch/output"
	"github.com/jamesainslie/modwatch/pkg/modwatch/snapshot"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

var statusMods bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and snapshot status",
	Long: `Show where modwatch reads its configuration, which server and channels
it uses, and what the saved snapshot contains. --mods lists every tracked mod.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusMods, "mods", "m", false, "list the mods in the snapshot")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	if cfg == nil {
		return errors.New("no configuration loaded; run 'modwatch setup' first")
	}

	store := snapshot.New(cfg.State.Path)
	info, err := store.Stat()
	if err != nil {
		return err
	}

	fmt.Println(renderStatus(cfg, info, runInProgress(store)))

	if statusMods && info.Valid {
		fmt.Println(output.ModTable(store.Load()))
	}
	return nil
}

func renderStatus(c *config.Config, info snapshot.Info, running bool) string {
	line := func(label, value string) string {
		return fmt.Sprintf("%s %s", output.LabelStyle.Render(fmt.Sprintf("%-10s", label)), output.ValueStyle.Render(value))
	}

	cfgFileDesc := c.File
	if cfgFileDesc == "" {
		cfgFileDesc = "(defaults, no file found)"
	}

	var cfgLines []string
	cfgLines = append(cfgLines,
		output.TitleStyle.Render("Configuration"),
		line("File:", cfgFileDesc),
		line("Server:", describeSource(c)),
		line("Notify:", notify.FromChannels(c.Channels()).Name()),
		line("Schedule:", c.Watch.Schedule),
		line("Log:", logPath(c)),
	)
	if err := c.Validate(); err != nil {
		cfgLines = append(cfgLines, output.WarningStyle.Render("Config has problems; run 'modwatch config show'"))
	}

	snapLines := []string{
		output.TitleStyle.Render("Snapshot"),
		line("Path:", info.Path),
	}
	switch {
	case !info.Exists:
		snapLines = append(snapLines, output.MutedStyle.Render("No snapshot yet; the next run reports every mod as new"))
	case !info.Valid:
		snapLines = append(snapLines, output.ErrorStyle.Render("Snapshot is unreadable; the next run starts from empty"))
	default:
		snapLines = append(snapLines,
			line("Updated:", humanize.Time(info.ModTime)),
			line("Mods:", fmt.Sprintf("%d (%s)", info.Mods, types.FormatSize(info.TotalSize))),
		)
	}
	if running {
		snapLines = append(snapLines, output.WarningStyle.Render("A check is running now"))
	}

	return output.HeaderBox.Render(strings.Join(cfgLines, "\n")) + "\n" +
		output.FooterBox.Render(strings.Join(snapLines, "\n"))
}

// runInProgress reports whether another process holds the run lock.
func runInProgress(store *snapshot.Store) bool {
	lock, err := store.Lock()
	if errors.Is(err, snapshot.ErrLocked) {
		return true
	}
	if err == nil {
		_ = lock.Unlock()
	}
	return false
}

// logPath returns the effective log file path.
func logPath(c *config.Config) string {
	if c != nil && c.Logging.Path != "" {
		if p, err := config.ExpandPath(c.Logging.Path); err == nil {
			return p
		}
	}
	return logging.DefaultLogPath()
}
