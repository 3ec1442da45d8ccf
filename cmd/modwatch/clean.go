package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/modwatch/pkg/modwatch/config"
	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/snapshot"
)

var cleanState bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove log files and leftover temporary files",
	Long: `Remove the log file, its rotated copies and any temporary snapshot files
left by an interrupted run. --state also deletes the snapshot, so the next run
reports every mod as new.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationLenientConfig: "true"},
	RunE:        runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanState, "state", false, "also delete the saved snapshot")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(_ *cobra.Command, _ []string) error {
	statePath := config.DefaultStatePath()
	if cfg != nil {
		statePath = cfg.State.Path
	}

	// The log file is open for this command; release it before deleting.
	_ = logging.Close()

	removed, err := cleanFiles(logPath(cfg), snapshot.New(statePath), cleanState)
	for _, p := range removed {
		printVerbose("removed %s", p)
	}
	if err != nil {
		return err
	}

	printInfo("%s removed %d file(s)", successStyle.Render("✓"), len(removed))
	return nil
}

// cleanFiles removes the log and its rotations, stale snapshot temp files
// and, when withState is set, the snapshot itself. It returns what it
// removed, stopping at the first failure. With withState it refuses to touch
// anything while a check holds the run lock, since that check would write
// the snapshot back.
func cleanFiles(logFile string, store *snapshot.Store, withState bool) ([]string, error) {
	var (
		removed []string
		hadLock bool
		unlock  func() error
	)

	if withState {
		_, err := os.Stat(store.LockPath())
		hadLock = err == nil

		lock, err := store.Lock()
		if err != nil {
			return nil, fmt.Errorf("snapshot not removed: %w", err)
		}
		unlock = lock.Unlock
		defer func() {
			if unlock != nil {
				_ = unlock()
			}
		}()
	}

	rotated, err := logging.RotatedFiles(logFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return removed, fmt.Errorf("listing rotated logs: %w", err)
	}
	for _, p := range append(rotated, logFile) {
		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("removing %s: %w", p, err)
		}
		removed = append(removed, p)
	}

	temps, err := store.CleanTemp()
	removed = append(removed, temps...)
	if err != nil {
		return removed, err
	}

	if withState {
		info, err := store.Stat()
		if err != nil {
			return removed, err
		}
		if err := store.Remove(); err != nil {
			return removed, err
		}
		if info.Exists {
			removed = append(removed, store.Path())
		}

		err = unlock()
		unlock = nil
		if err != nil {
			return removed, fmt.Errorf("releasing run lock: %w", err)
		}
		if err := os.Remove(store.LockPath()); err == nil && hadLock {
			removed = append(removed, store.LockPath())
		}
	}

	return removed, nil
}
