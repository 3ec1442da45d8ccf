package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/modwatch/pkg/modwatch/config"
	"github.com/jamesainslie/modwatch/pkg/modwatch/diff"
	"github.com/jamesainslie/modwatch/pkg/modwatch/moddesc"
	"github.com/jamesainslie/modwatch/pkg/modwatch/notify"
	"github.com/jamesainslie/modwatch/pkg/modwatch/output"
	"github.com/jamesainslie/modwatch/pkg/modwatch/scanner"
	"github.com/jamesainslie/modwatch/pkg/modwatch/transport"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

var testModFormat string

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Check the server connection and notification channels",
	Long:  `Run test-ftp and then test-discord.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteErr := runTestRemote(cmd, args)
		if remoteErr != nil {
			printError("%v", remoteErr)
		}
		notifyErr := runTestNotify(cmd, args)
		if notifyErr != nil {
			printError("%v", notifyErr)
		}
		if remoteErr != nil || notifyErr != nil {
			return errors.New("one or more checks failed")
		}
		return nil
	},
}

var testRemoteCmd = &cobra.Command{
	Use:     "test-ftp",
	Aliases: []string{"test-remote"},
	Short:   "Check the server connection",
	Long: `Connect to the configured server (trying SFTP, then FTPS, then FTP when
remote.protocol is auto), list remote.path and report what was found.`,
	Args: cobra.NoArgs,
	RunE: runTestRemote,
}

var testNotifyCmd = &cobra.Command{
	Use:     "test-discord",
	Aliases: []string{"test-notify"},
	Short:   "Send a test notification",
	Long: `Send a plain text message and a sample change notification to every
configured channel.`,
	Args: cobra.NoArgs,
	RunE: runTestNotify,
}

var testModCmd = &cobra.Command{
	Use:   "test-mod <file|dir>",
	Short: "Show what modwatch reads from local mod archives",
	Long: `Inspect a mod archive, or every .zip below a directory, and print the
metadata modwatch would record for it. Unreadable archives are reported
instead of falling back silently.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationLenientConfig: "true"},
	RunE:        runTestMod,
}

func init() {
	testModCmd.Flags().StringVarP(&testModFormat, "output", "o", "pretty", "output format: pretty, json, yaml")

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(testRemoteCmd)
	rootCmd.AddCommand(testNotifyCmd)
	rootCmd.AddCommand(testModCmd)
}

func runTestRemote(cmd *cobra.Command, _ []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	opts, err := c.TransportOptions()
	if err != nil {
		return err
	}

	printInfo("Connecting to %s...", describeSource(c))
	start := time.Now()
	conn, proto, err := transport.Dial(ctx, opts)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	entries, err := conn.List(ctx, c.Remote.Path)
	if err != nil {
		return fmt.Errorf("listing %s failed: %w", c.Remote.Path, err)
	}

	filter, err := scanner.NewFilter(c.Scan.Exclude...)
	if err != nil {
		return err
	}

	var archives int
	var total int64
	for _, e := range entries {
		if filter.Match(e) {
			archives++
			total += e.Size
		}
	}

	printInfo("%s connected via %s in %s", successStyle.Render("✓"), proto, time.Since(start).Round(time.Millisecond))
	printInfo("  %d mod archives in %s (%s)", archives, c.Remote.Path, types.FormatSize(total))
	if skipped := len(entries) - archives; skipped > 0 {
		printVerbose("%d other entries ignored", skipped)
	}
	return nil
}

func runTestNotify(cmd *cobra.Command, _ []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	channels := deliverers(notify.FromChannels(c.Channels()))
	if len(channels) == 0 {
		return errors.New("no notification channel configured; set notify.discord_webhook_url, notify.ntfy_url or notify.desktop")
	}

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	msg := sampleMessage(c, time.Now())
	var failed []string
	for _, d := range channels {
		if err := sendTest(ctx, d, msg); err != nil {
			printError("%s: %v", d.Name(), err)
			failed = append(failed, d.Name())
			continue
		}
		printInfo("%s test notification sent via %s", successStyle.Render("✓"), d.Name())
	}

	if len(failed) > 0 {
		return fmt.Errorf("test notification failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

// deliverers flattens the configured deliverer into its channels.
func deliverers(d notify.Deliverer) []notify.Deliverer {
	switch v := d.(type) {
	case notify.Noop:
		return nil
	case notify.Multi:
		return v
	default:
		return []notify.Deliverer{d}
	}
}

// textSender is implemented by channels that can post plain text.
type textSender interface {
	SendText(ctx context.Context, text string) (notify.Result, error)
}

func sendTest(ctx context.Context, d notify.Deliverer, msg notify.Message) error {
	if ts, ok := d.(textSender); ok {
		if _, err := ts.SendText(ctx, "🧪 modwatch test message: notifications are working."); err != nil {
			return err
		}
	}
	_, err := d.Deliver(ctx, msg)
	return err
}

// sampleMessage builds a notification showing one of each change kind.
func sampleMessage(c *config.Config, now time.Time) notify.Message {
	current := types.NewInventory()
	added := types.ModRecord{Title: "Sample Tractor", Version: "1.0.0.0", Author: "modwatch", Filesize: 12 * 1024 * 1024}
	updated := types.ModRecord{Title: "Sample Trailer", Version: "1.2.0.0", Author: "modwatch", Filesize: 3 * 1024 * 1024}
	current.Set("FS25_SampleTractor.zip", added)
	current.Set("FS25_SampleTrailer.zip", updated)

	changes := []diff.Change{
		{Kind: diff.Added, Name: "FS25_SampleTractor.zip", Record: added},
		{Kind: diff.Updated, Name: "FS25_SampleTrailer.zip", Record: updated, PreviousVersion: "1.1.0.0"},
		{Kind: diff.Removed, Name: "FS25_SampleSilo.zip", Record: types.Fallback("FS25_SampleSilo.zip", 512*1024)},
	}

	title := c.Notify.Title
	if title == "" {
		title = notify.DefaultTitle
	}
	return notify.Build(changes, current, notify.BuildOptions{
		Title: title + " (test)",
		Now:   now,
	})
}

// inspection is the test-mod result for one archive.
type inspection struct {
	Path    string           `json:"path" yaml:"path"`
	Details *moddesc.Details `json:"details,omitempty" yaml:"details,omitempty"`
	Error   string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func runTestMod(cmd *cobra.Command, args []string) error {
	target, err := config.ExpandPath(args[0])
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", target, err)
	}

	paths := []string{target}
	if info.IsDir() {
		ctx, stop := withSignals(cmd.Context())
		defer stop()
		if paths, err = findArchives(ctx, target); err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no .zip archives found under %s", target)
		}
	}

	results := inspectAll(paths)

	if testModFormat != "pretty" && testModFormat != "" {
		return writeStructured(os.Stdout, testModFormat, results)
	}
	fmt.Print(renderInspections(results))

	for _, r := range results {
		if r.Error != "" {
			return errors.New("some archives could not be read")
		}
	}
	return nil
}

// findArchives walks root and returns every .zip file below it, sorted.
func findArchives(ctx context.Context, root string) ([]string, error) {
	var (
		mu    sync.Mutex
		paths []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			cliLogger.Debug("skipping unreadable entry", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), scanner.ArchiveExt) {
			return nil
		}

		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

func inspectAll(paths []string) []inspection {
	results := make([]inspection, 0, len(paths))
	for _, p := range paths {
		d, err := moddesc.InspectFile(p)
		r := inspection{Path: p, Details: d}
		if err != nil {
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}

func renderInspections(results []inspection) string {
	var rows [][]string
	var problems []string
	for _, r := range results {
		if r.Details == nil {
			problems = append(problems, fmt.Sprintf("%s: %s", filepath.Base(r.Path), r.Error))
			continue
		}
		rec := r.Details.Record
		mp := r.Details.Multiplayer
		if mp == "" {
			mp = "-"
		}
		rows = append(rows, []string{
			r.Details.Archive,
			rec.Title,
			rec.Version,
			rec.Author,
			types.FormatSize(rec.Filesize),
			r.Details.DescriptorPath,
			mp,
		})
	}

	var sb strings.Builder
	if len(rows) > 0 {
		sb.WriteString(output.RenderTable(
			[]string{"ARCHIVE", "TITLE", "VERSION", "AUTHOR", "SIZE", "DESCRIPTOR", "MULTIPLAYER"},
			rows,
			[]output.Alignment{
				output.AlignLeft, output.AlignLeft, output.AlignLeft, output.AlignLeft,
				output.AlignRight, output.AlignLeft, output.AlignLeft,
			},
		))
		sb.WriteString("\n")
	}
	for _, p := range problems {
		sb.WriteString(errorStyle.Render("✗ " + p))
		sb.WriteString("\n")
	}
	if verbose {
		for _, r := range results {
			if r.Details != nil && r.Details.Description != "" {
				fmt.Fprintf(&sb, "\n%s\n  %s\n", r.Details.Archive, strings.TrimSpace(r.Details.Description))
			}
		}
	}
	return sb.String()
}

// writeStructured encodes v as json or yaml.
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q: available formats are [json pretty yaml]", format)
	}
}
