package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/modwatch/cmd/modwatch/tui"
	"github.com/jamesainslie/modwatch/pkg/modwatch/config"
	"github.com/jamesainslie/modwatch/pkg/modwatch/monitor"
	"github.com/jamesainslie/modwatch/pkg/modwatch/notify"
	"github.com/jamesainslie/modwatch/pkg/modwatch/output"
	"github.com/jamesainslie/modwatch/pkg/modwatch/scanner"
	"github.com/jamesainslie/modwatch/pkg/modwatch/transport"
)

var (
	dryRun       bool
	outputFormat string
	noProgress   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check the server once and report changes",
	Long: `Run connects to the server, reads every mod archive, compares the result
with the saved snapshot, sends a notification when something changed and
saves the new snapshot.

A failed notification is reported as a warning; the snapshot is still saved
so the same changes are not sent twice.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show changes without notifying or saving")
	runCmd.Flags().StringVarP(&outputFormat, "output", "o", "pretty", "output format: pretty, plain, json, yaml")
	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress spinner")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	formatter, err := output.Get(outputFormat)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", outputFormat, output.Available())
	}

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	deliverer := notify.FromChannels(c.Channels())
	source := describeSource(c)

	var rep *monitor.Report
	run := func(progress func(scanner.Progress)) error {
		m, err := newMonitor(c, deliverer, dryRun, progress)
		if err != nil {
			return err
		}
		rep, err = m.Run(ctx)
		return err
	}

	if showProgress() {
		err = tui.Run(ctx, os.Stderr, source, run)
	} else {
		printVerbose("Checking %s", source)
		err = run(nil)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, output.FromReport(rep, source, deliverer.Name())); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())

	if rep.DeliveryErr != nil {
		fmt.Fprintln(os.Stderr, warningStyle.Render("Warning: notification failed: "+rep.DeliveryErr.Error()))
	}
	return nil
}

// newMonitor builds a monitor from the configuration.
func newMonitor(c *config.Config, d notify.Deliverer, dry bool, progress func(scanner.Progress)) (*monitor.Monitor, error) {
	remote, err := c.TransportOptions()
	if err != nil {
		return nil, err
	}
	return monitor.New(monitor.Options{
		Remote:    remote,
		RemoteDir: c.Remote.Path,
		Exclude:   c.Scan.Exclude,
		StatePath: c.State.Path,
		Title:     c.Notify.Title,
		DryRun:    dry,
	}, monitor.Dependencies{
		Deliverer: d,
		Progress:  progress,
	}), nil
}

// showProgress reports whether the spinner should be drawn.
func showProgress() bool {
	if noProgress || quiet || verbose || outputFormat != "pretty" {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// describeSource renders the configured remote as a URL-like string for
// display. Credentials are never included.
func describeSource(c *config.Config) string {
	proto, err := transport.ParseProtocol(c.Remote.Protocol)
	if err != nil {
		return c.Remote.Protocol
	}

	switch proto {
	case transport.Local:
		return "local:" + c.Remote.Path
	case transport.S3:
		return "s3://" + c.Remote.S3.Bucket + "/" + strings.TrimLeft(c.Remote.Path, "/")
	}

	host := c.Remote.Host
	if c.Remote.Port != 0 {
		host = net.JoinHostPort(host, strconv.Itoa(c.Remote.Port))
	}
	if c.Remote.Username != "" {
		host = c.Remote.Username + "@" + host
	}
	return string(proto) + "://" + host + "/" + strings.TrimLeft(c.Remote.Path, "/")
}

// withSignals returns a context cancelled on interrupt.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
