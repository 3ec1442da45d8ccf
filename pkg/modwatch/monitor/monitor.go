// Package monitor runs one poll cycle: connect, scan, compare with the
// saved snapshot, notify and persist.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/modwatch/pkg/modwatch/diff"
	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/notify"
	"github.com/jamesainslie/modwatch/pkg/modwatch/scanner"
	"github.com/jamesainslie/modwatch/pkg/modwatch/snapshot"
	"github.com/jamesainslie/modwatch/pkg/modwatch/transport"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

var logger = logging.Get("monitor")

var (
	// ErrTransport marks failures to connect to or list the remote directory.
	ErrTransport = errors.New("remote access failed")

	// ErrSave marks a failure to persist the new snapshot.
	ErrSave = errors.New("saving snapshot failed")
)

// DialFunc connects to the remote server.
type DialFunc func(ctx context.Context, opts transport.Options) (transport.Transport, transport.Protocol, error)

// Options is the per-run configuration.
type Options struct {
	Remote    transport.Options
	RemoteDir string
	Exclude   []string
	StatePath string
	Title     string
	DryRun    bool
}

// Dependencies are the collaborators a Monitor calls out to. Zero fields
// get production defaults.
type Dependencies struct {
	Dial      DialFunc
	Deliverer notify.Deliverer
	Progress  func(scanner.Progress)
	Now       func() time.Time
}

// Report describes one run.
type Report struct {
	RunID       string           `json:"run_id" yaml:"run_id"`
	Protocol    string           `json:"protocol" yaml:"protocol"`
	Started     time.Time        `json:"started" yaml:"started"`
	Finished    time.Time        `json:"finished" yaml:"finished"`
	Previous    *types.Inventory `json:"-" yaml:"-"`
	Current     *types.Inventory `json:"current" yaml:"-"`
	Changes     []diff.Change    `json:"changes" yaml:"changes"`
	Delivery    notify.Result    `json:"delivery" yaml:"delivery"`
	DeliveryErr error            `json:"-" yaml:"-"`
	DryRun      bool             `json:"dry_run" yaml:"dry_run"`
	Saved       bool             `json:"saved" yaml:"saved"`
	ScanStats   scanner.Stats    `json:"scan" yaml:"scan"`
}

// Summary counts the report's changes by kind.
func (r *Report) Summary() diff.Summary {
	return diff.Summarize(r.Changes)
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Monitor executes poll cycles.
type Monitor struct {
	opts  Options
	deps  Dependencies
	store *snapshot.Store
}

// New returns a monitor for opts.
func New(opts Options, deps Dependencies) *Monitor {
	if deps.Dial == nil {
		deps.Dial = transport.Dial
	}
	if deps.Deliverer == nil {
		deps.Deliverer = notify.Noop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.RemoteDir == "" {
		opts.RemoteDir = "/"
	}
	return &Monitor{
		opts:  opts,
		deps:  deps,
		store: snapshot.New(opts.StatePath),
	}
}

// Store returns the snapshot store the monitor reads and writes.
func (m *Monitor) Store() *snapshot.Store {
	return m.store
}

// Run performs one cycle.
//
// Failing to connect or list the remote directory aborts the run before
// anything is delivered or saved, so the previous snapshot stays intact. A
// delivery failure is recorded on the report and the snapshot is still
// saved. A save failure is returned as an error together with the report.
func (m *Monitor) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{
		RunID:   uuid.NewString(),
		Started: m.deps.Now(),
		DryRun:  m.opts.DryRun,
	}
	log := logger.With("run", report.RunID)
	defer func() {
		report.Finished = m.deps.Now()
	}()

	lock, err := m.store.Lock()
	if err != nil {
		return report, err
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			log.Warn("releasing run lock", "error", uerr)
		}
	}()

	log.Info("starting check", "host", m.opts.Remote.Host, "dir", m.opts.RemoteDir, "dry_run", m.opts.DryRun)

	conn, proto, err := m.deps.Dial(ctx, m.opts.Remote)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	report.Protocol = string(proto)
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Debug("closing transport", "error", cerr)
		}
	}()

	scanOpts := []scanner.Option{scanner.WithExclude(m.opts.Exclude...)}
	if m.deps.Progress != nil {
		scanOpts = append(scanOpts, scanner.WithProgress(m.deps.Progress))
	}
	sc, err := scanner.New(m.opts.RemoteDir, scanOpts...)
	if err != nil {
		return report, err
	}

	current, err := sc.Scan(ctx, conn)
	report.ScanStats = sc.Stats()
	if err != nil {
		if errors.Is(err, scanner.ErrListFailed) {
			return report, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return report, err
	}
	report.Current = current

	previous := m.store.Load()
	report.Previous = previous

	report.Changes = diff.Compute(previous, current)
	summary := report.Summary()
	log.Info("scan complete",
		"protocol", proto,
		"mods", current.Len(),
		"added", summary.Added,
		"updated", summary.Updated,
		"removed", summary.Removed,
	)

	if m.opts.DryRun {
		log.Info("dry run, skipping notification and save")
		return report, nil
	}

	report.Delivery, report.DeliveryErr = notify.Notify(ctx, report.Changes, current, m.deps.Deliverer, notify.BuildOptions{
		Title: m.opts.Title,
		Now:   m.deps.Now(),
	})
	if report.DeliveryErr != nil {
		log.Error("notification failed, snapshot will still be saved", "error", report.DeliveryErr)
	}

	if err := m.store.Save(current); err != nil {
		return report, fmt.Errorf("%w: %w", ErrSave, err)
	}
	report.Saved = true

	return report, nil
}
