// Package output provides formatters for displaying modwatch run results
// in various output formats (pretty, plain, json, yaml).
//
// The package uses a registry pattern so formatters can be selected by name
// at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/modwatch/pkg/modwatch/monitor"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

// Change is one reported difference, flattened for display.
type Change struct {
	Kind            string `json:"kind" yaml:"kind"`
	Name            string `json:"name" yaml:"name"`
	Title           string `json:"title" yaml:"title"`
	Version         string `json:"version" yaml:"version"`
	PreviousVersion string `json:"previous_version,omitempty" yaml:"previous_version,omitempty"`
	Author          string `json:"author" yaml:"author"`
	Size            int64  `json:"size" yaml:"size"`
	SizeHuman       string `json:"size_human" yaml:"size_human"`
}

// Stats summarizes the scan behind a run.
type Stats struct {
	Listed      int           `json:"listed" yaml:"listed"`
	Archives    int           `json:"archives" yaml:"archives"`
	Skipped     int           `json:"skipped" yaml:"skipped"`
	FetchFailed int           `json:"fetch_failed" yaml:"fetch_failed"`
	Duration    time.Duration `json:"-" yaml:"-"`
}

// Delivery describes what happened to the notification.
type Delivery struct {
	Channel    string `json:"channel" yaml:"channel"`
	Delivered  bool   `json:"delivered" yaml:"delivered"`
	Skipped    bool   `json:"skipped" yaml:"skipped"`
	StatusCode int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result contains the complete output data for one run.
type Result struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Source    string    `json:"source" yaml:"source"`
	Protocol  string    `json:"protocol" yaml:"protocol"`
	Started   time.Time `json:"started" yaml:"started"`
	DryRun    bool      `json:"dry_run" yaml:"dry_run"`
	Saved     bool      `json:"saved" yaml:"saved"`
	Changes   []Change  `json:"changes" yaml:"changes"`
	TotalMods int       `json:"total_mods" yaml:"total_mods"`
	TotalSize int64     `json:"total_size" yaml:"total_size"`
	Stats     Stats     `json:"stats" yaml:"stats"`
	Delivery  Delivery  `json:"delivery" yaml:"delivery"`
}

// Counts returns the number of added, updated and removed changes.
func (r *Result) Counts() (added, updated, removed int) {
	for _, c := range r.Changes {
		switch c.Kind {
		case "added":
			added++
		case "updated":
			updated++
		case "removed":
			removed++
		}
	}
	return added, updated, removed
}

// FromReport flattens a run report. source describes where the mods were
// read from and channel names the notification deliverer.
func FromReport(rep *monitor.Report, source, channel string) *Result {
	r := &Result{
		RunID:    rep.RunID,
		Source:   source,
		Protocol: rep.Protocol,
		Started:  rep.Started,
		DryRun:   rep.DryRun,
		Saved:    rep.Saved,
		Changes:  make([]Change, 0, len(rep.Changes)),
		Stats: Stats{
			Listed:      rep.ScanStats.Listed,
			Archives:    rep.ScanStats.Archives,
			Skipped:     rep.ScanStats.Skipped,
			FetchFailed: rep.ScanStats.FetchFailed,
			Duration:    rep.Duration(),
		},
		Delivery: Delivery{
			Channel:    channel,
			Delivered:  rep.Delivery.Delivered,
			Skipped:    rep.Delivery.Skipped,
			StatusCode: rep.Delivery.StatusCode,
		},
	}
	if rep.DeliveryErr != nil {
		r.Delivery.Error = rep.DeliveryErr.Error()
	}
	if rep.Current != nil {
		r.TotalMods = rep.Current.Len()
		r.TotalSize = rep.Current.TotalSize()
	}

	for _, c := range rep.Changes {
		r.Changes = append(r.Changes, Change{
			Kind:            string(c.Kind),
			Name:            c.Name,
			Title:           c.Record.Title,
			Version:         c.Record.Version,
			PreviousVersion: c.PreviousVersion,
			Author:          c.Record.Author,
			Size:            c.Record.Filesize,
			SizeHuman:       types.FormatSize(c.Record.Filesize),
		})
	}
	return r
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any existing
// formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available lists the formatters in the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
