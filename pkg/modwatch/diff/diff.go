// Package diff classifies the differences between two mod inventories.
package diff

import (
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

// Kind classifies a change.
type Kind string

// Change kinds.
const (
	Added   Kind = "added"
	Removed Kind = "removed"
	Updated Kind = "updated"
)

// Change is one classified difference for a single archive name.
type Change struct {
	Kind Kind   `json:"kind" yaml:"kind"`
	Name string `json:"name" yaml:"name"`

	// Record is the current record for Added and Updated changes and the
	// last known record for Removed changes.
	Record types.ModRecord `json:"record" yaml:"record"`

	// PreviousVersion is set for Updated changes only.
	PreviousVersion string `json:"previous_version,omitempty" yaml:"previous_version,omitempty"`
}

// Compute returns the changes that turn previous into current.
//
// Added and Updated changes come first in current's order, followed by
// Removed changes in previous's order. An entry counts as Updated when its
// version or filesize differs; title and author are not compared. A nil
// inventory is treated as empty.
func Compute(previous, current *types.Inventory) []Change {
	var changes []Change

	for name, cur := range current.All() {
		prev, ok := previous.Get(name)
		switch {
		case !ok:
			changes = append(changes, Change{Kind: Added, Name: name, Record: cur})
		case cur.Version != prev.Version || cur.Filesize != prev.Filesize:
			changes = append(changes, Change{
				Kind:            Updated,
				Name:            name,
				Record:          cur,
				PreviousVersion: prev.Version,
			})
		}
	}

	for name, prev := range previous.All() {
		if !current.Has(name) {
			changes = append(changes, Change{Kind: Removed, Name: name, Record: prev})
		}
	}

	return changes
}

// Summary counts changes by kind.
type Summary struct {
	Added   int `json:"added" yaml:"added"`
	Updated int `json:"updated" yaml:"updated"`
	Removed int `json:"removed" yaml:"removed"`
}

// Total returns the number of changes.
func (s Summary) Total() int {
	return s.Added + s.Updated + s.Removed
}

// Summarize counts changes by kind.
func Summarize(changes []Change) Summary {
	var s Summary
	for _, c := range changes {
		switch c.Kind {
		case Added:
			s.Added++
		case Updated:
			s.Updated++
		case Removed:
			s.Removed++
		}
	}
	return s
}

// HasAdditions reports whether any change is an addition.
func HasAdditions(changes []Change) bool {
	for _, c := range changes {
		if c.Kind == Added {
			return true
		}
	}
	return false
}
