// Package types provides the core data types shared by the modwatch pipeline:
// the per-archive ModRecord, the ordered Inventory of records keyed by archive
// name, and helpers for formatting and parsing sizes.
package types

import (
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
)

// Unknown is the sentinel used for version and author when the descriptor
// does not provide a value.
const Unknown = "Unknown"

// ModRecord is the metadata observed for one mod archive.
// Every field is always populated; missing values are represented by
// sentinels, never by empty strings.
type ModRecord struct {
	// Title is the human-readable mod name.
	Title string `json:"title" yaml:"title"`

	// Version is the descriptor's descVersion attribute, or Unknown.
	Version string `json:"version" yaml:"version"`

	// Author is the descriptor's author text, or Unknown.
	Author string `json:"author" yaml:"author"`

	// Filesize is the archive size in bytes as reported by the remote listing.
	Filesize int64 `json:"filesize" yaml:"filesize"`
}

// Fallback returns the fully degraded record for an archive whose descriptor
// could not be read.
func Fallback(displayName string, size int64) ModRecord {
	return ModRecord{
		Title:    StemOf(displayName),
		Version:  Unknown,
		Author:   Unknown,
		Filesize: size,
	}
}

// StemOf returns name with its final extension removed.
func StemOf(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// Normalize fills empty fields with their sentinels so the record satisfies
// the fully-populated invariant. name is used to derive the title fallback.
func (r ModRecord) Normalize(name string) ModRecord {
	if strings.TrimSpace(r.Title) == "" {
		r.Title = StemOf(name)
	}
	if strings.TrimSpace(r.Version) == "" {
		r.Version = Unknown
	}
	if strings.TrimSpace(r.Author) == "" {
		r.Author = Unknown
	}
	return r
}

// FormatSize renders a byte count the way change reports display it:
// the value is divided by 1024 until it drops below 1024 and printed with
// two decimals, using units B, KB, MB, GB and TB (TB is the cap).
func FormatSize(bytes int64) string {
	size := float64(bytes)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f TB", size)
}

// ParseSize parses a human-readable size string (e.g. "10MB", "512 KiB")
// into bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}
