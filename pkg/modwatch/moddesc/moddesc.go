// Package moddesc extracts mod metadata from the modDesc.xml descriptor
// embedded in a mod archive.
//
// Extract never fails: archives that are not zips, lack a descriptor, or
// carry malformed XML degrade to a fallback record and a logged warning.
package moddesc

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

// DescriptorName is the descriptor file every mod archive is expected to carry.
const DescriptorName = "modDesc.xml"

// MaxDescriptorSize caps how much of a descriptor is decompressed. Real
// descriptors are a few kilobytes.
const MaxDescriptorSize = 4 << 20

var logger = logging.Get("moddesc")

var (
	// ErrNotArchive is returned when the bytes are not a readable zip.
	ErrNotArchive = errors.New("not a zip archive")

	// ErrNoDescriptor is returned when the archive has no modDesc.xml entry.
	ErrNoDescriptor = errors.New("no " + DescriptorName + " in archive")

	// ErrMalformedDescriptor is returned when the descriptor is not valid XML
	// or is larger than MaxDescriptorSize.
	ErrMalformedDescriptor = errors.New("malformed " + DescriptorName)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extract returns the metadata record for one archive. displayName is the
// archive name used for the title fallback and knownSize is the size from
// the remote listing, which becomes the record's Filesize unchanged.
func Extract(data []byte, displayName string, knownSize int64) types.ModRecord {
	doc, _, err := openDescriptor(data)
	if err != nil {
		logger.Warn("using fallback metadata", "archive", displayName, "reason", err)
		return types.Fallback(displayName, knownSize)
	}
	return recordFrom(doc, displayName, knownSize)
}

func recordFrom(doc *xmlquery.Node, displayName string, knownSize int64) types.ModRecord {
	return types.ModRecord{
		Title:    titleField.resolve(doc, types.StemOf(displayName)),
		Version:  versionField.resolve(doc, types.Unknown),
		Author:   authorField.resolve(doc, types.Unknown),
		Filesize: knownSize,
	}
}

// openDescriptor locates and parses the descriptor, returning the parsed
// document and the entry path it came from.
func openDescriptor(data []byte) (*xmlquery.Node, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNotArchive, err)
	}

	entry := findDescriptor(zr.File)
	if entry == nil {
		return nil, "", ErrNoDescriptor
	}

	raw, err := readEntry(entry)
	if err != nil {
		return nil, entry.Name, fmt.Errorf("reading %s: %w", entry.Name, err)
	}
	if len(raw) > MaxDescriptorSize {
		return nil, entry.Name, fmt.Errorf("%w: %s exceeds %d bytes", ErrMalformedDescriptor, entry.Name, MaxDescriptorSize)
	}

	doc, err := parseDescriptor(raw)
	if err != nil {
		return nil, entry.Name, err
	}
	return doc, entry.Name, nil
}

// findDescriptor returns the first entry, in archive order, whose name ends
// with modDesc.xml regardless of case.
func findDescriptor(files []*zip.File) *zip.File {
	suffix := strings.ToLower(DescriptorName)
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f.Name), suffix) {
			return f
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// One byte past the cap is enough to tell an oversized entry apart.
	return io.ReadAll(io.LimitReader(rc, MaxDescriptorSize+1))
}

func parseDescriptor(raw []byte) (*xmlquery.Node, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	doc, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDescriptor, err)
	}
	if rootElement(doc) == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDescriptor)
	}
	return doc, nil
}

// rootElement returns the document element of doc.
func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}
