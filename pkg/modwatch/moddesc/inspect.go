package moddesc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/antchfx/xmlquery"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

// Details is a diagnostic view of one archive's descriptor, used when
// checking a mod by hand. Unlike Extract, Inspect reports failures.
type Details struct {
	// Archive is the display name of the inspected archive.
	Archive string `json:"archive" yaml:"archive"`

	// Entries is the number of entries in the zip.
	Entries int `json:"entries" yaml:"entries"`

	// DescriptorPath is the zip entry the descriptor was read from.
	DescriptorPath string `json:"descriptor_path" yaml:"descriptor_path"`

	// Record is exactly what Extract produces for this archive.
	Record types.ModRecord `json:"record" yaml:"record"`

	// ElementVersion is the <version> element, when present. It is shown
	// for reference only; the record version always comes from descVersion.
	ElementVersion string `json:"element_version,omitempty" yaml:"element_version,omitempty"`

	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	IconFilename string `json:"icon_filename,omitempty" yaml:"icon_filename,omitempty"`

	// Multiplayer is the supported attribute of <multiplayer>, if any.
	Multiplayer string `json:"multiplayer,omitempty" yaml:"multiplayer,omitempty"`

	// StoreItems counts <storeItem> elements.
	StoreItems int `json:"store_items" yaml:"store_items"`
}

var (
	descriptionField = field{textOf("//description/en"), ownTextOf("//description")}
	elementVersion   = field{textOf("/*/version")}
	iconField        = field{textOf("//iconFilename")}
)

// Inspect parses the archive and returns its descriptor details.
func Inspect(data []byte, displayName string, knownSize int64) (*Details, error) {
	doc, path, err := openDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", displayName, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", displayName, err)
	}

	d := &Details{
		Archive:        displayName,
		Entries:        len(zr.File),
		DescriptorPath: path,
		Record:         recordFrom(doc, displayName, knownSize),
		ElementVersion: elementVersion.resolve(doc, ""),
		Description:    descriptionField.resolve(doc, ""),
		IconFilename:   iconField.resolve(doc, ""),
		StoreItems:     len(xmlquery.Find(doc, "//storeItem")),
	}

	if mp := xmlquery.FindOne(doc, "//multiplayer"); mp != nil {
		d.Multiplayer = mp.SelectAttr("supported")
	}

	return d, nil
}

// InspectFile reads a local archive and inspects it.
func InspectFile(path string) (*Details, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return Inspect(data, filepath.Base(path), int64(len(data)))
}
