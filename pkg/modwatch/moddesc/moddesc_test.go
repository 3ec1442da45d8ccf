package moddesc

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name string
	body string
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const fullDescriptor = `<?xml version="1.0" encoding="utf-8" standalone="no" ?>
<modDesc descVersion="92">
    <author>Giants Software</author>
    <version>1.2.0.0</version>
    <title>
        <en>Big Tractor</en>
        <de>Großer Traktor</de>
    </title>
    <description>
        <en><![CDATA[A very big tractor.]]></en>
    </description>
    <iconFilename>icon_bigTractor.dds</iconFilename>
    <multiplayer supported="true"/>
    <storeItems>
        <storeItem xmlFilename="bigTractor.xml"/>
        <storeItem xmlFilename="bigTrailer.xml"/>
    </storeItems>
</modDesc>`

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		display string
		want    types.ModRecord
	}{
		{
			name:    "full descriptor",
			data:    buildZip(t, zipEntry{"modDesc.xml", fullDescriptor}),
			display: "FS25_BigTractor.zip",
			want:    types.ModRecord{Title: "Big Tractor", Version: "92", Author: "Giants Software", Filesize: 1000},
		},
		{
			name:    "not a zip",
			data:    []byte("definitely not a zip archive"),
			display: "Broken.zip",
			want:    types.ModRecord{Title: "Broken", Version: types.Unknown, Author: types.Unknown, Filesize: 1000},
		},
		{
			name:    "empty bytes",
			data:    nil,
			display: "Empty.zip",
			want:    types.Fallback("Empty.zip", 1000),
		},
		{
			name:    "no descriptor",
			data:    buildZip(t, zipEntry{"readme.txt", "hello"}),
			display: "NoDesc.zip",
			want:    types.Fallback("NoDesc.zip", 1000),
		},
		{
			name:    "malformed xml",
			data:    buildZip(t, zipEntry{"modDesc.xml", "<modDesc descVersion=><title>oops</title></modDesc>"}),
			display: "Bad.zip",
			want:    types.Fallback("Bad.zip", 1000),
		},
		{
			name:    "text without root element",
			data:    buildZip(t, zipEntry{"modDesc.xml", "just words"}),
			display: "Words.zip",
			want:    types.Fallback("Words.zip", 1000),
		},
		{
			name:    "plain title without language",
			data:    buildZip(t, zipEntry{"modDesc.xml", `<modDesc descVersion="80"><title> Plain Title </title><author>Me</author></modDesc>`}),
			display: "Plain.zip",
			want:    types.ModRecord{Title: "Plain Title", Version: "80", Author: "Me", Filesize: 1000},
		},
		{
			name:    "title with only other languages falls back to name",
			data:    buildZip(t, zipEntry{"modDesc.xml", `<modDesc descVersion="80"><title><de>Nur Deutsch</de></title></modDesc>`}),
			display: "German.zip",
			want:    types.ModRecord{Title: "German", Version: "80", Author: types.Unknown, Filesize: 1000},
		},
		{
			name:    "missing fields use sentinels",
			data:    buildZip(t, zipEntry{"modDesc.xml", `<modDesc><author>   </author></modDesc>`}),
			display: "Sparse.zip",
			want:    types.ModRecord{Title: "Sparse", Version: types.Unknown, Author: types.Unknown, Filesize: 1000},
		},
		{
			name:    "version element is not used as version",
			data:    buildZip(t, zipEntry{"modDesc.xml", `<modDesc><version>1.0.0.0</version><title><en>T</en></title></modDesc>`}),
			display: "NoAttr.zip",
			want:    types.ModRecord{Title: "T", Version: types.Unknown, Author: types.Unknown, Filesize: 1000},
		},
		{
			name: "descriptor match is case-insensitive and nested",
			data: buildZip(t,
				zipEntry{"icon.dds", "binary"},
				zipEntry{"FS25_Mod/MODDESC.XML", `<modDesc descVersion="1"><title><en>Nested</en></title></modDesc>`},
			),
			display: "Nested.zip",
			want:    types.ModRecord{Title: "Nested", Version: "1", Author: types.Unknown, Filesize: 1000},
		},
		{
			name: "first descriptor in archive order wins",
			data: buildZip(t,
				zipEntry{"a/modDesc.xml", `<modDesc descVersion="1"><title><en>First</en></title></modDesc>`},
				zipEntry{"modDesc.xml", `<modDesc descVersion="2"><title><en>Second</en></title></modDesc>`},
			),
			display: "Twice.zip",
			want:    types.ModRecord{Title: "First", Version: "1", Author: types.Unknown, Filesize: 1000},
		},
		{
			name:    "byte order mark is tolerated",
			data:    buildZip(t, zipEntry{"modDesc.xml", "\xEF\xBB\xBF" + `<modDesc descVersion="5"><author>BOM</author></modDesc>`}),
			display: "Bom.zip",
			want:    types.ModRecord{Title: "Bom", Version: "5", Author: "BOM", Filesize: 1000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.data, tt.display, 1000)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_FilesizeIsKnownSize(t *testing.T) {
	data := buildZip(t, zipEntry{"modDesc.xml", fullDescriptor})

	rec := Extract(data, "Mod.zip", 123456789)
	assert.Equal(t, int64(123456789), rec.Filesize)
}

func TestExtract_OversizedDescriptorFallsBack(t *testing.T) {
	// Compresses to a few kilobytes but inflates past the cap.
	padding := strings.Repeat(" ", MaxDescriptorSize)
	data := buildZip(t, zipEntry{"modDesc.xml", `<modDesc descVersion="92"><author>A</author>` + padding + `</modDesc>`})
	require.Less(t, len(data), 1<<20)

	rec := Extract(data, "FS25_Bomb.zip", 77)
	assert.Equal(t, types.Fallback("FS25_Bomb.zip", 77), rec)

	_, err := Inspect(data, "FS25_Bomb.zip", 77)
	require.ErrorIs(t, err, ErrMalformedDescriptor)
}

func TestInspect(t *testing.T) {
	data := buildZip(t,
		zipEntry{"icon_bigTractor.dds", "dds"},
		zipEntry{"modDesc.xml", fullDescriptor},
	)

	d, err := Inspect(data, "FS25_BigTractor.zip", int64(len(data)))
	require.NoError(t, err)

	assert.Equal(t, "FS25_BigTractor.zip", d.Archive)
	assert.Equal(t, 2, d.Entries)
	assert.Equal(t, "modDesc.xml", d.DescriptorPath)
	assert.Equal(t, "Big Tractor", d.Record.Title)
	assert.Equal(t, "92", d.Record.Version)
	assert.Equal(t, "1.2.0.0", d.ElementVersion)
	assert.Equal(t, "A very big tractor.", d.Description)
	assert.Equal(t, "icon_bigTractor.dds", d.IconFilename)
	assert.Equal(t, "true", d.Multiplayer)
	assert.Equal(t, 2, d.StoreItems)
}

func TestInspect_ReportsErrors(t *testing.T) {
	_, err := Inspect([]byte("nope"), "x.zip", 4)
	require.ErrorIs(t, err, ErrNotArchive)

	_, err = Inspect(buildZip(t, zipEntry{"a.txt", "a"}), "y.zip", 4)
	require.ErrorIs(t, err, ErrNoDescriptor)

	_, err = Inspect(buildZip(t, zipEntry{"modDesc.xml", "<modDesc descVersion=></modDesc>"}), "z.zip", 4)
	require.ErrorIs(t, err, ErrMalformedDescriptor)
}

func TestInspectFile(t *testing.T) {
	data := buildZip(t, zipEntry{"modDesc.xml", fullDescriptor})
	path := filepath.Join(t.TempDir(), "FS25_BigTractor.zip")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	d, err := InspectFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FS25_BigTractor.zip", d.Archive)
	assert.Equal(t, int64(len(data)), d.Record.Filesize)

	_, err = InspectFile(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)
}
