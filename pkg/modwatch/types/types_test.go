package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0.00 B"},
		{512, "512.00 B"},
		{1023, "1023.00 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
		{1024 * 1024 * 1024 * 1024, "1.00 TB"},
		{2048 * 1024 * 1024 * 1024 * 1024, "2048.00 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSize(tt.bytes))
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"10MB", 10 * 1000 * 1000, false},
		{"10MiB", 10 * 1024 * 1024, false},
		{"512", 512, false},
		{"lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallback(t *testing.T) {
	rec := Fallback("FS25_Tractor.zip", 4096)

	assert.Equal(t, ModRecord{
		Title:    "FS25_Tractor",
		Version:  Unknown,
		Author:   Unknown,
		Filesize: 4096,
	}, rec)
}

func TestStemOf(t *testing.T) {
	assert.Equal(t, "ModA", StemOf("ModA.zip"))
	assert.Equal(t, "archive.tar", StemOf("archive.tar.gz"))
	assert.Equal(t, "noext", StemOf("noext"))
}

func TestNormalize(t *testing.T) {
	rec := ModRecord{Title: "  ", Version: "", Author: "Giants", Filesize: 10}.Normalize("ModB.zip")

	assert.Equal(t, "ModB", rec.Title)
	assert.Equal(t, Unknown, rec.Version)
	assert.Equal(t, "Giants", rec.Author)
	assert.Equal(t, int64(10), rec.Filesize)
}

func TestInventory_SetKeepsFirstPosition(t *testing.T) {
	inv := NewInventory()
	inv.Set("b.zip", ModRecord{Title: "B"})
	inv.Set("a.zip", ModRecord{Title: "A"})
	inv.Set("b.zip", ModRecord{Title: "B2"})

	assert.Equal(t, []string{"b.zip", "a.zip"}, inv.Names())
	rec, ok := inv.Get("b.zip")
	require.True(t, ok)
	assert.Equal(t, "B2", rec.Title)
	assert.Equal(t, 2, inv.Len())
}

func TestInventory_ZeroValueAndNil(t *testing.T) {
	var nilInv *Inventory
	assert.Equal(t, 0, nilInv.Len())
	assert.False(t, nilInv.Has("x"))
	assert.Equal(t, int64(0), nilInv.TotalSize())

	var inv Inventory
	inv.Set("x.zip", ModRecord{Filesize: 3})
	assert.True(t, inv.Has("x.zip"))
}

func TestInventory_TotalSize(t *testing.T) {
	inv := NewInventory()
	inv.Set("a.zip", ModRecord{Filesize: 1000})
	inv.Set("b.zip", ModRecord{Filesize: 24})

	assert.Equal(t, int64(1024), inv.TotalSize())
}

func TestInventory_CloneIsIndependent(t *testing.T) {
	inv := NewInventory()
	inv.Set("a.zip", ModRecord{Title: "A"})

	clone := inv.Clone()
	clone.Set("b.zip", ModRecord{Title: "B"})

	assert.Equal(t, 1, inv.Len())
	assert.Equal(t, 2, clone.Len())
	assert.False(t, inv.Equal(clone))
}

func TestInventory_JSONPreservesOrder(t *testing.T) {
	inv := NewInventory()
	inv.Set("zeta.zip", ModRecord{Title: "Z", Version: "1.0", Author: "X", Filesize: 1})
	inv.Set("alpha.zip", ModRecord{Title: "A", Version: Unknown, Author: Unknown, Filesize: 2})
	inv.Set("mid.zip", ModRecord{Title: "M", Version: "2", Author: "Y", Filesize: 3})

	data, err := json.Marshal(inv)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"zeta.zip": {"title":"Z","version":"1.0","author":"X","filesize":1},
		"alpha.zip": {"title":"A","version":"Unknown","author":"Unknown","filesize":2},
		"mid.zip": {"title":"M","version":"2","author":"Y","filesize":3}
	}`, string(data))

	decoded := NewInventory()
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.True(t, inv.Equal(decoded))
	assert.Equal(t, []string{"zeta.zip", "alpha.zip", "mid.zip"}, decoded.Names())
}

func TestInventory_UnmarshalEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{name: "empty object", input: `{}`, wantLen: 0},
		{name: "null", input: `null`, wantLen: 0},
		{name: "array", input: `[]`, wantErr: true},
		{name: "non-object record", input: `{"a.zip": 5}`, wantErr: true},
		{name: "truncated", input: `{"a.zip": {"title": "A"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInventory()
			err := json.Unmarshal([]byte(tt.input), inv)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, inv.Len())
		})
	}
}
