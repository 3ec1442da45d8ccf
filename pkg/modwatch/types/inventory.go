package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidInventory is returned when an inventory document cannot be decoded.
var ErrInvalidInventory = errors.New("invalid inventory document")

// Inventory maps archive names to their records, remembering the order in
// which names were first inserted. Setting an existing name replaces its
// record without moving it.
//
// The zero value is an empty inventory ready to use.
type Inventory struct {
	names   []string
	records map[string]ModRecord
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{records: make(map[string]ModRecord)}
}

// Set stores rec under name.
func (inv *Inventory) Set(name string, rec ModRecord) {
	if inv.records == nil {
		inv.records = make(map[string]ModRecord)
	}
	if _, ok := inv.records[name]; !ok {
		inv.names = append(inv.names, name)
	}
	inv.records[name] = rec
}

// Get returns the record stored under name.
func (inv *Inventory) Get(name string) (ModRecord, bool) {
	if inv == nil {
		return ModRecord{}, false
	}
	rec, ok := inv.records[name]
	return rec, ok
}

// Has reports whether name is present.
func (inv *Inventory) Has(name string) bool {
	_, ok := inv.Get(name)
	return ok
}

// Len returns the number of entries.
func (inv *Inventory) Len() int {
	if inv == nil {
		return 0
	}
	return len(inv.names)
}

// Names returns a copy of the entry names in insertion order.
func (inv *Inventory) Names() []string {
	if inv == nil {
		return nil
	}
	out := make([]string, len(inv.names))
	copy(out, inv.names)
	return out
}

// All iterates over entries in insertion order.
func (inv *Inventory) All() iter.Seq2[string, ModRecord] {
	return func(yield func(string, ModRecord) bool) {
		if inv == nil {
			return
		}
		for _, name := range inv.names {
			if !yield(name, inv.records[name]) {
				return
			}
		}
	}
}

// TotalSize returns the sum of all record file sizes.
func (inv *Inventory) TotalSize() int64 {
	var total int64
	for _, rec := range inv.All() {
		total += rec.Filesize
	}
	return total
}

// Clone returns an independent copy of the inventory.
func (inv *Inventory) Clone() *Inventory {
	out := NewInventory()
	for name, rec := range inv.All() {
		out.Set(name, rec)
	}
	return out
}

// Equal reports whether both inventories hold the same names, in the same
// order, with identical records.
func (inv *Inventory) Equal(other *Inventory) bool {
	if inv.Len() != other.Len() {
		return false
	}
	otherNames := other.Names()
	for i, name := range inv.Names() {
		if otherNames[i] != name {
			return false
		}
		a, _ := inv.Get(name)
		b, _ := other.Get(name)
		if a != b {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the inventory as a JSON object keyed by name, with keys
// in insertion order.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for name, rec := range inv.All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keyed by name, keeping document order.
// A JSON null decodes to an empty inventory.
func (inv *Inventory) UnmarshalJSON(data []byte) error {
	inv.names = nil
	inv.records = make(map[string]ModRecord)

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInventory, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected object, got %v", ErrInvalidInventory, tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInventory, err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected key %v", ErrInvalidInventory, tok)
		}

		var rec ModRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("%w: entry %s: %w", ErrInvalidInventory, name, err)
		}
		inv.Set(name, rec)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInventory, err)
	}
	return nil
}
