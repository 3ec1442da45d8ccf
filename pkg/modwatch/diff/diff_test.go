package diff

import (
	"fmt"
	"testing"

	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inventory(entries ...any) *types.Inventory {
	inv := types.NewInventory()
	for i := 0; i < len(entries); i += 2 {
		inv.Set(entries[i].(string), entries[i+1].(types.ModRecord))
	}
	return inv
}

func rec(title, version string, size int64) types.ModRecord {
	return types.ModRecord{Title: title, Version: version, Author: "X", Filesize: size}
}

func TestCompute_SelfIsEmpty(t *testing.T) {
	invs := []*types.Inventory{
		types.NewInventory(),
		inventory("a.zip", rec("A", "1.0", 10)),
		inventory("a.zip", rec("A", "1.0", 10), "b.zip", rec("B", types.Unknown, 20)),
	}

	for i, inv := range invs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			assert.Empty(t, Compute(inv, inv))
			assert.Empty(t, Compute(inv, inv.Clone()))
		})
	}
}

func TestCompute_DisjointInventories(t *testing.T) {
	a := inventory("old1.zip", rec("O1", "1", 1), "old2.zip", rec("O2", "1", 2))
	b := inventory("new1.zip", rec("N1", "1", 3), "new2.zip", rec("N2", "1", 4), "new3.zip", rec("N3", "1", 5))

	s := Summarize(Compute(a, b))
	assert.Equal(t, Summary{Added: 3, Removed: 2}, s)
	assert.Equal(t, 5, s.Total())
}

func TestCompute_TitleAndAuthorIgnored(t *testing.T) {
	prev := inventory("a.zip", types.ModRecord{Title: "Old", Version: "1.0", Author: "Someone", Filesize: 100})
	cur := inventory("a.zip", types.ModRecord{Title: "New", Version: "1.0", Author: "Else", Filesize: 100})

	assert.Empty(t, Compute(prev, cur))
}

func TestCompute_SizeOnlyChangeIsUpdate(t *testing.T) {
	prev := inventory("a.zip", rec("A", "1.0", 100))
	cur := inventory("a.zip", rec("A", "1.0", 101))

	changes := Compute(prev, cur)
	require.Len(t, changes, 1)
	assert.Equal(t, Updated, changes[0].Kind)
	assert.Equal(t, "1.0", changes[0].PreviousVersion)
}

func TestCompute_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		prev *types.Inventory
		cur  *types.Inventory
		want []Change
	}{
		{
			name: "new mod is added",
			prev: types.NewInventory(),
			cur:  inventory("ModA.zip", types.ModRecord{Title: "A", Version: "1.0", Author: "X", Filesize: 1000}),
			want: []Change{{
				Kind:   Added,
				Name:   "ModA.zip",
				Record: types.ModRecord{Title: "A", Version: "1.0", Author: "X", Filesize: 1000},
			}},
		},
		{
			name: "version bump is updated",
			prev: inventory("ModA.zip", types.ModRecord{Title: "A", Version: "1.0", Author: "X", Filesize: 1000}),
			cur:  inventory("ModA.zip", types.ModRecord{Title: "A", Version: "1.1", Author: "X", Filesize: 1200}),
			want: []Change{{
				Kind:            Updated,
				Name:            "ModA.zip",
				Record:          types.ModRecord{Title: "A", Version: "1.1", Author: "X", Filesize: 1200},
				PreviousVersion: "1.0",
			}},
		},
		{
			name: "missing mod is removed with last known record",
			prev: inventory("Old.zip", rec("Old", "2.0", 50)),
			cur:  types.NewInventory(),
			want: []Change{{Kind: Removed, Name: "Old.zip", Record: rec("Old", "2.0", 50)}},
		},
		{
			name: "nil inventories are empty",
			prev: nil,
			cur:  inventory("a.zip", rec("A", "1", 1)),
			want: []Change{{Kind: Added, Name: "a.zip", Record: rec("A", "1", 1)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.prev, tt.cur))
		})
	}
}

func TestCompute_Ordering(t *testing.T) {
	prev := inventory(
		"gone1.zip", rec("G1", "1", 1),
		"kept.zip", rec("K", "1", 1),
		"bumped.zip", rec("B", "1", 1),
		"gone2.zip", rec("G2", "1", 1),
	)
	cur := inventory(
		"fresh.zip", rec("F", "1", 1),
		"bumped.zip", rec("B", "2", 1),
		"kept.zip", rec("K", "1", 1),
		"fresh2.zip", rec("F2", "1", 1),
	)

	changes := Compute(prev, cur)

	var got []string
	for _, c := range changes {
		got = append(got, string(c.Kind)+":"+c.Name)
	}
	assert.Equal(t, []string{
		"added:fresh.zip",
		"updated:bumped.zip",
		"added:fresh2.zip",
		"removed:gone1.zip",
		"removed:gone2.zip",
	}, got)
}

func TestHasAdditions(t *testing.T) {
	assert.False(t, HasAdditions(nil))
	assert.False(t, HasAdditions([]Change{{Kind: Removed}, {Kind: Updated}}))
	assert.True(t, HasAdditions([]Change{{Kind: Removed}, {Kind: Added}}))
}
