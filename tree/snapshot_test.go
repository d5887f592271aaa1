package tree

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/brettbedarf/dok"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestSortEntries(t *testing.T) {
	t.Parallel()

	in := []dok.Entry{
		{Name: "beta.md", Path: "/beta.md"},
		{Name: "Zulu.md", Path: "/Zulu.md"},
		{Name: "éclair.md", Path: "/éclair.md"},
		{Name: "zdir", Path: "/zdir", IsDirectory: true},
		{Name: "Alpha.md", Path: "/Alpha.md"},
		{Name: "delta.md", Path: "/delta.md"},
		{Name: "Adir", Path: "/Adir", IsDirectory: true},
	}

	out := SortEntries(in, language.English)
	names := make([]string, len(out))
	for i, e := range out {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"Adir", "zdir", "Alpha.md", "beta.md", "delta.md", "éclair.md", "Zulu.md"}, names)
	assert.Equal(t, "beta.md", in[0].Name, "input is not reordered")
}

func TestParseLocale(t *testing.T) {
	t.Parallel()

	tag, err := ParseLocale("de-DE")
	require.NoError(t, err)
	base, _ := tag.Base()
	assert.Equal(t, "de", base.String())

	tag, err = ParseLocale("not a locale!")
	assert.Error(t, err)
	assert.Equal(t, language.English, tag)
}

func TestCache_Rows(t *testing.T) {
	t.Parallel()

	c, _, _ := createTestCache(t)
	ctx := context.Background()
	_, err := c.Expand(ctx, "/notes")
	require.NoError(t, err)

	rows := c.Rows()
	require.Len(t, rows, 5)

	type rowView struct {
		path     string
		depth    int
		expanded bool
		loaded   bool
	}
	got := make([]rowView, len(rows))
	for i, r := range rows {
		got[i] = rowView{r.Path, r.Depth, r.Expanded, r.Loaded}
	}
	assert.Equal(t, []rowView{
		{"/archive", 0, false, false},
		{"/notes", 0, true, true},
		{"/notes/sub", 1, false, false},
		{"/notes/a.md", 1, false, false},
		{"/todo.md", 0, false, false},
	}, got)
}

func TestCache_RowsEmptyBeforeLoad(t *testing.T) {
	t.Parallel()

	c := NewCache(nil, language.English)
	assert.Empty(t, c.Rows())
}

func TestCache_SnapshotRestore(t *testing.T) {
	t.Parallel()

	c, _, _ := createTestCache(t)
	ctx := context.Background()
	_, err := c.Expand(ctx, "/notes/sub")
	require.NoError(t, err)
	_, err = c.Expand(ctx, "/notes")
	require.NoError(t, err)

	data, err := json.Marshal(c.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{"expanded":["/notes","/notes/sub"]}`, string(data))

	restored, _, _ := createTestCache(t)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	snap.Expanded = append(snap.Expanded, "/gone", "/")
	restored.Restore(snap)
	require.NoError(t, restored.RefreshAll(ctx))

	assert.Equal(t, []string{"/notes", "/notes/sub"}, restored.ExpandedPaths(), "missing paths are pruned on refresh")
	assert.Len(t, restored.Rows(), 6)
}

func TestCache_RestoreDropsUnresolvable(t *testing.T) {
	t.Parallel()

	mem := createTestTree(t)
	c := NewCache(emptyOnMissingLister{mem}, language.English)
	ctx := context.Background()
	require.NoError(t, c.LoadRoot(ctx))

	c.Restore(Snapshot{Expanded: []string{"/gone/sub", "/gone", "/notes", "/todo.md"}})
	require.NoError(t, c.RefreshAll(ctx))

	assert.Equal(t, []string{"/notes"}, c.ExpandedPaths())
	_, ok := c.Children("/gone/sub")
	assert.False(t, ok)
}
