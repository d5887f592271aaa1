package tree

import (
	"sort"

	"github.com/brettbedarf/dok"
)

// Snapshot is the serializable expansion state of the tree, independent of the
// entry data. It is what survives a refresh or a restart.
type Snapshot struct {
	Expanded []string `json:"expanded"`
}

// Snapshot returns the current expansion state with paths sorted
func (c *Cache) Snapshot() Snapshot {
	return Snapshot{Expanded: c.ExpandedPaths()}
}

// Restore replaces the expanded set with the one in s. Listings are not
// fetched; call [Cache.RefreshAll] afterwards to materialize them and prune
// paths that no longer exist.
func (c *Cache) Restore(s Snapshot) {
	c.expanded.Clear()
	for _, p := range s.Expanded {
		p = dok.CleanPath(p)
		if p == dok.RootPath {
			continue
		}
		c.expanded.Store(p, struct{}{})
	}
}

// Rows projects the cached tree into visible rows: sorted, depth first,
// descending only into expanded directories whose listing is cached
func (c *Cache) Rows() []dok.Row {
	rows := []dok.Row{}
	c.appendRows(&rows, dok.RootPath, 0)
	return rows
}

func (c *Cache) appendRows(rows *[]dok.Row, dir string, depth int) {
	children, ok := c.Children(dir)
	if !ok {
		return
	}
	for _, e := range children {
		row := dok.Row{Entry: e, Depth: depth}
		if e.IsDirectory {
			row.Expanded = c.IsExpanded(e.Path)
			_, row.Loaded = c.listings.Load(e.Path)
		}
		*rows = append(*rows, row)
		if row.Expanded && row.Loaded {
			c.appendRows(rows, e.Path, depth+1)
		}
	}
}

// ExpandedPaths returns the expanded set sorted lexically
func (c *Cache) ExpandedPaths() []string {
	paths := make([]string, 0, c.expanded.Size())
	c.expanded.Range(func(p string, _ struct{}) bool {
		paths = append(paths, p)
		return true
	})
	sort.Strings(paths)
	return paths
}
