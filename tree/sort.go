package tree

import (
	"sort"

	"github.com/brettbedarf/dok"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortEntries returns a sorted copy of entries in presentation order:
// directories before files, then by name using the collation rules of tag.
// The input is left untouched since the cache stores the remote's order.
func SortEntries(entries []dok.Entry, tag language.Tag) []dok.Entry {
	out := make([]dok.Entry, len(entries))
	copy(out, entries)

	// Collators keep internal buffers so each sort gets its own
	col := collate.New(tag)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsDirectory != b.IsDirectory {
			return a.IsDirectory
		}
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.Path < b.Path
	})
	return out
}

// ParseLocale parses a BCP 47 tag, falling back to English when it is invalid
func ParseLocale(locale string) (language.Tag, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English, err
	}
	return tag, nil
}
