// Package tree caches remote directory listings and the set of expanded
// directories, and projects them into the rows a front end renders.
package tree

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/internal/util"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

// Lister is the subset of [dok.Gateway] the cache needs
type Lister interface {
	List(ctx context.Context, path string) ([]dok.Entry, error)
}

// Cache holds the last fetched listing per directory plus the expanded set.
//
// Every fetch takes a new generation for its path and its result is only
// applied if that generation is still current when it arrives, so a slow
// response never overwrites a newer one. Concurrent expands of the same path
// share one request through a singleflight group.
type Cache struct {
	lister Lister
	locale language.Tag

	listings *xsync.Map[string, []dok.Entry]
	expanded *xsync.Map[string, struct{}]
	gens     *xsync.Map[string, uint64]
	inflight singleflight.Group
}

// NewCache creates an empty cache. Nothing is fetched until [Cache.LoadRoot]
// or [Cache.RefreshAll].
func NewCache(lister Lister, locale language.Tag) *Cache {
	return &Cache{
		lister:   lister,
		locale:   locale,
		listings: xsync.NewMap[string, []dok.Entry](),
		expanded: xsync.NewMap[string, struct{}](),
		gens:     xsync.NewMap[string, uint64](),
	}
}

// LoadRoot fetches the root listing
func (c *Cache) LoadRoot(ctx context.Context) error {
	_, err := c.refetch(ctx, dok.RootPath)
	return err
}

// Expand toggles the directory at path. If its children are already cached
// this is a pure toggle with no network call. Otherwise the listing is
// fetched (sharing any fetch already in flight for path) and the directory
// ends up open. Returns whether the directory is now expanded.
//
// On failure the directory stays collapsed and nothing is cached. A fetch
// superseded while in flight (i.e. the path was forgotten) also leaves it
// collapsed, without an error.
func (c *Cache) Expand(ctx context.Context, path string) (bool, error) {
	logger := util.GetLogger("Cache.Expand")
	path = dok.CleanPath(path)

	if _, ok := c.listings.Load(path); ok {
		open := c.toggle(path)
		logger.Trace().Str("path", path).Bool("expanded", open).Msg("Toggled cached directory")
		return open, nil
	}

	v, err, shared := c.inflight.Do(path, func() (any, error) {
		// A flight that finished between the check above and here already cached it
		if _, ok := c.listings.Load(path); ok {
			return fetchResult{committed: true}, nil
		}
		return c.fetch(ctx, path)
	})
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Expand failed")
		return false, err
	}
	if res, _ := v.(fetchResult); !res.committed {
		// Forgotten or superseded while in flight
		logger.Debug().Str("path", path).Msg("Expand superseded, leaving collapsed")
		return false, nil
	}
	if path != dok.RootPath {
		c.expanded.Store(path, struct{}{})
	}
	logger.Trace().Str("path", path).Bool("shared", shared).Msg("Expanded directory")
	return true, nil
}

// Collapse closes path without discarding its cached children
func (c *Cache) Collapse(path string) {
	c.expanded.Delete(dok.CleanPath(path))
}

// IsExpanded reports whether path is open. Root is always open.
func (c *Cache) IsExpanded(path string) bool {
	path = dok.CleanPath(path)
	if path == dok.RootPath {
		return true
	}
	_, ok := c.expanded.Load(path)
	return ok
}

// Children returns the cached children of path in presentation order.
// ok is false if path has never been fetched.
func (c *Cache) Children(path string) ([]dok.Entry, bool) {
	entries, ok := c.listings.Load(dok.CleanPath(path))
	if !ok {
		return nil, false
	}
	return SortEntries(entries, c.locale), true
}

// Lookup finds the cached entry for path in its parent's listing
func (c *Cache) Lookup(path string) (dok.Entry, bool) {
	path = dok.CleanPath(path)
	if path == dok.RootPath {
		return dok.Entry{Name: "", Path: dok.RootPath, IsDirectory: true}, true
	}
	entries, ok := c.listings.Load(dok.ParentDir(path))
	if !ok {
		return dok.Entry{}, false
	}
	for _, e := range entries {
		if e.Path == path {
			return e, true
		}
	}
	return dok.Entry{}, false
}

type refreshResult struct {
	entries []dok.Entry
	err     error
}

// RefreshAll re-fetches root and every expanded directory concurrently.
//
// Expanded paths that no longer exist are dropped: the fetch returned not
// found, the nearest ancestor with a fresh listing no longer leads to it, or
// an ancestor was dropped. Remotes that answer an empty listing for a missing
// directory are handled the same way. Any other failure keeps the previous listing for that
// path and is returned joined with the rest. A root failure aborts the refresh
// leaving the cache as it was. Listings of collapsed directories are
// discarded so they are re-fetched on their next expand.
func (c *Cache) RefreshAll(ctx context.Context) error {
	logger := util.GetLogger("Cache.RefreshAll")

	expanded := c.ExpandedPaths()
	rootEntries, err := c.refetch(ctx, dok.RootPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Root refresh failed")
		return err
	}

	var (
		mu      sync.Mutex
		results = make(map[string]refreshResult, len(expanded))
		g       errgroup.Group
	)
	for _, p := range expanded {
		g.Go(func() error {
			entries, err := c.refetch(ctx, p)
			mu.Lock()
			results[p] = refreshResult{entries: entries, err: err}
			mu.Unlock()
			// Failures are per path and never cancel the others
			return nil
		})
	}
	_ = g.Wait()

	fresh := map[string][]dok.Entry{dok.RootPath: rootEntries}
	for p, r := range results {
		if r.err == nil {
			fresh[p] = r.entries
		}
	}

	// Parents before children so a dropped ancestor is known when its
	// descendants are checked
	sort.Slice(expanded, func(i, j int) bool {
		di, dj := strings.Count(expanded[i], "/"), strings.Count(expanded[j], "/")
		if di != dj {
			return di < dj
		}
		return expanded[i] < expanded[j]
	})

	dropped := map[string]bool{}
	var errs []error
	for _, p := range expanded {
		r := results[p]
		switch {
		case ancestorDropped(p, dropped), dok.IsNotFound(r.err), !resolvable(p, fresh):
			dropped[p] = true
		case r.err != nil:
			logger.Warn().Err(r.err).Str("path", p).Msg("Keeping stale listing")
			errs = append(errs, r.err)
		}
	}

	for p := range dropped {
		logger.Debug().Str("path", p).Msg("Dropping vanished directory")
		c.expanded.Delete(p)
		c.discard(p)
	}

	// Keep listings only for root and what is still open
	c.listings.Range(func(p string, _ []dok.Entry) bool {
		if p != dok.RootPath && !c.IsExpanded(p) {
			c.discard(p)
		}
		return true
	})

	return errors.Join(errs...)
}

// Invalidate re-fetches each path that is visible (root or expanded) and
// discards the cached listing of any other so it is fetched again when next
// opened. Errors are joined.
func (c *Cache) Invalidate(ctx context.Context, paths ...string) error {
	seen := map[string]bool{}
	var errs []error
	for _, p := range paths {
		p = dok.CleanPath(p)
		if seen[p] {
			continue
		}
		seen[p] = true

		if !c.IsExpanded(p) {
			c.discard(p)
			continue
		}
		if _, err := c.refetch(ctx, p); err != nil {
			if dok.IsNotFound(err) && p != dok.RootPath {
				c.Forget(p)
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forget removes path and everything below it from the cache, both listings
// and expansion state. Used after the path is deleted or moved away.
func (c *Cache) Forget(path string) {
	path = dok.CleanPath(path)
	if path == dok.RootPath {
		c.expanded.Clear()
	} else {
		c.expanded.Range(func(p string, _ struct{}) bool {
			if dok.IsWithin(p, path) {
				c.expanded.Delete(p)
			}
			return true
		})
	}
	// Bump every generation below path, listed or not, so fetches still in
	// flight for any of them cannot commit
	c.discard(path)
	c.gens.Range(func(p string, _ uint64) bool {
		if p != path && dok.IsWithin(p, path) {
			c.discard(p)
		}
		return true
	})
	c.listings.Range(func(p string, _ []dok.Entry) bool {
		if dok.IsWithin(p, path) {
			c.discard(p)
		}
		return true
	})
}

// refetch always starts a new request for path, never joining one already in
// flight, since that one may predate a mutation
func (c *Cache) refetch(ctx context.Context, path string) ([]dok.Entry, error) {
	c.inflight.Forget(path)
	v, err, _ := c.inflight.Do(path, func() (any, error) {
		return c.fetch(ctx, path)
	})
	if err != nil {
		return nil, err
	}
	res, _ := v.(fetchResult)
	return res.entries, nil
}

// fetchResult is what a flight hands to everyone waiting on it
type fetchResult struct {
	entries   []dok.Entry
	committed bool // false if a newer generation superseded this fetch
}

func (c *Cache) fetch(ctx context.Context, path string) (fetchResult, error) {
	gen := c.nextGen(path)
	entries, err := c.lister.List(ctx, path)
	if err != nil {
		return fetchResult{}, err
	}
	if entries == nil {
		entries = []dok.Entry{}
	}
	committed := c.commit(path, gen, entries)
	if !committed {
		logger := util.GetLogger("Cache.fetch")
		logger.Trace().Str("path", path).Uint64("gen", gen).Msg("Discarding stale listing")
	}
	return fetchResult{entries: entries, committed: committed}, nil
}

// discard drops the listing for path and invalidates any fetch in flight for it
func (c *Cache) discard(path string) {
	c.nextGen(path)
	c.listings.Delete(path)
}

func (c *Cache) nextGen(path string) uint64 {
	gen, _ := c.gens.Compute(path, func(cur uint64, _ bool) (uint64, xsync.ComputeOp) {
		return cur + 1, xsync.UpdateOp
	})
	return gen
}

// commit stores entries only if gen is still the newest generation for path.
// The check and the store happen under the gens entry lock.
func (c *Cache) commit(path string, gen uint64, entries []dok.Entry) bool {
	applied := false
	c.gens.Compute(path, func(cur uint64, _ bool) (uint64, xsync.ComputeOp) {
		if cur == gen {
			c.listings.Store(path, entries)
			applied = true
		}
		return cur, xsync.CancelOp
	})
	return applied
}

func (c *Cache) toggle(path string) bool {
	if path == dok.RootPath {
		return true
	}
	open := false
	c.expanded.Compute(path, func(_ struct{}, loaded bool) (struct{}, xsync.ComputeOp) {
		if loaded {
			return struct{}{}, xsync.DeleteOp
		}
		open = true
		return struct{}{}, xsync.UpdateOp
	})
	return open
}

func ancestorDropped(p string, dropped map[string]bool) bool {
	for dir := dok.ParentDir(p); dir != dok.RootPath; dir = dok.ParentDir(dir) {
		if dropped[dir] {
			return true
		}
	}
	return false
}

// resolvable reports whether p can still be reached from root: the nearest
// ancestor with a fresh listing must list the next component of p as a
// directory. Root is always fresh.
func resolvable(p string, fresh map[string][]dok.Entry) bool {
	for child, dir := p, dok.ParentDir(p); child != dok.RootPath; child, dir = dir, dok.ParentDir(dir) {
		if entries, ok := fresh[dir]; ok {
			return hasDirectory(entries, child)
		}
	}
	return true
}

func hasDirectory(entries []dok.Entry, path string) bool {
	for _, e := range entries {
		if e.Path == path {
			return e.IsDirectory
		}
	}
	return false
}
