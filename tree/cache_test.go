package tree

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/adapters"
	"github.com/brettbedarf/dok/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func createTestTree(t *testing.T) *adapters.MemoryGateway {
	t.Helper()
	mem := adapters.NewMemoryGateway()
	require.NoError(t, mem.PutFile("/todo.md", "todo"))
	require.NoError(t, mem.PutFile("/notes/a.md", "a"))
	require.NoError(t, mem.PutFile("/notes/sub/deep.md", "deep"))
	require.NoError(t, mem.MkdirAll("/archive"))
	return mem
}

func createTestCache(t *testing.T) (*Cache, *mocks.RecordingGateway, *adapters.MemoryGateway) {
	t.Helper()
	mem := createTestTree(t)

	rec := mocks.NewRecordingGateway(mem)
	c := NewCache(rec, language.English)
	require.NoError(t, c.LoadRoot(context.Background()))
	return c, rec, mem
}

func listCalls(rec *mocks.RecordingGateway, path string) int {
	n := 0
	for _, call := range rec.Calls("list") {
		if call.Args[0] == path {
			n++
		}
	}
	return n
}

func TestCache_LoadRoot(t *testing.T) {
	t.Parallel()

	c, _, _ := createTestCache(t)

	children, ok := c.Children("/")
	require.True(t, ok)
	assert.Equal(t, []dok.Entry{
		{Name: "archive", Path: "/archive", IsDirectory: true},
		{Name: "notes", Path: "/notes", IsDirectory: true},
		{Name: "todo.md", Path: "/todo.md"},
	}, children)
}

func TestCache_ExpandFetchesAtMostOnce(t *testing.T) {
	t.Parallel()

	c, rec, _ := createTestCache(t)
	ctx := context.Background()

	open, err := c.Expand(ctx, "/notes")
	require.NoError(t, err)
	assert.True(t, open)

	open, err = c.Expand(ctx, "/notes")
	require.NoError(t, err)
	assert.False(t, open, "second expand collapses")

	open, err = c.Expand(ctx, "/notes")
	require.NoError(t, err)
	assert.True(t, open)

	assert.Equal(t, 1, listCalls(rec, "/notes"), "cached children are never refetched by a toggle")
}

func TestCache_ConcurrentExpandSharesFetch(t *testing.T) {
	t.Parallel()

	c, rec, _ := createTestCache(t)
	release := make(chan struct{})
	rec.OnCall("list", func(args ...string) error {
		if args[0] == "/notes" {
			<-release
		}
		return nil
	})

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Go(func() {
			open, err := c.Expand(context.Background(), "/notes")
			assert.NoError(t, err)
			results[i] = open
		})
	}
	// Give both callers time to join the flight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []bool{true, true}, results)
	assert.True(t, c.IsExpanded("/notes"), "double expand while loading ends open")
	assert.Equal(t, 1, listCalls(rec, "/notes"))
}

func TestCache_ExpandFailureStaysCollapsed(t *testing.T) {
	t.Parallel()

	c, rec, _ := createTestCache(t)
	rec.OnCall("list", func(args ...string) error {
		return &dok.TransportError{Op: "list", Path: args[0], StatusCode: 500}
	})

	open, err := c.Expand(context.Background(), "/notes")
	require.Error(t, err)
	assert.True(t, dok.IsTransport(err))
	assert.False(t, open)
	assert.False(t, c.IsExpanded("/notes"))
	_, ok := c.Children("/notes")
	assert.False(t, ok, "nothing cached on failure")

	// Retry is allowed once the remote recovers
	rec.OnCall("list", nil)
	open, err = c.Expand(context.Background(), "/notes")
	require.NoError(t, err)
	assert.True(t, open)
}

func TestCache_StaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	c, rec, _ := createTestCache(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	rec.OnCall("list", func(args ...string) error {
		if args[0] == "/notes" {
			close(entered)
			<-release
		}
		return nil
	})

	var (
		open      bool
		expandErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		open, expandErr = c.Expand(context.Background(), "/notes")
	}()

	<-entered
	// The directory goes away while its listing is in flight
	c.Forget("/notes")
	close(release)
	<-done

	require.NoError(t, expandErr)
	assert.False(t, open)
	_, ok := c.Children("/notes")
	assert.False(t, ok, "late listing must not resurrect a forgotten directory")
	assert.False(t, c.IsExpanded("/notes"))
}

func TestCache_ForgetSupersedesNestedFetch(t *testing.T) {
	t.Parallel()

	c, rec, _ := createTestCache(t)
	ctx := context.Background()
	_, err := c.Expand(ctx, "/notes")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	rec.OnCall("list", func(args ...string) error {
		if args[0] == "/notes/sub" {
			close(entered)
			<-release
		}
		return nil
	})

	var open bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		open, _ = c.Expand(ctx, "/notes/sub")
	}()

	<-entered
	c.Forget("/notes")
	close(release)
	<-done

	assert.False(t, open)
	_, ok := c.Children("/notes/sub")
	assert.False(t, ok)
	assert.Empty(t, c.ExpandedPaths())
}

func TestCache_CommitGenerations(t *testing.T) {
	t.Parallel()

	c := NewCache(adapters.NewMemoryGateway(), language.English)
	old := c.nextGen("/x")
	newer := c.nextGen("/x")

	assert.True(t, c.commit("/x", newer, []dok.Entry{{Name: "new", Path: "/x/new"}}))
	assert.False(t, c.commit("/x", old, []dok.Entry{{Name: "old", Path: "/x/old"}}))

	children, ok := c.Children("/x")
	require.True(t, ok)
	assert.Equal(t, "new", children[0].Name)
}

func TestCache_RefreshAllKeepsExpansion(t *testing.T) {
	t.Parallel()

	c, rec, mem := createTestCache(t)
	ctx := context.Background()
	_, err := c.Expand(ctx, "/notes")
	require.NoError(t, err)
	_, err = c.Expand(ctx, "/notes/sub")
	require.NoError(t, err)

	require.NoError(t, mem.PutFile("/notes/b.md", "b"))
	rec.Reset()
	require.NoError(t, c.RefreshAll(ctx))

	assert.Equal(t, []string{"/notes", "/notes/sub"}, c.ExpandedPaths())
	assert.Equal(t, 1, listCalls(rec, "/"))
	assert.Equal(t, 1, listCalls(rec, "/notes"))
	assert.Equal(t, 1, listCalls(rec, "/notes/sub"))

	children, ok := c.Children("/notes")
	require.True(t, ok)
	assert.Len(t, children, 3)
}

func TestCache_RefreshAllPrunesVanished(t *testing.T) {
	t.Parallel()

	c, _, mem := createTestCache(t)
	ctx := context.Background()
	for _, p := range []string{"/notes", "/notes/sub", "/archive"} {
		_, err := c.Expand(ctx, p)
		require.NoError(t, err)
	}

	require.NoError(t, mem.Delete(ctx, "/notes"))
	require.NoError(t, c.RefreshAll(ctx))

	assert.Equal(t, []string{"/archive"}, c.ExpandedPaths())
	_, ok := c.Children("/notes/sub")
	assert.False(t, ok)
}

// emptyOnMissingLister answers an empty listing for a missing path instead of
// not found, like the Spring backend's /list does
type emptyOnMissingLister struct {
	*adapters.MemoryGateway
}

func (l emptyOnMissingLister) List(ctx context.Context, path string) ([]dok.Entry, error) {
	entries, err := l.MemoryGateway.List(ctx, path)
	if dok.IsNotFound(err) || dok.IsValidation(err) {
		return []dok.Entry{}, nil
	}
	return entries, err
}

func TestCache_RefreshAllPrunesWithoutNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expand   []string
		collapse string
	}{
		{"expanded parent", []string{"/notes", "/notes/sub"}, ""},
		{"collapsed parent", []string{"/notes", "/notes/sub"}, "/notes"},
		{"parent never listed", []string{"/notes/sub"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := createTestTree(t)
			c := NewCache(emptyOnMissingLister{mem}, language.English)
			ctx := context.Background()
			require.NoError(t, c.LoadRoot(ctx))
			for _, p := range tt.expand {
				_, err := c.Expand(ctx, p)
				require.NoError(t, err)
			}
			if tt.collapse != "" {
				c.Collapse(tt.collapse)
			}

			require.NoError(t, mem.Delete(ctx, "/notes"))
			require.NoError(t, c.RefreshAll(ctx))

			assert.Empty(t, c.ExpandedPaths())
			_, ok := c.Children("/notes/sub")
			assert.False(t, ok)
		})
	}
}

func TestCache_RefreshAllKeepsReachableBelowCollapsed(t *testing.T) {
	t.Parallel()

	mem := createTestTree(t)
	c := NewCache(emptyOnMissingLister{mem}, language.English)
	ctx := context.Background()
	require.NoError(t, c.LoadRoot(ctx))
	for _, p := range []string{"/notes", "/notes/sub"} {
		_, err := c.Expand(ctx, p)
		require.NoError(t, err)
	}
	c.Collapse("/notes")

	require.NoError(t, c.RefreshAll(ctx))
	assert.Equal(t, []string{"/notes/sub"}, c.ExpandedPaths(), "still reachable through /notes")
}

func TestCache_RefreshAllPrunesReplacedByFile(t *testing.T) {
	t.Parallel()

	c, rec, mem := createTestCache(t)
	ctx := context.Background()
	_, err := c.Expand(ctx, "/archive")
	require.NoError(t, err)

	require.NoError(t, mem.Delete(ctx, "/archive"))
	require.NoError(t, mem.PutFile("/archive", "now a file"))
	// A remote that still answers for the old directory
	rec.OnCall("list", func(args ...string) error {
		if args[0] == "/archive" {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, c.RefreshAll(ctx), "failure on a path the parent no longer lists is not reported")
	assert.Empty(t, c.ExpandedPaths())
}

func TestCache_RefreshAllKeepsStaleOnTransportError(t *testing.T) {
	t.Parallel()

	c, rec, _ := createTestCache(t)
	ctx := context.Background()
	_, err := c.Expand(ctx, "/notes")
	require.NoError(t, err)

	rec.OnCall("list", func(args ...string) error {
		if args[0] == "/notes" {
			return &dok.TransportError{Op: "list", Path: args[0], StatusCode: 502}
		}
		return nil
	})

	err = c.RefreshAll(ctx)
	require.Error(t, err)
	assert.True(t, dok.IsTransport(err))
	assert.True(t, c.IsExpanded("/notes"))
	_, ok := c.Children("/notes")
	assert.True(t, ok, "previous listing kept")
}

func TestCache_RefreshAllRootFailure(t *testing.T) {
	t.Parallel()

	c, rec, _ := createTestCache(t)
	rec.OnCall("list", func(args ...string) error {
		return &dok.TransportError{Op: "list", Path: args[0]}
	})

	require.Error(t, c.RefreshAll(context.Background()))
	children, ok := c.Children("/")
	require.True(t, ok)
	assert.Len(t, children, 3)
}

func TestCache_RefreshAllDropsCollapsedListings(t *testing.T) {
	t.Parallel()

	c, rec, _ := createTestCache(t)
	ctx := context.Background()
	_, err := c.Expand(ctx, "/notes")
	require.NoError(t, err)
	c.Collapse("/notes")

	require.NoError(t, c.RefreshAll(ctx))
	_, ok := c.Children("/notes")
	assert.False(t, ok)

	rec.Reset()
	open, err := c.Expand(ctx, "/notes")
	require.NoError(t, err)
	assert.True(t, open)
	assert.Equal(t, 1, listCalls(rec, "/notes"))
}

func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	c, rec, mem := createTestCache(t)
	ctx := context.Background()
	_, err := c.Expand(ctx, "/notes")
	require.NoError(t, err)
	_, err = c.Expand(ctx, "/notes/sub")
	require.NoError(t, err)
	c.Collapse("/notes/sub")

	require.NoError(t, mem.PutFile("/notes/c.md", "c"))
	rec.Reset()
	require.NoError(t, c.Invalidate(ctx, "/notes", "/notes/sub", "/notes"))

	assert.Equal(t, 1, listCalls(rec, "/notes"), "duplicates are fetched once")
	assert.Equal(t, 0, listCalls(rec, "/notes/sub"), "collapsed paths are only discarded")
	_, ok := c.Children("/notes/sub")
	assert.False(t, ok)

	children, ok := c.Children("/notes")
	require.True(t, ok)
	assert.Len(t, children, 3)
}

func TestCache_Forget(t *testing.T) {
	t.Parallel()

	c, _, _ := createTestCache(t)
	ctx := context.Background()
	for _, p := range []string{"/notes", "/notes/sub", "/archive"} {
		_, err := c.Expand(ctx, p)
		require.NoError(t, err)
	}

	c.Forget("/notes")
	assert.Equal(t, []string{"/archive"}, c.ExpandedPaths())
	_, ok := c.Children("/notes/sub")
	assert.False(t, ok)
	_, ok = c.Children("/")
	assert.True(t, ok)
}

func TestCache_Lookup(t *testing.T) {
	t.Parallel()

	c, _, _ := createTestCache(t)

	e, ok := c.Lookup("/notes")
	require.True(t, ok)
	assert.True(t, e.IsDirectory)

	_, ok = c.Lookup("/notes/a.md")
	assert.False(t, ok, "parent not fetched yet")

	root, ok := c.Lookup("/")
	require.True(t, ok)
	assert.True(t, root.IsDirectory)
}
