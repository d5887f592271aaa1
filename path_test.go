package dok

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, expect string
	}{
		{"", "/"},
		{"/", "/"},
		{"notes", "/notes"},
		{"/notes/", "/notes"},
		{"/notes/ a.md ", "/notes/ a.md "},
		{" lead/", "/ lead"},
		{"/notes/../todo.md", "/todo.md"},
		{"//notes//sub", "/notes/sub"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expect, CleanPath(tt.in))
		})
	}
}

func TestParentDirAndJoin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/", ParentDir("/todo.md"))
	assert.Equal(t, "/notes", ParentDir("/notes/sub"))
	assert.Equal(t, "/", ParentDir("/"))

	assert.Equal(t, "/todo.md", JoinPath("/", "todo.md"))
	assert.Equal(t, "/notes/a.md", JoinPath("/notes/", "a.md"))
	assert.Equal(t, "/a.md", JoinPath("", "a.md"))
}

func TestIsWithin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p, root string
		expect  bool
	}{
		{"/notes", "/notes", true},
		{"/notes/a.md", "/notes", true},
		{"/notes/sub/deep.md", "/notes", true},
		{"/notesx", "/notes", false},
		{"/other", "/notes", false},
		{"/anything", "/", true},
		{"/", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.p+" in "+tt.root, func(t *testing.T) {
			assert.Equal(t, tt.expect, IsWithin(tt.p, tt.root))
		})
	}
}

func TestRebase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/archive/notes", Rebase("/notes", "/notes", "/archive/notes"))
	assert.Equal(t, "/archive/notes/sub/a.md", Rebase("/notes/sub/a.md", "/notes", "/archive/notes"))
}
