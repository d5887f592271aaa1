package dok

// Row is one visible line of the rendered tree
type Row struct {
	Entry
	Depth    int  // 0 for children of root
	Expanded bool // directories only
	Loaded   bool // directories only; false until the first listing arrives
	Open     bool // entry is the file open in the editor
	Targeted bool // entry is the action target
}

// EditorView is the editor/preview half of a View
type EditorView struct {
	Path    string
	Content string
	Preview string
	State   string
	Dirty   bool // content differs from the last successful save
}

// View is a full projection of the controller state. It holds copies only.
type View struct {
	Rows      []Row
	Selection Selection
	Editor    EditorView
}
