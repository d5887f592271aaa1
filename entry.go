// Package dok contains core domain types and interfaces for the dok file tree editor
package dok

// RootPath is the path of the remote tree's root directory
const RootPath = "/"

// Entry is a named file or directory record as returned by a directory listing.
// Path is absolute, '/'-rooted and is the entry's identity.
type Entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
}

// Target is the subject of create/delete/move actions. It may be a file or a
// directory; an absent Target means the root.
type Target struct {
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
}

// Selection is a serializable copy of the two independent selection references
type Selection struct {
	OpenFile     string  `json:"openFile,omitempty"`
	ActionTarget *Target `json:"actionTarget,omitempty"`
}

// NotifyLevel is the severity of a user-visible notification
type NotifyLevel int

const (
	NotifyInfo NotifyLevel = iota
	NotifyWarn
	NotifyError
)

func (l NotifyLevel) String() string {
	switch l {
	case NotifyInfo:
		return "info"
	case NotifyWarn:
		return "warn"
	case NotifyError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a message the user must see, usually carrying the error that
// caused it
type Notification struct {
	Level   NotifyLevel
	Op      string // Intent or pipeline stage that produced it i.e. "save", "delete"
	Path    string
	Message string
	Err     error
}
