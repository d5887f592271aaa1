package dok

import "context"

// Gateway is the thin facade over the remote file operations API.
// Every method is a single round-trip and may fail with a [*TransportError]
// (or [*NotFoundError] when the remote reports a missing path). Implementations
// never retry.
type Gateway interface {
	// List returns the immediate children of the directory at path.
	// The order is whatever the remote returns.
	List(ctx context.Context, path string) ([]Entry, error)

	// ReadRaw returns the full content of the file at path
	ReadRaw(ctx context.Context, path string) (string, error)

	// Write overwrites the file at path with content
	Write(ctx context.Context, path, content string) error

	CreateFile(ctx context.Context, path string) error
	CreateDirectory(ctx context.Context, path string) error

	// Delete removes a file, or a directory recursively.
	// Callers are responsible for confirming destructive intent first.
	Delete(ctx context.Context, path string) error

	// Move relocates source to become a child of the directory destination
	Move(ctx context.Context, source, destination string) error
}

// Notifier surfaces errors and messages to the user
type Notifier interface {
	Notify(n Notification)
}

// Prompter collects interactive input from the user
type Prompter interface {
	// Prompt asks for a line of text. ok is false if the user cancelled.
	Prompt(message string) (answer string, ok bool)

	// Confirm asks a yes/no question
	Confirm(message string) bool
}

// Renderer receives a fresh projection of the controller state after every intent.
// Rendering is a pure function of the View; renderers keep no tree state of their own.
type Renderer interface {
	Render(view View)
}

// Previewer turns editor content into its rendered preview (i.e. markdown to HTML)
type Previewer interface {
	Preview(content string) (string, error)
}
