// Package term is a line-oriented terminal front end: it prompts, prints
// notifications and renders views, and runs a command shell over a controller.
package term

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/brettbedarf/dok"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type styles struct {
	prompt lipgloss.Style
	dir    lipgloss.Style
	file   lipgloss.Style
	mark   lipgloss.Style
	hint   lipgloss.Style
	info   lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out, termenv.WithColorCache(true))
	return styles{
		prompt: r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		dir:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		file:   r.NewStyle(),
		mark:   r.NewStyle().Foreground(lipgloss.Color("212")),
		hint:   r.NewStyle().Foreground(lipgloss.Color("241")),
		info:   r.NewStyle().Foreground(lipgloss.Color("42")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("214")),
		err:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// Console implements [dok.Prompter], [dok.Notifier] and [dok.Renderer] over a
// pair of streams. Output is serialized since autosave notifications arrive
// from timer goroutines.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	st  styles

	mu sync.Mutex
}

var (
	_ dok.Prompter = (*Console)(nil)
	_ dok.Notifier = (*Console)(nil)
	_ dok.Renderer = (*Console)(nil)
)

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out, st: newStyles(out)}
}

// ReadLine reads one line without its terminator. ok is false at end of input.
func (c *Console) ReadLine() (line string, ok bool) {
	line, err := c.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

// Prompt prints message and reads the answer. End of input cancels.
func (c *Console) Prompt(message string) (string, bool) {
	c.printf("%s ", c.st.prompt.Render(message))
	return c.ReadLine()
}

// Confirm accepts "y" or "yes" in any case; anything else declines
func (c *Console) Confirm(message string) bool {
	c.printf("%s %s ", c.st.prompt.Render(message), c.st.hint.Render("[y/N]"))
	answer, ok := c.ReadLine()
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *Console) Notify(n dok.Notification) {
	style := c.st.info
	switch n.Level {
	case dok.NotifyWarn:
		style = c.st.warn
	case dok.NotifyError:
		style = c.st.err
	}
	msg := n.Message
	if n.Err != nil && n.Level == dok.NotifyError {
		msg = fmt.Sprintf("%s: %v", msg, n.Err)
	}
	c.printf("%s %s\n", style.Render(n.Level.String()+":"), msg)
}

// Render prints the tree and a status line for the editor
func (c *Console) Render(v dok.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	writeTree(c.out, v, c.st)
}

// Println writes a plain line
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, a...) // nolint:errcheck
}

func (c *Console) printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, a...) // nolint:errcheck
}

func writeTree(w io.Writer, v dok.View, st styles) {
	var b strings.Builder
	if len(v.Rows) == 0 {
		b.WriteString(st.hint.Render("(empty)") + "\n")
	}
	for _, r := range v.Rows {
		b.WriteString(strings.Repeat("  ", r.Depth))
		if r.IsDirectory {
			icon := "▸ "
			if r.Expanded {
				icon = "▾ "
			}
			b.WriteString(icon + st.dir.Render(r.Name+"/"))
			if r.Expanded && !r.Loaded {
				b.WriteString(" " + st.hint.Render("(loading)"))
			}
		} else {
			b.WriteString("  " + st.file.Render(r.Name))
		}
		if r.Open {
			b.WriteString(" " + st.mark.Render("[open]"))
		}
		if r.Targeted {
			b.WriteString(" " + st.mark.Render("[target]"))
		}
		b.WriteString("\n")
	}

	if v.Editor.Path != "" {
		state := v.Editor.State
		if v.Editor.Dirty {
			state += ", modified"
		}
		b.WriteString(st.hint.Render(fmt.Sprintf("-- %s (%s) --", v.Editor.Path, state)) + "\n")
	}
	io.WriteString(w, b.String()) // nolint:errcheck
}
