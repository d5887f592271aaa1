package term

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/internal/util"
	"github.com/sahilm/fuzzy"
)

// Controller is the set of intents the shell drives
type Controller interface {
	ToggleDirectory(ctx context.Context, path string)
	OpenFile(ctx context.Context, path string)
	Edit(content string)
	Save(ctx context.Context)
	CreateFile(ctx context.Context)
	CreateDirectory(ctx context.Context)
	Delete(ctx context.Context)
	DragStart(path string)
	Drop(ctx context.Context, destination string)
	Refresh(ctx context.Context)
	SelectForAction(path string, isDirectory bool)
	ClearTarget()
	Lookup(path string) (dok.Entry, bool)
	View() dok.View
	Close(ctx context.Context) error
}

// editTerminator ends multi-line input to the edit command
const editTerminator = "."

// maxFindResults caps the matches printed by find
const maxFindResults = 10

var errUsage = errors.New("usage")

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// Shell reads commands from the console and dispatches them as intents.
// Paths are whitespace separated so they cannot contain spaces.
type Shell struct {
	ctrl     Controller
	console  *Console
	commands map[string]command
}

func NewShell(ctrl Controller, console *Console) *Shell {
	s := &Shell{ctrl: ctrl, console: console}
	s.commands = map[string]command{
		"ls": {"ls", "show the tree", func(context.Context, []string) error {
			console.Render(ctrl.View())
			return nil
		}},
		"toggle": {"toggle <dir>", "expand or collapse a directory and target it", func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			ctrl.ToggleDirectory(ctx, args[0])
			return nil
		}},
		"open": {"open <file>", "open a file in the editor", func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			ctrl.OpenFile(ctx, args[0])
			return nil
		}},
		"select": {"select [path]", "target a path for actions, or clear the target", s.selectPath},
		"edit":   {"edit", "replace the open file's content; end input with a line containing only '.'", s.edit},
		"cat": {"cat", "print the open file's content", func(context.Context, []string) error {
			console.Println(ctrl.View().Editor.Content)
			return nil
		}},
		"preview": {"preview", "print the rendered preview", func(context.Context, []string) error {
			console.Println(ctrl.View().Editor.Preview)
			return nil
		}},
		"save": {"save", "save now", func(ctx context.Context, _ []string) error {
			ctrl.Save(ctx)
			return nil
		}},
		"touch": {"touch", "create a file in the target directory", func(ctx context.Context, _ []string) error {
			ctrl.CreateFile(ctx)
			return nil
		}},
		"mkdir": {"mkdir", "create a directory in the target directory", func(ctx context.Context, _ []string) error {
			ctrl.CreateDirectory(ctx)
			return nil
		}},
		"rm": {"rm", "delete the target", func(ctx context.Context, _ []string) error {
			ctrl.Delete(ctx)
			return nil
		}},
		"mv": {"mv <path> [dir]", "move a path into a directory (root if omitted)", func(ctx context.Context, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return errUsage
			}
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}
			ctrl.DragStart(args[0])
			ctrl.Drop(ctx, dest)
			return nil
		}},
		"refresh": {"refresh", "reload every open directory", func(ctx context.Context, _ []string) error {
			ctrl.Refresh(ctx)
			return nil
		}},
		"find": {"find <query>", "fuzzy search the paths of loaded entries", s.find},
		"help": {"help", "list commands", s.help},
	}
	return s
}

// Run executes commands until end of input, "quit" or ctx is done, then
// closes the controller, flushing any unsaved content.
func (s *Shell) Run(ctx context.Context) error {
	logger := util.GetLogger("Shell.Run")
	for ctx.Err() == nil {
		s.console.printf("%s", s.console.st.prompt.Render("dok> "))
		line, ok := s.console.ReadLine()
		if !ok {
			s.console.Println()
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if name == "quit" || name == "exit" {
			break
		}

		cmd, found := s.commands[name]
		if !found {
			s.console.Println(fmt.Sprintf("unknown command %q (try 'help')", name))
			continue
		}
		logger.Trace().Str("cmd", name).Strs("args", fields[1:]).Msg("Dispatching")
		if err := cmd.run(ctx, fields[1:]); err != nil {
			if errors.Is(err, errUsage) {
				s.console.Println("usage: " + cmd.usage)
				continue
			}
			s.console.Println(err.Error())
		}
	}
	return s.ctrl.Close(context.WithoutCancel(ctx))
}

func (s *Shell) selectPath(_ context.Context, args []string) error {
	switch len(args) {
	case 0:
		s.ctrl.ClearTarget()
		return nil
	case 1:
		e, ok := s.ctrl.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown path %s (expand its directory first)", dok.CleanPath(args[0]))
		}
		s.ctrl.SelectForAction(e.Path, e.IsDirectory)
		return nil
	default:
		return errUsage
	}
}

func (s *Shell) edit(_ context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	var lines []string
	for {
		line, ok := s.console.ReadLine()
		if !ok || line == editTerminator {
			break
		}
		lines = append(lines, line)
	}
	s.ctrl.Edit(strings.Join(lines, "\n"))
	return nil
}

// find matches query against every loaded path, best match first
func (s *Shell) find(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	rows := s.ctrl.View().Rows
	paths := make([]string, 0, len(rows))
	for _, r := range rows {
		paths = append(paths, r.Path)
	}

	matches := fuzzy.Find(args[0], paths)
	if len(matches) == 0 {
		return fmt.Errorf("no loaded path matches %q", args[0])
	}
	if len(matches) > maxFindResults {
		matches = matches[:maxFindResults]
	}
	for _, m := range matches {
		s.console.Println(m.Str)
	}
	return nil
}

func (s *Shell) help(context.Context, []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := s.commands[name]
		s.console.Println(fmt.Sprintf("  %-18s %s", c.usage, s.console.st.hint.Render(c.help)))
	}
	s.console.Println(fmt.Sprintf("  %-18s %s", "quit", s.console.st.hint.Render("save and exit")))
	return nil
}
