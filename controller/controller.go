// Package controller binds user intents to the tree cache, selection,
// autosave and move components and re-renders after each one.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/autosave"
	"github.com/brettbedarf/dok/internal/util"
	"github.com/brettbedarf/dok/move"
	"github.com/brettbedarf/dok/preview"
	"github.com/brettbedarf/dok/selection"
	"github.com/brettbedarf/dok/tree"
	"golang.org/x/text/language"
)

// Options carries the controller's collaborators. Nil UI collaborators are
// replaced with ones that do nothing; a nil Previewer renders markdown.
type Options struct {
	Notifier  dok.Notifier
	Prompter  dok.Prompter
	Renderer  dok.Renderer
	Previewer dok.Previewer

	Locale    language.Tag
	SaveDelay time.Duration
	AfterFunc autosave.AfterFunc // timer factory for the autosave debounce
}

type Controller struct {
	gw        dok.Gateway
	cache     *tree.Cache
	sel       *selection.Model
	save      *autosave.Pipeline
	mover     *move.Validator
	notifier  dok.Notifier
	prompter  dok.Prompter
	renderer  dok.Renderer
	previewer dok.Previewer

	mu       sync.Mutex
	dragging string
}

func New(gw dok.Gateway, opts Options) *Controller {
	c := &Controller{
		gw:        gw,
		notifier:  opts.Notifier,
		prompter:  opts.Prompter,
		renderer:  opts.Renderer,
		previewer: opts.Previewer,
	}
	if c.notifier == nil {
		c.notifier = nopUI{}
	}
	if c.prompter == nil {
		c.prompter = nopUI{}
	}
	if c.renderer == nil {
		c.renderer = nopUI{}
	}
	if c.previewer == nil {
		c.previewer = preview.NewMarkdown()
	}

	locale := opts.Locale
	if locale == language.Und {
		locale = language.English
	}
	c.cache = tree.NewCache(gw, locale)
	c.sel = selection.NewModel()

	saveOpts := []autosave.Option{autosave.WithDelay(opts.SaveDelay)}
	if opts.AfterFunc != nil {
		saveOpts = append(saveOpts, autosave.WithAfterFunc(opts.AfterFunc))
	}
	c.save = autosave.NewPipeline(gw, c.notifier, saveOpts...)
	c.mover = move.NewValidator(gw, c.cache)
	return c
}

// Load fetches the root listing
func (c *Controller) Load(ctx context.Context) {
	defer c.render()
	if err := c.cache.LoadRoot(ctx); err != nil {
		c.notify(dok.NotifyError, "list", dok.RootPath, "Failed to load files", err)
	}
}

// ToggleDirectory expands or collapses path and makes it the action target
func (c *Controller) ToggleDirectory(ctx context.Context, path string) {
	defer c.render()
	path = dok.CleanPath(path)
	c.sel.SelectForAction(path, true)
	if _, err := c.cache.Expand(ctx, path); err != nil {
		c.notify(dok.NotifyError, "list", path, fmt.Sprintf("Failed to open directory '%s'", path), err)
	}
}

// OpenFile opens path in the editor. A directory path is toggled instead.
// The loaded content is only applied if no other file was opened meanwhile.
func (c *Controller) OpenFile(ctx context.Context, path string) {
	path = dok.CleanPath(path)
	entry, ok := c.cache.Lookup(path)
	if ok && entry.IsDirectory {
		c.ToggleDirectory(ctx, path)
		return
	}
	if !ok {
		entry = dok.Entry{Path: path}
	}
	defer c.render()

	logger := util.GetLogger("Controller.OpenFile")
	if err := c.sel.SelectFile(entry); err != nil {
		c.notify(dok.NotifyWarn, "open", path, "Cannot open a directory", err)
		return
	}
	// A failed flush of the previous file is notified by the pipeline
	id, _ := c.save.Begin(ctx, path)

	content, err := c.gw.ReadRaw(ctx, path)
	if err != nil {
		if c.save.LoadFailed(id, err) {
			if c.sel.OpenFile() == path {
				c.sel.ClearOpenFile()
			}
			c.notify(dok.NotifyError, "raw", path, fmt.Sprintf("Failed to open '%s'", path), err)
		}
		return
	}
	if !c.save.Loaded(id, content) {
		logger.Debug().Str("path", path).Msg("Open superseded, discarding content")
	}
}

// Edit replaces the open file's content and schedules a save
func (c *Controller) Edit(content string) {
	defer c.render()
	if err := c.save.OnEdit(content); err != nil {
		c.notify(dok.NotifyWarn, "edit", c.sel.OpenFile(), "Nothing to edit", err)
	}
}

// Save writes the open file now instead of waiting for the debounce
func (c *Controller) Save(ctx context.Context) {
	defer c.render()
	// Failures are notified by the pipeline
	_ = c.save.Flush(ctx)
}

// CreateFile prompts for a name and creates an empty file in the target directory
func (c *Controller) CreateFile(ctx context.Context) {
	c.create(ctx, false)
}

// CreateDirectory prompts for a name and creates a directory in the target directory
func (c *Controller) CreateDirectory(ctx context.Context) {
	c.create(ctx, true)
}

func (c *Controller) create(ctx context.Context, isDir bool) {
	defer c.render()

	op, kind, create := "create-file", "file", c.gw.CreateFile
	if isDir {
		op, kind, create = "create-directory", "directory", c.gw.CreateDirectory
	}
	dir := c.sel.TargetDirectory()

	name, ok := c.prompter.Prompt(fmt.Sprintf("Enter %s name:", kind))
	if !ok {
		return
	}
	name = strings.TrimSpace(name)
	if err := validateName(op, dir, name); err != nil {
		c.notify(dok.NotifyWarn, op, dir, err.Reason, err)
		return
	}

	p := dok.JoinPath(dir, name)
	if err := create(ctx, p); err != nil {
		c.notify(dok.NotifyError, op, p, fmt.Sprintf("Failed to create %s '%s'", kind, p), err)
		return
	}
	logger := util.GetLogger("Controller.create")
	logger.Info().Str("path", p).Bool("dir", isDir).Msg("Created")
	c.refreshAll(ctx)
	c.sel.ClearActionTarget()
}

func validateName(op, dir, name string) *dok.ValidationError {
	switch {
	case name == "":
		return &dok.ValidationError{Op: op, Path: dir, Reason: "Name cannot be empty."}
	case strings.Contains(name, "/"):
		return &dok.ValidationError{Op: op, Path: dir, Reason: "Name cannot contain '/'."}
	case name == "." || name == "..":
		return &dok.ValidationError{Op: op, Path: dir, Reason: fmt.Sprintf("'%s' is not a valid name.", name)}
	}
	return nil
}

// Delete removes the action target after confirmation
func (c *Controller) Delete(ctx context.Context) {
	defer c.render()

	target, ok := c.sel.ActionTarget()
	if !ok {
		err := &dok.ValidationError{Op: "delete", Reason: "no target selected"}
		c.notify(dok.NotifyWarn, "delete", "", "Please select a file or directory to delete.", err)
		return
	}
	if target.Path == dok.RootPath {
		err := &dok.ValidationError{Op: "delete", Path: target.Path, Reason: "cannot delete the root directory"}
		c.notify(dok.NotifyWarn, "delete", target.Path, "The root directory cannot be deleted.", err)
		return
	}
	if !c.prompter.Confirm(fmt.Sprintf("Are you sure you want to delete '%s'?", target.Path)) {
		return
	}

	// Nothing may be left scheduled to write into what is about to go away
	open := c.sel.OpenFile()
	if open != "" && dok.IsWithin(open, target.Path) {
		_ = c.save.Flush(ctx)
	}

	if err := c.gw.Delete(ctx, target.Path); err != nil {
		c.notify(dok.NotifyError, "delete", target.Path, fmt.Sprintf("Failed to delete '%s'", target.Path), err)
		return
	}
	logger := util.GetLogger("Controller.Delete")
	logger.Info().Str("path", target.Path).Msg("Deleted")

	switch {
	case open == target.Path:
		c.save.Discard()
		c.sel.ClearOpenFile()
	case open != "" && dok.IsWithin(open, target.Path):
		err := &dok.NotFoundError{Op: "delete", Path: open}
		c.notify(dok.NotifyWarn, "delete", open,
			fmt.Sprintf("'%s' was inside the deleted '%s'; further edits will not be saved", open, target.Path), err)
	}
	c.sel.ClearActionTarget()
	c.cache.Forget(target.Path)
	c.refreshAll(ctx)
}

// DragStart records path as the entry being dragged
func (c *Controller) DragStart(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = dok.CleanPath(path)
}

// DragEnd abandons the drag
func (c *Controller) DragEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = ""
}

// Dragging returns the path being dragged, or "" if none
func (c *Controller) Dragging() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

// Drop moves the dragged entry into destination. An empty destination is
// root and dropping onto a file drops into the directory containing it.
// Drops with no drag in progress are ignored.
func (c *Controller) Drop(ctx context.Context, destination string) {
	c.mu.Lock()
	source := c.dragging
	c.dragging = ""
	c.mu.Unlock()
	if source == "" {
		return
	}
	defer c.render()

	dest := dok.CleanPath(destination)
	if e, ok := c.cache.Lookup(dest); ok && !e.IsDirectory {
		dest = dok.ParentDir(dest)
	}

	if err := move.Check(source, dest); err != nil {
		if !errors.Is(err, dok.ErrNoopMove) {
			c.notify(dok.NotifyWarn, "move", source, fmt.Sprintf("Cannot move '%s' into '%s'", source, dest), err)
		}
		return
	}

	open := c.sel.OpenFile()
	if open != "" && dok.IsWithin(open, source) {
		_ = c.save.Flush(ctx)
	}

	res, err := c.mover.Move(ctx, source, dest)
	if err != nil {
		c.notify(dok.NotifyError, "move", source, "Move failed", err)
		return
	}
	c.sel.Rebase(res.Source, res.NewPath)
	c.save.Rebase(res.Source, res.NewPath)
}

// Refresh re-fetches root and every expanded directory
func (c *Controller) Refresh(ctx context.Context) {
	defer c.render()
	c.refreshAll(ctx)
}

// SelectForAction targets path for the next create/delete without opening it
func (c *Controller) SelectForAction(path string, isDirectory bool) {
	defer c.render()
	c.sel.SelectForAction(path, isDirectory)
}

// ClearTarget drops the action target so actions apply to root
func (c *Controller) ClearTarget() {
	defer c.render()
	c.sel.ClearActionTarget()
}

// Snapshot returns the tree's expansion state
func (c *Controller) Snapshot() tree.Snapshot {
	return c.cache.Snapshot()
}

// Restore re-opens the directories in s, dropping any that no longer exist
func (c *Controller) Restore(ctx context.Context, s tree.Snapshot) {
	defer c.render()
	c.cache.Restore(s)
	c.refreshAll(ctx)
}

// Lookup returns the cached entry at path
func (c *Controller) Lookup(path string) (dok.Entry, bool) {
	return c.cache.Lookup(path)
}

// Close flushes the open file
func (c *Controller) Close(ctx context.Context) error {
	return c.save.Close(ctx)
}

func (c *Controller) refreshAll(ctx context.Context) {
	if err := c.cache.RefreshAll(ctx); err != nil {
		c.notify(dok.NotifyError, "list", dok.RootPath, "Failed to refresh files", err)
	}
}

func (c *Controller) render() {
	c.renderer.Render(c.View())
}

func (c *Controller) notify(level dok.NotifyLevel, op, path, msg string, err error) {
	logger := util.GetLogger("Controller." + op)
	ev := logger.Warn()
	if level == dok.NotifyError {
		ev = logger.Error()
	}
	ev.Err(err).Str("path", path).Msg(msg)
	c.notifier.Notify(dok.Notification{Level: level, Op: op, Path: path, Message: msg, Err: err})
}

type nopUI struct{}

func (nopUI) Notify(dok.Notification)      {}
func (nopUI) Prompt(string) (string, bool) { return "", false }
func (nopUI) Confirm(string) bool          { return false }
func (nopUI) Render(dok.View)              {}
