// Package move validates and issues drag-and-drop moves
package move

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/internal/util"
)

// IsValidMove reports whether destination is neither source itself nor inside it
func IsValidMove(source, destination string) bool {
	return !(destination == source || strings.HasPrefix(destination, source+"/"))
}

// Check validates moving source into the directory destination without any
// network call. Moving into the current parent returns [dok.ErrNoopMove].
func Check(source, destination string) error {
	source = dok.CleanPath(source)
	destination = dok.CleanPath(destination)

	if source == dok.RootPath {
		return &dok.ValidationError{Op: "move", Path: source, Reason: "cannot move the root directory"}
	}
	if !IsValidMove(source, destination) {
		return &dok.ValidationError{Op: "move", Path: source, Reason: fmt.Sprintf("cannot move into itself (%s)", destination)}
	}
	if dok.ParentDir(source) == destination {
		return dok.ErrNoopMove
	}
	return nil
}

// Destination is the path source will have after moving into dir
func Destination(source, dir string) string {
	return dok.JoinPath(dir, path.Base(dok.CleanPath(source)))
}

// Mover is the subset of [dok.Gateway] a move needs
type Mover interface {
	Move(ctx context.Context, source, destination string) error
}

// Cache is what the validator invalidates after a successful move
type Cache interface {
	Invalidate(ctx context.Context, paths ...string) error
	Forget(path string)
}

type Validator struct {
	mover Mover
	cache Cache
}

func NewValidator(mover Mover, cache Cache) *Validator {
	return &Validator{mover: mover, cache: cache}
}

// Result of a completed move
type Result struct {
	Source      string
	Destination string // directory moved into
	NewPath     string
}

// Move checks and performs the move, then invalidates the source's old parent
// and the destination so the next render shows the new location. A failed
// refresh after a successful move is logged and not returned, since the move
// itself happened.
func (v *Validator) Move(ctx context.Context, source, destination string) (Result, error) {
	logger := util.GetLogger("Move.Move")
	source = dok.CleanPath(source)
	destination = dok.CleanPath(destination)

	if err := Check(source, destination); err != nil {
		if errors.Is(err, dok.ErrNoopMove) {
			logger.Trace().Str("source", source).Str("destination", destination).Msg("Ignoring no-op move")
		} else {
			logger.Debug().Err(err).Msg("Rejected move")
		}
		return Result{}, err
	}

	logger.Debug().Str("source", source).Str("destination", destination).Msg("Moving")
	if err := v.mover.Move(ctx, source, destination); err != nil {
		logger.Error().Err(err).Str("source", source).Msg("Move failed")
		return Result{}, err
	}

	res := Result{Source: source, Destination: destination, NewPath: Destination(source, destination)}
	v.cache.Forget(source)
	if err := v.cache.Invalidate(ctx, dok.ParentDir(source), destination); err != nil {
		logger.Warn().Err(err).Str("source", source).Msg("Refresh after move failed")
	}
	return res, nil
}
