package dok

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	transport := &TransportError{Op: "list", Path: "/", StatusCode: 502}
	notFound := &NotFoundError{Op: "raw", Path: "/gone.md"}
	validation := &ValidationError{Op: "move", Path: "/notes", Reason: "cannot move into itself"}

	wrapped := fmt.Errorf("refresh: %w", transport)
	assert.True(t, IsTransport(wrapped))
	assert.False(t, IsNotFound(wrapped))

	assert.True(t, IsNotFound(fmt.Errorf("open: %w", notFound)))
	assert.True(t, IsValidation(validation))
	assert.False(t, IsValidation(ErrNoopMove))

	joined := errors.Join(transport, notFound)
	assert.True(t, IsTransport(joined))
	assert.True(t, IsNotFound(joined))
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "list /: remote returned status 502",
		(&TransportError{Op: "list", Path: "/", StatusCode: 502}).Error())

	cause := errors.New("connection refused")
	te := &TransportError{Op: "save", Path: "/a.md", Err: cause}
	assert.Equal(t, "save /a.md: connection refused", te.Error())
	assert.ErrorIs(t, te, cause)

	assert.Equal(t, "raw /gone.md: not found", (&NotFoundError{Op: "raw", Path: "/gone.md"}).Error())
	assert.Equal(t, "delete: no target selected", (&ValidationError{Op: "delete", Reason: "no target selected"}).Error())
}

func TestNotifyLevel_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "info", NotifyInfo.String())
	assert.Equal(t, "warn", NotifyWarn.String())
	assert.Equal(t, "error", NotifyError.String())
	assert.Equal(t, "unknown", NotifyLevel(9).String())
}
