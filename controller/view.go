package controller

import (
	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/autosave"
	"github.com/brettbedarf/dok/internal/util"
)

// View projects the current state into a [dok.View]. It is a pure read; the
// returned value shares nothing with the controller.
func (c *Controller) View() dok.View {
	sel := c.sel.Snapshot()
	rows := c.cache.Rows()
	for i := range rows {
		rows[i].Open = rows[i].Path == sel.OpenFile
		rows[i].Targeted = sel.ActionTarget != nil && rows[i].Path == sel.ActionTarget.Path
	}

	st := c.save.Status()
	ed := dok.EditorView{
		Path:    st.Path,
		Content: st.Content,
		State:   st.State.String(),
		Dirty:   st.Dirty,
	}
	if st.State != autosave.Closed && st.State != autosave.Loading {
		html, err := c.previewer.Preview(st.Content)
		if err != nil {
			logger := util.GetLogger("Controller.View")
			logger.Warn().Err(err).Str("path", st.Path).Msg("Preview failed")
		}
		ed.Preview = html
	}

	return dok.View{Rows: rows, Selection: sel, Editor: ed}
}
