package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/board"
	"github.com/mesh-intelligence/taskboard/internal/render"
	"github.com/mesh-intelligence/taskboard/pkg/store"
)

// openBoard opens the configured store and wires a Board around it. The
// caller must Close the board.
func (a *app) openBoard(cmd *cobra.Command) (*board.Board, error) {
	s, err := store.Open(a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	return board.New(s, board.Options{
		Assignee:     a.cfg.Assignee,
		SyncInterval: a.cfg.SyncInterval,
		Notifier:     a.notifier(cmd),
		Logger:       a.log,
	}), nil
}

// loadBoard is openBoard followed by one refresh, so the cache holds the
// current tasks. A failed refresh closes the board and is returned.
func (a *app) loadBoard(ctx context.Context, cmd *cobra.Command) (*board.Board, error) {
	b, err := a.openBoard(cmd)
	if err != nil {
		return nil, err
	}
	if err := b.Syncer().Sync(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return b, nil
}

// notifier prints success notices to stderr. Errors are printed once by
// Execute, and JSON mode keeps stderr quiet.
func (a *app) notifier(cmd *cobra.Command) board.Notifier {
	w := cmd.ErrOrStderr()
	return board.NotifierFunc(func(n board.Notice) {
		if a.flags.jsonMode || n.Level != board.NoticeSuccess {
			return
		}
		fmt.Fprintln(w, n.Message)
	})
}

func (a *app) renderer(cmd *cobra.Command) *render.Renderer {
	return render.New(cmd.OutOrStdout(), 0)
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
