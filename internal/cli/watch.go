package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/board"
	"github.com/mesh-intelligence/taskboard/pkg/store"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\x1b[H\x1b[2J"

func (a *app) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the board on screen and refresh it until interrupted",
		Long: "Watch runs the sync loop: it refreshes on start, every sync.interval\n" +
			"and, for the local backend with local.watch set, whenever another\n" +
			"process rewrites the slot. The board is redrawn after every refresh.\n" +
			"With --json one snapshot object is printed per refresh.",
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, cmd)
		}),
	}
}

func (a *app) runWatch(ctx context.Context, cmd *cobra.Command) error {
	b, err := a.openBoard(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	syncer := b.Syncer()
	if w, ok := b.Store().(store.Watcher); ok && a.cfg.Local.Watch {
		changes, err := w.Watch(ctx)
		if err != nil {
			return err
		}
		syncer.AddTrigger(changes)
	}

	out := cmd.OutOrStdout()
	r := a.renderer(cmd)
	repo := b.Repository()
	syncer.OnChange(func(c board.Connectivity) {
		if a.flags.jsonMode {
			if err := writeJSON(out, boardView{Tasks: repo.All(), Counts: repo.Counts(), Connectivity: c}); err != nil {
				a.log.Error().Err(err).Msg("write snapshot")
			}
			return
		}
		fmt.Fprint(out, clearScreen)
		fmt.Fprintln(out, r.Status(c))
		fmt.Fprintln(out, r.Board(repo.All()))
	})

	if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
