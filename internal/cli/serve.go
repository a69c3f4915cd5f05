package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/postgres"
	"github.com/mesh-intelligence/taskboard/internal/server"
	"github.com/mesh-intelligence/taskboard/internal/sqlite"
	"github.com/mesh-intelligence/taskboard/internal/store/local"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// serverDataDir is the subdirectory of the data directory holding the
// sqlite driver's files.
const serverDataDir = "server"

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the task API server",
		Long: "Serve exposes the task API under /api (GET/POST /tasks,\n" +
			"PUT/DELETE /tasks/{id}, GET /history) for the api backend.\n" +
			"server.driver selects the storage: sqlite (default), postgres or local.",
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, cmd)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}

func (a *app) runServe(ctx context.Context, cmd *cobra.Command) error {
	if err := a.cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	s, err := a.openServerStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving the task API on %s/api (driver %s)\n", a.cfg.Server.Addr, a.cfg.Server.Driver)
	return server.New(s, a.log).ListenAndServe(ctx, a.cfg.Server.Addr)
}

// openServerStore opens the backing store selected by server.driver.
func (a *app) openServerStore(ctx context.Context) (types.Store, error) {
	var (
		s   types.Store
		err error
	)
	switch a.cfg.Server.Driver {
	case types.DriverPostgres:
		s, err = postgres.Connect(ctx, a.cfg.Server.DSN, a.log)
	case types.DriverLocal:
		s, err = local.Open(local.Options{
			DataDir:  a.cfg.DataDir,
			Slot:     a.cfg.Local.Slot,
			Assignee: a.cfg.Assignee,
			Logger:   a.log,
		})
	default:
		s, err = sqlite.Open(filepath.Join(a.cfg.DataDir, serverDataDir), a.log)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
