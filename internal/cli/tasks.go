package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/board"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// boardView is the JSON shape of the board command.
type boardView struct {
	Tasks        []types.Task       `json:"tasks"`
	Counts       types.Counts       `json:"counts"`
	Connectivity board.Connectivity `json:"connectivity"`
}

func (a *app) newBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show the three task columns",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			b, err := a.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			repo := b.Repository()
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), boardView{
					Tasks:        repo.All(),
					Counts:       repo.Counts(),
					Connectivity: b.Syncer().Status(),
				})
			}
			r := a.renderer(cmd)
			fmt.Fprintln(cmd.OutOrStdout(), r.Status(b.Syncer().Status()))
			fmt.Fprintln(cmd.OutOrStdout(), r.Board(repo.All()))
			return nil
		}),
	}
}

func (a *app) newListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally only one status",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			var filter types.Status
			if status != "" {
				st, err := types.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = st
			}

			b, err := a.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			tasks := b.Repository().All()
			if filter != "" {
				tasks = b.Repository().ByStatus(filter)
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), tasks)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.renderer(cmd).List(tasks))
			return nil
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status (TODO, DOING, DONE)")
	return cmd
}

// draftFlags binds the task form to command flags.
func draftFlags(cmd *cobra.Command, d *types.Draft) {
	f := cmd.Flags()
	f.StringVar(&d.Title, "title", d.Title, "task title")
	f.StringVar(&d.Description, "description", d.Description, "task description")
	f.IntVar(&d.Priority, "priority", d.Priority, "priority (>=100 critical, >=75 high, >=50 medium)")
	f.BoolVar(&d.AutoExecutable, "auto-exec", d.AutoExecutable, "mark the task auto-executable")
	f.StringVar(&d.ExecutionCommand, "command", d.ExecutionCommand, "command stored with an auto-executable task")
}

func (a *app) newAddCmd() *cobra.Command {
	draft := types.Draft{Priority: types.DefaultPriority}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task in TODO",
		Example: `  taskboard add --title "Write report" --priority 60
  taskboard add --title "Nightly backup" --auto-exec --command "make backup"`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			// Opening a fresh local store writes the seed slot.
			if err := draft.Validate(); err != nil {
				return err
			}
			b, err := a.openBoard(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			task, err := b.Submit(cmd.Context(), "", draft)
			if err != nil {
				return err
			}
			return a.printTask(cmd, task)
		}),
	}
	draftFlags(cmd, &draft)
	return cmd
}

func (a *app) newEditCmd() *cobra.Command {
	var form types.Draft
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit the form fields of a task",
		Long: "Edit resubmits the whole task form. Fields not given on the command\n" +
			"line keep their current values.",
		Args: cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			b, err := a.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			current, ok := b.Repository().Get(args[0])
			if !ok {
				return fmt.Errorf("task %s: %w", args[0], types.ErrNotFound)
			}
			draft := mergeDraft(types.DraftFrom(current), form, cmd)

			task, err := b.Submit(cmd.Context(), current.ID, draft)
			if err != nil {
				return err
			}
			return a.printTask(cmd, task)
		}),
	}
	draftFlags(cmd, &form)
	return cmd
}

// mergeDraft overlays the form fields whose flags were set on base.
func mergeDraft(base, form types.Draft, cmd *cobra.Command) types.Draft {
	f := cmd.Flags()
	if f.Changed("title") {
		base.Title = form.Title
	}
	if f.Changed("description") {
		base.Description = form.Description
	}
	if f.Changed("priority") {
		base.Priority = form.Priority
	}
	if f.Changed("auto-exec") {
		base.AutoExecutable = form.AutoExecutable
	}
	if f.Changed("command") {
		base.ExecutionCommand = form.ExecutionCommand
	}
	return base
}

func (a *app) newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Example: `  taskboard move 0195f3c2-... doing
  taskboard move 0195f3c2-... DONE`,
		Args: cobra.ExactArgs(2),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			target, err := types.ParseStatus(args[1])
			if err != nil {
				return err
			}

			b, err := a.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			task, changed, err := b.Move(cmd.Context(), args[0], target)
			if err != nil {
				return err
			}
			if !changed && !a.flags.jsonMode {
				fmt.Fprintf(cmd.ErrOrStderr(), "Task %q is already %s\n", task.Title, task.Status)
			}
			return a.printTask(cmd, task)
		}),
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			b, err := a.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			req, err := b.RequestDelete(args[0])
			if err != nil {
				return fmt.Errorf("task %s: %w", args[0], err)
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete task %q? [y/N] ", req.Title)) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Delete cancelled")
				return nil
			}
			if err := b.ConfirmDelete(cmd.Context(), req); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": req.ID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), req.ID)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprint(cmd.ErrOrStderr(), question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *app) newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List completed tasks, most recent first",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			b, err := a.openBoard(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			tasks, err := b.History(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), tasks)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.renderer(cmd).History(tasks))
			return nil
		}),
	}
}

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show column totals and auto-exec pending tasks",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			b, err := a.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			counts := b.Repository().Counts()
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), counts)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.renderer(cmd).Stats(counts))
			return nil
		}),
	}
}

// printTask writes a saved task: the full record in JSON mode, its ID
// otherwise.
func (a *app) printTask(cmd *cobra.Command, task types.Task) error {
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), task)
	}
	fmt.Fprintln(cmd.OutOrStdout(), task.ID)
	return nil
}
