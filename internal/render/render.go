// Package render draws the board, the history panel and the connectivity
// line as terminal text with lipgloss.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mesh-intelligence/taskboard/internal/board"
	"github.com/mesh-intelligence/taskboard/internal/transition"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// DefaultWidth is the board width used when none is set.
const DefaultWidth = 120

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

var columns = []struct {
	status types.Status
	name   string
}{
	{types.StatusTodo, "To do"},
	{types.StatusDoing, "Doing"},
	{types.StatusDone, "Done"},
}

// Renderer formats board state for one output. Colors follow the color
// profile of that output, so writing to a file or a pipe yields plain text.
type Renderer struct {
	width  int
	styles styles
}

// New returns a Renderer for out that lays the board out in width columns.
// A non-positive width uses DefaultWidth.
func New(out io.Writer, width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{
		width:  width,
		styles: newStyles(lipgloss.NewRenderer(out)),
	}
}

// Board draws the three status columns side by side. Each header carries
// the column count, and a footer line shows the auto-exec pending total.
func (r *Renderer) Board(tasks []types.Task) string {
	counts := types.CountTasks(tasks)
	perColumn := map[types.Status]int{
		types.StatusTodo:  counts.Todo,
		types.StatusDoing: counts.Doing,
		types.StatusDone:  counts.Done,
	}

	// border and padding take four cells per column
	inner := max(r.width/len(columns)-4, 16)

	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		var b strings.Builder
		b.WriteString(r.styles.header.Render(fmt.Sprintf("%s (%d)", c.name, perColumn[c.status])))
		b.WriteString("\n\n")
		n := 0
		for _, t := range tasks {
			if t.Status != c.status {
				continue
			}
			b.WriteString(r.styles.card.Width(inner).Render(r.Card(t)))
			b.WriteString("\n")
			n++
		}
		if n == 0 {
			b.WriteString(r.styles.muted.Render("empty"))
		}
		cols = append(cols, r.styles.column.Width(inner).Render(strings.TrimRight(b.String(), "\n")))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cols...),
		r.AutoExec(counts.AutoExecPending),
	)
}

// Card draws one task: title, optional description, badges and metadata.
func (r *Renderer) Card(t types.Task) string {
	lines := []string{r.styles.title.Render(t.Title)}
	if t.Description != "" {
		lines = append(lines, r.styles.description.Render(t.Description))
	}
	lines = append(lines, r.badges(t))
	meta := []string{t.CreatedAt.Local().Format(dateLayout)}
	if t.Assignee != "" {
		meta = append(meta, t.Assignee)
	}
	lines = append(lines, r.styles.muted.Render(strings.Join(meta, " · ")))
	lines = append(lines, r.styles.muted.Render(t.ID))
	return strings.Join(lines, "\n")
}

// History draws completed tasks in the order given, newest first as the
// store returns them.
func (r *Renderer) History(tasks []types.Task) string {
	if len(tasks) == 0 {
		return r.styles.muted.Render("No completed tasks yet.")
	}
	entries := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines := []string{r.styles.ok.Render("✓ ") + r.styles.title.Render(t.Title)}
		if t.Description != "" {
			lines = append(lines, r.styles.description.Render(t.Description))
		}
		lines = append(lines, r.badges(t))
		completed := "completed at an unknown time"
		if t.CompletedAt != nil {
			completed = "completed " + t.CompletedAt.Local().Format(dateLayout)
		}
		lines = append(lines, r.styles.muted.Render(completed))
		entries = append(entries, strings.Join(lines, "\n"))
	}
	return strings.Join(entries, "\n\n")
}

// List draws one line per task: id, status, priority band and title.
func (r *Renderer) List(tasks []types.Task) string {
	if len(tasks) == 0 {
		return r.styles.muted.Render("No tasks.")
	}
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("%-36s  %-5s  %s  %s",
			t.ID, t.Status, r.priority(t.Priority), t.Title))
	}
	return strings.Join(lines, "\n")
}

// Stats draws the column totals.
func (r *Renderer) Stats(c types.Counts) string {
	return strings.Join([]string{
		fmt.Sprintf("%-10s %d", "To do", c.Todo),
		fmt.Sprintf("%-10s %d", "Doing", c.Doing),
		fmt.Sprintf("%-10s %d", "Done", c.Done),
		fmt.Sprintf("%-10s %d", "Auto-exec", c.AutoExecPending),
	}, "\n")
}

// Status draws the connectivity indicator.
func (r *Renderer) Status(c board.Connectivity) string {
	switch c.State {
	case board.StateConnected:
		parts := []string{r.styles.ok.Render("● connected")}
		if !c.LastSync.IsZero() {
			parts = append(parts, "last sync "+c.LastSync.Local().Format(timeLayout))
		}
		parts = append(parts, r.AutoExec(c.AutoExecPending))
		return strings.Join(parts, " · ")
	case board.StateOffline:
		line := r.styles.bad.Render("✕ offline")
		if c.Err != nil {
			line += " · " + r.styles.muted.Render(c.Err.Error())
		}
		return line
	default:
		return r.styles.warn.Render("◌ connecting...")
	}
}

// AutoExec draws the auto-exec pending total.
func (r *Renderer) AutoExec(n int) string {
	noun := "tasks"
	if n == 1 {
		noun = "task"
	}
	return r.styles.autoExec.UnsetPadding().Render(fmt.Sprintf("%d auto-exec %s", n, noun))
}

func (r *Renderer) badges(t types.Task) string {
	out := []string{r.priority(t.Priority)}
	if t.AutoExecutable {
		out = append(out, r.styles.autoExec.Render("AUTO-EXEC"))
	}
	if t.Urgent {
		out = append(out, r.styles.bad.Render("urgent"))
	}
	return strings.Join(out, " ")
}

func (r *Renderer) priority(p int) string {
	level := transition.Classify(p)
	return r.styles.priority[level.Class()].Render(level.Label())
}
