package local

import (
	"time"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// seedTasks returns the collection written to a slot that does not exist
// yet: one task per column so a fresh board is not empty.
func seedTasks(now time.Time, assignee string) []types.Task {
	created := now.Add(-2 * time.Hour)
	started := now.Add(-time.Hour)
	completed := now.Add(-30 * time.Minute)

	return []types.Task{
		{
			ID:          types.NewID(),
			Title:       "Review the task board",
			Description: "Create, edit and move tasks between TODO, DOING and DONE.",
			Status:      types.StatusTodo,
			Priority:    50,
			Important:   true,
			Assignee:    assignee,
			CreatedAt:   created,
			UpdatedAt:   &created,
		},
		{
			ID:               types.NewID(),
			Title:            "Configure the sync backend",
			Description:      "Point the board at the remote API or keep the local slot.",
			Status:           types.StatusDoing,
			Priority:         75,
			Urgent:           true,
			Important:        true,
			AutoExecutable:   true,
			ExecutionCommand: "taskboard config",
			Assignee:         assignee,
			CreatedAt:        created,
			StartedAt:        &started,
			UpdatedAt:        &started,
		},
		{
			ID:          types.NewID(),
			Title:       "Initialize the board",
			Status:      types.StatusDone,
			Priority:    100,
			Urgent:      true,
			Important:   true,
			Assignee:    assignee,
			CreatedAt:   created,
			StartedAt:   &created,
			CompletedAt: &completed,
			UpdatedAt:   &completed,
		},
	}
}
