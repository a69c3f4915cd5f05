// Package transition owns the task status state machine. Any status may move
// to any other; the engine only governs the lifecycle timestamps a move
// stamps, and whether the move needs to be persisted at all.
package transition

import (
	"time"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Plan computes the update that moves task to target at time now.
// The second result is false when target equals the current status; the
// caller must not write anything in that case.
//
// Entering DOING stamps StartedAt and entering DONE stamps CompletedAt, each
// only when the task does not carry that timestamp yet.
func Plan(task types.Task, target types.Status, now time.Time) (types.Patch, bool) {
	if task.Status == target {
		return types.Patch{}, false
	}

	patch := types.Patch{Status: &target}
	switch target {
	case types.StatusDoing:
		if task.StartedAt == nil {
			ts := now
			patch.StartedAt = &ts
		}
	case types.StatusDone:
		if task.CompletedAt == nil {
			ts := now
			patch.CompletedAt = &ts
		}
	}
	return patch, true
}

// Update merges patch into task and stamps the lifecycle timestamps when the
// status changes. Entering DOING sets StartedAt and entering DONE sets
// CompletedAt, each only if unset. A timestamp carried by the patch is used
// for the stamp it matches; otherwise now is. Edits that leave the status
// alone never touch the timestamps.
func Update(task *types.Task, patch types.Patch, now time.Time) {
	from := task.Status
	patch.Apply(task)
	if task.Status == from {
		return
	}

	switch task.Status {
	case types.StatusDoing:
		if task.StartedAt == nil {
			task.StartedAt = stampTime(patch.StartedAt, now)
		}
	case types.StatusDone:
		if task.CompletedAt == nil {
			task.CompletedAt = stampTime(patch.CompletedAt, now)
		}
	}
}

func stampTime(requested *time.Time, now time.Time) *time.Time {
	ts := now
	if requested != nil {
		ts = requested.UTC()
	}
	return &ts
}
