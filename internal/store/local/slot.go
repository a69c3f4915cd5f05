package local

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/taskboard/internal/atomicfile"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// slotFile returns the path of the named slot inside dataDir.
func slotFile(dataDir, slot string) string {
	return filepath.Join(dataDir, slot+".json")
}

// readSlot decodes the task collection stored at path. The boolean result is
// false when the slot does not exist.
func readSlot(path string) ([]types.Task, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}

	var tasks []types.Task
	if len(data) == 0 {
		return tasks, true, nil
	}
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, true, fmt.Errorf("decoding %s: %w", path, err)
	}
	return tasks, true, nil
}

// writeSlot atomically replaces the slot with the full task collection.
func writeSlot(path string, tasks []types.Task) error {
	if tasks == nil {
		tasks = []types.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tasks: %w", err)
	}
	return atomicfile.Write(path, ".slot-*.tmp", func(w *bufio.Writer) error {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("tasks: %w", err)
		}
		return w.WriteByte('\n')
	})
}
