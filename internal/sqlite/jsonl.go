package sqlite

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/taskboard/internal/atomicfile"
)

const tasksJSONL = "tasks.jsonl"

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file, one per line.
func writeJSONL(path string, records []json.RawMessage) error {
	return atomicfile.Write(path, ".jsonl-*.tmp", func(w *bufio.Writer) error {
		for _, rec := range records {
			if _, err := w.Write(rec); err != nil {
				return fmt.Errorf("record: %w", err)
			}
			if err := w.WriteByte('\n'); err != nil {
				return fmt.Errorf("newline: %w", err)
			}
		}
		return nil
	})
}

// initTasksJSONL creates an empty tasks.jsonl when none exists.
func initTasksJSONL(dataDir string) error {
	path := filepath.Join(dataDir, tasksJSONL)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", tasksJSONL, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("creating %s: %w", tasksJSONL, err)
	}
	return nil
}

// persistTasksJSONL writes all task records to tasks.jsonl atomically.
func persistTasksJSONL(dataDir string, records []json.RawMessage) error {
	return writeJSONL(filepath.Join(dataDir, tasksJSONL), records)
}
