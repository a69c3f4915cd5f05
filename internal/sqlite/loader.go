package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// loadTasksJSONL reads tasks.jsonl and inserts every record into the tasks
// table in file order. Loading is transactional. Malformed lines, records
// with an unknown status and duplicate IDs are skipped; unknown fields are
// ignored. Returns the number of rows loaded.
func loadTasksJSONL(db *sql.DB, dataDir string) (int, error) {
	records, err := readJSONL(filepath.Join(dataDir, tasksJSONL))
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO tasks (" + taskColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing task insert: %w", err)
	}
	defer stmt.Close()

	loaded := 0
	for _, raw := range records {
		var rec taskRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		task, err := rec.task()
		if err != nil || task.ID == "" {
			continue
		}
		if _, err := stmt.Exec(taskArgs(task)...); err != nil {
			// Constraint violations (duplicate IDs) are skipped.
			continue
		}
		loaded++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return loaded, nil
}
