package repositories

// Every table stores its rows as JSON documents next to the key columns used for lookups,
// so a row read back decodes to exactly the value that was written.

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// execer is satisfied by both [sql.DB] and [sql.Tx].
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// inTx runs fn inside a transaction, committing only when fn succeeds.
func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// encodeDoc marshals a row into its stored JSON form.
func encodeDoc(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(data), nil
}

// clearTable deletes every row of table.
func clearTable(db execer, table string) error {
	if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return nil
}
