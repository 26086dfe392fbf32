package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/podplay/internal/models"
)

// singletonID is the fixed key of the only row in a singleton table.
const singletonID = 1

// DocumentRepository persists a singleton table (setting or view) holding one opaque JSON document.
type DocumentRepository struct {
	db    *sql.DB
	table string
}

// NewDocumentRepository creates a [DocumentRepository] for a singleton table.
func NewDocumentRepository(db *sql.DB, table models.Table) (*DocumentRepository, error) {
	if !table.Singleton() {
		return nil, fmt.Errorf("table %s is not a singleton table", table)
	}
	// "view" is an SQL keyword
	return &DocumentRepository{db: db, table: fmt.Sprintf("%q", table.String())}, nil
}

// Get returns the stored document, or nil when the row has never been written.
func (r *DocumentRepository) Get() (json.RawMessage, error) {
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", r.table)

	var doc string
	err := r.db.QueryRow(query, singletonID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.table, err)
	}

	return json.RawMessage(doc), nil
}

// Put overwrites the single row with doc.
func (r *DocumentRepository) Put(doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("invalid JSON document for %s", r.table)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, r.table)

	if _, err := r.db.Exec(query, singletonID, string(doc), time.Now()); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.table, err)
	}
	return nil
}

// Clear removes the document.
func (r *DocumentRepository) Clear() error {
	return clearTable(r.db, r.table)
}
