package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/podplay/internal/models"
)

// ItemRepository persists [models.Item] rows keyed by URL with a secondary lookup on feed URL.
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new ItemRepository with the given database connection
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// BulkPut upserts items in one transaction, keyed by URL.
func (r *ItemRepository) BulkPut(items []models.Item) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	query := `
		INSERT INTO items (url, feed_url, doc, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET feed_url = excluded.feed_url, doc = excluded.doc, updated_at = excluded.updated_at
	`

	return inTx(r.db, func(tx *sql.Tx) error {
		now := time.Now()
		for _, item := range items {
			doc, err := encodeDoc(item)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(query, item.URL, item.FeedURL, doc, now); err != nil {
				return fmt.Errorf("failed to upsert item %s: %w", item.URL, err)
			}
		}
		return nil
	})
}

// Get retrieves an item by URL
func (r *ItemRepository) Get(url string) (*models.Item, error) {
	var doc string
	err := r.db.QueryRow("SELECT doc FROM items WHERE url = ?", url).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item not found: %s", url)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	var item models.Item
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", url, err)
	}
	return &item, nil
}

// List retrieves all items ordered by URL
func (r *ItemRepository) List() ([]models.Item, error) {
	return r.query("SELECT doc FROM items ORDER BY url ASC")
}

// ListByFeed retrieves the items belonging to feedURL using the feed_url index
func (r *ItemRepository) ListByFeed(feedURL string) ([]models.Item, error) {
	return r.query("SELECT doc FROM items WHERE feed_url = ? ORDER BY url ASC", feedURL)
}

// DeleteByFeed removes every item whose feed URL equals feedURL and reports how many rows went.
func (r *ItemRepository) DeleteByFeed(feedURL string) (int64, error) {
	result, err := r.db.Exec("DELETE FROM items WHERE feed_url = ?", feedURL)
	if err != nil {
		return 0, fmt.Errorf("failed to delete items for feed %s: %w", feedURL, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// Clear removes every item.
func (r *ItemRepository) Clear() error {
	return clearTable(r.db, "items")
}

func (r *ItemRepository) query(query string, args ...any) ([]models.Item, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		var item models.Item
		if err := json.Unmarshal([]byte(doc), &item); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}
