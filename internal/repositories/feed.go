package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/podplay/internal/models"
)

// FeedRepository persists [models.Feed] rows keyed by URL.
type FeedRepository struct {
	db *sql.DB
}

// NewFeedRepository creates a new FeedRepository with the given database connection
func NewFeedRepository(db *sql.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// BulkPut upserts feeds in one transaction. Rows with matching URLs are replaced, new URLs are inserted
// and feeds not mentioned are left untouched.
func (r *FeedRepository) BulkPut(feeds []models.Feed) error {
	for _, feed := range feeds {
		if err := feed.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	query := `
		INSERT INTO feeds (url, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`

	return inTx(r.db, func(tx *sql.Tx) error {
		now := time.Now()
		for _, feed := range feeds {
			doc, err := encodeDoc(feed)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(query, feed.URL, doc, now); err != nil {
				return fmt.Errorf("failed to upsert feed %s: %w", feed.URL, err)
			}
		}
		return nil
	})
}

// Get retrieves a feed by URL
func (r *FeedRepository) Get(url string) (*models.Feed, error) {
	var doc string
	err := r.db.QueryRow("SELECT doc FROM feeds WHERE url = ?", url).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("feed not found: %s", url)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}

	var feed models.Feed
	if err := json.Unmarshal([]byte(doc), &feed); err != nil {
		return nil, fmt.Errorf("failed to decode feed %s: %w", url, err)
	}
	return &feed, nil
}

// List retrieves all feeds ordered by URL
func (r *FeedRepository) List() ([]models.Feed, error) {
	rows, err := r.db.Query("SELECT doc FROM feeds ORDER BY url ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}
	defer rows.Close()

	feeds := []models.Feed{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}

		var feed models.Feed
		if err := json.Unmarshal([]byte(doc), &feed); err != nil {
			return nil, fmt.Errorf("failed to decode feed: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return feeds, nil
}

// Delete removes the feed row with the given URL. Deleting a missing feed is not an error.
func (r *FeedRepository) Delete(url string) error {
	if _, err := r.db.Exec("DELETE FROM feeds WHERE url = ?", url); err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	return nil
}

// Clear removes every feed.
func (r *FeedRepository) Clear() error {
	return clearTable(r.db, "feeds")
}
