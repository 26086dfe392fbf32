package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/repositories"
	"github.com/desertthunder/podplay/internal/shared"
)

// BackendOptions configures a [Backend].
type BackendOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	Logger       *log.Logger
}

// Backend is the versioned table store behind the worker.
//
// It is not safe for concurrent use apart from [Backend.Open]; the worker is its only caller.
type Backend struct {
	path   string
	opts   BackendOptions
	logger *log.Logger

	once    sync.Once
	openErr error

	db      *sql.DB
	setting *repositories.DocumentRepository
	view    *repositories.DocumentRepository
	feeds   *repositories.FeedRepository
	items   *repositories.ItemRepository
}

// NewBackend creates a backend for the SQLite database at path. Nothing is opened until [Backend.Open].
func NewBackend(path string, opts BackendOptions) *Backend {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Backend{path: path, opts: opts, logger: shared.WithLogger(logger, "component", "backend")}
}

// Open connects to the database and migrates the schema. The sequence runs at most once; later and
// concurrent calls wait for the first and return its result.
func (b *Backend) Open() error {
	b.once.Do(func() {
		b.openErr = b.open()
	})
	return b.openErr
}

func (b *Backend) open() error {
	db, err := shared.NewDatabase(b.path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}
	if b.path != shared.MemoryDatabase {
		shared.ConfigureDatabase(db, b.opts.MaxOpenConns, b.opts.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}

	version, err := shared.SchemaVersion(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}

	setting, err := repositories.NewDocumentRepository(db, models.TableSetting)
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}
	view, err := repositories.NewDocumentRepository(db, models.TableView)
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}

	b.db = db
	b.setting = setting
	b.view = view
	b.feeds = repositories.NewFeedRepository(db)
	b.items = repositories.NewItemRepository(db)

	b.logger.Debug("opened database", "path", b.path, "schema_version", version)
	return nil
}

func (b *Backend) ready() error {
	if b.db == nil {
		return shared.ErrStorageUnavailable
	}
	return nil
}

// Load reads every table into a [models.Model].
func (b *Backend) Load() (*models.Model, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}

	setting, err := b.setting.Get()
	if err != nil {
		return nil, err
	}
	view, err := b.view.Get()
	if err != nil {
		return nil, err
	}
	feeds, err := b.feeds.List()
	if err != nil {
		return nil, err
	}
	items, err := b.items.List()
	if err != nil {
		return nil, err
	}

	return &models.Model{Setting: setting, View: view, Feeds: feeds, Items: items}, nil
}

// Put writes raw into table. Singleton tables are overwritten; collection tables take a JSON array and
// are upserted by URL.
func (b *Backend) Put(table models.Table, raw json.RawMessage) error {
	if err := b.ready(); err != nil {
		return err
	}

	switch table {
	case models.TableSetting:
		return b.setting.Put(raw)
	case models.TableView:
		return b.view.Put(raw)
	case models.TableFeeds:
		var feeds []models.Feed
		if err := json.Unmarshal(raw, &feeds); err != nil {
			return fmt.Errorf("%w: feeds must be an array: %v", shared.ErrInvalidInput, err)
		}
		return b.feeds.BulkPut(feeds)
	case models.TableItems:
		var items []models.Item
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("%w: items must be an array: %v", shared.ErrInvalidInput, err)
		}
		return b.items.BulkPut(items)
	default:
		return fmt.Errorf("%w: %q", shared.ErrUnknownTable, table)
	}
}

// DeleteFeed removes the feed row, then every item whose feed URL matches.
// The two deletes are separate statements; a failure between them leaves the items behind.
func (b *Backend) DeleteFeed(feed models.Feed) error {
	if err := b.ready(); err != nil {
		return err
	}
	if err := feed.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if err := b.feeds.Delete(feed.URL); err != nil {
		return err
	}

	deleted, err := b.items.DeleteByFeed(feed.URL)
	if err != nil {
		return err
	}

	b.logger.Debug("deleted feed", "url", feed.URL, "items", deleted)
	return nil
}

// Destroy empties every table. The schema stays in place.
func (b *Backend) Destroy() error {
	if err := b.ready(); err != nil {
		return err
	}

	for _, fn := range []func() error{b.setting.Clear, b.view.Clear, b.feeds.Clear, b.items.Clear} {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database connection.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
