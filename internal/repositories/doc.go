// Package repositories implements the SQLite storage backend behind the model store.
//
// Key Implementations:
//   - [DocumentRepository] : singleton tables (setting, view) holding one opaque JSON document at a fixed row id
//   - [FeedRepository] : feeds keyed by URL with bulk upsert
//   - [ItemRepository] : items keyed by URL with a non-unique feed_url index used by the feed delete cascade
//
// Bulk writes run in a single transaction and upsert by key: matching rows are replaced, new keys are inserted,
// rows not mentioned are left untouched. The schema itself is created by shared.RunMigrations.
package repositories
