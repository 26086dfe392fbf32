package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Table names a collection in the storage backend.
type Table string

const (
	TableSetting Table = "setting"
	TableView    Table = "view"
	TableFeeds   Table = "feeds"
	TableItems   Table = "items"
)

// Tables lists every table in schema order.
var Tables = []Table{TableSetting, TableView, TableFeeds, TableItems}

// ParseTable converts a raw table name into a [Table].
func ParseTable(name string) (Table, error) {
	t := Table(strings.TrimSpace(name))
	for _, known := range Tables {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown table: %q", name)
}

// Singleton reports whether the table holds exactly one row.
func (t Table) Singleton() bool {
	return t == TableSetting || t == TableView
}

func (t Table) String() string { return string(t) }

// Extra holds JSON object members a record carries beyond its declared fields, so a stored record
// reads back with every member it was written with.
type Extra map[string]json.RawMessage

// splitExtra returns the members of the object in data whose names are not in known, or nil if there are none.
func splitExtra(data []byte, known []string) (Extra, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, name := range known {
		delete(all, name)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return Extra(all), nil
}

// joinExtra appends extra members, sorted by name, to the encoded object in data. Names in known are skipped.
func joinExtra(data []byte, extra Extra, known []string) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, name := range slices.Sorted(maps.Keys(extra)) {
		if slices.Contains(known, name) {
			continue
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		if value := extra[name]; len(value) > 0 {
			buf.Write(value)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Feed is a subscribed podcast feed. URL is unique.
type Feed struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
	Image       string `json:"image,omitempty"`
	Author      string `json:"author,omitempty"`

	// Extra keeps members the UI-state owner sent beyond the fields above.
	Extra Extra `json:"-"`
}

var feedFields = []string{"url", "title", "description", "link", "image", "author"}

func (f Feed) MarshalJSON() ([]byte, error) {
	type feed Feed
	data, err := json.Marshal(feed(f))
	if err != nil {
		return nil, err
	}
	return joinExtra(data, f.Extra, feedFields)
}

func (f *Feed) UnmarshalJSON(data []byte) error {
	type feed Feed
	var v feed
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, feedFields)
	if err != nil {
		return err
	}
	v.Extra = extra
	*f = Feed(v)
	return nil
}

// Validate checks that the feed can be stored.
func (f Feed) Validate() error {
	if strings.TrimSpace(f.URL) == "" {
		return fmt.Errorf("feed url is required")
	}
	return nil
}

// Item is a single episode. URL is unique, FeedURL is a non-unique lookup key.
type Item struct {
	URL         string  `json:"url"`
	FeedURL     string  `json:"feedUrl"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Link        string  `json:"link,omitempty"`
	PubDate     int64   `json:"pubDate,omitempty"`  // unix milliseconds
	Duration    float64 `json:"duration,omitempty"` // seconds
	Progress    float64 `json:"progress,omitempty"` // seconds
	Played      bool    `json:"played,omitempty"`

	Extra Extra `json:"-"`
}

var itemFields = []string{"url", "feedUrl", "title", "description", "link", "pubDate", "duration", "progress", "played"}

func (i Item) MarshalJSON() ([]byte, error) {
	type item Item
	data, err := json.Marshal(item(i))
	if err != nil {
		return nil, err
	}
	return joinExtra(data, i.Extra, itemFields)
}

func (i *Item) UnmarshalJSON(data []byte) error {
	type item Item
	var v item
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, itemFields)
	if err != nil {
		return err
	}
	v.Extra = extra
	*i = Item(v)
	return nil
}

// Validate checks that the item can be stored.
func (i Item) Validate() error {
	if strings.TrimSpace(i.URL) == "" {
		return fmt.Errorf("item url is required")
	}
	return nil
}

// Model is the persisted aggregate returned by the store.
//
// Setting and View are opaque documents owned by the UI-state owner; nil means absent.
type Model struct {
	Setting json.RawMessage `json:"setting,omitempty"`
	View    json.RawMessage `json:"view,omitempty"`
	Feeds   []Feed          `json:"feeds"`
	Items   []Item          `json:"items"`
}

// ItemsForFeed returns the items whose FeedURL matches url, in model order.
func (m *Model) ItemsForFeed(url string) []Item {
	var items []Item
	for _, item := range m.Items {
		if item.FeedURL == url {
			items = append(items, item)
		}
	}
	return items
}

// FeedByURL looks up a feed by its key.
func (m *Model) FeedByURL(url string) (Feed, bool) {
	for _, feed := range m.Feeds {
		if feed.URL == url {
			return feed, true
		}
	}
	return Feed{}, false
}
