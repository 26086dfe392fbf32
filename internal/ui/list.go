package ui

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/podplay/internal/formatter"
	"github.com/desertthunder/podplay/internal/models"
)

var _ list.Item = episodeItem{}

// episodeItem wraps [models.Item] to implement [list.Item].
type episodeItem struct {
	item models.Item
	feed string
}

func (i episodeItem) FilterValue() string { return i.item.Title + " " + i.feed }

func (i episodeItem) Title() string {
	title := i.item.Title
	if title == "" {
		title = i.item.URL
	}
	if i.item.Played {
		return "✓ " + title
	}
	return title
}

func (i episodeItem) Description() string {
	desc := i.feed
	if i.item.Duration > 0 {
		desc = fmt.Sprintf("%s • %s", desc, formatter.FormatDuration(i.item.Duration))
	}
	if !i.item.Played && i.item.Progress > 0 {
		desc = fmt.Sprintf("%s • at %s", desc, formatter.FormatDuration(i.item.Progress))
	}
	return desc
}

// episodes orders the model's items by feed, then oldest first, so "next" continues the same show.
func episodes(model *models.Model) []episodeItem {
	items := make([]episodeItem, 0, len(model.Items))
	for _, item := range model.Items {
		feed := item.FeedURL
		if f, ok := model.FeedByURL(item.FeedURL); ok && f.Title != "" {
			feed = f.Title
		}
		items = append(items, episodeItem{item: item, feed: feed})
	}

	slices.SortStableFunc(items, func(a, b episodeItem) int {
		return cmp.Or(
			cmp.Compare(a.item.FeedURL, b.item.FeedURL),
			cmp.Compare(a.item.PubDate, b.item.PubDate),
			cmp.Compare(a.item.URL, b.item.URL),
		)
	})
	return items
}

func listItems(items []episodeItem) []list.Item {
	out := make([]list.Item, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
