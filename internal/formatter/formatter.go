// package formatter exports the stored podcast model to CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/podplay/internal/models"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// DefaultBasename is used when no output path is given.
const DefaultBasename = "podplay_export"

// ParseFormat converts a CLI value into a [Format].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatMarkdown, FormatText:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
}

// FormatDuration renders seconds as m:ss, or h:mm:ss for an hour or more.
func FormatDuration(seconds float64) string {
	total := int(max(seconds, 0))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatPubDate(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.DateOnly)
}

func feedTitle(model *models.Model, url string) string {
	if feed, ok := model.FeedByURL(url); ok && feed.Title != "" {
		return feed.Title
	}
	return url
}

func itemTitle(item models.Item) string {
	if item.Title != "" {
		return item.Title
	}
	return item.URL
}

// orphans returns items whose feed is not in the model.
func orphans(model *models.Model) []models.Item {
	var items []models.Item
	for _, item := range model.Items {
		if _, ok := model.FeedByURL(item.FeedURL); !ok {
			items = append(items, item)
		}
	}
	return items
}

// ExportToCSV converts the model's items to CSV with columns: Feed, URL, Title, Published, Duration, Progress, Played
func ExportToCSV(model *models.Model) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Feed", "URL", "Title", "Published", "Duration", "Progress", "Played"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range model.Items {
		record := []string{
			feedTitle(model, item.FeedURL),
			item.URL,
			item.Title,
			formatPubDate(item.PubDate),
			strconv.FormatFloat(item.Duration, 'f', -1, 64),
			strconv.FormatFloat(item.Progress, 'f', -1, 64),
			strconv.FormatBool(item.Played),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts the model to Markdown, one section per feed.
//
// covers maps a feed URL to an image filename referenced under the feed heading.
func ExportToMarkdown(model *models.Model, covers map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Podcasts\n\n")
	buf.WriteString(fmt.Sprintf("**Feeds**: %d\n", len(model.Feeds)))
	buf.WriteString(fmt.Sprintf("**Episodes**: %d\n\n", len(model.Items)))

	writeItems := func(items []models.Item) {
		for i, item := range items {
			line := fmt.Sprintf("%d. [%s](%s)", i+1, itemTitle(item), item.URL)
			if item.Duration > 0 {
				line += fmt.Sprintf(" [%s]", FormatDuration(item.Duration))
			}
			if item.Played {
				line += " (played)"
			} else if item.Progress > 0 {
				line += fmt.Sprintf(" (at %s)", FormatDuration(item.Progress))
			}
			buf.WriteString(line + "\n")
		}
		buf.WriteString("\n")
	}

	for _, feed := range model.Feeds {
		buf.WriteString(fmt.Sprintf("## %s\n\n", feedTitle(model, feed.URL)))

		if cover := covers[feed.URL]; cover != "" {
			buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", cover))
		}
		if feed.Author != "" {
			buf.WriteString(fmt.Sprintf("**Author**: %s\n\n", feed.Author))
		}
		if feed.Description != "" {
			buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", feed.Description))
		}

		writeItems(model.ItemsForFeed(feed.URL))
	}

	if rest := orphans(model); len(rest) > 0 {
		buf.WriteString("## Other episodes\n\n")
		writeItems(rest)
	}

	return buf.Bytes(), nil
}

// ExportToText converts the model to plain text
func ExportToText(model *models.Model) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Feeds: %d\n", len(model.Feeds)))
	buf.WriteString(fmt.Sprintf("Episodes: %d\n\n", len(model.Items)))

	for _, feed := range model.Feeds {
		buf.WriteString(fmt.Sprintf("%s (%s)\n", feedTitle(model, feed.URL), feed.URL))
		for i, item := range model.ItemsForFeed(feed.URL) {
			buf.WriteString(fmt.Sprintf("  %d. %s\n", i+1, itemTitle(item)))
		}
	}

	for _, item := range orphans(model) {
		buf.WriteString(fmt.Sprintf("- %s (%s)\n", itemTitle(item), item.FeedURL))
	}

	return buf.Bytes(), nil
}

// Export renders the model in the given format.
func Export(model *models.Model, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(model)
	case FormatMarkdown:
		return ExportToMarkdown(model, nil)
	case FormatText:
		return ExportToText(model)
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

// WriteExport writes the model to path in the given format.
//
// Defaults to {DefaultBasename}.{format} as the filename.
func WriteExport(model *models.Model, format Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.%s", DefaultBasename, format)
	}

	data, err := Export(model, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate export: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Covers    []string
}

// WriteMarkdownExport exports the model to Markdown in a dedicated directory.
//
// Directory name defaults to [DefaultBasename]. When download is true each feed image is fetched into
// {dir}/cover_N.jpg; a failed download is reported on stderr and skipped.
func WriteMarkdownExport(model *models.Model, outputDir string, client *http.Client, download bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = DefaultBasename
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	covers := map[string]string{}
	if download {
		for i, feed := range model.Feeds {
			if feed.Image == "" {
				continue
			}
			imageData, err := DownloadImage(client, feed.Image)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to download cover for %s: %v\n", feed.URL, err)
				continue
			}

			name := fmt.Sprintf("cover_%d.jpg", i+1)
			coverPath := filepath.Join(outputDir, name)
			if err := os.WriteFile(coverPath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				continue
			}
			covers[feed.URL] = name
			result.Covers = append(result.Covers, coverPath)
			result.Files = append(result.Files, coverPath)
		}
	}

	mdData, err := ExportToMarkdown(model, covers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}
