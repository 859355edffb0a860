// Package format projects raw source items onto the canonical display
// record and renders records to text.
package format

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gzuuus/nostr-daily-news-mcp/internal/models"
)

// UnknownDate is the sentinel used when no publish date can be derived.
const UnknownDate = "Unknown date"

// UnknownAuthor is the sentinel used when no author can be extracted
// from a feed entry.
const UnknownAuthor = "Unknown"

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// feedDateLayouts are tried in order against the raw publish-date string.
var feedDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
}

// Normalize converts one raw item into the canonical record. It never fails:
// a malformed entry degrades to a safe placeholder record instead of aborting
// the batch it belongs to.
func Normalize(item models.SourceItem) models.FormattedRecord {
	switch v := item.(type) {
	case models.RelayEvent:
		return normalizeEvent(v)
	case models.FeedEntry:
		return normalizeEntry(v)
	default:
		return safeRecord()
	}
}

func normalizeEvent(ev models.RelayEvent) models.FormattedRecord {
	author := ""
	if ev.PubKey != "" {
		author = shortKey(ev.PubKey)
	}
	return models.FormattedRecord{
		DisplayDate: time.Unix(ev.CreatedAt, 0).UTC().Format(isoMillis),
		Author:      author,
		Content:     ev.Content,
		Metadata:    map[string]string{"kind": strconv.Itoa(ev.Kind)},
	}
}

func normalizeEntry(entry models.FeedEntry) (rec models.FormattedRecord) {
	// A single malformed entry must never take down the batch; degrade to
	// the placeholder record if any extraction step panics.
	defer func() {
		if r := recover(); r != nil {
			rec = safeRecord()
		}
	}()

	rec = models.FormattedRecord{
		DisplayDate: entryDate(entry),
		Title:       entry.Title,
		Author:      entryAuthor(entry),
		Content:     entryContent(entry),
		Link:        entry.Link,
	}
	if cats := joinCategories(entry.Categories); cats != "" {
		rec.Metadata = map[string]string{"categories": cats}
	}
	return rec
}

func safeRecord() models.FormattedRecord {
	return models.FormattedRecord{
		DisplayDate: UnknownDate,
		Title:       "Unknown title",
		Author:      UnknownAuthor,
		Content:     "[content unavailable]",
	}
}

func entryDate(entry models.FeedEntry) string {
	if entry.Published != "" {
		for _, layout := range feedDateLayouts {
			if t, err := time.Parse(layout, entry.Published); err == nil {
				return t.UTC().Format(isoMillis)
			}
		}
	}
	if entry.PublishedAt != nil {
		return entry.PublishedAt.UTC().Format(isoMillis)
	}
	return UnknownDate
}

// entryAuthor resolves the author through the extraction chain: explicit
// creator, plain author, first category with a nested text value, sentinel.
func entryAuthor(entry models.FeedEntry) string {
	if entry.Creator != "" {
		return entry.Creator
	}
	if entry.Author != "" {
		return entry.Author
	}
	if len(entry.Categories) > 0 {
		if m, ok := entry.Categories[0].(map[string]any); ok {
			if text, ok := m["_"].(string); ok && text != "" {
				return text
			}
		}
	}
	return UnknownAuthor
}

func entryContent(entry models.FeedEntry) string {
	if entry.Description != "" {
		return entry.Description
	}
	return entry.Content
}

// joinCategories flattens the heterogeneous category sequence to one
// comma-separated string. Plain strings pass through, tagged objects
// contribute their nested text, anything else is stringified.
func joinCategories(categories []any) string {
	if len(categories) == 0 {
		return ""
	}
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, categoryText(c))
	}
	return strings.Join(parts, ", ")
}

func categoryText(c any) string {
	switch v := c.(type) {
	case string:
		return v
	case map[string]any:
		if text, ok := v["_"].(string); ok {
			return text
		}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%v", c)
	}
	return string(b)
}

func shortKey(pubkey string) string {
	if len(pubkey) > 8 {
		pubkey = pubkey[:8]
	}
	return pubkey + "..."
}

// Render lays out one record as text: "[date] title" on the first line, then
// an Author line, one line per non-empty metadata value with a capitalized
// key, then content and link on their own lines.
func Render(rec models.FormattedRecord) string {
	head := "[" + rec.DisplayDate + "]"
	if rec.Title != "" {
		head += " " + rec.Title
	}
	lines := []string{head}

	if rec.Author != "" {
		lines = append(lines, "Author: "+rec.Author)
	}
	for _, key := range sortedKeys(rec.Metadata) {
		if val := rec.Metadata[key]; val != "" {
			lines = append(lines, capitalize(key)+": "+val)
		}
	}
	if rec.Content != "" {
		lines = append(lines, rec.Content)
	}
	if rec.Link != "" {
		lines = append(lines, rec.Link)
	}
	return strings.Join(lines, "\n")
}

// RenderAll normalizes and renders a batch, separating items with a blank
// line. Within one item lines are joined with single newlines; the blank
// line is what delimits items for the reader.
func RenderAll(items []models.SourceItem) string {
	rendered := make([]string, 0, len(items))
	for _, item := range items {
		rendered = append(rendered, Render(Normalize(item)))
	}
	return strings.Join(rendered, "\n\n")
}

// RenderEvents is RenderAll over a typed relay event slice.
func RenderEvents(events []models.RelayEvent) string {
	items := make([]models.SourceItem, len(events))
	for i, ev := range events {
		items[i] = ev
	}
	return RenderAll(items)
}

// RenderEntries is RenderAll over a typed feed entry slice.
func RenderEntries(entries []models.FeedEntry) string {
	items := make([]models.SourceItem, len(entries))
	for i, e := range entries {
		items[i] = e
	}
	return RenderAll(items)
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
