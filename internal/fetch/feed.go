package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/gzuuus/nostr-daily-news-mcp/internal/models"
)

// GofeedFetcher implements FeedFetcher using gofeed with a timeout-bounded
// HTTP client.
type GofeedFetcher struct {
	parser *gofeed.Parser
}

// NewFeedFetcher creates a fetcher whose HTTP requests time out after the
// given duration.
func NewFeedFetcher(timeout time.Duration) *GofeedFetcher {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = "nostr-daily-news-mcp/1.0"
	return &GofeedFetcher{parser: p}
}

// Fetch retrieves and parses the feed at url, preserving document order.
func (g *GofeedFetcher) Fetch(ctx context.Context, url string) ([]models.FeedEntry, error) {
	feed, err := g.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, toEntry(item))
	}
	return entries, nil
}

// Probe verifies a URL points at a retrievable, parseable feed. Used by the
// registry before admitting a custom feed.
func (g *GofeedFetcher) Probe(ctx context.Context, url string) error {
	_, err := g.parser.ParseURLWithContext(url, ctx)
	return err
}

func toEntry(item *gofeed.Item) models.FeedEntry {
	entry := models.FeedEntry{
		Title:       item.Title,
		Link:        item.Link,
		Published:   item.Published,
		Description: item.Description,
		Content:     item.Content,
	}
	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		entry.PublishedAt = item.UpdatedParsed
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		entry.Creator = item.DublinCoreExt.Creator[0]
	}
	if item.Author != nil {
		entry.Author = item.Author.Name
	}
	for _, c := range item.Categories {
		entry.Categories = append(entry.Categories, c)
	}
	return entry
}
