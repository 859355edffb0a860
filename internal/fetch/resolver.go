// Package fetch resolves logical source names to concrete endpoints and
// retrieves raw items from relays and feeds, applying the count and ordering
// policy.
package fetch

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gzuuus/nostr-daily-news-mcp/internal/apperr"
	"github.com/gzuuus/nostr-daily-news-mcp/internal/models"
	"github.com/gzuuus/nostr-daily-news-mcp/internal/registry"
)

// RelayQuerier queries one relay endpoint for events matching a filter.
type RelayQuerier interface {
	Query(ctx context.Context, relayURL string, f models.Filter) ([]models.RelayEvent, error)
}

// FeedFetcher retrieves and parses one feed document.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]models.FeedEntry, error)
}

// Resolver turns logical source references into fetched, ordered items. It
// only reads the registry, never mutates it.
type Resolver struct {
	reg    *registry.Registry
	relays RelayQuerier
	feeds  FeedFetcher
}

// NewResolver wires the resolver to the registry and the two retrieval
// capabilities.
func NewResolver(reg *registry.Registry, relays RelayQuerier, feeds FeedFetcher) *Resolver {
	return &Resolver{reg: reg, relays: relays, feeds: feeds}
}

// RelayGroup fetches events from the named group. Built-in group names
// resolve through the registry like any other, so edits to "trending" and
// "news" take effect here.
func (r *Resolver) RelayGroup(ctx context.Context, name string, f models.Filter) ([]models.RelayEvent, error) {
	urls, err := r.reg.ResolveRelayGroup(name)
	if err != nil {
		return nil, err
	}
	return r.Events(ctx, urls, f)
}

// Events fans the query out to every endpoint at once, merges the responses
// deduplicated by event id, and returns them sorted newest first, truncated
// to the filter's limit. Newest-first ordering is part of the contract, not
// an implementation detail.
//
// Endpoints fail independently: as long as at least one responds, its events
// are returned. Only when every endpoint fails does the whole fetch fail.
func (r *Resolver) Events(ctx context.Context, endpoints []string, f models.Filter) ([]models.RelayEvent, error) {
	if len(endpoints) == 0 {
		return nil, apperr.InvalidArgument("No relay URLs to query")
	}

	var (
		mu     sync.Mutex
		merged []models.RelayEvent
		errs   []string
	)
	g, gCtx := errgroup.WithContext(ctx)
	for _, url := range endpoints {
		g.Go(func() error {
			events, err := r.relays.Query(gCtx, url, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, url+": "+err.Error())
				return nil
			}
			merged = append(merged, events...)
			return nil
		})
	}
	_ = g.Wait()

	if len(merged) == 0 && len(errs) > 0 {
		return nil, apperr.Retrieval("All relays failed: %s", strings.Join(errs, "; "))
	}

	merged = dedupe(merged)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt > merged[j].CreatedAt
	})
	if limit := f.EffectiveLimit(); len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// Feed fetches the named feed and returns its first limit entries in the
// order the document provided them. Feed order is trusted as-is.
func (r *Resolver) Feed(ctx context.Context, name string, limit int) ([]models.FeedEntry, error) {
	url, err := r.reg.ResolveFeed(name)
	if err != nil {
		return nil, err
	}
	entries, err := r.feeds.Fetch(ctx, url)
	if err != nil {
		return nil, apperr.Retrieval("Could not fetch feed '%s': %v", name, err)
	}
	if limit <= 0 {
		limit = models.DefaultLimit
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func dedupe(events []models.RelayEvent) []models.RelayEvent {
	seen := make(map[string]bool, len(events))
	out := events[:0]
	for _, ev := range events {
		if ev.ID != "" && seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		out = append(out, ev)
	}
	return out
}
