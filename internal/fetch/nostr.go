package fetch

import (
	"context"
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/gzuuus/nostr-daily-news-mcp/internal/models"
)

// NostrQuerier implements RelayQuerier over a websocket connection per
// relay. Connections are not pooled: a fetch is a single bounded query and
// the relay set changes with the registry.
type NostrQuerier struct{}

// NewNostrQuerier returns the production relay querier.
func NewNostrQuerier() *NostrQuerier {
	return &NostrQuerier{}
}

// Query connects to the relay, runs one subscription until end-of-stored-
// events, and returns the collected events. No retries: a failure surfaces
// immediately to the resolver, which decides partial-failure policy.
func (q *NostrQuerier) Query(ctx context.Context, relayURL string, f models.Filter) ([]models.RelayEvent, error) {
	relay, err := nostr.RelayConnect(ctx, relayURL)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", relayURL, err)
	}
	defer relay.Close()

	raw, err := relay.QuerySync(ctx, toNostrFilter(f))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", relayURL, err)
	}

	events := make([]models.RelayEvent, 0, len(raw))
	for _, ev := range raw {
		if ev == nil {
			continue
		}
		events = append(events, models.RelayEvent{
			ID:        ev.ID,
			PubKey:    ev.PubKey,
			CreatedAt: int64(ev.CreatedAt),
			Kind:      ev.Kind,
			Content:   ev.Content,
		})
	}
	return events, nil
}

func toNostrFilter(f models.Filter) nostr.Filter {
	nf := nostr.Filter{
		Limit:   f.EffectiveLimit(),
		Kinds:   f.Kinds,
		Authors: f.Authors,
	}
	if f.Since != nil {
		ts := nostr.Timestamp(*f.Since)
		nf.Since = &ts
	}
	if f.Until != nil {
		ts := nostr.Timestamp(*f.Until)
		nf.Until = &ts
	}
	return nf
}
