// Package registry maintains the named relay groups and RSS feeds the fetch
// tools resolve against, backed by a JSON document on disk.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/gzuuus/nostr-daily-news-mcp/internal/apperr"
	"github.com/gzuuus/nostr-daily-news-mcp/internal/checksum"
)

// Prober verifies that a feed URL is retrievable and parseable before it is
// admitted into the registry. Wired to the feed retrieval capability.
type Prober func(ctx context.Context, url string) error

// Registry is the single mutable source of truth for named sources. Every
// mutation persists the whole snapshot synchronously under the lock, so a
// mutation and its save form one atomic unit.
type Registry struct {
	mu     sync.Mutex
	cfg    *Config
	store  Store
	probe  Prober
	logger *slog.Logger

	savedSum string // checksum of the last document this process wrote
}

// New constructs the registry by loading the persisted document, falling back
// to hard-coded defaults when nothing loads or parses. When defaults are used
// they are written back best-effort so the file exists for the next start.
func New(store Store, probe Prober, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{store: store, probe: probe, logger: logger}

	data, err := store.Load()
	if err == nil {
		cfg := &Config{}
		jsonErr := json.Unmarshal(data, cfg)
		if jsonErr == nil {
			cfg.normalize()
			r.cfg = cfg
			r.savedSum = checksum.Sum(data)
			return r
		}
		logger.Warn("registry: config unparseable, using defaults", slog.String("error", jsonErr.Error()))
	} else {
		logger.Warn("registry: config unavailable, using defaults", slog.String("error", err.Error()))
	}

	r.cfg = Defaults()
	r.mu.Lock()
	r.persistLocked()
	r.mu.Unlock()
	return r
}

// ResolveRelayGroup returns the endpoint list for a named group.
func (r *Registry) ResolveRelayGroup(name string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	urls, ok := r.cfg.Relays[name]
	if !ok {
		return nil, apperr.NotFound("Relay group '%s' not found in configuration", name)
	}
	return append([]string(nil), urls...), nil
}

// ResolveFeed returns the URL for a feed name. The name may be the fixed
// Stacker News key, a dotted Hacker News subtype ("hackerNews.newest"), or a
// user-defined custom feed name.
func (r *Registry) ResolveFeed(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == FeedStackerNews {
		return r.cfg.RSSFeeds.StackerNews, nil
	}
	if sub, ok := strings.CutPrefix(name, FeedHackerNews+"."); ok {
		url, found := r.cfg.RSSFeeds.HackerNews[sub]
		if !found {
			return "", apperr.NotFound("Unknown Hacker News feed type '%s'", sub)
		}
		return url, nil
	}
	if name == FeedHackerNews {
		return "", apperr.InvalidArgument("Feed '%s' requires a subtype, e.g. %s.newest", name, FeedHackerNews)
	}
	if url, ok := r.cfg.RSSFeeds.Custom[name]; ok {
		return url, nil
	}
	return "", apperr.NotFound("RSS feed '%s' not found in configuration", name)
}

// AddRelayGroup creates or replaces the named group, except for "custom"
// where the given relays append to the existing list. Returns the resulting
// relay count for the group.
func (r *Registry) AddRelayGroup(name string, urls []string) (int, error) {
	if name == "" {
		return 0, apperr.InvalidArgument("Relay group name must not be empty")
	}
	if len(urls) == 0 {
		return 0, apperr.InvalidArgument("Relay group '%s' needs at least one relay URL", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == GroupCustom {
		r.cfg.Relays[GroupCustom] = append(r.cfg.Relays[GroupCustom], urls...)
	} else {
		r.cfg.Relays[name] = append([]string(nil), urls...)
	}
	r.persistLocked()
	return len(r.cfg.Relays[name]), nil
}

// AddFeed probes the URL through the feed retrieval capability and, when the
// probe succeeds, records it under the custom feeds and persists.
func (r *Registry) AddFeed(ctx context.Context, name, url string) error {
	if name == "" {
		return apperr.InvalidArgument("Feed name must not be empty")
	}
	if name == FeedStackerNews || name == FeedHackerNews || strings.HasPrefix(name, FeedHackerNews+".") {
		return apperr.InvalidArgument("Feed name '%s' is reserved", name)
	}
	if url == "" {
		return apperr.InvalidArgument("Feed '%s' needs a URL", name)
	}
	if r.probe != nil {
		if err := r.probe(ctx, url); err != nil {
			return apperr.InvalidArgument("Feed URL '%s' could not be fetched: %v", url, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.RSSFeeds.Custom[name] = url
	r.persistLocked()
	return nil
}

// RemoveRelayGroup deletes a named group. The built-in groups are protected;
// "custom" is cleared to empty instead of deleted.
func (r *Registry) RemoveRelayGroup(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch name {
	case GroupTrending, GroupNews:
		return apperr.PermissionDenied("Cannot remove built-in relay group '%s'", name)
	case GroupCustom:
		r.cfg.Relays[GroupCustom] = []string{}
		r.persistLocked()
		return nil
	}
	if _, ok := r.cfg.Relays[name]; !ok {
		return apperr.NotFound("Relay group '%s' not found in configuration", name)
	}
	delete(r.cfg.Relays, name)
	r.persistLocked()
	return nil
}

// RemoveFeed deletes a custom feed. Built-in feed names are protected.
func (r *Registry) RemoveFeed(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == FeedStackerNews || name == FeedHackerNews || strings.HasPrefix(name, FeedHackerNews+".") {
		return apperr.PermissionDenied("Cannot remove built-in feed '%s'", name)
	}
	if _, ok := r.cfg.RSSFeeds.Custom[name]; !ok {
		return apperr.NotFound("RSS feed '%s' not found in configuration", name)
	}
	delete(r.cfg.RSSFeeds.Custom, name)
	r.persistLocked()
	return nil
}

// Snapshot returns a deep copy of the current document.
func (r *Registry) Snapshot() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.cfg.clone()
}

// ListRelayGroups enumerates every group and its endpoints, built-ins first,
// user-defined groups in sorted order.
func (r *Registry) ListRelayGroups() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for _, name := range r.relayGroupOrder() {
		urls := r.cfg.Relays[name]
		if len(urls) == 0 {
			fmt.Fprintf(&b, "%s: (empty)\n", name)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", name, strings.Join(urls, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ListFeeds enumerates the built-in feeds followed by custom feeds in sorted
// order.
func (r *Registry) ListFeeds() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", FeedStackerNews, r.cfg.RSSFeeds.StackerNews)
	for _, sub := range hackerNewsOrder(r.cfg.RSSFeeds.HackerNews) {
		fmt.Fprintf(&b, "%s.%s: %s\n", FeedHackerNews, sub, r.cfg.RSSFeeds.HackerNews[sub])
	}
	for _, name := range sortedNames(r.cfg.RSSFeeds.Custom) {
		fmt.Fprintf(&b, "%s: %s\n", name, r.cfg.RSSFeeds.Custom[name])
	}
	return strings.TrimRight(b.String(), "\n")
}

// SavedChecksum returns the checksum of the last document this process
// persisted. The watcher uses it to ignore events caused by our own writes.
func (r *Registry) SavedChecksum() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.savedSum
}

// Replace swaps in a new document parsed from raw bytes, for watcher-driven
// reloads after an external edit. A parse failure leaves the current state
// untouched.
func (r *Registry) Replace(data []byte) error {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("registry: reload: %w", err)
	}
	cfg.normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	r.savedSum = checksum.Sum(data)
	return nil
}

// persistLocked writes the full snapshot through the store. Failure is
// logged, not fatal: the in-memory registry stays authoritative for the rest
// of the process lifetime. Callers must hold r.mu.
func (r *Registry) persistLocked() {
	data, err := json.MarshalIndent(r.cfg, "", "  ")
	if err != nil {
		r.logger.Warn("registry: marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := r.store.Save(data); err != nil {
		r.logger.Warn("registry: save failed", slog.String("error", err.Error()))
		return
	}
	r.savedSum = checksum.Sum(data)
}

func (r *Registry) relayGroupOrder() []string {
	order := []string{GroupTrending, GroupNews, GroupCustom}
	seen := map[string]bool{GroupTrending: true, GroupNews: true, GroupCustom: true}
	var rest []string
	for name := range r.cfg.Relays {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func hackerNewsOrder(m map[string]string) []string {
	order := make([]string, 0, len(m))
	seen := map[string]bool{}
	for _, sub := range HackerNewsTypes {
		if _, ok := m[sub]; ok {
			order = append(order, sub)
			seen[sub] = true
		}
	}
	var rest []string
	for sub := range m {
		if !seen[sub] {
			rest = append(rest, sub)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
