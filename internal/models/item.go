// Package models defines the source item union and the canonical display
// record that every item is projected onto before rendering.
package models

import "time"

// SourceItem is the closed union of raw items a retrieval capability can
// return. The formatter matches exhaustively over its two variants.
type SourceItem interface {
	sourceItem()
}

// RelayEvent is a raw event returned by a Nostr relay query.
type RelayEvent struct {
	ID        string
	PubKey    string
	CreatedAt int64 // unix seconds
	Kind      int
	Content   string
}

func (RelayEvent) sourceItem() {}

// FeedEntry is a raw entry from a parsed RSS/Atom document. Every field is
// optional; feeds in the wild omit or misspell most of them.
type FeedEntry struct {
	Title       string
	Link        string
	Creator     string // dc:creator, when the feed carries the extension
	Author      string
	Published   string     // raw publish-date string, as the document gave it
	PublishedAt *time.Time // normalized alternate, when the parser could derive one
	Categories  []any      // string, tagged object, or anything a feed emits
	Description string
	Content     string
}

func (FeedEntry) sourceItem() {}

// FormattedRecord is the canonical projection shared by both variants.
// DisplayDate is always present, possibly the "Unknown date" sentinel.
type FormattedRecord struct {
	DisplayDate string
	Title       string
	Author      string
	Content     string
	Link        string
	Metadata    map[string]string
}
