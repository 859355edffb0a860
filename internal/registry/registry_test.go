package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gzuuus/nostr-daily-news-mcp/internal/apperr"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	store := NewFileStore(path, "")
	return New(store, nil, testLogger()), path
}

func TestBootWithNoFilesUsesDefaultsAndWritesThem(t *testing.T) {
	reg, path := testRegistry(t)

	urls, err := reg.ResolveRelayGroup(GroupTrending)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(urls, []string{"wss://algo.utxo.one"}) {
		t.Errorf("trending = %v", urls)
	}
	urls, err = reg.ResolveRelayGroup(GroupNews)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(urls, []string{"wss://news.utxo.one"}) {
		t.Errorf("news = %v", urls)
	}
	urls, err = reg.ResolveRelayGroup(GroupCustom)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 0 {
		t.Errorf("custom = %v, want empty", urls)
	}

	// Defaults are written back so the file exists for the next start.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.RSSFeeds.HackerNews) != 5 {
		t.Errorf("want 5 hacker news URLs, got %d", len(cfg.RSSFeeds.HackerNews))
	}
	if cfg.RSSFeeds.StackerNews != "https://stacker.news/rss" {
		t.Errorf("stackerNews = %q", cfg.RSSFeeds.StackerNews)
	}
}

func TestBootLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	doc := `{"relays":{"trending":["wss://a"],"news":["wss://b"],"custom":[],"mine":["wss://c"]},` +
		`"rssFeeds":{"stackerNews":"https://s","hackerNews":{"newest":"https://n"},"custom":{"blog":"https://blog/rss"}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := New(NewFileStore(path, ""), nil, testLogger())

	urls, err := reg.ResolveRelayGroup("mine")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(urls, []string{"wss://c"}) {
		t.Errorf("mine = %v", urls)
	}
	url, err := reg.ResolveFeed("blog")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://blog/rss" {
		t.Errorf("blog = %q", url)
	}
}

func TestBootFallsBackToExampleFile(t *testing.T) {
	dir := t.TempDir()
	example := filepath.Join(dir, "config.example.json")
	doc := `{"relays":{"trending":["wss://example-trending"]},"rssFeeds":{}}`
	if err := os.WriteFile(example, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := New(NewFileStore(filepath.Join(dir, "config.json"), example), nil, testLogger())

	urls, err := reg.ResolveRelayGroup(GroupTrending)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(urls, []string{"wss://example-trending"}) {
		t.Errorf("trending = %v", urls)
	}
}

func TestBootCorruptFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := New(NewFileStore(path, ""), nil, testLogger())

	urls, err := reg.ResolveRelayGroup(GroupTrending)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(urls, []string{"wss://algo.utxo.one"}) {
		t.Errorf("trending = %v", urls)
	}
}

func TestResolveRelayGroupNotFound(t *testing.T) {
	reg, _ := testRegistry(t)

	_, err := reg.ResolveRelayGroup("doesnotexist")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	want := "Relay group 'doesnotexist' not found in configuration"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestResolveFeedDottedAndCustom(t *testing.T) {
	reg, _ := testRegistry(t)

	url, err := reg.ResolveFeed("hackerNews.frontpage")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://hnrss.org/frontpage" {
		t.Errorf("url = %q", url)
	}

	_, err = reg.ResolveFeed("hackerNews.bogus-type")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("bogus subtype: want ErrNotFound, got %v", err)
	}

	_, err = reg.ResolveFeed("hackerNews")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("bare hackerNews: want ErrInvalidArgument, got %v", err)
	}

	_, err = reg.ResolveFeed("nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown feed: want ErrNotFound, got %v", err)
	}
}

func TestAddRelayGroupCustomAppendsOthersReplace(t *testing.T) {
	reg, _ := testRegistry(t)

	if _, err := reg.AddRelayGroup(GroupCustom, []string{"wss://u1"}); err != nil {
		t.Fatal(err)
	}
	count, err := reg.AddRelayGroup(GroupCustom, []string{"wss://u2"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("custom count = %d, want 2", count)
	}
	urls, _ := reg.ResolveRelayGroup(GroupCustom)
	if !reflect.DeepEqual(urls, []string{"wss://u1", "wss://u2"}) {
		t.Errorf("custom = %v", urls)
	}

	if _, err := reg.AddRelayGroup("other", []string{"wss://u1"}); err != nil {
		t.Fatal(err)
	}
	count, err = reg.AddRelayGroup("other", []string{"wss://u2"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("other count = %d, want 1", count)
	}
	urls, _ = reg.ResolveRelayGroup("other")
	if !reflect.DeepEqual(urls, []string{"wss://u2"}) {
		t.Errorf("other = %v", urls)
	}
}

func TestAddRelayGroupValidation(t *testing.T) {
	reg, _ := testRegistry(t)

	if _, err := reg.AddRelayGroup("", []string{"wss://u"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty name: want ErrInvalidArgument, got %v", err)
	}
	if _, err := reg.AddRelayGroup("g", nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("no urls: want ErrInvalidArgument, got %v", err)
	}
}

func TestRemoveRelayGroupBuiltinsProtected(t *testing.T) {
	reg, _ := testRegistry(t)

	for _, name := range []string{GroupTrending, GroupNews} {
		err := reg.RemoveRelayGroup(name)
		if !errors.Is(err, apperr.ErrPermissionDenied) {
			t.Errorf("remove %s: want ErrPermissionDenied, got %v", name, err)
		}
		// State must be untouched.
		if urls, _ := reg.ResolveRelayGroup(name); len(urls) == 0 {
			t.Errorf("%s was mutated by a denied removal", name)
		}
	}
}

func TestRemoveRelayGroupCustomClearsNotDeletes(t *testing.T) {
	reg, _ := testRegistry(t)

	if _, err := reg.AddRelayGroup(GroupCustom, []string{"wss://u1"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.RemoveRelayGroup(GroupCustom); err != nil {
		t.Fatal(err)
	}
	urls, err := reg.ResolveRelayGroup(GroupCustom)
	if err != nil {
		t.Fatalf("custom must survive removal as an empty group: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("custom = %v, want empty", urls)
	}
}

func TestRemoveRelayGroup(t *testing.T) {
	reg, _ := testRegistry(t)

	if _, err := reg.AddRelayGroup("mine", []string{"wss://u"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.RemoveRelayGroup("mine"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.ResolveRelayGroup("mine"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("want ErrNotFound after removal, got %v", err)
	}
	if err := reg.RemoveRelayGroup("mine"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second removal: want ErrNotFound, got %v", err)
	}
}

func TestAddFeedProbes(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "config.json"), "")

	probed := ""
	probe := func(ctx context.Context, url string) error {
		probed = url
		if strings.Contains(url, "bad") {
			return errors.New("connection refused")
		}
		return nil
	}
	reg := New(store, probe, testLogger())

	if err := reg.AddFeed(context.Background(), "blog", "https://blog/rss"); err != nil {
		t.Fatal(err)
	}
	if probed != "https://blog/rss" {
		t.Errorf("probe saw %q", probed)
	}
	url, err := reg.ResolveFeed("blog")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://blog/rss" {
		t.Errorf("blog = %q", url)
	}

	err = reg.AddFeed(context.Background(), "broken", "https://bad/rss")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("failed probe: want ErrInvalidArgument, got %v", err)
	}
	if _, err := reg.ResolveFeed("broken"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("feed with failing probe must not be stored")
	}
}

func TestAddFeedReservedNames(t *testing.T) {
	reg, _ := testRegistry(t)

	for _, name := range []string{FeedStackerNews, FeedHackerNews, "hackerNews.newest"} {
		err := reg.AddFeed(context.Background(), name, "https://x/rss")
		if !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("add %s: want ErrInvalidArgument, got %v", name, err)
		}
	}
}

func TestRemoveFeedBuiltinsProtected(t *testing.T) {
	reg, _ := testRegistry(t)

	for _, name := range []string{FeedStackerNews, FeedHackerNews, "hackerNews.newest"} {
		err := reg.RemoveFeed(name)
		if !errors.Is(err, apperr.ErrPermissionDenied) {
			t.Errorf("remove %s: want ErrPermissionDenied, got %v", name, err)
		}
	}

	if err := reg.RemoveFeed("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("remove missing: want ErrNotFound, got %v", err)
	}
}

func TestPersistenceRoundTripIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	store := NewFileStore(path, "")

	reg := New(store, nil, testLogger())
	if _, err := reg.AddRelayGroup("mine", []string{"wss://u"}); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// A fresh registry loading the document and re-persisting it must
	// produce byte-identical JSON.
	reg2 := New(NewFileStore(path, ""), nil, testLogger())
	if err := reg2.RemoveRelayGroup(GroupCustom); err != nil { // clear of already-empty custom: state unchanged, forces a save
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("round trip not idempotent:\n%s\nvs\n%s", first, second)
	}
}

func TestPersistFailureKeepsInMemoryState(t *testing.T) {
	reg := New(&failingStore{}, nil, testLogger())

	if _, err := reg.AddRelayGroup("mine", []string{"wss://u"}); err != nil {
		t.Fatalf("save failure must not fail the mutation: %v", err)
	}
	urls, err := reg.ResolveRelayGroup("mine")
	if err != nil {
		t.Fatalf("in-memory state must remain authoritative: %v", err)
	}
	if !reflect.DeepEqual(urls, []string{"wss://u"}) {
		t.Errorf("mine = %v", urls)
	}
}

type failingStore struct{}

func (f *failingStore) Load() ([]byte, error) { return nil, errors.New("no file") }
func (f *failingStore) Save([]byte) error     { return errors.New("disk full") }

func TestListRelayGroupsDeterministic(t *testing.T) {
	reg, _ := testRegistry(t)
	if _, err := reg.AddRelayGroup("zeta", []string{"wss://z"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddRelayGroup("alpha", []string{"wss://a"}); err != nil {
		t.Fatal(err)
	}

	out := reg.ListRelayGroups()
	lines := strings.Split(out, "\n")
	want := []string{"trending:", "news:", "custom:", "alpha:", "zeta:"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v", lines)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}

	if out != reg.ListRelayGroups() {
		t.Error("listing is not stable across calls")
	}
}

func TestListFeedsBuiltinsFirst(t *testing.T) {
	reg, _ := testRegistry(t)

	out := reg.ListFeeds()
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], "stackerNews:") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "hackerNews.newest:") {
		t.Errorf("second line = %q", lines[1])
	}
	if len(lines) != 6 {
		t.Errorf("want 6 lines for the built-ins, got %d", len(lines))
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	reg, _ := testRegistry(t)

	snap := reg.Snapshot()
	snap.Relays[GroupTrending][0] = "wss://mutated"
	snap.RSSFeeds.Custom["x"] = "y"

	urls, _ := reg.ResolveRelayGroup(GroupTrending)
	if urls[0] != "wss://algo.utxo.one" {
		t.Error("snapshot mutation leaked into the registry")
	}
	if _, err := reg.ResolveFeed("x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("snapshot map mutation leaked into the registry")
	}
}
