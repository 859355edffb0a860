package registry

// Built-in source names. The two relay groups and the built-in feeds can
// never be removed; the "custom" relay group is append-on-add and
// clear-on-remove instead of create/delete.
const (
	GroupTrending = "trending"
	GroupNews     = "news"
	GroupCustom   = "custom"

	FeedStackerNews = "stackerNews"
	FeedHackerNews  = "hackerNews"
)

// HackerNewsTypes is the canonical subtype order for listing. The map in
// Config is what resolution goes through; this slice only fixes output order.
var HackerNewsTypes = []string{"newest", "frontpage", "bestComments", "ask", "show"}

// Config is the persisted registry document. It is rewritten wholesale on
// every mutation.
type Config struct {
	Relays   map[string][]string `json:"relays"`
	RSSFeeds FeedConfig          `json:"rssFeeds"`
}

// FeedConfig holds the fixed Stacker News feed, the built-in Hacker News
// sub-mapping, and user-defined custom feeds.
type FeedConfig struct {
	StackerNews string            `json:"stackerNews"`
	HackerNews  map[string]string `json:"hackerNews"`
	Custom      map[string]string `json:"custom"`
}

// Defaults returns the hard-coded configuration used when neither the config
// file nor the bundled example can be loaded.
func Defaults() *Config {
	return &Config{
		Relays: map[string][]string{
			GroupTrending: {"wss://algo.utxo.one"},
			GroupNews:     {"wss://news.utxo.one"},
			GroupCustom:   {},
		},
		RSSFeeds: FeedConfig{
			StackerNews: "https://stacker.news/rss",
			HackerNews: map[string]string{
				"newest":       "https://hnrss.org/newest",
				"frontpage":    "https://hnrss.org/frontpage",
				"bestComments": "https://hnrss.org/bestcomments",
				"ask":          "https://hnrss.org/ask",
				"show":         "https://hnrss.org/show",
			},
			Custom: map[string]string{},
		},
	}
}

// normalize fills in any mapping a hand-edited or partial document left nil
// and guarantees the built-in entries exist.
func (c *Config) normalize() {
	def := Defaults()
	if c.Relays == nil {
		c.Relays = map[string][]string{}
	}
	for _, name := range []string{GroupTrending, GroupNews} {
		if len(c.Relays[name]) == 0 {
			c.Relays[name] = def.Relays[name]
		}
	}
	if c.Relays[GroupCustom] == nil {
		c.Relays[GroupCustom] = []string{}
	}
	if c.RSSFeeds.StackerNews == "" {
		c.RSSFeeds.StackerNews = def.RSSFeeds.StackerNews
	}
	if len(c.RSSFeeds.HackerNews) == 0 {
		c.RSSFeeds.HackerNews = def.RSSFeeds.HackerNews
	}
	if c.RSSFeeds.Custom == nil {
		c.RSSFeeds.Custom = map[string]string{}
	}
}

// clone returns a deep copy so callers can hold a snapshot without racing
// registry mutations.
func (c *Config) clone() *Config {
	out := &Config{
		Relays: make(map[string][]string, len(c.Relays)),
		RSSFeeds: FeedConfig{
			StackerNews: c.RSSFeeds.StackerNews,
			HackerNews:  make(map[string]string, len(c.RSSFeeds.HackerNews)),
			Custom:      make(map[string]string, len(c.RSSFeeds.Custom)),
		},
	}
	for name, urls := range c.Relays {
		out.Relays[name] = append([]string(nil), urls...)
	}
	for k, v := range c.RSSFeeds.HackerNews {
		out.RSSFeeds.HackerNews[k] = v
	}
	for k, v := range c.RSSFeeds.Custom {
		out.RSSFeeds.Custom[k] = v
	}
	return out
}
