// Package query remembers fetched series URLs and suggests them again.
package query

import (
	"strings"
	"sync"

	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/where"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

// Suggestion is a remembered series.
type Suggestion struct {
	Rank  int    `json:"rank"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (s *Suggestion) String() string {
	if s.Title == "" {
		return s.URL
	}
	return s.Title + " (" + s.URL + ")"
}

var (
	mu     sync.Mutex
	cacher = gache.New[map[string]*Suggestion](
		&gache.Options{
			Path:       where.Queries(),
			FileSystem: &filesystem.GacheFs{},
		},
	)
)

func load() map[string]*Suggestion {
	cached, expired, err := cacher.Get()
	if expired || err != nil || cached == nil {
		return make(map[string]*Suggestion)
	}
	return cached
}

// Remember records a fetched series or increases its rank by weight.
func Remember(url, title string, weight int) error {
	mu.Lock()
	defer mu.Unlock()

	url = strings.TrimSpace(url)
	cached := load()

	if record, ok := cached[sanitize(url)]; ok {
		record.Rank += weight
		if title != "" {
			record.Title = title
		}
	} else {
		cached[sanitize(url)] = &Suggestion{Rank: weight, URL: url, Title: title}
	}

	return cacher.Set(cached)
}

// Suggest returns the best remembered series for a partial URL or title.
func Suggest(q string) mo.Option[*Suggestion] {
	suggestions := SuggestMany(q)
	if len(suggestions) == 0 {
		return mo.None[*Suggestion]()
	}
	return mo.Some(suggestions[0])
}

// SuggestMany returns remembered series matching q, highest rank first.
func SuggestMany(q string) []*Suggestion {
	if !viper.GetBool(key.SearchShowURLSuggestions) {
		return []*Suggestion{}
	}

	mu.Lock()
	cached := load()
	mu.Unlock()

	q = sanitize(q)
	records := lo.Filter(lo.Values(cached), func(s *Suggestion, _ int) bool {
		return fuzzy.Match(q, sanitize(s.URL)) || fuzzy.MatchNormalized(q, sanitize(s.Title))
	})

	slices.SortFunc(records, func(a, b *Suggestion) int {
		if a.Rank != b.Rank {
			return b.Rank - a.Rank
		}
		return strings.Compare(a.URL, b.URL)
	})

	return records
}

func sanitize(q string) string {
	return strings.TrimSpace(strings.ToLower(q))
}
