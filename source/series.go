package source

import (
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/exp/slices"
)

// Series is the resolved metadata of a multi-episode series.
type Series struct {
	SeriesID      int               `json:"seriesId"`
	Title         string            `json:"title"`
	TotalEpisodes int               `json:"totalEpisodes"` // number of linked episodes
	PosterURL     mo.Option[string] `json:"posterUrl" jsonschema:"type=string"`
	EpisodeURLs   map[int]string    `json:"episodeUrls"`
}

// Episodes returns the episode numbers that have a media URL, ascending.
func (s *Series) Episodes() []int {
	episodes := lo.Keys(s.EpisodeURLs)
	slices.Sort(episodes)
	return episodes
}

// URL returns the media URL for the given episode.
func (s *Series) URL(episode int) (string, bool) {
	url, ok := s.EpisodeURLs[episode]
	return url, ok && url != ""
}

// String returns the series title.
func (s *Series) String() string {
	return s.Title
}
