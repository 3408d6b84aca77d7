package rongyok

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

var (
	seriesQuery = regexp.MustCompile(`series_id=(\d+)`)
	seriesPath  = regexp.MustCompile(`/series/(\d+)`)

	// Discord CDN attachments named after the episode, e.g. .../12.mp4?ex=...
	cdnNumbered = regexp.MustCompile(`https?:(?:\\/\\/|//)cdn\.discordapp\.com(?:\\/|/)attachments(?:\\/|/)(\d+)(?:\\/|/)(\d+)(?:\\/|/)(\d+)\.mp4\?[^"'<>\s\\]+`)

	// Same with an EP prefix, e.g. .../EP01.mp4?ex=...
	cdnPrefixed = regexp.MustCompile(`(?i)https?:(?:\\/\\/|//)cdn\.discordapp\.com(?:\\/|/)attachments(?:\\/|/)(\d+)(?:\\/|/)(\d+)(?:\\/|/)EP(\d+)\.mp4\?[^"'<>\s\\]+`)

	videoURL      = regexp.MustCompile(`"video_url"\s*:\s*"(https?:[^"]+\.mp4[^"]*)"`)
	videoEpisode  = regexp.MustCompile(`[/\\](?:EP)?(\d+)\.mp4`)
	titleSuffix   = regexp.MustCompile(`\s*-\s*ตอนที่\s*\d+.*$`)
	episodeCount  = regexp.MustCompile(`(\d+)\s*ตอน`)
	episodeMarker = regexp.MustCompile(`ตอนที่\s*(\d+)`)

	unescape = strings.NewReplacer(`\/`, "/", `\u0026`, "&", "&amp;", "&")
)

// parse extracts a series from the raw watch page. Episode links live inside inline
// scripts, so they are matched on the raw text rather than the DOM.
func parse(id int, html string) (*source.Series, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse series %d: %w", id, err)
	}

	series := &source.Series{
		SeriesID:    id,
		Title:       title(id, doc),
		EpisodeURLs: episodeURLs(html),
	}

	if poster, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && poster != "" {
		series.PosterURL = mo.Some(poster)
	}

	if len(series.EpisodeURLs) == 0 {
		if listed := listedEpisodes(doc, html); listed > 0 {
			return nil, fmt.Errorf("series %d lists %d episodes: %w", id, listed, ErrNoEpisodes)
		}
		return nil, fmt.Errorf("series %d: %w", id, ErrNoEpisodes)
	}

	// Numbering may have gaps, so this counts links rather than taking the highest number.
	series.TotalEpisodes = len(series.EpisodeURLs)
	return series, nil
}

func title(id int, doc *goquery.Document) string {
	text := strings.TrimSpace(doc.Find("title").First().Text())
	text = strings.TrimSpace(titleSuffix.ReplaceAllString(text, ""))
	if text == "" {
		return fmt.Sprintf("Series %d", id)
	}
	return text
}

// episodeURLs collects media links by episode. Numbered CDN links win over prefixed
// ones, which win over generic video_url fields.
func episodeURLs(html string) map[int]string {
	urls := make(map[int]string)

	for _, m := range cdnNumbered.FindAllStringSubmatch(html, -1) {
		if ep, err := strconv.Atoi(m[3]); err == nil {
			urls[ep] = unescape.Replace(m[0])
		}
	}

	for _, m := range cdnPrefixed.FindAllStringSubmatch(html, -1) {
		if ep, err := strconv.Atoi(m[3]); err == nil {
			if _, ok := urls[ep]; !ok {
				urls[ep] = unescape.Replace(m[0])
			}
		}
	}

	for _, m := range videoURL.FindAllStringSubmatch(html, -1) {
		url := unescape.Replace(m[1])
		n := videoEpisode.FindStringSubmatch(url)
		if n == nil {
			continue
		}
		if ep, err := strconv.Atoi(n[1]); err == nil {
			if _, ok := urls[ep]; !ok {
				urls[ep] = url
			}
		}
	}

	return urls
}

// listedEpisodes estimates how many episodes the page advertises.
func listedEpisodes(doc *goquery.Document, html string) int {
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if m := episodeCount.FindStringSubmatch(desc); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}

	return lo.Max(lo.FilterMap(episodeMarker.FindAllStringSubmatch(html, -1), func(m []string, _ int) (int, bool) {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}))
}
