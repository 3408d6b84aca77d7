// Package rongyok resolves series pages of rongyok.com into direct episode URLs.
package rongyok

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/internal/cache"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/anisan-cli/seriesdl/network"
	"github.com/anisan-cli/seriesdl/source"
)

const (
	ID             = "rongyok"
	Name           = "Rongyok"
	DefaultBaseURL = "https://rongyok.com"

	maxPageSize = 16 << 20
)

var (
	// ErrNoSeriesID is returned for URLs without a recognizable series id.
	ErrNoSeriesID = errors.New("no series id in url")

	// ErrNoEpisodes is returned when a series page lists no downloadable episode.
	ErrNoEpisodes = errors.New("no episode links found")
)

// Doer sends HTTP requests. *http.Client and *network.Browser satisfy it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configure a Resolver.
type Options struct {
	// BaseURL replaces DefaultBaseURL, e.g. for tests.
	BaseURL string

	// Client defaults to network.Client.
	Client Doer

	// Cache stores resolved series by id. nil disables caching.
	Cache *cache.Cache
}

// Resolver implements source.Resolver for rongyok.com.
type Resolver struct {
	base   string
	client Doer
	cache  *cache.Cache
}

var _ source.Resolver = (*Resolver)(nil)

// New returns a resolver with the given options.
func New(options Options) *Resolver {
	r := &Resolver{
		base:   strings.TrimSuffix(options.BaseURL, "/"),
		client: options.Client,
		cache:  options.Cache,
	}
	if r.base == "" {
		r.base = DefaultBaseURL
	}
	if r.client == nil {
		r.client = network.Client
	}
	return r
}

func (r *Resolver) ID() string {
	return ID
}

func (r *Resolver) String() string {
	return Name
}

// Match reports whether url points at rongyok and carries a series id.
func (r *Resolver) Match(url string) bool {
	lower := strings.ToLower(url)
	if !strings.Contains(lower, "rongyok.") && !strings.HasPrefix(lower, strings.ToLower(r.base)) {
		return false
	}
	_, ok := ParseSeriesID(url)
	return ok
}

// ParseSeriesID extracts the numeric series id from a `?series_id=N` or `/series/N` URL.
func ParseSeriesID(url string) (int, bool) {
	for _, re := range []*regexp.Regexp{seriesQuery, seriesPath} {
		if m := re.FindStringSubmatch(url); m != nil {
			id, err := strconv.Atoi(m[1])
			if err == nil {
				return id, true
			}
		}
	}
	return 0, false
}

func (r *Resolver) Resolve(ctx context.Context, url string) (*source.Series, error) {
	id, ok := ParseSeriesID(url)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSeriesID, url)
	}
	return r.Fetch(ctx, id)
}

func (r *Resolver) cacheKey(id int) string {
	return cache.Key(ID, r.base, strconv.Itoa(id))
}

// Fetch downloads and parses the watch page of series id.
func (r *Resolver) Fetch(ctx context.Context, id int) (*source.Series, error) {
	var cached source.Series
	if r.cache.Read(r.cacheKey(id), &cached) {
		log.Debugf("series %d served from cache", id)
		return &cached, nil
	}

	page := fmt.Sprintf("%s/watch/?series_id=%d", r.base, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "th,en-US;q=0.9,en;q=0.8")
	req.Header.Set("Referer", r.base+"/")

	log.Debugf("fetching %s", page)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch series %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch series %d: unexpected status %s", id, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("read series %d: %w", id, err)
	}

	series, err := parse(id, string(body))
	if err != nil {
		return nil, err
	}

	if err := r.cache.Write(r.cacheKey(id), series); err != nil {
		log.Warnf("could not cache series %d: %s", id, err)
	}

	log.Infof("resolved %q: %d episodes", series.Title, series.TotalEpisodes)
	return series, nil
}
