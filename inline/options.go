// Package inline provides the non-interactive, scriptable download mode.
package inline

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/anisan-cli/seriesdl/engine"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// ErrEmptySelection is returned when a selector matches none of the available episodes.
var ErrEmptySelection = errors.New("selector matched no episodes")

// Selector picks episode numbers out of the available ones (ascending).
type Selector func(available []int) ([]int, error)

type Options struct {
	Out  io.Writer
	URL  string
	Json bool

	// Selector picks the episodes. Nil selects all of them.
	Selector Selector

	// Configure adjusts the request built from the settings, e.g. from command flags.
	Configure func(*engine.Request)

	// Fetched is called once the series has been resolved.
	Fetched func(*source.Series)
}

// ParseSelector parses an episode selector:
//
//	all        every episode
//	first      the first available episode
//	last       the last available episode
//	N          episode N
//	A-B        episodes A through B that are available
//	1,3,5-7    any comma separated combination of the above
func ParseSelector(description string) (Selector, error) {
	description = strings.ToLower(strings.TrimSpace(description))

	switch description {
	case "", "all":
		return func(available []int) ([]int, error) {
			return nonEmpty(available)
		}, nil
	case "first":
		return func(available []int) ([]int, error) {
			return nonEmpty(lo.Subset(available, 0, 1))
		}, nil
	case "last":
		return func(available []int) ([]int, error) {
			return nonEmpty(lo.Subset(available, -1, 1))
		}, nil
	}

	type span struct{ from, to int }

	var spans []span
	for _, part := range strings.Split(description, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if from, to, ok := strings.Cut(part, "-"); ok {
			a, errA := strconv.Atoi(strings.TrimSpace(from))
			b, errB := strconv.Atoi(strings.TrimSpace(to))
			if errA != nil || errB != nil || a < 1 || b < a {
				return nil, fmt.Errorf("invalid episode range: %s", part)
			}
			spans = append(spans, span{a, b})
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid episode selector: %s", part)
		}
		spans = append(spans, span{n, n})
	}

	if len(spans) == 0 {
		return nil, fmt.Errorf("invalid episode selector: %q", description)
	}

	return func(available []int) ([]int, error) {
		var selected []int
		for _, s := range spans {
			if s.from == s.to && !slices.Contains(available, s.from) {
				return nil, fmt.Errorf("episode %d is not available", s.from)
			}
			selected = append(selected, lo.Filter(available, func(ep int, _ int) bool {
				return ep >= s.from && ep <= s.to
			})...)
		}

		selected = lo.Uniq(selected)
		slices.Sort(selected)
		return nonEmpty(selected)
	}, nil
}

func nonEmpty(episodes []int) ([]int, error) {
	if len(episodes) == 0 {
		return nil, ErrEmptySelection
	}
	return episodes, nil
}
