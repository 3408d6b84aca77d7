// Package source defines the domain models and interfaces for series resolution.
package source

import "context"

// Resolver turns a series page URL into a Series with direct media URLs.
type Resolver interface {
	// ID returns the unique identifier of the resolver.
	ID() string

	// Match reports whether the resolver understands the given URL.
	Match(url string) bool

	// Resolve fetches and parses the series behind url.
	Resolve(ctx context.Context, url string) (*Series, error)
}
