// Package provider manages the built-in series resolvers.
package provider

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anisan-cli/seriesdl/internal/cache"
	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/network"
	"github.com/anisan-cli/seriesdl/provider/rongyok"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// ErrUnsupportedURL is returned when no provider understands a series URL.
var ErrUnsupportedURL = errors.New("no provider supports this url")

// Provider represents a series source.
type Provider struct {
	ID   string
	Name string

	// UsesBrowser indicates that page fetches go through the TLS-fingerprinted client.
	UsesBrowser bool

	CreateResolver func() (source.Resolver, error)

	once     sync.Once
	resolver source.Resolver
	err      error
}

func (p *Provider) String() string {
	return p.Name
}

// Resolver returns the provider's resolver, creating it on first use.
func (p *Provider) Resolver() (source.Resolver, error) {
	p.once.Do(func() {
		p.resolver, p.err = p.CreateResolver()
	})
	return p.resolver, p.err
}

var (
	mu      sync.Mutex
	extra   []*Provider
	builtin = sync.OnceValue(func() []*Provider {
		return []*Provider{newRongyok()}
	})
)

func newRongyok() *Provider {
	return &Provider{
		ID:          rongyok.ID,
		Name:        rongyok.Name,
		UsesBrowser: viper.GetBool(key.ResolverTLSFingerprint),
		CreateResolver: func() (source.Resolver, error) {
			options := rongyok.Options{
				Cache: cache.Series(time.Duration(viper.GetInt(key.ResolverCacheTTL)) * time.Hour),
			}
			if viper.GetBool(key.ResolverTLSFingerprint) {
				options.Client = network.NewBrowser(time.Minute)
			}
			return rongyok.New(options), nil
		},
	}
}

// Builtins returns the built-in providers.
func Builtins() []*Provider {
	return builtin()
}

// Register adds a provider. Later registrations take precedence when matching URLs.
func Register(p *Provider) {
	mu.Lock()
	defer mu.Unlock()
	extra = append(extra, p)
}

// All returns registered providers followed by the built-in ones.
func All() []*Provider {
	mu.Lock()
	defer mu.Unlock()
	return append(lo.Reverse(append([]*Provider(nil), extra...)), Builtins()...)
}

// Get finds a provider by id or name.
func Get(name string) (*Provider, bool) {
	return lo.Find(All(), func(p *Provider) bool {
		return p.ID == name || p.Name == name
	})
}

// ForURL returns the resolver of the first provider that matches url.
func ForURL(url string) (source.Resolver, error) {
	for _, p := range All() {
		resolver, err := p.Resolver()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		if resolver.Match(url) {
			return resolver, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
}
