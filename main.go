// Package main is the entry point for seriesdl.
package main

import (
	"github.com/anisan-cli/seriesdl/cmd"
	"github.com/anisan-cli/seriesdl/config"
	"github.com/anisan-cli/seriesdl/internal/cache"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	go func() {
		removed, err := cache.Series(config.Load().ResolverCacheTTL).Prune()
		if err != nil {
			log.Debugf("series cache: %s", err)
			return
		}
		if removed > 0 {
			log.Debugf("series cache: removed %d expired entries", removed)
		}
	}()

	cmd.Execute()
}
