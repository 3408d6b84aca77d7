// Package history persists summaries of finished download batches.
package history

import (
	"errors"
	"sync"

	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/where"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// ErrNotFound is returned by Remove for an unknown id.
var ErrNotFound = errors.New("history record not found")

var (
	mu     sync.Mutex
	cacher = gache.New[[]*Record](
		&gache.Options{
			Path:       where.History(),
			FileSystem: &filesystem.GacheFs{},
		},
	)
)

func load() ([]*Record, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return []*Record{}, nil
	}
	return cached, nil
}

// Get returns all records, newest first.
func Get() ([]*Record, error) {
	mu.Lock()
	defer mu.Unlock()
	return load()
}

// Save stores record and keeps only the newest limit records.
func Save(record *Record, limit int) error {
	mu.Lock()
	defer mu.Unlock()

	records, err := load()
	if err != nil {
		return err
	}

	records = lo.Reject(records, func(r *Record, _ int) bool { return r.ID == record.ID })
	records = append(records, record)
	slices.SortStableFunc(records, func(a, b *Record) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return cacher.Set(records)
}

// Remove deletes the record whose full or short id matches id.
func Remove(id string) error {
	mu.Lock()
	defer mu.Unlock()

	records, err := load()
	if err != nil {
		return err
	}

	kept := lo.Reject(records, func(r *Record, _ int) bool {
		return r.ID == id || r.ShortID() == id
	})
	if len(kept) == len(records) {
		return ErrNotFound
	}

	return cacher.Set(kept)
}

// Clear removes every record.
func Clear() error {
	mu.Lock()
	defer mu.Unlock()
	return cacher.Set([]*Record{})
}
