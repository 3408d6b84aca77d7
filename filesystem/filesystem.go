// Package filesystem provides a virtualized abstraction layer for all filesystem operations.
//
// Downloads, manifests, caches and history all go through API(), so tests can run
// against an in-memory backend.
package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/spf13/afero"
)

var (
	mu      sync.RWMutex
	backend = afero.Afero{Fs: afero.NewOsFs()}
)

// API returns the active afero.Afero instance for filesystem interaction.
func API() afero.Afero {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetOsFs restores the filesystem backend to the native operating system implementation.
func SetOsFs() {
	SetFs(afero.NewOsFs())
}

// SetMemMapFs initializes a volatile in-memory filesystem backend for unit testing.
func SetMemMapFs() {
	SetFs(afero.NewMemMapFs())
}

// SetFs installs an arbitrary afero backend.
func SetFs(fs afero.Fs) {
	mu.Lock()
	defer mu.Unlock()
	backend = afero.Afero{Fs: fs}
}

// OsBacked reports whether paths handed out by API() exist on the real disk.
// External processes such as ffmpeg can only see files when this is true.
func OsBacked() bool {
	_, ok := API().Fs.(*afero.OsFs)
	return ok
}

// Size sums the sizes of the regular files under path. A missing path has size zero.
func Size(path string) (int64, error) {
	var total int64
	err := API().Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return total, err
}
