// Package assets layers texture directories into one cached file system.
package assets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Manager searches several file systems for a file, last added first.
// It implements fs.ReadFileFS so loaders can read through it; names that
// miss exactly are retried case-insensitively, since model files often
// disagree with the disk about case.
type Manager struct {
	layers []fs.FS
	cache  *Cache
	mu     sync.RWMutex
}

var _ fs.ReadFileFS = (*Manager)(nil)

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a directory on disk.
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening asset dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening asset dir %s: not a directory", dir)
	}
	m.AddFS(os.DirFS(dir))
	return nil
}

// AddFS adds a file system with the highest priority so far.
func (m *Manager) AddFS(fsys fs.FS) {
	m.mu.Lock()
	m.layers = append(m.layers, fsys)
	m.mu.Unlock()
}

// Len returns the number of layers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.layers)
}

// SearchPath layers the model's directory under the comma separated
// texture directories; later directories win.
func SearchPath(modelPath, textureDirs string) (*Manager, error) {
	m := NewManager()
	if err := m.AddDir(filepath.Dir(modelPath)); err != nil {
		return nil, err
	}
	for _, dir := range strings.Split(textureDirs, ",") {
		if dir = strings.TrimSpace(dir); dir == "" {
			continue
		}
		if err := m.AddDir(dir); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Open opens the first match across the layers.
func (m *Manager) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.layers) - 1; i >= 0; i-- {
		real, ok := resolve(m.layers[i], name)
		if !ok {
			continue
		}
		return m.layers[i].Open(real)
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// ReadFile reads a file, serving repeated reads from the cache.
func (m *Manager) ReadFile(name string) ([]byte, error) {
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	f, err := m.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	m.cache.Set(name, data)
	return data, nil
}

// Close drops every layer and the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.layers = nil
	m.cache.Clear()
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// resolve finds name in fsys, matching each path element without regard
// to case when the exact name is missing.
func resolve(fsys fs.FS, name string) (string, bool) {
	if _, err := fs.Stat(fsys, name); err == nil {
		return name, true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false
	}

	dir := "."
	for _, elem := range strings.Split(name, "/") {
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return "", false
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name(), elem) {
				dir = path.Join(dir, e.Name())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return dir, true
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
