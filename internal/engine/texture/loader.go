package texture

import (
	"fmt"
	"image"
	"io/fs"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/m2view/internal/logger"
)

// Loader reads and decodes textures from a file system in the background.
// Handles are cached by normalized name, so each file is decoded once.
type Loader struct {
	fsys fs.FS

	mu    sync.Mutex
	cache map[string]*Handle
	wg    sync.WaitGroup
}

// NewLoader creates a loader reading from fsys.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{
		fsys:  fsys,
		cache: make(map[string]*Handle),
	}
}

// Load returns the handle for a texture, starting a background load the
// first time the name is seen. Failed loads log a warning and resolve to
// the placeholder.
func (l *Loader) Load(name string) *Handle {
	key := normalizeName(name)

	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.cache[key]; ok {
		return h
	}

	h := newHandle(key)
	l.cache[key] = h
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		img, err := l.read(key)
		if err != nil {
			logger.Warn("texture load failed, using placeholder",
				zap.String("texture", key),
				zap.Error(err),
			)
		}
		h.complete(img, err)
	}()
	return h
}

// Wait blocks until every load started so far has finished.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Len returns the number of cached handles.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

func (l *Loader) read(name string) (*image.RGBA, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	img, err := Decode(name, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return img, nil
}

// normalizeName turns stored paths, which may use backslashes, into
// fs.FS paths.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Clean(strings.TrimPrefix(name, "/"))
}
