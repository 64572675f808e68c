package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// ErrIconMissing is returned when a type's icon cannot be loaded. Painting
// never fails on it; the glyph interior is left empty.
var ErrIconMissing = errors.New("icon missing")

// IconSource looks up the decoded icon for a display type.
type IconSource interface {
	Icon(t model.DisplayType) (image.Image, bool)
}

// IconCache decodes each type's icon once. Failed loads are cached too, so
// a missing asset is not retried every frame.
type IconCache struct {
	mu      sync.RWMutex
	icons   map[model.DisplayType]image.Image
	missing map[model.DisplayType]error
}

// NewIconCache returns an empty cache.
func NewIconCache() *IconCache {
	return &IconCache{
		icons:   make(map[model.DisplayType]image.Image),
		missing: make(map[model.DisplayType]error),
	}
}

// Icon returns the cached icon for t.
func (c *IconCache) Icon(t model.DisplayType) (image.Image, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.icons[t]
	return img, ok
}

// Set stores an already decoded icon.
func (c *IconCache) Set(t model.DisplayType, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.icons[t] = img
	delete(c.missing, t)
}

// Load decodes the file at path as t's icon. A previous failure for t is
// returned without touching the filesystem again.
func (c *IconCache) Load(t model.DisplayType, path string) error {
	c.mu.RLock()
	_, have := c.icons[t]
	prev := c.missing[t]
	c.mu.RUnlock()
	if have {
		return nil
	}
	if prev != nil {
		return prev
	}

	img, err := decodeFile(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrIconMissing, t, err)
		c.missing[t] = err
		return err
	}
	c.icons[t] = img
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// Preload loads every icon concurrently. All failures are returned joined;
// the icons that did load are usable either way.
func (c *IconCache) Preload(ctx context.Context, paths map[model.DisplayType]string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	var (
		mu   sync.Mutex
		errs []error
	)
	for t, path := range paths {
		if path == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := c.Load(t, path); err != nil {
				debug.Log("icon %s: %v", t, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Len returns the number of decoded icons.
func (c *IconCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.icons)
}
