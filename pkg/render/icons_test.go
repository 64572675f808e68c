package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIconCache_LoadCachesFailures(t *testing.T) {
	dir := t.TempDir()
	c := NewIconCache()
	path := filepath.Join(dir, "later.png")

	err := c.Load(model.TypeEmail, path)
	if !errors.Is(err, ErrIconMissing) {
		t.Fatalf("Load(missing) = %v, want ErrIconMissing", err)
	}

	// The file appearing later does not trigger a retry.
	writePNG(t, dir, "later.png")
	if err := c.Load(model.TypeEmail, path); !errors.Is(err, ErrIconMissing) {
		t.Errorf("second Load = %v, want cached failure", err)
	}
	if _, ok := c.Icon(model.TypeEmail); ok {
		t.Error("failed icon reported present")
	}

	c.Set(model.TypeEmail, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if _, ok := c.Icon(model.TypeEmail); !ok {
		t.Error("Set did not clear the failure")
	}
}

func TestIconCache_Preload(t *testing.T) {
	dir := t.TempDir()
	c := NewIconCache()
	err := c.Preload(context.Background(), map[model.DisplayType]string{
		model.TypeIndividual: writePNG(t, dir, "person.png"),
		model.TypePhone:      writePNG(t, dir, "phone.png"),
		model.TypeDomain:     filepath.Join(dir, "nope.png"),
		model.TypeIP:         "",
	})
	if !errors.Is(err, ErrIconMissing) {
		t.Errorf("Preload error = %v, want the missing icon", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	img, ok := c.Icon(model.TypeIndividual)
	if !ok || img.Bounds().Dx() != 4 {
		t.Errorf("person icon = %v, %v", img, ok)
	}
}

func TestIconCache_PreloadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewIconCache()
	err := c.Preload(ctx, map[model.DisplayType]string{model.TypeEmail: "x.png"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Preload on cancelled ctx = %v", err)
	}
	if c.Len() != 0 {
		t.Error("cancelled preload loaded icons")
	}
}

func TestIconCache_NilIsEmpty(t *testing.T) {
	var c *IconCache
	if _, ok := c.Icon(model.TypeEmail); ok {
		t.Error("nil cache returned an icon")
	}
}
