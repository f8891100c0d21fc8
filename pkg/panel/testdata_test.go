package panel

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/device"
)

// testDevice is a tiny screen so pipeline tests stay fast.
var testDevice = device.Profile{
	ID:      "test",
	Name:    "Test",
	Width:   30,
	Height:  40,
	Palette: device.Palette16,
	Formats: comic.AllFormats,
}

func testOptions() Options {
	return Options{
		Device:     testDevice,
		Direction:  comic.LeftToRight,
		Background: BackgroundWhite,
		Resize:     ResizeUpscale,
		Split:      SplitHalves,
		Contrast:   Contrast{Value: 1},
	}
}

// filled returns a w x h gray image of a single value.
func filled(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// fillRect paints r with v.
func fillRect(g *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

// writePNG saves img under dir and returns the path.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
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

// openGray decodes a prepared panel.
func openGray(t *testing.T, path string) *image.Gray {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return toGray(img)
}

func mean(g *image.Gray) float64 {
	sum := 0
	for _, v := range g.Pix {
		sum += int(v)
	}
	return float64(sum) / float64(len(g.Pix))
}

// spread returns a 120x80 landscape page: dark left half, light right half.
func spread() *image.Gray {
	g := filled(120, 80, 200)
	fillRect(g, image.Rect(0, 0, 60, 80), 40)
	return g
}

// portrait returns a 60x80 page with a dark frame inside a white margin.
func portrait() *image.Gray {
	g := filled(60, 80, 255)
	fillRect(g, image.Rect(10, 10, 50, 70), 20)
	return g
}

// portraitWide is a page whose content is much wider than the screen
// aspect, so fitting it pads top and bottom.
func portraitWide() *image.Gray {
	g := filled(60, 62, 255)
	fillRect(g, image.Rect(0, 20, 60, 42), 0)
	return g
}
