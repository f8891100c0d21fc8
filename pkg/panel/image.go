package panel

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/comicpress/pkg/device"
)

const (
	binarizeThreshold = 128
	cropTolerance     = 75
	erodeRadius       = 2
	blurSigma         = 5.0 / 3.0
	minCropSize       = 5
)

// =============================================================================
// Gray buffers
// =============================================================================

// toGray returns a new 8-bit luminance buffer with its origin at (0, 0).
func toGray(img image.Image) *image.Gray {
	return grayFromNRGBA(imaging.Grayscale(img))
}

// grayFromNRGBA copies the red channel of an already-gray NRGBA image.
func grayFromNRGBA(n *image.NRGBA) *image.Gray {
	w, h := n.Rect.Dx(), n.Rect.Dy()
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := n.Pix[y*n.Stride:]
		dst := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = src[x*4]
		}
	}
	return g
}

// minFilter replaces every pixel with the darkest value in its
// (2r+1)x(2r+1) neighbourhood. Rows and columns are filtered separately.
func minFilter(g *image.Gray, r int) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	tmp := image.NewGray(g.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := uint8(255)
			for dx := max(0, x-r); dx <= min(w-1, x+r); dx++ {
				m = min(m, g.Pix[y*g.Stride+dx])
			}
			tmp.Pix[y*tmp.Stride+x] = m
		}
	}
	out := image.NewGray(g.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := uint8(255)
			for dy := max(0, y-r); dy <= min(h-1, y+r); dy++ {
				m = min(m, tmp.Pix[dy*tmp.Stride+x])
			}
			out.Pix[y*out.Stride+x] = m
		}
	}
	return out
}

// =============================================================================
// Background and autocrop
// =============================================================================

// DetectBackground binarizes img at mid-gray and returns white or black,
// whichever covers more pixels. Ties count as white.
func DetectBackground(img image.Image) color.Gray {
	g := toGray(img)
	light := 0
	for _, v := range g.Pix {
		if v >= binarizeThreshold {
			light++
		}
	}
	if light*2 >= len(g.Pix) {
		return color.Gray{Y: 0xff}
	}
	return color.Gray{Y: 0x00}
}

// Autocrop removes margins of color bg. The margin test runs on an
// eroded and blurred copy so specks and JPEG noise do not stop the scan.
// If nothing but margin is found, or the remaining box is smaller than
// 5x5 pixels, img is returned unchanged.
func Autocrop(img image.Image, bg color.Gray) image.Image {
	mask := grayFromNRGBA(imaging.Blur(minFilter(toGray(img), erodeRadius), blurSigma))
	box, ok := cropBox(mask, bg)
	if !ok {
		return img
	}
	return imaging.Crop(img, box.Add(img.Bounds().Min))
}

// cropBox finds the content box of an autocrop mask and rejects boxes
// smaller than minCropSize in either dimension.
func cropBox(mask *image.Gray, bg color.Gray) (image.Rectangle, bool) {
	box, ok := contentBox(mask, bg.Y, cropTolerance)
	if !ok || box.Dx() < minCropSize || box.Dy() < minCropSize {
		return image.Rectangle{}, false
	}
	return box, true
}

// TrimBackground removes rows and columns made only of exactly bg, such as
// padding added by Resize. When the result would be empty img is returned.
func TrimBackground(img image.Image, bg color.Gray) image.Image {
	box, ok := contentBox(toGray(img), bg.Y, 0)
	if !ok || box == img.Bounds().Sub(img.Bounds().Min) {
		return img
	}
	return imaging.Crop(img, box.Add(img.Bounds().Min))
}

// contentBox scans inward from each edge for the first row or column with
// a pixel further than tol from bg. ok is false when every pixel matches.
func contentBox(g *image.Gray, bg uint8, tol int) (box image.Rectangle, ok bool) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	matches := func(v uint8) bool {
		d := int(v) - int(bg)
		return d <= tol && -d <= tol
	}
	column := func(x int) bool {
		for y := 0; y < h; y++ {
			if !matches(g.Pix[y*g.Stride+x]) {
				return false
			}
		}
		return true
	}
	row := func(y int) bool {
		for _, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
			if !matches(v) {
				return false
			}
		}
		return true
	}

	left := 0
	for left < w && column(left) {
		left++
	}
	if left == w {
		return image.Rectangle{}, false
	}
	right := w - 1
	for right > left && column(right) {
		right--
	}
	top := 0
	for top < h && row(top) {
		top++
	}
	bottom := h - 1
	for bottom > top && row(bottom) {
		bottom--
	}
	return image.Rect(left, top, right+1, bottom+1), true
}

// =============================================================================
// Resize
// =============================================================================

// Resize fits img to a width x height screen according to mode. Padding
// uses fill. Pages that need shrinking are resampled with Lanczos, all
// others with Catmull-Rom.
func Resize(img image.Image, width, height int, mode ResizeMode, fill color.Color) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	filter := imaging.CatmullRom
	if w > width || h > height {
		filter = imaging.Lanczos
	}

	switch mode {
	case ResizeStretch:
		return imaging.Resize(img, width, height, filter)
	case ResizeNothing:
		if w > width && h > height {
			return fitCentered(img, width, height, filter, fill)
		}
		return imaging.PasteCenter(imaging.New(width, height, fill), img)
	default:
		return fitCentered(img, width, height, filter, fill)
	}
}

// fitCentered scales img uniformly to fit and centers it on a fill canvas.
func fitCentered(img image.Image, width, height int, filter imaging.ResampleFilter, fill color.Color) *image.NRGBA {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	scale := math.Min(float64(width)/w, float64(height)/h)
	nw := min(width, max(1, int(math.Round(w*scale))))
	nh := min(height, max(1, int(math.Round(h*scale))))
	scaled := imaging.Resize(img, nw, nh, filter)
	if nw == width && nh == height {
		return scaled
	}
	return imaging.PasteCenter(imaging.New(width, height, fill), scaled)
}

// =============================================================================
// Quantize and contrast
// =============================================================================

// Quantize converts img to gray and dithers it into palette. A nil palette
// only converts to gray.
func Quantize(img image.Image, palette device.Palette, scan DitherScan) *image.Gray {
	g := toGray(img)
	if len(palette) > 0 {
		Dither(g, palette, scan)
	}
	return g
}

// Dither applies Floyd-Steinberg error diffusion into palette, in place.
// Error goes 7/16 right, 3/16 down-left, 5/16 down and 1/16 down-right
// whatever the scan order; with DitherReverse those neighbours are already
// final, so their values drift off the palette.
func Dither(g *image.Gray, palette device.Palette, scan DitherScan) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}

	lut := palette.Lookup()

	acc := make([]int32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc[y*w+x] = int32(g.Pix[y*g.Stride+x])
		}
	}

	spread := func(x, y int, e int32) {
		if x < 0 || x >= w || y >= h {
			return
		}
		acc[y*w+x] += e
	}
	visit := func(x, y int) {
		i := y*w + x
		old := clamp8(acc[i])
		q := lut[old]
		acc[i] = int32(q)
		e := int32(old) - int32(q)
		if e == 0 {
			return
		}
		spread(x+1, y, e*7/16)
		spread(x-1, y+1, e*3/16)
		spread(x, y+1, e*5/16)
		spread(x+1, y+1, e/16)
	}

	if scan == DitherReverse {
		for y := h - 1; y >= 0; y-- {
			for x := w - 1; x >= 0; x-- {
				visit(x, y)
			}
		}
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				visit(x, y)
			}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Pix[y*g.Stride+x] = clamp8(acc[y*w+x])
		}
	}
}

// ApplyContrast scales gray values around mid-gray by factor, in place.
func ApplyContrast(g *image.Gray, factor float64) {
	if factor == 1 {
		return
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(int32(math.Round((float64(i)-128)*factor + 128)))
	}
	applyLUT(g, &lut)
}

// StretchContrast maps the observed [min, max] gray range linearly onto
// [0, 255], in place. Flat images are left alone.
func StretchContrast(g *image.Gray) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	lo, hi := 255, 0
	for y := 0; y < h; y++ {
		for _, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
			lo = min(lo, int(v))
			hi = max(hi, int(v))
		}
	}
	if hi <= lo || (lo == 0 && hi == 255) {
		return
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(int32((i - lo) * 255 / (hi - lo)))
	}
	applyLUT(g, &lut)
}

func applyLUT(g *image.Gray, lut *[256]uint8) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range row {
			row[x] = lut[v]
		}
	}
}

func clamp8(v int32) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}
