package panel

import (
	"bufio"
	"image"
	"os"
	"path/filepath"

	// Decoders accepted as page sources.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/comicpress/pkg/errors"
)

// Sniff reports whether path is an image this package can decode, reading
// only the header. A non-image yields an IMAGE_DECODE error.
func Sniff(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeImageDecode, err, "open %s", filepath.Base(path))
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(bufio.NewReader(f)); err != nil {
		return errors.Wrap(errors.ErrCodeImageDecode, err, "%s is not a supported image", filepath.Base(path))
	}
	return nil
}
