// Package archive writes zip containers atomically.
//
// A [Writer] streams entries into a temporary file next to the final path
// and renames it into place on [Writer.Close]. Any failure, or an explicit
// [Writer.Abort], removes the temporary file so a failed build never leaves
// a partial container behind.
//
// Entry names are validated with [errors.ValidatePath]; they must be
// relative, forward-slash separated and free of ".." segments.
package archive

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/errors"
)

// Writer is a zip container under construction. It is not safe for
// concurrent use.
type Writer struct {
	path string
	tmp  *os.File
	zw   *zip.Writer
	mod  time.Time
	seen map[string]bool
	done bool
}

// Create starts a container that will be written to path.
func Create(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeContainerWrite, err, "create output directory")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeContainerWrite, err, "create %s", filepath.Base(path))
	}
	return &Writer{
		path: path,
		tmp:  tmp,
		zw:   zip.NewWriter(tmp),
		mod:  time.Now(),
		seen: make(map[string]bool),
	}, nil
}

// Path returns the final container path.
func (w *Writer) Path() string {
	return w.path
}

// AddStored writes data as an uncompressed entry. EPUB requires this for
// the leading mimetype entry.
func (w *Writer) AddStored(name string, data []byte) error {
	return w.add(name, zip.Store, data)
}

// AddBytes writes data as a deflated entry.
func (w *Writer) AddBytes(name string, data []byte) error {
	return w.add(name, zip.Deflate, data)
}

// AddFile copies the file at src into the container as name.
func (w *Writer) AddFile(name, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeContainerWrite, err, "open %s", filepath.Base(src))
	}
	defer f.Close()

	dst, err := w.create(name, zip.Deflate)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, f); err != nil {
		return errors.Wrap(errors.ErrCodeContainerWrite, err, "write %s", name)
	}
	return nil
}

// AddDir copies every regular file below root into the container under
// prefix, in natural path order.
func (w *Writer) AddDir(prefix, root string) error {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeContainerWrite, err, "walk %s", root)
	}
	comic.SortNatural(files)

	for _, p := range files {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return errors.Wrap(errors.ErrCodeContainerWrite, err, "relative path of %s", p)
		}
		name := filepath.ToSlash(rel)
		if prefix != "" {
			name = strings.TrimSuffix(prefix, "/") + "/" + name
		}
		if err := w.AddFile(name, p); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) add(name string, method uint16, data []byte) error {
	dst, err := w.create(name, method)
	if err != nil {
		return err
	}
	if _, err := dst.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeContainerWrite, err, "write %s", name)
	}
	return nil
}

func (w *Writer) create(name string, method uint16) (io.Writer, error) {
	if w.done {
		return nil, errors.New(errors.ErrCodeInvalidState, "archive %s already closed", filepath.Base(w.path))
	}
	if err := errors.ValidatePath(name); err != nil {
		return nil, err
	}
	if w.seen[name] {
		return nil, errors.New(errors.ErrCodeInvalidPath, "duplicate entry %q", name)
	}
	w.seen[name] = true

	dst, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: w.mod,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeContainerWrite, err, "create entry %s", name)
	}
	return dst, nil
}

// Close finishes the container and moves it to its final path. On failure
// the temporary file is removed.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.zw.Close(); err != nil {
		w.discard()
		return errors.Wrap(errors.ErrCodeContainerWrite, err, "finish %s", filepath.Base(w.path))
	}
	if err := w.tmp.Close(); err != nil {
		_ = os.Remove(w.tmp.Name())
		return errors.Wrap(errors.ErrCodeContainerWrite, err, "flush %s", filepath.Base(w.path))
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		_ = os.Remove(w.tmp.Name())
		return errors.Wrap(errors.ErrCodeContainerWrite, err, "move %s into place", filepath.Base(w.path))
	}
	return nil
}

// Abort discards the container. It is a no-op after Close.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.discard()
}

func (w *Writer) discard() {
	_ = w.tmp.Close()
	_ = os.Remove(w.tmp.Name())
}
