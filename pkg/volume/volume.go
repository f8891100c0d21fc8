// Package volume splits a directory-mode input into volumes of a fixed
// number of chapters.
//
// Each volume is materialized as its own temporary input tree, so the
// regular pipeline converts it without knowing it is part of a series.
package volume

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/errors"
)

// Volume is one planned output book.
type Volume struct {
	// Number is 1-based and continues after already finished volumes.
	Number int

	// Title is "<series> - Volume <Number>".
	Title string

	// Chapters are source chapter directory names in book order.
	Chapters []string
}

// Title formats the title of volume n of series.
func Title(series string, n int) string {
	return fmt.Sprintf("%s - Volume %d", series, n)
}

// Chapters lists the chapter directories of input in natural order.
// Hidden directories are ignored. An input without chapter directories is
// an INVALID_INPUT error.
func Chapters(input string) ([]string, error) {
	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read input %s", input)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s has no chapter directories to split into volumes", input)
	}
	comic.SortNatural(dirs)
	return dirs, nil
}

// Plan groups chapters into volumes of perVolume chapters. Chapters listed
// in done are left out and numbering resumes after the volumes they filled.
func Plan(series string, chapters []string, perVolume int, done []string) ([]Volume, error) {
	if perVolume <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "chapters per volume must be positive, got %d", perVolume)
	}
	finished := make(map[string]bool, len(done))
	for _, d := range done {
		finished[d] = true
	}
	var pending []string
	for _, c := range chapters {
		if !finished[c] {
			pending = append(pending, c)
		}
	}

	first := (len(done)+perVolume-1)/perVolume + 1
	var vols []Volume
	for start := 0; start < len(pending); start += perVolume {
		end := min(start+perVolume, len(pending))
		n := first + len(vols)
		vols = append(vols, Volume{
			Number:   n,
			Title:    Title(series, n),
			Chapters: pending[start:end:end],
		})
	}
	return vols, nil
}

// Splitter materializes volumes under a private temporary directory.
type Splitter struct {
	dir string
}

// NewSplitter creates the temporary directory.
func NewSplitter() (*Splitter, error) {
	dir, err := os.MkdirTemp("", "comicpress-volumes-*")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create volume workspace")
	}
	return &Splitter{dir: dir}, nil
}

// Dir returns the workspace root.
func (s *Splitter) Dir() string {
	return s.dir
}

// Materialize builds the input tree of v from the chapter directories of
// input and returns its root. Files are hard-linked where possible and
// copied otherwise.
func (s *Splitter) Materialize(input string, v Volume) (string, error) {
	root := filepath.Join(s.dir, fmt.Sprintf("%04d", v.Number))
	for _, ch := range v.Chapters {
		if err := linkTree(filepath.Join(root, ch), filepath.Join(input, ch)); err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "materialize %s", v.Title)
		}
	}
	return root, nil
}

// Release removes the tree of v once it has been converted.
func (s *Splitter) Release(v Volume) error {
	return os.RemoveAll(filepath.Join(s.dir, fmt.Sprintf("%04d", v.Number)))
}

// CleanUp removes the workspace.
func (s *Splitter) CleanUp() error {
	return os.RemoveAll(s.dir)
}

func linkTree(dst, src string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from, to := filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := linkTree(to, from); err != nil {
				return err
			}
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Link(from, to); err == nil {
			continue
		}
		if err := copyFile(to, from); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
