// Package book assembles prepared panels into e-reader containers.
//
// Every output format is an [Assembler] created by [New]. Assemblers share
// one lifecycle:
//
//	Empty --AddChapter--> Accumulating --Build--> Finalized
//
// AddChapter copies panel files into the assembler's own working tree, so
// the caller may delete its panels as soon as Build returns. Build may be
// called once; calls after it fail with an INVALID_STATE error. Close
// removes the working tree and must be called on every exit path.
//
// The CBZ assembler writes one folder per chapter. EPUB, KEPUB and MOBI share
// a paginated core (XHTML pages, navigation, OPF spine with page-spread
// hints computed by [Paginate]) and differ in a small strategy object: the
// output extension, extra OPF metadata, panel-view markup and an optional
// post-build compiler step.
package book

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/device"
	"github.com/matzehuels/comicpress/pkg/errors"
)

// DefaultAuthor is written to book metadata when no author is configured.
const DefaultAuthor = "comicpress"

// Assembler accumulates chapters and finalizes one container file.
type Assembler interface {
	// AddChapter copies the chapter's panels into the working tree.
	AddChapter(ctx context.Context, ch comic.Chapter) error
	// Build writes the container and returns its final path. cover may be
	// nil; formats without a cover slot ignore it.
	Build(ctx context.Context, cover *comic.Panel) (string, error)
	// Close removes the working tree. It is safe to call more than once.
	Close() error
}

// Config describes the container to build.
type Config struct {
	// Output is the container path, including its extension.
	Output    string
	Title     string
	Author    string
	Direction comic.Direction
	Device    device.Profile
	Logger    *log.Logger

	// Compiler transcodes the intermediate EPUB of a MOBI build. Nil
	// selects KindleGen from PATH.
	Compiler Compiler

	// Identifier and Modified default to a random UUID and the current
	// time; tests pin them for reproducible output.
	Identifier string
	Modified   time.Time
}

func (c *Config) setDefaults() {
	if c.Title == "" {
		c.Title = comic.TitleFromOutput(c.Output)
	}
	if c.Author == "" {
		c.Author = DefaultAuthor
	}
	if c.Logger == nil {
		c.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if c.Modified.IsZero() {
		c.Modified = time.Now()
	}
}

// New returns the assembler for format.
func New(format comic.Format, cfg Config) (Assembler, error) {
	if cfg.Output == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "output path is required")
	}
	cfg.setDefaults()

	switch format {
	case comic.FormatCBZ:
		return newArchiveBuilder(cfg)
	case comic.FormatEPUB:
		return newPaginated(cfg, epubVariant{})
	case comic.FormatKEPUB:
		return newPaginated(cfg, kepubVariant{})
	case comic.FormatMOBI:
		compiler := cfg.Compiler
		if compiler == nil {
			compiler = KindleGen{}
		}
		return newPaginated(cfg, nativeVariant{compiler: compiler})
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format)
}

// =============================================================================
// Lifecycle
// =============================================================================

type state int

const (
	stateEmpty state = iota
	stateAccumulating
	stateFinalized
)

// lifecycle guards the Empty -> Accumulating -> Finalized transitions.
type lifecycle struct {
	mu     sync.Mutex
	state  state
	closed bool
}

func (l *lifecycle) accumulate() error {
	if l.closed {
		return errors.New(errors.ErrCodeInvalidState, "assembler is closed")
	}
	if l.state == stateFinalized {
		return errors.New(errors.ErrCodeInvalidState, "cannot add a chapter after build")
	}
	l.state = stateAccumulating
	return nil
}

func (l *lifecycle) finalize() error {
	if l.closed {
		return errors.New(errors.ErrCodeInvalidState, "assembler is closed")
	}
	if l.state == stateFinalized {
		return errors.New(errors.ErrCodeInvalidState, "build already called")
	}
	l.state = stateFinalized
	return nil
}

// =============================================================================
// Working tree helpers
// =============================================================================

// copyFile copies src to dst; the panel stays owned by its preparer.
func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// checkChapter validates a chapter before it touches the working tree.
func checkChapter(ch comic.Chapter, seen map[string]bool) error {
	if err := errors.ValidateTitle(ch.Title); err != nil {
		return err
	}
	for _, name := range reservedTitles {
		if strings.EqualFold(ch.Title, name) {
			return errors.New(errors.ErrCodeInvalidInput, "chapter title %q is reserved", ch.Title)
		}
	}
	if seen[ch.Title] {
		return errors.New(errors.ErrCodeInvalidInput, "duplicate chapter %q", ch.Title)
	}
	if len(ch.Panels) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "chapter %q has no panels", ch.Title)
	}
	stems := make(map[string]bool, len(ch.Panels))
	for _, p := range ch.Panels {
		stem := panelStem(p.Path)
		if stems[stem] {
			return errors.New(errors.ErrCodeInvalidInput, "chapter %q: duplicate panel %s", ch.Title, stem)
		}
		stems[stem] = true
	}
	return nil
}

// reservedTitles are chapter titles that would collide with shared files
// next to the per-chapter Images and Text roots.
var reservedTitles = []string{".", "cover.jpg", "style.css"}

// panelStem is the panel file name without its extension.
func panelStem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
