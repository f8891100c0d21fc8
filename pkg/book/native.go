package book

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/matzehuels/comicpress/pkg/errors"
)

// Compiler transcodes an EPUB into a vendor binary format.
type Compiler interface {
	// Compile converts the EPUB at path and returns the produced file.
	// Failures carry the TOOL_UNAVAILABLE code.
	Compile(ctx context.Context, path string) (string, error)
}

// KindleGen runs Amazon's kindlegen, which writes <name>.mobi next to the
// input.
type KindleGen struct {
	// Path is the executable name or path; empty means "kindlegen" on PATH.
	Path string
}

func (k KindleGen) Compile(ctx context.Context, path string) (string, error) {
	bin := k.Path
	if bin == "" {
		bin = "kindlegen"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeToolUnavailable, err, "%s not found; install kindlegen or set tools.kindlegen", bin)
	}

	cmd := exec.CommandContext(ctx, resolved, "-dont_append_source", path)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()

	// kindlegen exits 1 on warnings but still writes the book.
	mobi := strings.TrimSuffix(path, filepath.Ext(path)) + ".mobi"
	if _, statErr := os.Stat(mobi); statErr != nil {
		cause := runErr
		if cause == nil {
			cause = statErr
		}
		return "", errors.Wrap(errors.ErrCodeToolUnavailable, cause, "kindlegen failed: %s", lastLine(out.String()))
	}
	return mobi, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
