package comic

import (
	"fmt"
	"sort"
	"strings"
)

// Format identifies an output container.
type Format string

// Supported output formats.
const (
	FormatCBZ   Format = "cbz"
	FormatEPUB  Format = "epub"
	FormatKEPUB Format = "kepub"
	FormatMOBI  Format = "mobi"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[Format]bool{
	FormatCBZ:   true,
	FormatEPUB:  true,
	FormatKEPUB: true,
	FormatMOBI:  true,
}

// AllFormats lists every format in a stable order.
var AllFormats = []Format{FormatCBZ, FormatEPUB, FormatKEPUB, FormatMOBI}

// ParseFormat resolves a format name or file extension.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	if ValidFormats[f] {
		return f, nil
	}
	names := make([]string, 0, len(ValidFormats))
	for v := range ValidFormats {
		names = append(names, string(v))
	}
	sort.Strings(names)
	return "", fmt.Errorf("invalid format: %q (must be one of: %s)", s, strings.Join(names, ", "))
}

// Extension returns the output file extension including the leading dot.
func (f Format) Extension() string {
	switch f {
	case FormatKEPUB:
		return ".kepub.epub"
	case FormatEPUB:
		return ".epub"
	case FormatMOBI:
		return ".mobi"
	default:
		return ".cbz"
	}
}

// Paginated reports whether the format is an EPUB-based container.
func (f Format) Paginated() bool {
	return f == FormatEPUB || f == FormatKEPUB || f == FormatMOBI
}

// TitleFromOutput derives a book title from an output file name: the
// extension is dropped, and so is a trailing ".kepub".
func TitleFromOutput(name string) string {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, ".kepub")
}
