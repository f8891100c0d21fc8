package comic

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Less reports whether a sorts before b in natural order: digit runs compare
// by numeric value, everything else case-insensitively. Ties fall back to a
// plain byte comparison so the order is total.
func Less(a, b string) bool {
	if c := compareNatural(a, b); c != 0 {
		return c < 0
	}
	return a < b
}

// SortNatural sorts names in place in natural order.
func SortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool { return Less(names[i], names[j]) })
}

// SortPaths sorts paths in natural order of their base names.
func SortPaths(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return Less(filepath.Base(paths[i]), filepath.Base(paths[j]))
	})
}

func compareNatural(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		if unicode.IsDigit(ra[i]) && unicode.IsDigit(rb[j]) {
			si := i
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			sj := j
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}
			if c := compareDigits(string(ra[si:i]), string(rb[sj:j])); c != 0 {
				return c
			}
			continue
		}
		ca, cb := unicode.ToLower(ra[i]), unicode.ToLower(rb[j])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(ra)-i < len(rb)-j:
		return -1
	case len(ra)-i > len(rb)-j:
		return 1
	}
	return 0
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// TitleWidth returns the length of the longest digit run in names. It is
// the width NormalizeTitle pads to when titling sibling chapters.
func TitleWidth(names []string) int {
	width := 0
	for _, name := range names {
		run := 0
		for _, r := range norm.NFC.String(name) {
			if unicode.IsDigit(r) {
				run++
				width = max(width, run)
				continue
			}
			run = 0
		}
	}
	return width
}

// NormalizeTitle turns a directory name into a sort-stable chapter title:
// Unicode is NFC-composed, surrounding space trimmed and every digit run
// left-padded with zeros to width digits. With width from [TitleWidth] over
// all siblings, "7" and "10" become "07" and "10" while "001" stays "001".
func NormalizeTitle(name string, width int) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	var b strings.Builder
	runes := []rune(name)
	for i := 0; i < len(runes); {
		if !unicode.IsDigit(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		start := i
		for i < len(runes) && unicode.IsDigit(runes[i]) {
			i++
		}
		for n := i - start; n < width; n++ {
			b.WriteByte('0')
		}
		b.WriteString(string(runes[start:i]))
	}
	return b.String()
}
