// Package comic defines the data types shared by every conversion stage.
//
// A source page becomes one or two [Panel] values once prepared. Panels are
// grouped into a [Chapter] in natural-sort order of their source files, and
// chapters are handed to a book assembler that places every panel on a
// [Side] of a two-page spread according to the reading [Direction].
//
// The package also owns the output [Format] identifiers and the ordering
// helpers ([Less], [SortNatural], [NormalizeTitle]) used to keep chapter and
// page order stable regardless of how files are named on disk.
package comic
