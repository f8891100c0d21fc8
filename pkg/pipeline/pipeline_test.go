package pipeline

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
	"golang.org/x/net/html"

	"github.com/matzehuels/comicpress/pkg/cache"
	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/device"
	"github.com/matzehuels/comicpress/pkg/errors"
	"github.com/matzehuels/comicpress/pkg/observability"
	"github.com/matzehuels/comicpress/pkg/panel"
)

var testDevice = device.Profile{
	ID:      "test",
	Name:    "Test",
	Width:   30,
	Height:  40,
	Palette: device.Palette16,
	Formats: comic.AllFormats,
}

// =============================================================================
// Fixtures
// =============================================================================

// pageShade varies the block gray of each fixture so that no two pages
// share a content hash.
var pageShade atomic.Uint32

// writePage writes a w x h gray PNG with a dark block on a light page.
func writePage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 230
	}
	shade := uint8(10 + pageShade.Add(1)%60)
	for y := h / 4; y < h*3/4; y++ {
		for x := w / 4; x < w*3/4; x++ {
			img.Pix[y*img.Stride+x] = shade
		}
	}
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

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// seriesInput builds a directory-mode input: chapter "001" with a portrait
// page, a spread and another portrait page, and chapter "2" with one page.
func seriesInput(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Series")
	ch1 := filepath.Join(root, "001")
	writePage(t, ch1, "a.png", 60, 80)
	writePage(t, ch1, "b.png", 120, 80)
	writePage(t, ch1, "c.png", 60, 80)
	writePage(t, filepath.Join(root, "2"), "page1.png", 60, 80)
	return root
}

func testOpts(input string) Options {
	return Options{
		Input:  input,
		Device: testDevice,
		Format: comic.FormatCBZ,
		Logger: log.New(io.Discard),
	}
}

// zipEntries returns "name crc" pairs of a container in archive order.
func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer r.Close()
	var out []string
	for _, f := range r.File {
		out = append(out, fmt.Sprintf("%s %08x", f.Name, f.CRC32))
	}
	return out
}

// readEntry returns the content of one container entry.
func readEntry(t *testing.T, path, name string) []byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer r.Close()
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read entry %s: %v", name, err)
		}
		return data
	}
	t.Fatalf("missing entry %s in %s", name, path)
	return nil
}

// jpegSize decodes the dimensions of a JPEG container entry.
func jpegSize(t *testing.T, path, name string) image.Point {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(readEntry(t, path, name)))
	if err != nil {
		t.Fatalf("decode %s: %v", name, err)
	}
	return image.Pt(cfg.Width, cfg.Height)
}

// ncxLabels returns the navigation labels of a toc.ncx document.
func ncxLabels(t *testing.T, data []byte) []string {
	t.Helper()
	var doc struct {
		Labels []string `xml:"navMap>navPoint>navLabel>text"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse ncx: %v", err)
	}
	return doc.Labels
}

// tocLabels returns the link texts of the toc nav in a nav.xhtml document.
func tocLabels(t *testing.T, data []byte) []string {
	t.Helper()
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parse nav: %v", err)
	}
	var labels []string
	var walk func(n *html.Node, inToc bool)
	walk = func(n *html.Node, inToc bool) {
		if n.Type == html.ElementNode && n.Data == "nav" {
			inToc = false
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == "toc" {
					inToc = true
				}
			}
		}
		if inToc && n.Type == html.ElementNode && n.Data == "a" && n.FirstChild != nil {
			labels = append(labels, n.FirstChild.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inToc)
		}
	}
	walk(doc, false)
	return labels
}

func names(entries []string) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = strings.Fields(e)[0]
	}
	return out
}

// =============================================================================
// Options
// =============================================================================

func TestOptionsDefaults(t *testing.T) {
	input := filepath.Join(t.TempDir(), "My Comic")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}
	opts := Options{Input: input, Device: testDevice}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}

	if opts.Format != comic.FormatCBZ {
		t.Errorf("Format = %q, want %q", opts.Format, comic.FormatCBZ)
	}
	wantOut := filepath.Join(filepath.Dir(input), "My Comic.cbz")
	if opts.Output != wantOut {
		t.Errorf("Output = %q, want %q", opts.Output, wantOut)
	}
	if opts.Title != "My Comic" {
		t.Errorf("Title = %q, want %q", opts.Title, "My Comic")
	}
	if opts.Author != "comicpress" {
		t.Errorf("Author = %q, want %q", opts.Author, "comicpress")
	}
	if opts.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", opts.Workers, DefaultWorkers)
	}
	if !opts.Contrast.Auto {
		t.Errorf("Contrast = %v, want auto", opts.Contrast)
	}
	if opts.Logger == nil {
		t.Error("Logger should be set")
	}
}

func TestOptionsDefaultFormatFollowsDevice(t *testing.T) {
	dev := testDevice
	dev.Formats = []comic.Format{comic.FormatKEPUB, comic.FormatEPUB}
	opts := Options{Input: t.TempDir(), Device: dev}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Format != comic.FormatKEPUB {
		t.Errorf("Format = %q, want %q", opts.Format, comic.FormatKEPUB)
	}
	if !strings.HasSuffix(opts.Output, ".kepub.epub") {
		t.Errorf("Output = %q, want .kepub.epub suffix", opts.Output)
	}
	if strings.HasSuffix(opts.Title, ".kepub") {
		t.Errorf("Title = %q, should not keep .kepub", opts.Title)
	}
}

func TestOptionsSync(t *testing.T) {
	opts := Options{Input: t.TempDir(), Device: testDevice, Workers: 8, Sync: true}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Workers != 1 {
		t.Errorf("Workers = %d, want 1", opts.Workers)
	}
}

func TestOptionsExplicitValuesKept(t *testing.T) {
	opts := Options{
		Input:    t.TempDir(),
		Output:   "/tmp/out/book.epub",
		Format:   comic.FormatEPUB,
		Title:    "Custom",
		Author:   "Someone",
		Device:   testDevice,
		Contrast: panel.Contrast{Value: 1.5},
		Workers:  3,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Output != "/tmp/out/book.epub" || opts.Title != "Custom" || opts.Author != "Someone" {
		t.Errorf("explicit values overwritten: %+v", opts)
	}
	if opts.Contrast.Auto || opts.Contrast.Value != 1.5 {
		t.Errorf("Contrast = %v, want 1.5", opts.Contrast)
	}
	if opts.Workers != 3 {
		t.Errorf("Workers = %d, want 3", opts.Workers)
	}
}

func TestOptionsValidation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.png")
	writeFile(t, dir, "file.png", "x")

	epubOnly := testDevice
	epubOnly.Formats = []comic.Format{comic.FormatEPUB}

	tests := []struct {
		name string
		opts Options
		want errors.Code
	}{
		{"missing input", Options{Device: testDevice}, errors.ErrCodeInvalidInput},
		{"input does not exist", Options{Input: filepath.Join(dir, "nope"), Device: testDevice}, errors.ErrCodeInvalidInput},
		{"input is a file", Options{Input: file, Device: testDevice}, errors.ErrCodeInvalidInput},
		{"missing device", Options{Input: dir}, errors.ErrCodeInvalidInput},
		{"zero resolution", Options{Input: dir, Device: device.Profile{ID: "x", Formats: comic.AllFormats}}, errors.ErrCodeInvalidInput},
		{"unknown format", Options{Input: dir, Device: testDevice, Format: "pdf"}, errors.ErrCodeInvalidFormat},
		{"unsupported format", Options{Input: dir, Device: epubOnly, Format: comic.FormatMOBI}, errors.ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("code = %v, want %v (%v)", errors.GetCode(err), tt.want, err)
			}
		})
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Input: t.TempDir(), Device: testDevice}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	first := opts
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Output != first.Output || opts.Workers != first.Workers || opts.Format != first.Format {
		t.Errorf("second call changed options: %+v vs %+v", opts, first)
	}
}

func TestPanelOptions(t *testing.T) {
	opts := Options{
		Device:     testDevice,
		Direction:  comic.RightToLeft,
		Background: panel.BackgroundBlack,
		Resize:     panel.ResizeStretch,
		Split:      panel.SplitRotate,
		Contrast:   panel.Contrast{Value: 2},
		Dither:     panel.DitherReverse,
	}
	got := opts.PanelOptions()
	want := panel.Options{
		Device:     testDevice,
		Direction:  comic.RightToLeft,
		Background: panel.BackgroundBlack,
		Resize:     panel.ResizeStretch,
		Split:      panel.SplitRotate,
		Contrast:   panel.Contrast{Value: 2},
		Dither:     panel.DitherReverse,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PanelOptions() = %+v, want %+v", got, want)
	}
}

// =============================================================================
// Discovery
// =============================================================================

func TestDiscoverDirectoryMode(t *testing.T) {
	root := t.TempDir()
	writePage(t, filepath.Join(root, "10"), "1.png", 60, 80)
	writePage(t, filepath.Join(root, "2"), "10.png", 60, 80)
	writePage(t, filepath.Join(root, "2"), "9.png", 60, 80)
	writeFile(t, filepath.Join(root, "2"), "notes.txt", "not an image")
	writePage(t, filepath.Join(root, "1"), "cover.png", 60, 80)
	writeFile(t, root, "readme.txt", "ignored")
	writePage(t, filepath.Join(root, ".git"), "x.png", 60, 80)
	if err := os.MkdirAll(filepath.Join(root, "extras"), 0o755); err != nil {
		t.Fatal(err)
	}

	layout, err := Discover(context.Background(), root, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !layout.Nested {
		t.Error("Nested = false, want true")
	}

	var titles []string
	for _, ch := range layout.Chapters {
		titles = append(titles, ch.Title)
	}
	wantTitles := []string{"01", "02", "10"}
	if !reflect.DeepEqual(titles, wantTitles) {
		t.Errorf("titles = %v, want %v", titles, wantTitles)
	}

	var pages []string
	for _, p := range layout.Chapters[1].Pages {
		pages = append(pages, filepath.Base(p))
	}
	if want := []string{"9.png", "10.png"}; !reflect.DeepEqual(pages, want) {
		t.Errorf("chapter 2 pages = %v, want %v", pages, want)
	}
	if layout.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", layout.Skipped)
	}
	if got := filepath.Base(layout.Cover()); got != "cover.png" {
		t.Errorf("Cover() = %q, want cover.png", got)
	}
	if layout.PageCount() != 4 {
		t.Errorf("PageCount() = %d, want 4", layout.PageCount())
	}
}

func TestDiscoverFlatMode(t *testing.T) {
	root := filepath.Join(t.TempDir(), "One Shot")
	writePage(t, root, "p10.png", 60, 80)
	writePage(t, root, "p2.png", 60, 80)
	writePage(t, root, "p1.png", 60, 80)
	writeFile(t, root, ".DS_Store", "junk")

	layout, err := Discover(context.Background(), root, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if layout.Nested {
		t.Error("Nested = true, want false")
	}
	if len(layout.Chapters) != 1 {
		t.Fatalf("chapters = %d, want 1", len(layout.Chapters))
	}
	ch := layout.Chapters[0]
	if ch.Title != "One Shot" {
		t.Errorf("Title = %q, want %q", ch.Title, "One Shot")
	}
	var pages []string
	for _, p := range ch.Pages {
		pages = append(pages, filepath.Base(p))
	}
	if want := []string{"p1.png", "p2.png", "p10.png"}; !reflect.DeepEqual(pages, want) {
		t.Errorf("pages = %v, want %v", pages, want)
	}
	if got := filepath.Base(layout.Cover()); got != "p1.png" {
		t.Errorf("Cover() = %q, want p1.png", got)
	}
}

func TestDiscoverErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, root string)
	}{
		{"empty", func(t *testing.T, root string) {}},
		{"no images", func(t *testing.T, root string) {
			writeFile(t, root, "a.txt", "text")
		}},
		{"empty chapters", func(t *testing.T, root string) {
			writeFile(t, filepath.Join(root, "1"), "a.txt", "text")
			writePage(t, root, "loose.png", 60, 80)
		}},
		{"colliding titles", func(t *testing.T, root string) {
			writePage(t, filepath.Join(root, "7"), "a.png", 60, 80)
			writePage(t, filepath.Join(root, "007"), "a.png", 60, 80)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)
			_, err := Discover(context.Background(), root, log.New(io.Discard))
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Discover() error = %v, want %v", err, errors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestDiscoverMissingInput(t *testing.T) {
	_, err := Discover(context.Background(), filepath.Join(t.TempDir(), "missing"), log.New(io.Discard))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Discover() error = %v, want %v", err, errors.ErrCodeInvalidInput)
	}
}

// =============================================================================
// Execution
// =============================================================================

func TestExecuteCBZ(t *testing.T) {
	input := seriesInput(t)
	opts := testOpts(input)
	opts.Output = filepath.Join(t.TempDir(), "Series.cbz")

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != opts.Output {
		t.Errorf("Output = %q, want %q", res.Output, opts.Output)
	}

	got := names(zipEntries(t, res.Output))
	want := []string{
		"001/0001.jpg",
		"001/0002-A.jpg",
		"001/0002-B.jpg",
		"001/0003.jpg",
		"002/0001.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("entries = %v, want %v", got, want)
	}

	if res.Stats.Chapters != 2 || res.Stats.Pages != 4 || res.Stats.Panels != 5 {
		t.Errorf("Stats = %+v, want 2 chapters, 4 pages, 5 panels", res.Stats)
	}
	if res.Cover != "a.png" {
		t.Errorf("Cover = %q, want a.png", res.Cover)
	}
	wantTags := []comic.Tag{comic.TagNone, comic.TagFirstSplit, comic.TagSecondSplit, comic.TagNone}
	if !reflect.DeepEqual(res.Chapters[0].Tags, wantTags) {
		t.Errorf("tags = %v, want %v", res.Chapters[0].Tags, wantTags)
	}
}

func TestExecuteRotatePolicy(t *testing.T) {
	input := seriesInput(t)
	opts := testOpts(input)
	opts.Output = filepath.Join(t.TempDir(), "Series.cbz")
	opts.Split = panel.SplitRotate

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"0001.jpg", "0002.jpg", "0003.jpg"}
	if !reflect.DeepEqual(res.Chapters[0].Panels, want) {
		t.Errorf("panels = %v, want %v", res.Chapters[0].Panels, want)
	}
	if res.Chapters[0].Tags[1] != comic.TagRotated {
		t.Errorf("tag = %v, want %v", res.Chapters[0].Tags[1], comic.TagRotated)
	}
}

func TestExecuteSyncMatchesConcurrent(t *testing.T) {
	input := seriesInput(t)
	for i := 0; i < 6; i++ {
		writePage(t, filepath.Join(input, "3"), fmt.Sprintf("%d.png", i), 60+i, 80)
	}

	run := func(sync bool, workers int) (*Result, []string) {
		opts := testOpts(input)
		opts.Output = filepath.Join(t.TempDir(), "out.cbz")
		opts.Sync = sync
		opts.Workers = workers
		res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
		if err != nil {
			t.Fatalf("Execute(sync=%v): %v", sync, err)
		}
		return res, zipEntries(t, res.Output)
	}

	syncRes, syncEntries := run(true, 0)
	concRes, concEntries := run(false, 4)

	if !reflect.DeepEqual(syncRes.Chapters, concRes.Chapters) {
		t.Errorf("chapters differ:\nsync %+v\nconc %+v", syncRes.Chapters, concRes.Chapters)
	}
	if !reflect.DeepEqual(syncEntries, concEntries) {
		t.Errorf("containers differ:\nsync %v\nconc %v", syncEntries, concEntries)
	}
}

func TestExecuteEPUB(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Flat")
	writePage(t, root, "2.png", 60, 80)
	writePage(t, root, "1.png", 120, 80)
	opts := testOpts(root)
	opts.Format = comic.FormatEPUB
	opts.Output = filepath.Join(t.TempDir(), "Flat.epub")

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	entries := names(zipEntries(t, res.Output))
	if entries[0] != "mimetype" {
		t.Errorf("first entry = %q, want mimetype", entries[0])
	}
	var pages, images int
	hasCover := false
	for _, e := range entries {
		switch {
		case e == "OEBPS/Images/cover.jpg":
			hasCover = true
		case strings.HasPrefix(e, "OEBPS/Text/Flat/") && strings.HasSuffix(e, ".xhtml"):
			pages++
		case strings.HasPrefix(e, "OEBPS/Images/Flat/"):
			images++
		}
	}
	if !hasCover {
		t.Errorf("missing cover in %v", entries)
	}
	if pages != 3 || images != 3 {
		t.Errorf("pages = %d, images = %d, want 3 and 3", pages, images)
	}
	if res.Cover != "1.png" {
		t.Errorf("Cover = %q, want 1.png", res.Cover)
	}
}

func TestExecuteEPUBSingleChapter(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Book")
	ch := filepath.Join(root, "001")
	// Distinct widths so the cover can be matched to its source page.
	writePage(t, ch, "10.png", 40, 80)
	writePage(t, ch, "2.png", 50, 80)
	writePage(t, ch, "1.png", 60, 80)
	opts := testOpts(root)
	opts.Format = comic.FormatEPUB
	opts.Output = filepath.Join(t.TempDir(), "Book.epub")

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var pages []string
	for _, e := range names(zipEntries(t, res.Output)) {
		if strings.HasSuffix(e, ".xhtml") && e != "OEBPS/nav.xhtml" {
			pages = append(pages, e)
		}
	}
	wantPages := []string{"OEBPS/Text/001/0001.xhtml", "OEBPS/Text/001/0002.xhtml", "OEBPS/Text/001/0003.xhtml"}
	sort.Strings(pages)
	if !reflect.DeepEqual(pages, wantPages) {
		t.Errorf("page fragments = %v, want %v", pages, wantPages)
	}

	if got := ncxLabels(t, readEntry(t, res.Output, "OEBPS/toc.ncx")); !reflect.DeepEqual(got, []string{"001"}) {
		t.Errorf("ncx labels = %v, want [001]", got)
	}
	if got := tocLabels(t, readEntry(t, res.Output, "OEBPS/nav.xhtml")); !reflect.DeepEqual(got, []string{"001"}) {
		t.Errorf("nav labels = %v, want [001]", got)
	}

	if res.Cover != "1.png" {
		t.Errorf("Cover = %q, want 1.png", res.Cover)
	}
	cover := jpegSize(t, res.Output, "OEBPS/Images/001/0001.jpg")
	if got := jpegSize(t, res.Output, "OEBPS/Images/cover.jpg"); got != cover {
		t.Errorf("cover size = %v, want %v like the first page", got, cover)
	}
	if last := jpegSize(t, res.Output, "OEBPS/Images/001/0003.jpg"); last == cover {
		t.Errorf("last page size = %v, want it to differ from the first page", last)
	}
}

func TestExecuteAbortsOnPageFailure(t *testing.T) {
	input := seriesInput(t)
	good := writePage(t, t.TempDir(), "x.png", 60, 80)
	data, err := os.ReadFile(good)
	if err != nil {
		t.Fatal(err)
	}
	// The header still sniffs as a PNG but the pixel data is gone.
	writeFile(t, filepath.Join(input, "001"), "b2.png", string(data[:40]))

	opts := testOpts(input)
	opts.Output = filepath.Join(t.TempDir(), "Series.cbz")
	_, err = NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if !errors.Is(err, errors.ErrCodePipeline) {
		t.Fatalf("Execute() error = %v, want %v", err, errors.ErrCodePipeline)
	}
	if _, statErr := os.Stat(opts.Output); !os.IsNotExist(statErr) {
		t.Errorf("output should not exist after a failed run: %v", statErr)
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(opts.Output), "*"))
	if len(leftovers) != 0 {
		t.Errorf("output dir not empty: %v", leftovers)
	}
}

func TestExecuteCanceled(t *testing.T) {
	opts := testOpts(seriesInput(t))
	opts.Output = filepath.Join(t.TempDir(), "Series.cbz")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewRunner(nil, nil, nil).Execute(ctx, opts); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if _, err := os.Stat(opts.Output); !os.IsNotExist(err) {
		t.Errorf("output should not exist: %v", err)
	}
}

func TestExecuteCache(t *testing.T) {
	input := seriesInput(t)
	mem := cache.NewMemoryCache(time.Hour)
	runner := NewRunner(mem, nil, nil)

	opts := testOpts(input)
	opts.Output = filepath.Join(t.TempDir(), "first.cbz")
	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	// Four distinct pages plus the cover, which uses a different split
	// policy and so a different key.
	if mem.Len() != 5 {
		t.Errorf("cache entries = %d, want 5", mem.Len())
	}

	opts.Output = filepath.Join(t.TempDir(), "second.cbz")
	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if mem.Len() != 5 {
		t.Errorf("cache entries after rerun = %d, want 5", mem.Len())
	}
	if !reflect.DeepEqual(zipEntries(t, first.Output), zipEntries(t, second.Output)) {
		t.Error("cached run produced a different container")
	}
}

// recordingHooks counts pipeline events.
type recordingHooks struct {
	observability.NoopPipelineHooks

	mu       sync.Mutex
	pages    []string
	skipped  []string
	chapters []string
	builds   []string
}

func (h *recordingHooks) OnPageComplete(_ context.Context, src string, _ int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		h.pages = append(h.pages, filepath.Base(src))
	}
}

func (h *recordingHooks) OnPageSkipped(_ context.Context, src string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skipped = append(h.skipped, filepath.Base(src))
}

func (h *recordingHooks) OnChapterComplete(_ context.Context, title string, _ int, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chapters = append(h.chapters, title)
}

func (h *recordingHooks) OnBuildComplete(_ context.Context, format, _ string, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		h.builds = append(h.builds, format)
	}
}

func TestExecuteHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	t.Cleanup(observability.Reset)

	input := seriesInput(t)
	writeFile(t, filepath.Join(input, "2"), "Thumbs.db", "junk")
	opts := testOpts(input)
	opts.Output = filepath.Join(t.TempDir(), "Series.cbz")
	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	sort.Strings(hooks.pages)
	if want := []string{"a.png", "b.png", "c.png", "page1.png"}; !reflect.DeepEqual(hooks.pages, want) {
		t.Errorf("pages = %v, want %v", hooks.pages, want)
	}
	if want := []string{"Thumbs.db"}; !reflect.DeepEqual(hooks.skipped, want) {
		t.Errorf("skipped = %v, want %v", hooks.skipped, want)
	}
	if want := []string{"001", "002"}; !reflect.DeepEqual(hooks.chapters, want) {
		t.Errorf("chapters = %v, want %v", hooks.chapters, want)
	}
	if want := []string{"cbz"}; !reflect.DeepEqual(hooks.builds, want) {
		t.Errorf("builds = %v, want %v", hooks.builds, want)
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	if r.Cache == nil || r.Keyer == nil || r.Logger == nil {
		t.Errorf("NewRunner(nil, nil, nil) = %+v, want all fields set", r)
	}
	if _, ok := r.Cache.(*cache.NullCache); !ok {
		t.Errorf("Cache = %T, want *cache.NullCache", r.Cache)
	}
}
