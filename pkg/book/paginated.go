package book

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/comicpress/pkg/archive"
	"github.com/matzehuels/comicpress/pkg/buildinfo"
	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/errors"
)

// variant is the per-format strategy of the paginated core.
type variant interface {
	format() comic.Format
	// metadata returns extra OPF meta elements.
	metadata(cfg Config) []opfMeta
	// css returns rules appended to the shared style sheet.
	css(cfg Config) string
	// regions returns panel-view zoom regions for one page.
	regions(width, height int, tag comic.Tag, cfg Config) []region
	// containerPath is where the zip container is written.
	containerPath(cfg Config) string
	// finish post-processes the written container and returns the final
	// output path.
	finish(ctx context.Context, built string, cfg Config) string
}

type page struct {
	stem  string
	image string
	tag   comic.Tag
}

type chapter struct {
	title string
	pages []page
}

// paginated is the EPUB core shared by the EPUB, KEPUB and MOBI builders.
type paginated struct {
	cfg     Config
	variant variant

	work  string
	oebps string

	lc       lifecycle
	chapters []*chapter
	seen     map[string]bool
}

func newPaginated(cfg Config, v variant) (*paginated, error) {
	if cfg.Identifier == "" {
		cfg.Identifier = "urn:uuid:" + uuid.NewString()
	}
	work, err := os.MkdirTemp("", "comicpress-"+string(v.format())+"-*")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create working tree")
	}
	b := &paginated{
		cfg:     cfg,
		variant: v,
		work:    work,
		oebps:   filepath.Join(work, "OEBPS"),
		seen:    make(map[string]bool),
	}
	for _, dir := range []string{
		filepath.Join(b.oebps, "Images"),
		filepath.Join(b.oebps, "Text"),
		filepath.Join(work, "META-INF"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = os.RemoveAll(work)
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create working tree")
		}
	}
	return b, nil
}

func (b *paginated) AddChapter(ctx context.Context, ch comic.Chapter) error {
	b.lc.mu.Lock()
	defer b.lc.mu.Unlock()
	if err := b.lc.accumulate(); err != nil {
		return err
	}
	if err := checkChapter(ch, b.seen); err != nil {
		return err
	}

	imgDir := filepath.Join(b.oebps, "Images", ch.Title)
	textDir := filepath.Join(b.oebps, "Text", ch.Title)
	for _, dir := range []string{imgDir, textDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeContainerWrite, err, "create chapter %q", ch.Title)
		}
	}

	c := &chapter{title: ch.Title, pages: make([]page, 0, len(ch.Panels))}
	for _, p := range ch.Panels {
		if err := ctx.Err(); err != nil {
			return err
		}
		pg, err := b.addPage(ch.Title, imgDir, textDir, p)
		if err != nil {
			return err
		}
		c.pages = append(c.pages, pg)
	}
	b.seen[ch.Title] = true
	b.chapters = append(b.chapters, c)

	b.cfg.Logger.Debug("added chapter", "format", b.variant.format(), "chapter", ch.Title, "panels", len(c.pages))
	return nil
}

// addPage copies one panel and writes its page markup.
func (b *paginated) addPage(title, imgDir, textDir string, p comic.Panel) (page, error) {
	name := filepath.Base(p.Path)
	stem := panelStem(p.Path)

	dst := filepath.Join(imgDir, name)
	if err := copyFile(dst, p.Path); err != nil {
		return page{}, errors.Wrap(errors.ErrCodeContainerWrite, err, "copy panel %s", name)
	}
	width, height, err := imageSize(dst)
	if err != nil {
		return page{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read panel %s", name)
	}

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, pageData{
		Title:   title + "_" + name,
		Src:     "../../Images/" + href(title, name),
		Width:   width,
		Height:  height,
		Regions: b.variant.regions(width, height, p.Tag, b.cfg),
	})
	if err != nil {
		return page{}, errors.Wrap(errors.ErrCodeInternal, err, "render page %s", name)
	}
	if err := os.WriteFile(filepath.Join(textDir, stem+".xhtml"), buf.Bytes(), 0o644); err != nil {
		return page{}, errors.Wrap(errors.ErrCodeContainerWrite, err, "write page %s", stem)
	}
	return page{stem: stem, image: name, tag: p.Tag}, nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func (b *paginated) Build(ctx context.Context, cover *comic.Panel) (string, error) {
	b.lc.mu.Lock()
	defer b.lc.mu.Unlock()
	if err := b.lc.finalize(); err != nil {
		return "", err
	}
	defer b.removeWork()
	start := time.Now()

	// Chapters may arrive from concurrent producers; the container order
	// is always by title and file name.
	sort.SliceStable(b.chapters, func(i, j int) bool {
		return comic.Less(b.chapters[i].title, b.chapters[j].title)
	})
	for _, c := range b.chapters {
		sort.SliceStable(c.pages, func(i, j int) bool {
			return comic.Less(c.pages[i].image, c.pages[j].image)
		})
	}

	if cover != nil {
		if err := copyFile(filepath.Join(b.oebps, "Images", "cover.jpg"), cover.Path); err != nil {
			return "", errors.Wrap(errors.ErrCodeContainerWrite, err, "copy cover")
		}
	}
	if err := b.writeDocuments(cover != nil); err != nil {
		return "", err
	}

	out := b.variant.containerPath(b.cfg)
	if err := b.pack(ctx, out); err != nil {
		return "", err
	}
	b.cfg.Logger.Debug("built container",
		"format", b.variant.format(),
		"chapters", len(b.chapters),
		"path", out,
		"duration", time.Since(start))

	return b.variant.finish(ctx, out, b.cfg), nil
}

// writeDocuments writes the style sheet, navigation and package documents.
func (b *paginated) writeDocuments(hasCover bool) error {
	docs := []struct {
		path   string
		render func() ([]byte, error)
	}{
		{filepath.Join(b.oebps, "Text", "style.css"), b.styleSheet},
		{filepath.Join(b.oebps, "toc.ncx"), func() ([]byte, error) { return marshalXML(b.ncx()) }},
		{filepath.Join(b.oebps, "nav.xhtml"), b.nav},
		{filepath.Join(b.oebps, "content.opf"), func() ([]byte, error) { return marshalXML(b.opf(hasCover)) }},
		{filepath.Join(b.work, "META-INF", "container.xml"), containerXML},
	}
	for _, d := range docs {
		data, err := d.render()
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "render %s", filepath.Base(d.path))
		}
		if err := os.WriteFile(d.path, data, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeContainerWrite, err, "write %s", filepath.Base(d.path))
		}
	}
	return nil
}

// pack archives the working tree; mimetype is the first, stored entry.
func (b *paginated) pack(ctx context.Context, out string) error {
	w, err := archive.Create(out)
	if err != nil {
		return err
	}
	steps := []func() error{
		func() error { return w.AddStored("mimetype", []byte(mimetype)) },
		func() error { return w.AddDir("META-INF", filepath.Join(b.work, "META-INF")) },
		func() error { return w.AddDir("OEBPS", b.oebps) },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			w.Abort()
			return err
		}
		if err := step(); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Close()
}

func (b *paginated) Close() error {
	b.lc.mu.Lock()
	defer b.lc.mu.Unlock()
	b.lc.closed = true
	return b.removeWork()
}

func (b *paginated) removeWork() error {
	if err := os.RemoveAll(b.work); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "remove working tree")
	}
	return nil
}

// =============================================================================
// Documents
// =============================================================================

// idSet hands out unique XML ids.
type idSet map[string]int

func (s idSet) unique(id string) string {
	n := s[id]
	s[id] = n + 1
	if n == 0 {
		return id
	}
	return fmt.Sprintf("%s_%d", id, n+1)
}

func (b *paginated) opf(hasCover bool) opfPackage {
	md := opfMetadata{
		XMLNSDC:     dcNamespace,
		XMLNSOPF:    opfNamespace,
		Title:       b.cfg.Title,
		Language:    bookLanguage,
		Identifier:  opfDCElement{ID: "BookID", Value: b.cfg.Identifier},
		Contributor: opfDCElement{ID: "contributor", Value: buildinfo.Producer()},
		Creator:     b.cfg.Author,
		Metas: []opfMeta{
			{Property: "dcterms:modified", Value: b.cfg.Modified.UTC().Format(modifiedStamp)},
		},
	}
	if hasCover {
		md.Metas = append(md.Metas, opfMeta{Name: "cover", Content: "cover"})
	}
	md.Metas = append(md.Metas,
		opfMeta{Property: "rendition:spread", Value: "landscape"},
		opfMeta{Property: "rendition:layout", Value: "pre-paginated"},
	)
	md.Metas = append(md.Metas, b.variant.metadata(b.cfg)...)

	items := []opfItem{
		{ID: "ncx", Href: "toc.ncx", MediaType: "application/x-dtbncx+xml"},
		{ID: "nav", Href: "nav.xhtml", MediaType: "application/xhtml+xml", Properties: "nav"},
	}
	if hasCover {
		items = append(items, opfItem{ID: "cover", Href: "Images/cover.jpg", MediaType: "image/jpeg", Properties: "cover-image"})
	}
	items = append(items, opfItem{ID: "css", Href: "Text/style.css", MediaType: "text/css"})

	ids := idSet{}
	var refs []opfItemRef
	for _, c := range b.chapters {
		tags := make([]comic.Tag, len(c.pages))
		pageIDs := make([]string, len(c.pages))
		for i, pg := range c.pages {
			id := ids.unique("page_Images_" + xmlID(c.title) + "_" + xmlID(pg.stem))
			pageIDs[i] = id
			tags[i] = pg.tag
			items = append(items,
				opfItem{ID: id, Href: href("Text", c.title, pg.stem+".xhtml"), MediaType: "application/xhtml+xml"},
				opfItem{ID: "img_" + strings.TrimPrefix(id, "page_"), Href: href("Images", c.title, pg.image), MediaType: "image/jpeg"},
			)
		}
		for i, pl := range Paginate(tags, b.cfg.Direction) {
			refs = append(refs, opfItemRef{IDRef: pageIDs[i], Properties: pl.Properties()})
		}
	}

	return opfPackage{
		Version:          "3.0",
		UniqueIdentifier: "BookID",
		Metadata:         md,
		Manifest:         opfManifest{Items: items},
		Spine: opfSpine{
			PageProgressionDirection: b.cfg.Direction.String(),
			Toc:                      "ncx",
			ItemRefs:                 refs,
		},
	}
}

// entries are the navigation targets: each chapter's first page.
func (b *paginated) entries() []navEntry {
	out := make([]navEntry, 0, len(b.chapters))
	for _, c := range b.chapters {
		out = append(out, navEntry{Label: c.title, Href: href("Text", c.title, c.pages[0].stem+".xhtml")})
	}
	return out
}

func (b *paginated) ncx() ncxDocument {
	doc := ncxDocument{
		Version: "2005-1",
		Lang:    bookLanguage,
		Head: []ncxMeta{
			{Name: "dtb:uid", Content: b.cfg.Identifier},
			{Name: "dtb:depth", Content: "1"},
			{Name: "dtb:totalPageCount", Content: "0"},
			{Name: "dtb:maxPageNumber", Content: "0"},
			{Name: "generated", Content: "true"},
		},
		DocTitle: b.cfg.Title,
	}
	ids := idSet{}
	for i, e := range b.entries() {
		doc.NavMap = append(doc.NavMap, ncxNavPnt{
			ID:        ids.unique("Text_" + xmlID(e.Label)),
			PlayOrder: i + 1,
			Label:     e.Label,
			Content:   ncxContent{Src: e.Href},
		})
	}
	return doc
}

func (b *paginated) styleSheet() ([]byte, error) {
	return []byte(baseCSS + b.variant.css(b.cfg)), nil
}

func containerXML() ([]byte, error) {
	return marshalXML(containerDocument{
		Version:   "1.0",
		RootFiles: []rootFile{{FullPath: "OEBPS/content.opf", MediaType: "application/oebps-package+xml"}},
	})
}

func (b *paginated) nav() ([]byte, error) {
	var buf bytes.Buffer
	err := navTemplate.Execute(&buf, navData{Title: b.cfg.Title, Entries: b.entries()})
	return buf.Bytes(), err
}
