package book

import (
	"encoding/xml"
	"net/url"
	"strings"
	"text/template"
)

const (
	opfNamespace = "http://www.idpf.org/2007/opf"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"

	mimetype      = "application/epub+zip"
	bookLanguage  = "en-US"
	modifiedStamp = "2006-01-02T15:04:05Z"
)

// baseCSS removes page margins so images fill the screen.
const baseCSS = `@page {
margin: 0;
}
body {
display: block;
margin: 0;
padding: 0;
}
`

// =============================================================================
// XHTML
// =============================================================================

var pageTemplate = template.Must(template.New("page").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
<title>{{html .Title}}</title>
<link href="../style.css" type="text/css" rel="stylesheet"/>
<meta name="viewport" content="width={{.Width}}, height={{.Height}}"/>
</head>
<body>
<div style="text-align:center;">
<img width="{{.Width}}" height="{{.Height}}" src="{{html .Src}}"/>
</div>
{{- if .Regions}}
<div id="PV">
{{- range .Regions}}
<div id="{{.ID}}">
<a style="display:inline-block;width:100%;height:100%;" class="app-amzn-magnify" data-app-amzn-magnify='{"targetId":"{{.ID}}-P", "ordinal":{{.Ordinal}}}'></a>
</div>
{{- end}}
</div>
{{- range .Regions}}
<div class="PV-P" id="{{.ID}}-P">
<img style="{{.Style}}" src="{{html $.Src}}" width="{{$.Width}}" height="{{$.Height}}"/>
</div>
{{- end}}
{{- end}}
</body>
</html>
`))

type pageData struct {
	Title   string
	Src     string
	Width   int
	Height  int
	Regions []region
}

var navTemplate = template.Must(template.New("nav").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
<title>{{html .Title}}</title>
<meta charset="utf-8"/>
</head>
<body>
<nav epub:type="toc" id="toc">
<ol>
{{- range .Entries}}
<li><a href="{{html .Href}}">{{html .Label}}</a></li>
{{- end}}
</ol>
</nav>
<nav epub:type="page-list">
<ol>
{{- range .Entries}}
<li><a href="{{html .Href}}">{{html .Label}}</a></li>
{{- end}}
</ol>
</nav>
</body>
</html>
`))

type navData struct {
	Title   string
	Entries []navEntry
}

type navEntry struct {
	Label string
	Href  string
}

// href joins path segments, escaping each one.
func href(segments ...string) string {
	esc := make([]string, len(segments))
	for i, s := range segments {
		esc[i] = url.PathEscape(s)
	}
	return strings.Join(esc, "/")
}

// xmlID maps s onto the XML NCName alphabet.
func xmlID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		}
		return '_'
	}, s)
}

// =============================================================================
// Package document (content.opf)
// =============================================================================

type opfPackage struct {
	XMLName          xml.Name    `xml:"http://www.idpf.org/2007/opf package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	XMLNSDC     string       `xml:"xmlns:dc,attr"`
	XMLNSOPF    string       `xml:"xmlns:opf,attr"`
	Title       string       `xml:"dc:title"`
	Language    string       `xml:"dc:language"`
	Identifier  opfDCElement `xml:"dc:identifier"`
	Contributor opfDCElement `xml:"dc:contributor"`
	Creator     string       `xml:"dc:creator"`
	Metas       []opfMeta    `xml:"meta"`
}

type opfDCElement struct {
	ID    string `xml:"id,attr,omitempty"`
	Value string `xml:",chardata"`
}

// opfMeta is either an EPUB 3 property meta or an EPUB 2 name/content
// meta, which Kindle tooling still reads.
type opfMeta struct {
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Property string `xml:"property,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	PageProgressionDirection string       `xml:"page-progression-direction,attr"`
	Toc                      string       `xml:"toc,attr"`
	ItemRefs                 []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef      string `xml:"idref,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

// =============================================================================
// Navigation table (toc.ncx)
// =============================================================================

type ncxDocument struct {
	XMLName  xml.Name    `xml:"http://www.daisy.org/z3986/2005/ncx/ ncx"`
	Version  string      `xml:"version,attr"`
	Lang     string      `xml:"xml:lang,attr"`
	Head     []ncxMeta   `xml:"head>meta"`
	DocTitle string      `xml:"docTitle>text"`
	NavMap   []ncxNavPnt `xml:"navMap>navPoint"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxNavPnt struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     string     `xml:"navLabel>text"`
	Content   ncxContent `xml:"content"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// =============================================================================
// META-INF/container.xml
// =============================================================================

type containerDocument struct {
	XMLName   xml.Name   `xml:"urn:oasis:names:tc:opendocument:xmlns:container container"`
	Version   string     `xml:"version,attr"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// marshalXML renders v as an indented document with an XML declaration.
func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
