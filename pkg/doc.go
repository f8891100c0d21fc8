// Package pkg provides the core libraries of comicpress.
//
// # Overview
//
// comicpress turns directories of comic and manga page images into books
// for e-ink readers. The pkg directory is organized into four main areas:
//
//  1. [comic], [device] - Shared types and the device catalogue
//  2. [panel], [book], [archive] - Page preparation and container assembly
//  3. [pipeline], [volume], [recovery] - Orchestration of whole runs
//  4. [cache], [config], [errors], [observability], [buildinfo] - Infrastructure
//
// # Architecture
//
// The typical data flow through comicpress:
//
//	Input directory (chapters of page images)
//	         ↓
//	    [pipeline] package (discover chapters, fan out pages)
//	         ↓
//	    [panel] package (crop, split, resize, dither each page)
//	         ↓
//	    [book] package (paginate and pack chapters)
//	         ↓
//	    CBZ/EPUB/KEPUB/MOBI output
//
// # Quick Start
//
//	profile, _ := device.NewRegistry().Lookup("kobo-forma")
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//		Input:  "./One-Punch",
//		Device: profile,
//	})
//
// [comic]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/comic
// [device]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/device
// [panel]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/panel
// [book]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/book
// [archive]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/archive
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/pipeline
// [volume]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/volume
// [recovery]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/recovery
// [cache]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/comicpress/pkg/buildinfo
package pkg
