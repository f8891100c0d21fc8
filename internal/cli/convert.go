package cli

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/comicpress/pkg/book"
	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/device"
	"github.com/matzehuels/comicpress/pkg/errors"
	"github.com/matzehuels/comicpress/pkg/panel"
	"github.com/matzehuels/comicpress/pkg/pipeline"
)

// convertFlags holds the raw flag values of the convert command.
type convertFlags struct {
	output     string
	format     string
	device     string
	width      int
	height     int
	direction  string
	background string
	resize     string
	split      string
	contrast   string
	dither     string
	title      string
	author     string
	workers    int
	sync       bool
	perVolume  int
	noCache    bool
	kindlegen  string
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	return c.newConvertCommand(&convertFlags{})
}

// newConvertCommand creates the convert command with its flags bound to f.
func (c *CLI) newConvertCommand(f *convertFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <dir>",
		Short: "Convert a directory of comic pages into an e-reader book",
		Long: `Convert a directory of comic pages into an e-reader book.

Subdirectories of <dir> become chapters in natural order. A directory
without subdirectories becomes a single chapter. Pages are cropped, scaled
to the device screen and reduced to its gray palette before packing.`,
		Example: `  comicpress convert ./One-Punch -d kindle-pw3
  comicpress convert ./Berserk -d kobo-forma --direction rtl -o berserk.kepub
  comicpress convert ./Series --width 1264 --height 1680 -f cbz --chapters-per-volume 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.convertOptions(cmd, args[0], f)
			if err != nil {
				return err
			}
			return c.runConvert(cmd, opts, *f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "output file (default: <dir><ext> next to the input)")
	flags.StringVarP(&f.format, "format", "f", "", "output format: cbz, epub, kepub, mobi (default: device's preferred)")
	flags.StringVarP(&f.device, "device", "d", "", "target device id (see 'comicpress devices')")
	flags.IntVar(&f.width, "width", 0, "custom screen width in pixels")
	flags.IntVar(&f.height, "height", 0, "custom screen height in pixels")
	flags.StringVar(&f.direction, "direction", "ltr", "reading direction: ltr, rtl")
	flags.StringVar(&f.background, "background", "none", "padding color: none, white, black")
	flags.StringVar(&f.resize, "resize", "upscale", "resize mode: upscale, stretch, nothing")
	flags.StringVar(&f.split, "split", "split", "spread handling: split, rotate")
	flags.StringVar(&f.contrast, "contrast", "auto", "contrast: auto or a positive multiplier")
	flags.StringVar(&f.dither, "dither", "forward", "dither scan order: forward, reverse")
	flags.StringVar(&f.title, "title", "", "book title (default: output file name)")
	flags.StringVar(&f.author, "author", "", "book author (default: "+book.DefaultAuthor+")")
	flags.IntVar(&f.workers, "workers", 0, "pages prepared concurrently (default: number of CPUs)")
	flags.BoolVar(&f.sync, "sync", false, "prepare pages one at a time")
	flags.IntVar(&f.perVolume, "chapters-per-volume", 0, "split the book into volumes of N chapters")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable the prepared-page cache")
	flags.StringVar(&f.kindlegen, "kindlegen", "", "path to kindlegen for mobi output")
	cmd.MarkFlagsRequiredTogether("width", "height")
	cmd.MarkFlagsMutuallyExclusive("device", "width")
	_ = cmd.RegisterFlagCompletionFunc("device", c.completeDevices)

	return cmd
}

// convertOptions resolves flags and config defaults into pipeline options.
// A flag set on the command line wins over the config file, which wins over
// the flag's own default.
func (c *CLI) convertOptions(cmd *cobra.Command, input string, f *convertFlags) (pipeline.Options, error) {
	d := c.config.Defaults
	value := func(name, flagValue, configValue string) string {
		if cmd.Flags().Changed(name) || configValue == "" {
			return flagValue
		}
		return configValue
	}

	opts := pipeline.Options{
		Input:  input,
		Output: f.output,
		Title:  f.title,
		Author: value("author", f.author, d.Author),
		Sync:   f.sync,
	}

	var err error
	if s := value("format", f.format, d.Format); s != "" {
		if opts.Format, err = comic.ParseFormat(s); err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidFormat, err, "--format")
		}
	}
	if opts.Direction, err = comic.ParseDirection(value("direction", f.direction, d.Direction)); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "--direction")
	}
	if opts.Background, err = panel.ParseBackground(value("background", f.background, d.Background)); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "--background")
	}
	if opts.Resize, err = panel.ParseResizeMode(value("resize", f.resize, d.Resize)); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "--resize")
	}
	if opts.Split, err = panel.ParseSplitPolicy(value("split", f.split, d.Split)); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "--split")
	}
	if opts.Contrast, err = panel.ParseContrast(value("contrast", f.contrast, d.Contrast)); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "--contrast")
	}
	if opts.Dither, err = panel.ParseDitherScan(value("dither", f.dither, d.DitherScan)); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "--dither")
	}

	opts.Workers = f.workers
	if !cmd.Flags().Changed("workers") && d.Workers > 0 {
		opts.Workers = d.Workers
	}

	if kg := value("kindlegen", f.kindlegen, c.config.Tools.KindleGen); kg != "" {
		opts.Compiler = book.KindleGen{Path: kg}
	}

	opts.Device, err = c.resolveDevice(value("device", f.device, d.Device), f.width, f.height)
	return opts, err
}

// resolveDevice picks the target profile: explicit dimensions first, then a
// device id, then the interactive picker when running in a terminal.
func (c *CLI) resolveDevice(id string, width, height int) (device.Profile, error) {
	switch {
	case width > 0 || height > 0:
		p := device.Custom(width, height)
		return p, p.Validate()
	case id != "":
		return c.devices.Lookup(id)
	case interactive():
		p, err := pickDevice(c.devices.All())
		if err != nil {
			return device.Profile{}, err
		}
		if p == nil {
			return device.Profile{}, errors.New(errors.ErrCodeInvalidInput, "no device selected")
		}
		return *p, nil
	}
	return device.Profile{}, errors.New(errors.ErrCodeInvalidInput,
		"a device is required: use --device or --width/--height (see 'comicpress devices')")
}

// runConvert executes one conversion, or one per volume.
func (c *CLI) runConvert(cmd *cobra.Command, opts pipeline.Options, f convertFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	opts.Logger = logger

	runner, closeCache, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return err
	}
	defer closeCache()

	progress, stats, restore := installHooks(logger, os.Stderr)
	defer restore()
	timer := startTimer()

	var results []*pipeline.Result
	if f.perVolume > 0 {
		results, err = runner.ExecuteVolumes(ctx, opts, f.perVolume)
	} else {
		var res *pipeline.Result
		if res, err = runner.Execute(ctx, opts); err == nil {
			results = append(results, res)
		}
	}

	for _, res := range results {
		printSuccess(c.Out, "Wrote %s", StyleHighlight.Render(string(res.Format)))
		printFile(c.Out, res.Output)
		printBookStats(c.Out, res)
	}
	logger.Debug("cache",
		"hits", stats.hits.Load(),
		"misses", stats.misses.Load(),
		"written", stats.bytes.Load())
	if err != nil {
		if len(results) > 0 {
			printWarning(c.Out, "Finished %d volume(s) before failing; rerun to resume", len(results))
		}
		return err
	}
	printDetail(c.Out, "%d pages in %s", progress.Pages(), timer)
	return nil
}

// completeDevices offers device ids with their names as descriptions.
func (c *CLI) completeDevices(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	profiles := c.devices.All()
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID + "\t" + p.Name
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// interactive reports whether both stdin and stdout are terminals.
func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isTerminal(os.Stdout)
}
