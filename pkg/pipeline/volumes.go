package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/matzehuels/comicpress/pkg/recovery"
	"github.com/matzehuels/comicpress/pkg/volume"
)

// ExecuteVolumes converts a directory-mode input into one book per
// perVolume chapters, named "<title> - Volume N" next to opts.Output.
//
// Finished volumes are recorded in a recovery side file in the output
// directory. A rerun with the same volume size skips them, and the side
// file is removed once every volume is written. On error the results of
// the volumes finished so far are returned with it.
func (r *Runner) ExecuteVolumes(ctx context.Context, opts Options, perVolume int) ([]*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger

	chapters, err := volume.Chapters(opts.Input)
	if err != nil {
		return nil, err
	}

	outDir := filepath.Dir(opts.Output)
	store := recovery.NewFileStore(outDir)
	state, err := store.Load(ctx, perVolume)
	if err != nil {
		return nil, err
	}
	if len(state.Done) > 0 {
		logger.Info("resuming", "finished", state.FinishedVolumes(), "recovery", store.Path())
	}

	vols, err := volume.Plan(opts.Title, chapters, perVolume, state.Done)
	if err != nil {
		return nil, err
	}

	splitter, err := volume.NewSplitter()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := splitter.CleanUp(); cerr != nil {
			logger.Warn("failed to remove volume workspace", "dir", splitter.Dir(), "error", cerr)
		}
	}()

	var results []*Result
	for _, v := range vols {
		root, err := splitter.Materialize(opts.Input, v)
		if err != nil {
			return results, err
		}

		vo := opts
		vo.Input = root
		vo.Output = filepath.Join(outDir, v.Title+opts.Format.Extension())
		vo.Title = v.Title

		logger.Info("building volume", "volume", v.Number, "chapters", len(v.Chapters), "output", vo.Output)
		res, err := r.Execute(ctx, vo)
		if err != nil {
			return results, fmt.Errorf("volume %d: %w", v.Number, err)
		}
		results = append(results, res)

		state.Merge(v.Chapters...)
		if err := store.Save(ctx, state); err != nil {
			logger.Warn("failed to record progress", "recovery", store.Path(), "error", err)
		}
		if err := splitter.Release(v); err != nil {
			logger.Debug("failed to release volume tree", "volume", v.Number, "error", err)
		}
	}

	if err := store.Delete(ctx); err != nil {
		logger.Warn("failed to remove recovery file", "recovery", store.Path(), "error", err)
	}
	return results, nil
}
