package converter

import (
	"context"
	"errors"

	"github.com/binzume/fbx2gltf/gltfutil"
	"go.uber.org/zap"
)

type TakeSummary struct {
	Name     string
	Duration float64 // baked seconds
	Samples  int
	Suspect  bool
}

type Result struct {
	Document *gltfutil.Document
	// Warnings holds *ResourceWarning and *SuspectAnimationWarning values.
	Warnings []error
	Takes    []TakeSummary
}

// Convert reads opts.InputPath and returns the glTF document. Nothing is
// written except embedded media extracted to opts.MediaDir, and only when the
// conversion succeeds.
func Convert(ctx context.Context, options *Options) (*Result, error) {
	opts, err := options.withDefaults()
	if err != nil {
		return nil, err
	}
	if opts.InputPath == "" {
		return nil, errors.New("no input file")
	}
	log := opts.Logger.With(zap.String("input", opts.InputPath))
	opts.Logger = log

	s, err := readScene(ctx, opts.InputPath, log)
	if err != nil {
		return nil, err
	}
	log.Info("scene read", zap.Int("nodes", len(s.Nodes)-1), zap.Int("meshes", len(s.Meshes)),
		zap.Int("materials", len(s.Materials)), zap.Int("takes", len(s.Takes)))

	result := &Result{}
	warnings, err := Normalize(ctx, s, opts)
	result.Warnings = append(result.Warnings, warnings...)
	if err != nil {
		return nil, err
	}
	warnings, err = Bake(ctx, s, opts)
	result.Warnings = append(result.Warnings, warnings...)
	if err != nil {
		return nil, err
	}
	for _, b := range s.Baked {
		result.Takes = append(result.Takes, TakeSummary{
			Name:     b.Name,
			Duration: b.Duration,
			Samples:  len(b.Times),
			Suspect:  b.Suspect,
		})
	}

	result.Document, err = BuildDocument(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	if err := extractMedia(ctx, s, log); err != nil {
		return nil, err
	}
	log.Info("converted", zap.Int("warnings", len(result.Warnings)))
	return result, nil
}
