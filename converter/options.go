package converter

import (
	"fmt"

	"go.uber.org/zap"
)

type IndexFormat string

const (
	IndexFormatAuto IndexFormat = "auto"
	IndexFormat16   IndexFormat = "16"
	IndexFormat32   IndexFormat = "32"
)

const DefaultBakeRate = 30

type Options struct {
	InputPath string
	// MediaDir receives embedded textures and is searched first for external ones.
	MediaDir string
	BakeRate float64 // samples per second
	NoFlipV  bool
	// SuspectedDurationLimit is in seconds. 0 disables the check.
	SuspectedDurationLimit float64

	IndexFormat      IndexFormat
	TextureSizeLimit int // pixels, 0: unlimited

	Logger *zap.Logger
}

// withDefaults returns a validated copy of o with unset fields filled in.
func (o *Options) withDefaults() (*Options, error) {
	r := Options{}
	if o != nil {
		r = *o
	}
	if r.BakeRate == 0 {
		r.BakeRate = DefaultBakeRate
	}
	if r.BakeRate < 0 {
		return nil, fmt.Errorf("invalid bake rate %v", r.BakeRate)
	}
	if r.SuspectedDurationLimit < 0 {
		return nil, fmt.Errorf("invalid suspected duration limit %v", r.SuspectedDurationLimit)
	}
	switch r.IndexFormat {
	case "":
		r.IndexFormat = IndexFormatAuto
	case IndexFormatAuto, IndexFormat16, IndexFormat32:
	default:
		return nil, fmt.Errorf("invalid index format %q", r.IndexFormat)
	}
	if r.TextureSizeLimit < 0 {
		r.TextureSizeLimit = 0
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	return &r, nil
}
