package converter

import (
	"context"
	"errors"

	"github.com/binzume/fbx2gltf/geom"
	"github.com/binzume/fbx2gltf/scene"
	"go.uber.org/zap"
)

var ErrAlreadyNormalized = errors.New("scene is already normalized")

// Normalize converts s in place to meters, +Y up, flipped V and triangles, and
// resolves texture images. Unresolved textures are returned as warnings.
// Embedded media bound for opts.MediaDir is queued in s.Media.
//
// The axis and unit conversion C is applied per node as C * L * C^-1, so the
// hierarchy and node names are unchanged and no extra root is added.
func Normalize(ctx context.Context, s *scene.Scene, options *Options) ([]error, error) {
	opts, err := options.withDefaults()
	if err != nil {
		return nil, err
	}
	if s.Conversion != nil {
		return nil, ErrAlreadyNormalized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := opts.Logger

	conv := s.ConversionMatrix()
	convInv := conv.Inverse()
	s.Conversion = conv
	for _, n := range s.Nodes {
		n.Local = n.Local.Conjugate(conv, convInv)
	}
	for _, m := range s.Meshes {
		m.Transform(conv)
		if m.Skin != nil {
			for i := range m.Skin.Joints {
				j := &m.Skin.Joints[i]
				j.BindMatrix = j.BindMatrix.Conjugate(conv, convInv)
				j.MeshBindMatrix = j.MeshBindMatrix.Conjugate(conv, convInv)
			}
		}
		if !opts.NoFlipV {
			flipV(m)
		}
		triangulate(m)
	}
	if conv.Det() < 0 {
		log.Debug("axis system is mirrored, winding reversed")
	}

	return resolveMedia(ctx, s, opts)
}

func flipV(m *scene.Mesh) {
	for i := range m.Corners {
		for s := 0; s < m.UVSets; s++ {
			m.Corners[i].UV[s] = *m.Corners[i].UV[s].FlipV()
		}
	}
}

// triangulate splits every face into triangles over the same corners.
func triangulate(m *scene.Mesh) {
	faces := make([][]int, 0, m.Triangles())
	materials := make([]int, 0, cap(faces))
	for f, face := range m.Faces {
		switch {
		case len(face) < 3:
			continue
		case len(face) == 3:
			faces = append(faces, face)
			materials = append(materials, m.FaceMaterials[f])
			continue
		}
		poly := make([]*geom.Vector3, len(face))
		for i, c := range face {
			poly[i] = m.Points[m.Corners[c].Point]
		}
		for _, t := range geom.Triangulate(poly) {
			faces = append(faces, []int{face[t[0]], face[t[1]], face[t[2]]})
			materials = append(materials, m.FaceMaterials[f])
		}
	}
	m.Faces = faces
	m.FaceMaterials = materials
}

func resolveMedia(ctx context.Context, s *scene.Scene, opts *Options) ([]error, error) {
	cache := newTextureCache(s.SourcePath, opts)
	var warnings []error
	for _, mat := range s.Materials {
		for slot, ref := range mat.Textures {
			if ref == nil {
				continue
			}
			if err := ctx.Err(); err != nil {
				return warnings, err
			}
			img, path, err := cache.resolve(ref)
			if err != nil {
				mat.Textures[slot] = nil
				w := &ResourceWarning{Material: mat.Name, Slot: scene.TextureSlot(slot), Path: path, Err: err}
				opts.Logger.Warn("texture dropped", zap.Error(w))
				warnings = append(warnings, w)
				continue
			}
			ref.Image = img
		}
	}
	s.Media = cache.pending
	return warnings, nil
}
