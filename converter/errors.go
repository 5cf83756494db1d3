package converter

import (
	"fmt"

	"github.com/binzume/fbx2gltf/scene"
)

// CapacityError reports data that does not fit a structural limit of glTF.
// Mesh names the mesh, skin or take.
type CapacityError struct {
	Mesh     string
	What     string
	Limit    uint64
	Required uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%q: too many %s: %d (limit %d)", e.Mesh, e.What, e.Required, e.Limit)
}

// ResourceWarning reports a texture that could not be resolved. The slot is cleared.
type ResourceWarning struct {
	Material string
	Slot     scene.TextureSlot
	Path     string
	Err      error
}

func (w *ResourceWarning) Error() string {
	return fmt.Sprintf("material %q: %s texture %q: %v", w.Material, w.Slot, w.Path, w.Err)
}

func (w *ResourceWarning) Unwrap() error {
	return w.Err
}

// SuspectAnimationWarning reports a take whose declared duration exceeds the
// configured limit. The take is baked up to Limit seconds.
type SuspectAnimationWarning struct {
	Take     string
	Declared float64
	Limit    float64
}

func (w *SuspectAnimationWarning) Error() string {
	return fmt.Sprintf("take %q: declared duration %gs exceeds %gs, truncated", w.Take, w.Declared, w.Limit)
}
