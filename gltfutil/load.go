package gltfutil

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
)

func Load(path string) (*gltf.Document, error) {
	return gltf.Open(path)
}

// ReadFloats returns the components of a float accessor in element order.
func ReadFloats(doc *gltf.Document, acr *gltf.Accessor) ([]float32, error) {
	if acr.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("accessor %q: not a float accessor", acr.Name)
	}
	if acr.BufferView == nil {
		return make([]float32, int(acr.Count)*int(acr.Type.Components())), nil
	}
	view := doc.BufferViews[*acr.BufferView]
	data := doc.Buffers[view.Buffer].Data
	n := int(acr.Type.Components())
	stride := int(view.ByteStride)
	if stride == 0 {
		stride = n * 4
	}
	offset := int(view.ByteOffset + acr.ByteOffset)
	r := make([]float32, 0, int(acr.Count)*n)
	for i := 0; i < int(acr.Count); i++ {
		for j := 0; j < n; j++ {
			p := offset + i*stride + j*4
			if p+4 > len(data) {
				return nil, fmt.Errorf("accessor %q: out of buffer range", acr.Name)
			}
			r = append(r, math.Float32frombits(binary.LittleEndian.Uint32(data[p:])))
		}
	}
	return r, nil
}
