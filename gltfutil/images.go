package gltfutil

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// embedImage stores the payload in a buffer view of the first buffer.
func embedImage(doc *gltf.Document, img *gltf.Image, src *ImageSource) {
	if img.MimeType == "" {
		img.MimeType = src.MimeType
	}
	if img.MimeType == "" {
		img.MimeType = "image/png"
	}
	img.BufferView = gltf.Index(modeler.WriteBufferView(doc, gltf.TargetNone, src.Data))
	img.URI = ""
}

// placeImages decides between buffer view and external file for every image.
// External files are written through w.
func placeImages(doc *Document, w *resourceWriter, names *nameSet, opts *WriteOptions) error {
	for i, img := range doc.Document.Images {
		if i >= len(doc.Sources) || doc.Sources[i] == nil {
			continue
		}
		src := doc.Sources[i]
		embed := src.Embedded && !opts.ReferenceEmbeddedImages || !src.Embedded && opts.EmbedExternalImages
		if embed {
			embedImage(doc.Document, img, src)
			continue
		}
		uri := names.unique(src.Name, src.Ext())
		if err := w.WriteResource(uri, src.Data); err != nil {
			return err
		}
		img.URI = uri
		img.MimeType = ""
		img.BufferView = nil
	}
	return nil
}

// compactBuffers drops empty buffers that no buffer view uses and fixes byte lengths.
func compactBuffers(doc *gltf.Document) {
	used := make([]bool, len(doc.Buffers))
	for _, v := range doc.BufferViews {
		if int(v.Buffer) < len(used) {
			used[v.Buffer] = true
		}
	}
	remap := make([]uint32, len(doc.Buffers))
	var buffers []*gltf.Buffer
	for i, b := range doc.Buffers {
		if !used[i] && len(b.Data) == 0 && b.URI == "" {
			continue
		}
		remap[i] = uint32(len(buffers))
		b.ByteLength = uint32(len(b.Data))
		buffers = append(buffers, b)
	}
	for _, v := range doc.BufferViews {
		v.Buffer = remap[v.Buffer]
	}
	doc.Buffers = buffers
}
