package gltfutil

import (
	"slices"

	"github.com/qmuntal/gltf"
)

// ImageSource is the payload of a glTF image. Where it ends up (buffer view or
// file) is decided when the document is written.
type ImageSource struct {
	Name     string
	MimeType string
	Data     []byte
	// Embedded is set for images that came embedded in the source file.
	Embedded bool
}

// Ext returns the file extension for the image's MIME type.
func (s *ImageSource) Ext() string {
	if s.MimeType == "image/jpeg" {
		return ".jpg"
	}
	return ".png"
}

// Document is a glTF document plus the image payloads it refers to.
// Sources[i] belongs to Document.Images[i].
type Document struct {
	*gltf.Document
	Sources []*ImageSource
}

func NewDocument(generator string) *Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = generator
	return &Document{Document: doc}
}

// AddImage appends a placeholder image and its payload and returns the image index.
func (d *Document) AddImage(src *ImageSource) uint32 {
	d.Document.Images = append(d.Document.Images, &gltf.Image{Name: src.Name, MimeType: src.MimeType})
	d.Sources = append(d.Sources, src)
	return uint32(len(d.Document.Images) - 1)
}

// clone copies the parts of the document the writer modifies.
func (d *Document) clone() *Document {
	doc := *d.Document
	doc.Buffers = make([]*gltf.Buffer, len(d.Document.Buffers))
	for i, b := range d.Document.Buffers {
		c := *b
		c.Data = slices.Clone(b.Data)
		doc.Buffers[i] = &c
	}
	doc.BufferViews = make([]*gltf.BufferView, len(d.Document.BufferViews))
	for i, v := range d.Document.BufferViews {
		c := *v
		doc.BufferViews[i] = &c
	}
	doc.Images = make([]*gltf.Image, len(d.Document.Images))
	for i, img := range d.Document.Images {
		c := *img
		doc.Images[i] = &c
	}
	return &Document{Document: &doc, Sources: d.Sources}
}
