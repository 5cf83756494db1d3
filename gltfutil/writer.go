package gltfutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/multierr"
)

type WriteOptions struct {
	// Binary writes GLB. Also implied by a .glb extension.
	Binary bool
	// EmbedBuffers stores buffers as data URIs instead of .bin files.
	EmbedBuffers bool
	// EmbedExternalImages moves images read from loose files into buffer views.
	EmbedExternalImages bool
	// ReferenceEmbeddedImages writes images embedded in the source as files.
	ReferenceEmbeddedImages bool
}

// IOError is a failure writing the document or one of its resources.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Write saves doc to path with its resources next to it. doc is not modified.
// Every file is committed by rename, resources before the document; on error
// the files created by this call are removed.
func Write(ctx context.Context, doc *Document, path string, opts *WriteOptions) (err error) {
	if opts == nil {
		opts = &WriteOptions{}
	}
	ext := filepath.Ext(path)
	binary := opts.Binary || strings.EqualFold(ext, ".glb")
	base := strings.TrimSuffix(filepath.Base(path), ext)

	w := &resourceWriter{ctx: ctx, dir: filepath.Dir(path)}
	defer func() {
		if err != nil {
			err = multierr.Append(err, w.cleanup())
		}
	}()

	out := doc.clone()
	names := newNameSet(filepath.Base(path))
	if err := placeImages(out, w, names, opts); err != nil {
		return err
	}

	compactBuffers(out.Document)
	for i, b := range out.Document.Buffers {
		switch {
		case binary && i == 0:
			b.URI = ""
		case opts.EmbedBuffers:
			b.EmbeddedResource()
		default:
			name := base
			if i > 0 {
				name = fmt.Sprintf("%s_%d", base, i)
			}
			b.URI = names.unique(name, ".bin")
		}
	}

	return w.writeFile(path, func(f io.Writer) error {
		e := gltf.NewEncoderFS(f, w)
		e.AsBinary = binary
		return e.Encode(out.Document)
	})
}

// resourceWriter writes files atomically into dir and remembers what it created.
type resourceWriter struct {
	ctx     context.Context
	dir     string
	created []string
}

// Open implements fs.FS over the target directory.
func (w *resourceWriter) Open(name string) (fs.File, error) {
	return os.Open(filepath.Join(w.dir, filepath.FromSlash(name)))
}

// Create implements gltf.CreateFS. The file is committed when the returned
// writer is closed.
func (w *resourceWriter) Create(name string) (io.WriteCloser, error) {
	return &pendingResource{w: w, uri: name}, nil
}

// WriteResource writes data to uri relative to the target directory.
func (w *resourceWriter) WriteResource(uri string, data []byte) error {
	return w.writeFile(filepath.Join(w.dir, filepath.FromSlash(uri)), func(f io.Writer) error {
		_, err := f.Write(data)
		return err
	})
}

type pendingResource struct {
	bytes.Buffer
	w   *resourceWriter
	uri string
}

func (r *pendingResource) Close() error {
	return r.w.WriteResource(r.uri, r.Bytes())
}

func (w *resourceWriter) writeFile(path string, write func(io.Writer) error) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	tmp := f.Name()
	err = write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	_, statErr := os.Stat(path)
	existed := statErr == nil
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			return err
		}
		return &IOError{Path: path, Err: err}
	}
	if !existed {
		w.created = append(w.created, path)
	}
	return nil
}

func (w *resourceWriter) cleanup() error {
	var err error
	for i := len(w.created) - 1; i >= 0; i-- {
		if rerr := os.Remove(w.created[i]); rerr != nil && !os.IsNotExist(rerr) {
			err = multierr.Append(err, rerr)
		}
	}
	w.created = nil
	return err
}

// nameSet hands out file names that are unique within one write.
type nameSet struct {
	used map[string]bool
}

func newNameSet(reserved ...string) *nameSet {
	s := &nameSet{used: map[string]bool{}}
	for _, n := range reserved {
		s.used[strings.ToLower(n)] = true
	}
	return s
}

func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" {
		return "image"
	}
	return name
}

func (s *nameSet) unique(name, ext string) string {
	name = sanitizeName(name)
	candidate := name + ext
	for i := 1; s.used[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", name, i, ext)
	}
	s.used[strings.ToLower(candidate)] = true
	return candidate
}
