package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "image/gif"

	"github.com/binzume/fbx2gltf/scene"
	"github.com/blezek/tga"
	_ "github.com/oov/psd"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

var errTextureNotFound = errors.New("texture file not found")

// textureCache resolves texture references to image payloads. Images with
// identical bytes are shared.
type textureCache struct {
	log       *zap.Logger
	srcDir    string
	fbmDir    string
	mediaDir  string
	sizeLimit int

	byPath   map[string]*textureResult
	byDigest map[[blake2b.Size256]byte]*scene.Image
	pending  []*scene.MediaFile
}

type textureResult struct {
	img *scene.Image
	err error
}

func newTextureCache(source string, opts *Options) *textureCache {
	dir := filepath.Dir(source)
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return &textureCache{
		log:       opts.Logger,
		srcDir:    dir,
		fbmDir:    filepath.Join(dir, stem+".fbm"),
		mediaDir:  opts.MediaDir,
		sizeLimit: opts.TextureSizeLimit,
		byPath:    map[string]*textureResult{},
		byDigest:  map[[blake2b.Size256]byte]*scene.Image{},
	}
}

// localPath converts a path written on any platform to the local separator.
func localPath(p string) string {
	return filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
}

func fileBase(names ...string) string {
	for _, n := range names {
		if n != "" {
			return path.Base(strings.ReplaceAll(n, `\`, "/"))
		}
	}
	return ""
}

// candidates lists the places an external texture is searched, in order.
func (c *textureCache) candidates(ref *scene.TextureRef) []string {
	var r []string
	seen := map[string]bool{}
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			r = append(r, p)
		}
	}
	relative := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.srcDir, p)
	}
	base := fileBase(ref.RelativeFileName, ref.FileName)
	if c.mediaDir != "" && base != "" {
		add(filepath.Join(c.mediaDir, base))
	}
	add(relative(localPath(ref.RelativeFileName)))
	if base != "" {
		add(filepath.Join(c.fbmDir, base))
		add(filepath.Join(c.srcDir, base))
	}
	add(relative(localPath(ref.FileName)))
	return r
}

// resolve returns the image of ref and the path it was read from.
func (c *textureCache) resolve(ref *scene.TextureRef) (*scene.Image, string, error) {
	name := fileBase(ref.RelativeFileName, ref.FileName, ref.Name)
	if len(ref.Content) > 0 {
		if c.mediaDir != "" && name != "" {
			c.extract(name, ref.Content)
		}
		img, err := c.image(name, ref.Content, true)
		return img, name, err
	}

	candidates := c.candidates(ref)
	for _, p := range candidates {
		if r, ok := c.byPath[p]; ok {
			return r.img, p, r.err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		r := &textureResult{}
		r.img, r.err = c.image(name, data, false)
		c.byPath[p] = r
		c.log.Debug("texture resolved", zap.String("texture", ref.Name), zap.String("path", p))
		return r.img, p, r.err
	}
	return nil, ref.FileName, fmt.Errorf("%w (searched %s)", errTextureNotFound, strings.Join(candidates, ", "))
}

// extract queues embedded media for the media directory. Nothing is written
// until extractMedia runs.
func (c *textureCache) extract(name string, data []byte) {
	p := filepath.Join(c.mediaDir, name)
	for _, f := range c.pending {
		if f.Path == p {
			return
		}
	}
	c.pending = append(c.pending, &scene.MediaFile{Path: p, Data: data})
}

// extractMedia writes the embedded media queued by Normalize. Failures are
// logged; the converted document does not depend on these files.
func extractMedia(ctx context.Context, s *scene.Scene, log *zap.Logger) error {
	for _, f := range s.Media {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
			log.Warn("cannot create media directory", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		if err := os.WriteFile(f.Path, f.Data, 0o644); err != nil {
			log.Warn("cannot extract embedded media", zap.String("path", f.Path), zap.Error(err))
		}
	}
	return nil
}

func (c *textureCache) image(name string, data []byte, embedded bool) (*scene.Image, error) {
	data, mimeType, err := c.encode(name, data)
	if err != nil {
		return nil, err
	}
	digest := blake2b.Sum256(data)
	if img, ok := c.byDigest[digest]; ok {
		return img, nil
	}
	img := &scene.Image{
		Name:     strings.TrimSuffix(name, path.Ext(name)),
		MimeType: mimeType,
		Data:     data,
		Embedded: embedded,
	}
	c.byDigest[digest] = img
	return img, nil
}

func (c *textureCache) tooLarge(w, h int) bool {
	return c.sizeLimit > 0 && (w > c.sizeLimit || h > c.sizeLimit)
}

// encode keeps PNG and JPEG files as they are and converts anything else to PNG.
func (c *textureCache) encode(name string, data []byte) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil && (format == "png" || format == "jpeg") && !c.tooLarge(cfg.Width, cfg.Height) {
		return data, "image/" + format, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil && strings.ToLower(path.Ext(name)) == ".tga" {
		// retry
		img, err = tga.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", name, err)
	}
	img = c.downscale(img)

	w := new(bytes.Buffer)
	if format == "jpeg" {
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
		return w.Bytes(), "image/jpeg", err
	}
	err = png.Encode(w, img)
	return w.Bytes(), "image/png", err
}

func (c *textureCache) downscale(img image.Image) image.Image {
	rect := img.Bounds()
	if !c.tooLarge(rect.Dx(), rect.Dy()) {
		return img
	}
	scale := float64(c.sizeLimit) / float64(max(rect.Dx(), rect.Dy()))
	dst := image.NewRGBA(image.Rect(0, 0, max(1, int(float64(rect.Dx())*scale)), max(1, int(float64(rect.Dy())*scale))))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, rect, draw.Over, nil)
	return dst
}
