package renderer

import (
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/m2view/internal/engine/texture"
)

// gpuTexture remembers which handle state a texture was uploaded from.
type gpuTexture struct {
	id     uint32
	status texture.Status
}

// textureCache uploads texture handles on first use and again once their
// load finishes.
type textureCache struct {
	log         *zap.Logger
	entries     map[*texture.Handle]*gpuTexture
	placeholder uint32
}

func newTextureCache(log *zap.Logger) *textureCache {
	return &textureCache{log: log, entries: make(map[*texture.Handle]*gpuTexture)}
}

// get returns the GL texture for h. Nil handles use the placeholder.
func (c *textureCache) get(h *texture.Handle) uint32 {
	if h == nil {
		if c.placeholder == 0 {
			gl.GenTextures(1, &c.placeholder)
			upload(c.placeholder, texture.Placeholder(), gl.NEAREST)
		}
		return c.placeholder
	}
	status := h.Poll()
	e, ok := c.entries[h]
	if ok && e.status == status {
		return e.id
	}
	if !ok {
		e = &gpuTexture{}
		gl.GenTextures(1, &e.id)
		c.entries[h] = e
	}
	e.status = status

	img := h.Image()
	upload(e.id, img, gl.LINEAR)
	size := img.Bounds().Size()

	if status == texture.Failed {
		c.log.Warn("texture failed, using placeholder", zap.String("name", h.Name()), zap.Error(h.Err()))
	} else {
		c.log.Debug("texture uploaded", zap.String("name", h.Name()), zap.Int("width", size.X), zap.Int("height", size.Y))
	}
	return e.id
}

// upload copies img into texture id with mipmaps.
func upload(id uint32, img *image.RGBA, mag int32) {
	size := img.Bounds().Size()
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, mag)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(size.X), int32(size.Y), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.GenerateMipmap(gl.TEXTURE_2D)
}

func (c *textureCache) clear() {
	if c.placeholder != 0 {
		gl.DeleteTextures(1, &c.placeholder)
		c.placeholder = 0
	}
	for h, e := range c.entries {
		gl.DeleteTextures(1, &e.id)
		delete(c.entries, h)
	}
}
