// Package renderer draws graphics batches with OpenGL.
package renderer

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/m2view/internal/engine/graphics"
	"github.com/Faultbox/m2view/internal/engine/shader"
	"github.com/Faultbox/m2view/internal/logger"
	"github.com/Faultbox/m2view/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	VSync      bool
	Background [3]float32
	LightDir   math.Vec3
}

// Renderer implements graphics.Submitter on an OpenGL 4.1 context.
type Renderer struct {
	config Config
	log    *zap.Logger

	programs map[graphics.Program]*shader.Program
	buffers  map[*graphics.Geometry]*buffer
	textures *textureCache

	queue    []graphics.Batch
	uploaded map[*graphics.Geometry]bool

	stats Stats
}

// Stats counts the work of the last Flush.
type Stats struct {
	Batches   int
	Triangles int
	Uploads   int
}

var _ graphics.Submitter = (*Renderer)(nil)

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config:   cfg,
		log:      logger.Named("renderer"),
		programs: make(map[graphics.Program]*shader.Program),
		buffers:  make(map[*graphics.Geometry]*buffer),
		uploaded: make(map[*graphics.Geometry]bool),
	}
	if r.config.LightDir == (math.Vec3{}) {
		r.config.LightDir = math.Vec3{X: 0.3, Y: -0.5, Z: 1}
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	r.log.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	bg := cfg.Background
	gl.ClearColor(bg[0], bg[1], bg[2], 1.0)

	for _, p := range []graphics.Program{graphics.ProgramMesh, graphics.ProgramParticle, graphics.ProgramRibbon} {
		src, _ := shader.SourceFor(p)
		prog, err := shader.Build(src)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create shader program: %w", err)
		}
		r.programs[p] = prog
		r.log.Debug("shader program created", zap.String("name", src.Name), zap.Uint32("program", prog.ID))
	}
	r.textures = newTextureCache(r.log)

	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	for g, b := range r.buffers {
		b.delete()
		delete(r.buffers, g)
	}
	if r.textures != nil {
		r.textures.clear()
	}
	for _, p := range r.programs {
		p.Delete()
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Aspect returns the viewport aspect ratio.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// End finishes the current frame, drawing anything still queued.
func (r *Renderer) End() error {
	if len(r.queue) == 0 {
		return nil
	}
	return r.Flush()
}

// ReadPixels reads back the framebuffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels, w, h
}

// Stats returns the counters of the last Flush.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// Forget drops the GPU buffers of geometry that will not be drawn again.
func (r *Renderer) Forget(g *graphics.Geometry) {
	if b, ok := r.buffers[g]; ok {
		b.delete()
		delete(r.buffers, g)
	}
}

// Submit queues a batch until the next Flush.
func (r *Renderer) Submit(b *graphics.Batch) error {
	if b.Geometry == nil {
		return fmt.Errorf("batch %v: no geometry", b.Program)
	}
	if _, ok := r.programs[b.Program]; !ok {
		return fmt.Errorf("batch: unknown program %v", b.Program)
	}
	r.queue = append(r.queue, *b)
	return nil
}

// Flush draws the queued batches in key order.
func (r *Renderer) Flush() error {
	sort.SliceStable(r.queue, func(i, j int) bool { return r.queue[i].Key < r.queue[j].Key })
	clear(r.uploaded)
	r.stats = Stats{}

	var err error
	for i := range r.queue {
		if e := r.draw(&r.queue[i]); e != nil && err == nil {
			err = e
		}
	}
	clear(r.queue)
	r.queue = r.queue[:0]

	gl.BindVertexArray(0)
	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
	return err
}

var samplerNames = [...]string{"uTexture0", "uTexture1", "uTexture2"}

func (r *Renderer) draw(b *graphics.Batch) error {
	count := b.IndexCount
	if count <= 0 || b.IndexStart+count > len(b.Geometry.Indices) {
		return nil
	}

	buf, err := r.upload(b.Geometry)
	if err != nil {
		return err
	}

	prog := r.programs[b.Program]
	prog.Use()
	applyState(stateFor(b))

	for unit, h := range b.Textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, r.textures.get(h))
		_ = prog.Set(samplerNames[min(unit, len(samplerNames)-1)], int32(unit))
	}
	if len(b.Textures) == 0 {
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, r.textures.get(nil))
	}

	for name, v := range b.Uniforms {
		if err := prog.Set(name, v); err != nil {
			return fmt.Errorf("%s: %w", prog.Name(), err)
		}
	}
	_ = prog.Set("uUnlit", b.Unlit)
	_ = prog.Set("uAlphaRef", alphaRef(b.Blend))
	_ = prog.Set("uLightDir", r.config.LightDir)
	_ = prog.Set("uMultiTexture", len(b.Textures) > 1)

	gl.BindVertexArray(buf.vao)
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(count), gl.UNSIGNED_SHORT, uintptr(b.IndexStart*2))

	r.stats.Batches++
	r.stats.Triangles += count / 3
	return nil
}
