// Package viewer implements the interactive model viewer loop.
package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/m2view/internal/assets"
	"github.com/Faultbox/m2view/internal/config"
	"github.com/Faultbox/m2view/internal/engine/camera"
	"github.com/Faultbox/m2view/internal/engine/debug"
	"github.com/Faultbox/m2view/internal/engine/input"
	"github.com/Faultbox/m2view/internal/engine/lighting"
	"github.com/Faultbox/m2view/internal/engine/model"
	"github.com/Faultbox/m2view/internal/engine/particle"
	"github.com/Faultbox/m2view/internal/engine/picking"
	"github.com/Faultbox/m2view/internal/engine/renderer"
	"github.com/Faultbox/m2view/internal/engine/texture"
	"github.com/Faultbox/m2view/internal/engine/window"
	"github.com/Faultbox/m2view/internal/logger"
	"github.com/Faultbox/m2view/pkg/m2"
)

// Longest frame fed to the simulation, in milliseconds.
const maxFrameMS = 250

// Viewer is the main viewer instance.
type Viewer struct {
	config  *config.Config
	log     *zap.Logger
	running bool

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	shots    *debug.ScreenshotCapture

	model       *model.Model
	assets      *assets.Manager
	textures    *texture.Loader
	animation   uint16
	speed       float32
	paused      bool
	geosetsOn   bool
	shotPending bool
}

// New loads the configured model and opens a window for it.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		config:    cfg,
		log:       logger.Named("viewer"),
		animation: cfg.Viewer.Animation,
		speed:     cfg.Viewer.AnimationSpeed,
		geosetsOn: true,
	}
	v.log.Info("initializing viewer",
		zap.String("model", cfg.Viewer.Model),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
	)

	desc, err := m2.Load(cfg.Viewer.Model)
	if err != nil {
		return nil, err
	}

	v.assets, err = assets.SearchPath(cfg.Viewer.Model, cfg.Viewer.TextureDir)
	if err != nil {
		return nil, err
	}
	v.textures = texture.NewLoader(v.assets)

	v.model, err = model.New(desc, model.Options{
		Seed:      cfg.Simulation.Seed,
		Particles: ParticleOptions(cfg.Simulation),
		Textures:  v.textures,
	})
	if err != nil {
		return nil, err
	}
	if ok, _ := v.model.UseAnimation(v.animation); !ok {
		v.log.Warn("animation not found, playing 0", zap.Uint16("animation", v.animation))
		v.animation = 0
	}
	v.model.SetAnimationSpeed(v.speed)

	// Create window (this also creates OpenGL context)
	v.window, err = window.New(window.FromConfig(title(desc.Name, v.animation), cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	width, height := v.window.DrawableSize()
	v.renderer, err = renderer.New(renderer.Config{
		Width:      width,
		Height:     height,
		VSync:      cfg.Window.VSync,
		Background: cfg.Viewer.Background,
		LightDir:   lighting.SunDirection(cfg.Viewer.LightAzimuth, cfg.Viewer.LightElevation),
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.input = input.New()
	v.shots = debug.NewScreenshotCapture(cfg.Viewer.ScreenshotDir, desc.Name)
	v.camera = camera.NewOrbitCamera()
	v.resetCamera()

	v.log.Info("viewer initialized successfully")
	return v, nil
}

// ParticleOptions converts simulation settings into particle bounds.
func ParticleOptions(cfg config.SimulationConfig) particle.Options {
	return particle.Options{
		MaxStep:  float32(cfg.MaxStep.Seconds()),
		MaxQuads: cfg.MaxQuads,
		GroundZ:  cfg.GroundZ,
	}
}

func title(name string, animation uint16) string {
	return fmt.Sprintf("m2view - %s [anim %d]", name, animation)
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting viewer loop")

	for v.running {
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		v.handleInput()

		// 2. Advance the simulation
		ms := min(float32(dt.Seconds()*1000), maxFrameMS)
		v.update(ms)

		// 3. Render
		if err := v.render(); err != nil {
			return fmt.Errorf("render error: %w", err)
		}

		if v.shotPending {
			v.shotPending = false
			v.screenshot()
		}

		// 4. Present (swap buffers)
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			stats := v.renderer.Stats()
			v.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Duration("dt", dt),
				zap.Int("batches", stats.Batches),
				zap.Int("triangles", stats.Triangles),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

// Close cleans up viewer resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.model != nil {
		v.model.Dispose()
	}
	if v.textures != nil {
		v.textures.Wait()
	}
	if v.assets != nil {
		hits, misses := v.assets.Stats()
		v.log.Debug("asset cache", zap.Int("hits", hits), zap.Int("misses", misses))
		v.assets.Close()
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}

func (v *Viewer) handleInput() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			// Event sizes are in screen coordinates.
			v.renderer.Resize(v.window.DrawableSize())
		case input.EventKeyDown:
			v.apply(ActionFor(event.Key))
		case input.EventMouseDown:
			if event.Button == sdl.BUTTON_RIGHT {
				v.pick(event.MouseX, event.MouseY)
			}
		}
	}

	if v.input.IsButtonDown(sdl.BUTTON_LEFT) {
		dx, dy := v.input.Drag()
		v.camera.HandleDrag(float32(dx), float32(dy))
	}
	if w := v.input.Wheel(); w != 0 {
		v.camera.HandleZoom(float32(w))
	}
}

func (v *Viewer) apply(a Action) {
	switch a {
	case ActionQuit:
		v.running = false
	case ActionTogglePause:
		v.paused = !v.paused
		if v.paused {
			v.model.PauseAnimation()
		} else {
			v.model.ResumeAnimation()
		}
	case ActionPrevAnimation, ActionNextAnimation:
		dir := 1
		if a == ActionPrevAnimation {
			dir = -1
		}
		v.animation = cycleAnimation(animationIDs(v.model.Description()), v.animation, dir)
		if _, err := v.model.UseAnimation(v.animation); err != nil {
			v.log.Error("switch animation", zap.Error(err))
			return
		}
		v.window.SetTitle(title(v.model.Description().Name, v.animation))
		v.log.Info("animation", zap.Uint16("id", v.animation))
	case ActionSpeedUp, ActionSpeedDown:
		dir := 1
		if a == ActionSpeedDown {
			dir = -1
		}
		v.speed = stepSpeed(v.speed, dir)
		v.model.SetAnimationSpeed(v.speed)
		v.log.Info("animation speed", zap.Float32("speed", v.speed))
	case ActionToggleGeosets:
		// Geoset 0 is the base body and stays visible.
		v.geosetsOn = !v.geosetsOn
		for _, id := range v.model.Geosets() {
			if id != 0 {
				v.model.ToggleGeoset(id, v.geosetsOn)
			}
		}
	case ActionResetCamera:
		v.resetCamera()
	case ActionScreenshot:
		v.shotPending = true
	}
}

// screenshot saves the frame just rendered, before it is presented.
func (v *Viewer) screenshot() {
	pixels, w, h := v.renderer.ReadPixels()
	name, err := v.shots.CaptureFromPixels(pixels, w, h)
	if err != nil {
		v.log.Error("screenshot", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("file", name))
}

func (v *Viewer) resetCamera() {
	b := v.model.Bounds()
	v.camera.FitToSphere(b.Center(), b.Radius())
	if d := v.config.Viewer.CameraDistance; d > 0 && b.Radius() == 0 {
		v.camera.Distance = d
	}
}

// pick logs the bone nearest to the cursor.
func (v *Viewer) pick(x, y int) {
	w, h := v.window.GetSize()
	proj := v.camera.ProjectionMatrix(v.renderer.Aspect())
	inv := proj.Mul(v.camera.ViewMatrix()).Inverse()
	ray := picking.ScreenToRay(float32(x), float32(y), float32(w), float32(h), inv)

	hit, ok := picking.Nearest(ray, v.model.BonePositions(), picking.BoneRadius(v.model.Bounds().Radius()))
	if !ok {
		v.log.Info("pick: no bone under cursor")
		return
	}
	bone := v.model.Description().Bones[hit.Index]
	v.log.Info("pick",
		zap.Int("bone", hit.Index),
		zap.Int32("key_bone", bone.KeyBoneID),
		zap.Int16("parent", bone.Parent),
		zap.Float32("distance", hit.Distance),
	)
}

func (v *Viewer) update(dt float32) {
	proj := v.camera.ProjectionMatrix(v.renderer.Aspect())
	v.model.SetCamera(v.camera.ViewMatrix(), proj)
	v.model.Update(dt)
}

// render draws the current frame.
func (v *Viewer) render() error {
	v.renderer.Begin()
	if err := v.model.Draw(v.renderer); err != nil {
		return err
	}
	if err := v.renderer.Flush(); err != nil {
		return err
	}
	return v.renderer.End()
}
