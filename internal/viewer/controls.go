package viewer

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/m2view/pkg/m2"
)

// Action is a viewer command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionTogglePause
	ActionPrevAnimation
	ActionNextAnimation
	ActionSpeedUp
	ActionSpeedDown
	ActionToggleGeosets
	ActionResetCamera
	ActionScreenshot
)

var keyBindings = map[sdl.Scancode]Action{
	sdl.SCANCODE_ESCAPE:   ActionQuit,
	sdl.SCANCODE_SPACE:    ActionTogglePause,
	sdl.SCANCODE_LEFT:     ActionPrevAnimation,
	sdl.SCANCODE_RIGHT:    ActionNextAnimation,
	sdl.SCANCODE_EQUALS:   ActionSpeedUp,
	sdl.SCANCODE_KP_PLUS:  ActionSpeedUp,
	sdl.SCANCODE_MINUS:    ActionSpeedDown,
	sdl.SCANCODE_KP_MINUS: ActionSpeedDown,
	sdl.SCANCODE_G:        ActionToggleGeosets,
	sdl.SCANCODE_HOME:     ActionResetCamera,
	sdl.SCANCODE_F12:      ActionScreenshot,
}

// ActionFor returns the action bound to a key.
func ActionFor(key sdl.Scancode) Action {
	return keyBindings[key]
}

// Speed steps applied by the +/- keys.
var speedSteps = []float32{0, 0.1, 0.25, 0.5, 1, 1.5, 2, 4}

// stepSpeed moves to the neighbouring speed step in direction dir.
func stepSpeed(current float32, dir int) float32 {
	idx := len(speedSteps) - 1
	for i, s := range speedSteps {
		if current <= s {
			idx = i
			break
		}
	}
	if dir > 0 && current >= speedSteps[idx] {
		idx++
	} else if dir < 0 {
		idx--
	}
	idx = min(max(idx, 0), len(speedSteps)-1)
	return speedSteps[idx]
}

// animationIDs lists the distinct animation ids of a model in sequence order.
func animationIDs(desc *m2.Model) []uint16 {
	seen := make(map[uint16]bool)
	var ids []uint16
	for _, s := range desc.Sequences {
		if !seen[s.ID] {
			seen[s.ID] = true
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// cycleAnimation returns the id dir steps away from current, wrapping.
func cycleAnimation(ids []uint16, current uint16, dir int) uint16 {
	if len(ids) == 0 {
		return 0
	}
	idx := 0
	for i, id := range ids {
		if id == current {
			idx = i
			break
		}
	}
	n := len(ids)
	return ids[((idx+dir)%n+n)%n]
}
