package m2

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidModel reports a structurally broken model description.
var ErrInvalidModel = errors.New("invalid model description")

// Load reads a YAML model description from disk and validates it.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}
	return m, nil
}

// Decode reads a YAML model description and validates it.
func Decode(r io.Reader) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks keyframe structure. Dangling cross references (parent
// bones, texture combos, lookups) are not errors: the runtime clamps them.
func (m *Model) Validate() error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	for i := range m.Bones {
		b := &m.Bones[i]
		check(b.Translation.validate(fmt.Sprintf("bone %d translation", i)))
		check(b.Rotation.validate(fmt.Sprintf("bone %d rotation", i)))
		check(b.Scale.validate(fmt.Sprintf("bone %d scale", i)))
	}
	for i := range m.Colors {
		check(m.Colors[i].Color.validate(fmt.Sprintf("color %d", i)))
		check(m.Colors[i].Alpha.validate(fmt.Sprintf("color %d alpha", i)))
	}
	for i := range m.TextureWeights {
		check(m.TextureWeights[i].validate(fmt.Sprintf("texture weight %d", i)))
	}
	for i := range m.TextureTransforms {
		tt := &m.TextureTransforms[i]
		check(tt.Translation.validate(fmt.Sprintf("texture transform %d translation", i)))
		check(tt.Rotation.validate(fmt.Sprintf("texture transform %d rotation", i)))
		check(tt.Scale.validate(fmt.Sprintf("texture transform %d scale", i)))
	}
	for i := range m.ParticleEmitters {
		check(m.ParticleEmitters[i].validate(i))
	}
	for i := range m.RibbonEmitters {
		check(m.RibbonEmitters[i].validate(i))
	}
	for i, s := range m.Sequences {
		if s.VariationNext >= int16(len(m.Sequences)) {
			errs = append(errs, fmt.Errorf("sequence %d: variation_next %d out of range", i, s.VariationNext))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidModel, errors.Join(errs...))
	}
	return nil
}

func (p *ParticleEmitter) validate(i int) error {
	name := func(field string) string { return fmt.Sprintf("particle emitter %d %s", i, field) }
	return errors.Join(
		p.EmissionSpeed.validate(name("emission_speed")),
		p.SpeedVariation.validate(name("speed_variation")),
		p.VerticalRange.validate(name("vertical_range")),
		p.HorizontalRange.validate(name("horizontal_range")),
		p.Gravity.validate(name("gravity")),
		p.Lifespan.validate(name("lifespan")),
		p.EmissionRate.validate(name("emission_rate")),
		p.EmissionAreaLength.validate(name("emission_area_length")),
		p.EmissionAreaWidth.validate(name("emission_area_width")),
		p.ZSource.validate(name("z_source")),
		p.Enabled.validate(name("enabled")),
		p.Color.validate(name("color")),
		p.Alpha.validate(name("alpha")),
		p.Scale.validate(name("scale")),
		p.HeadCell.validate(name("head_cell")),
		p.TailCell.validate(name("tail_cell")),
	)
}

func (r *RibbonEmitter) validate(i int) error {
	name := func(field string) string { return fmt.Sprintf("ribbon emitter %d %s", i, field) }
	return errors.Join(
		r.Color.validate(name("color")),
		r.Alpha.validate(name("alpha")),
		r.HeightAbove.validate(name("height_above")),
		r.HeightBelow.validate(name("height_below")),
		r.TextureSlot.validate(name("texture_slot")),
		r.Visibility.validate(name("visibility")),
	)
}
