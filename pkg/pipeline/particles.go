package pipeline

import (
	"github.com/matzehuels/grandgraph/pkg/config"
	"github.com/matzehuels/grandgraph/pkg/particles"
)

// ParticleOptions converts the [view] config section into field options.
// A zero particle count disables the field and returns nil.
func ParticleOptions(v config.ViewConfig, seed uint64) (*particles.Options, error) {
	if v.Particles == 0 {
		return nil, nil
	}
	blend, err := particles.ParseBlend(v.Blend)
	if err != nil {
		return nil, err
	}
	return &particles.Options{
		Count:   v.Particles,
		Seed:    seed,
		Blend:   blend,
		Phase:   v.Phase,
		Zoom:    v.Zoom,
		Tilt:    v.Tilt,
		PointPx: v.PointSize,
		Alpha:   v.Alpha,
	}, nil
}
