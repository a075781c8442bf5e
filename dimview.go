package dimview

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

const (
	// MaxVertices is the size of the 16-bit index space used by mesh index buffers.
	MaxVertices = 1 << 16
	// MaxSubdivision is the deepest octahedron subdivision performed by [SubdivideOctahedron].
	MaxSubdivision = 6
	// MaxSphereIterations is the deepest subdivision whose flattened sphere mesh
	// (3 vertices per facet) fits in [MaxVertices].
	MaxSphereIterations = 5

	// epsnorm is the length under which a vector is considered degenerate during normalization.
	epsnorm = 1e-10
	sqrt2d2 = math32.Sqrt2 / 2
	pi      = math32.Pi
	twopi   = 2 * math32.Pi
)

// ErrIndexCapacity is reported when requested geometry would not fit in 16-bit indices.
var ErrIndexCapacity = errors.New("geometry exceeds 16-bit index capacity")

// Builder generates meshes and keeps track of non-fatal adjustments made to
// requested shape parameters such as clamped subdivision depths.
type Builder struct {
	// Logger receives warnings. If nil slog.Default is used.
	Logger   *slog.Logger
	warnings []error
}

// Warnings returns the adjustments made by the builder so far joined as a single error.
// Returns nil if no shape parameters were modified.
func (bld *Builder) Warnings() error {
	if len(bld.warnings) == 0 {
		return nil
	}
	return errors.Join(bld.warnings...)
}

// Generate generates the mesh for kind using default shape parameters.
func (bld *Builder) Generate(kind Kind) (Mesh, error) {
	s, err := DefaultShape(kind)
	if err != nil {
		return Mesh{}, err
	}
	return s.Generate(bld), nil
}

// NewSphere is shorthand for generating a [Sphere] of unit radius.
func (bld *Builder) NewSphere(iterations int) Mesh {
	return Sphere{Iterations: iterations, Radius: 1}.Generate(bld)
}

func (bld *Builder) warnf(err error, msg string, args ...any) {
	bld.warnings = append(bld.warnings, fmt.Errorf("%s: %w", msg, err))
	log := bld.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Warn(msg, args...)
}

// unitOr normalizes v. Degenerate vectors resolve to fallback.
func unitOr(v, fallback ms3.Vec) ms3.Vec {
	n := ms3.Norm(v)
	if n <= epsnorm {
		return fallback
	}
	return ms3.Scale(1/n, v)
}

func sincos(a float32) (sin, cos float32) {
	return math32.Sin(a), math32.Cos(a)
}
