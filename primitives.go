package dimview

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// SubdivideOctahedron returns the facets of a regular octahedron inscribed in the
// unit sphere after subdividing every facet into 4 for the given number of iterations.
// Edge midpoints are projected back onto the unit sphere. The result has 8*4^iterations facets,
// iterations is clamped to [0, MaxSubdivision].
func SubdivideOctahedron(iterations int) []ms3.Triangle {
	iterations = max(0, min(iterations, MaxSubdivision))
	const a = sqrt2d2
	p := [6]ms3.Vec{
		{X: 0, Y: 0, Z: 1},
		{X: 0, Y: 0, Z: -1},
		{X: -a, Y: -a, Z: 0},
		{X: a, Y: -a, Z: 0},
		{X: a, Y: a, Z: 0},
		{X: -a, Y: a, Z: 0},
	}
	facets := make([]ms3.Triangle, 0, 8<<(2*iterations))
	facets = append(facets,
		ms3.Triangle{p[0], p[3], p[4]},
		ms3.Triangle{p[0], p[4], p[5]},
		ms3.Triangle{p[0], p[5], p[2]},
		ms3.Triangle{p[0], p[2], p[3]},
		ms3.Triangle{p[1], p[4], p[3]},
		ms3.Triangle{p[1], p[5], p[4]},
		ms3.Triangle{p[1], p[2], p[5]},
		ms3.Triangle{p[1], p[3], p[2]},
	)
	fallback := ms3.Vec{X: 1}
	next := make([]ms3.Triangle, 0, cap(facets))
	for it := 0; it < iterations; it++ {
		next = next[:0]
		for _, f := range facets {
			pa := unitOr(ms3.Scale(0.5, ms3.Add(f[0], f[1])), fallback)
			pb := unitOr(ms3.Scale(0.5, ms3.Add(f[1], f[2])), fallback)
			pc := unitOr(ms3.Scale(0.5, ms3.Add(f[2], f[0])), fallback)
			next = append(next,
				ms3.Triangle{f[0], pa, pc},
				ms3.Triangle{pa, f[1], pb},
				ms3.Triangle{pb, f[2], pc},
				ms3.Triangle{pa, pb, pc},
			)
		}
		facets, next = next, facets
	}
	return facets
}

// Sphere is a recursively subdivided octahedron projected onto a sphere.
// Vertices are not shared between facets: every facet owns its 3 corners
// so the vertex count is exactly 3 times the facet count.
type Sphere struct {
	// Iterations is the subdivision depth. Values above MaxSphereIterations
	// are clamped so the mesh stays addressable with 16-bit indices.
	Iterations int
	// Radius scales vertex positions. Normals are unit length regardless.
	Radius float32
}

func (Sphere) Kind() Kind { return KindSphere }

func (s Sphere) Generate(bld *Builder) Mesh {
	it := s.Iterations
	if it > MaxSphereIterations {
		bld.warnf(fmt.Errorf("sphere iterations %d: %w", it, ErrIndexCapacity), "sphere iterations clamped",
			"requested", it, "max", MaxSphereIterations)
		it = MaxSphereIterations
	}
	facets := SubdivideOctahedron(it)
	nverts := 3 * len(facets)
	mb := newMeshBuilder(nverts, 3*len(facets), len(facets), false)
	for _, f := range facets {
		base := mb.vertex(ms3.Scale(s.Radius, f[0]), f[0])
		mb.vertex(ms3.Scale(s.Radius, f[1]), f[1])
		mb.vertex(ms3.Scale(s.Radius, f[2]), f[2])
		mb.tri(base, base+1, base+2)
		mb.line(base, base+1)
		mb.line(base+1, base+2)
		mb.line(base+2, base)
	}
	return mb.mesh()
}

// Torus is a ring of radius MajorRadius swept by a tube of radius MinorRadius.
// The ring lies in the XY plane with Z up unless YUp is set.
type Torus struct {
	MinorRadius float32
	MajorRadius float32
	// N is the number of steps around the tube cross-section, M around the ring.
	N, M int
	// YUp places the ring in the XZ plane.
	YUp bool
	// TexCoords enables texture coordinate generation. S repeats TexRepeat times
	// around the ring, T is mirrored across the tube offset by TexPhase turns.
	TexCoords bool
	TexRepeat float32
	TexPhase  float32
}

func (Torus) Kind() Kind { return KindTorus }

func (t Torus) Generate(bld *Builder) Mesh {
	n, m := t.N, t.M
	du := twopi / float32(n)
	dv := twopi / float32(m)
	mb := newMeshBuilder((n+1)*(m+1), 2*n*m, 2*n*m, t.TexCoords)
	for i := 0; i <= n; i++ {
		u := float32(i) * du
		sinu, cosu := sincos(u)
		for j := 0; j <= m; j++ {
			v := float32(j) * dv
			sinv, cosv := sincos(v)
			ring := t.MajorRadius + t.MinorRadius*cosu
			pos := ms3.Vec{X: ring * cosv, Y: ring * sinv, Z: t.MinorRadius * sinu}
			nrm := ms3.Vec{X: cosu * cosv, Y: cosu * sinv, Z: sinu}
			if t.YUp {
				pos.Y, pos.Z = pos.Z, pos.Y
				nrm.Y, nrm.Z = nrm.Z, nrm.Y
			}
			iv := mb.vertex(pos, nrm)
			if t.TexCoords {
				s := v / twopi * t.TexRepeat
				tt := mirrorRepeat(u/twopi + t.TexPhase)
				mb.texcoord(s, tt)
			}
			if i > 0 && j > 0 {
				mb.gridLines(iv, iv-1, iv-(m+1))
				// Swapping axes mirrors the surface, reverse winding to keep it facing outward.
				mb.gridQuad(iv, iv-1, iv-(m+1), iv-(m+1)-1, t.YUp)
			}
		}
	}
	return mb.mesh()
}

// mirrorRepeat maps x to a triangle wave in [0,1] with period 1.
func mirrorRepeat(x float32) float32 {
	x -= math32.Floor(x)
	if x < 0.5 {
		return 2 * x
	}
	return 2 * (1 - x)
}

// Cylinder is a capped cylinder around the Y axis spanning [-HalfHeight, HalfHeight].
// Two hub vertices at the cap centers are appended after the side grid.
type Cylinder struct {
	Radius     float32
	HalfHeight float32
	// N is the number of angular steps, M the number of steps along the axis.
	N, M int
}

func (Cylinder) Kind() Kind { return KindCylinder }

func (c Cylinder) Generate(bld *Builder) Mesh {
	n, m := c.N, c.M
	du := twopi / float32(n)
	dh := 2 * c.HalfHeight / float32(m)
	mb := newMeshBuilder((n+1)*(m+1)+2, 2*n*m+2*n, 2*n*m+2*n, false)
	for i := 0; i <= n; i++ {
		u := float32(i) * du
		sinu, cosu := sincos(u)
		for j := 0; j <= m; j++ {
			h := -c.HalfHeight + float32(j)*dh
			pos := ms3.Vec{X: c.Radius * cosu, Y: h, Z: c.Radius * sinu}
			iv := mb.vertex(pos, ms3.Vec{X: cosu, Z: sinu})
			if i > 0 && j > 0 {
				mb.gridLines(iv, iv-1, iv-(m+1))
				mb.gridQuad(iv, iv-1, iv-(m+1), iv-(m+1)-1, false)
			}
		}
	}
	bottom := mb.vertex(ms3.Vec{Y: -c.HalfHeight}, ms3.Vec{Y: -1})
	top := mb.vertex(ms3.Vec{Y: c.HalfHeight}, ms3.Vec{Y: 1})
	for k := 1; k <= n; k++ {
		iBottom := k * (m + 1)
		iBottomPrev := (k - 1) * (m + 1)
		iTop := iBottom + m
		iTopPrev := iBottomPrev + m
		mb.tri(bottom, iBottomPrev, iBottom)
		mb.tri(top, iTop, iTopPrev)
		mb.line(bottom, iBottom)
		mb.line(top, iTop)
	}
	return mb.mesh()
}
