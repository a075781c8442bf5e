package dimview

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// The shapes in this file are the set pieces of the tree scene. Their
// parameters are fixed.

// ConeTree is three stacked cones of decreasing size forming a fir tree.
type ConeTree struct{}

func (ConeTree) Kind() Kind { return KindConeTree }

func (ConeTree) Generate(bld *Builder) Mesh {
	const (
		n = 36 // angular steps.
		m = 32 // radial steps.
	)
	yOffsets := [3]float32{0.43, -0.17, -0.8}
	scales := [3]float32{0.31, 0.62, 0.95}
	dt := twopi / n
	dr := float32(1) / m
	perCone := (n + 1) * (m + 1)
	mb := newMeshBuilder(3*perCone, 3*2*n*m, 3*2*n*m, false)
	for cone := range 3 {
		a := 0.8 * scales[cone] // base radius.
		b := 1.3 * scales[cone] // height.
		for i := 0; i <= n; i++ {
			t := float32(i) * dt
			sint, cost := sincos(t)
			nrm := unitOr(ms3.Vec{X: b * cost, Y: a, Z: b * sint}, ms3.Vec{Y: 1})
			for j := 0; j <= m; j++ {
				r := float32(j) * dr
				pos := ms3.Vec{X: a * r * cost, Y: b*(1-r) + yOffsets[cone], Z: a * r * sint}
				iv := mb.vertex(pos, nrm)
				if i > 0 && j > 0 {
					mb.gridLines(iv, iv-1, iv-(m+1))
					mb.gridQuad(iv, iv-1, iv-(m+1), iv-(m+1)-1, true)
				}
			}
		}
	}
	return mb.mesh()
}

// HelixTube is a thin tube following a conical spiral that winds down the tree.
type HelixTube struct{}

func (HelixTube) Kind() Kind { return KindHelixTube }

func (HelixTube) Generate(bld *Builder) Mesh {
	const (
		turnSteps  = 32
		n          = turnSteps * 5
		segments   = 8
		tubeRadius = 0.01
		descent    = 3 * twopi // angle over which the path descends one unit.
	)
	dt := twopi / turnSteps
	var path [n + 1]ms3.Vec
	for i := range path {
		angle := float32(i) * dt
		rho := 0.9 * float32(i) / n
		sin, cos := sincos(angle)
		path[i] = ms3.Vec{X: rho * cos, Y: 0.9 - angle/descent, Z: rho * sin}
	}
	mb := newMeshBuilder((n+1)*segments, 2*(n+1)*segments, 2*n*segments, false)
	dtheta := twopi / segments
	for i := 0; i <= n; i++ {
		tangent := tangentAt(path[:], i)
		ref := ms3.Vec{Y: 1}
		if math32.Abs(tangent.Y) > 0.9 {
			ref = ms3.Vec{X: 1}
		}
		nrm := unitOr(ms3.Cross(tangent, ref), ms3.Vec{X: 1})
		binrm := ms3.Cross(tangent, nrm)
		for j := 0; j < segments; j++ {
			sin, cos := sincos(float32(j) * dtheta)
			radial := ms3.Add(ms3.Scale(cos, nrm), ms3.Scale(sin, binrm))
			mb.vertex(ms3.Add(path[i], ms3.Scale(tubeRadius, radial)), radial)
		}
	}
	for i := 0; i <= n; i++ {
		for j := 0; j < segments; j++ {
			jnext := (j + 1) % segments
			v0 := i*segments + j
			v1 := i*segments + jnext
			mb.line(v0, v1)
			if i == n {
				continue
			}
			v2 := (i+1)*segments + j
			v3 := (i+1)*segments + jnext
			mb.line(v0, v2)
			mb.tri(v0, v1, v2)
			mb.tri(v1, v3, v2)
		}
	}
	return mb.mesh()
}

// tangentAt estimates the unit tangent of a sampled curve by finite differences of neighboring samples.
func tangentAt(path []ms3.Vec, i int) ms3.Vec {
	next := path[min(i+1, len(path)-1)]
	prev := path[max(i-1, 0)]
	return unitOr(ms3.Sub(next, prev), ms3.Vec{Y: -1})
}

// Bowtie is a small bow shaped parametric surface placed on top of the tree.
// The surface folds over itself so triangles near the folds may be wound
// against their vertex normals.
type Bowtie struct{}

func (Bowtie) Kind() Kind { return KindBowtie }

func (Bowtie) Generate(bld *Builder) Mesh {
	const (
		nu = 30
		nv = 30
		h  = 1e-3 // parameter step for normal estimation.
	)
	mb := newMeshBuilder(nu*nv, 2*nu*nv, 2*(nu-1)*(nv-1), false)
	for iv := 0; iv < nv; iv++ {
		v := -pi + twopi*float32(iv)/(nv-1)
		for iu := 0; iu < nu; iu++ {
			u := -pi + twopi*float32(iu)/(nu-1)
			pu := ms3.Sub(bowtieAt(u+h, v), bowtieAt(u-h, v))
			pv := ms3.Sub(bowtieAt(u, v+h), bowtieAt(u, v-h))
			nrm := unitOr(ms3.Cross(pv, pu), ms3.Vec{Z: 1})
			idx := mb.vertex(bowtieAt(u, v), nrm)
			if iu > 0 {
				mb.line(idx-1, idx)
			}
			if iv > 0 {
				mb.line(idx-nu, idx)
			}
		}
	}
	for iv := 0; iv < nv-1; iv++ {
		for iu := 0; iu < nu-1; iu++ {
			v0 := iv*nu + iu
			v1 := v0 + 1
			v2 := v0 + nu
			v3 := v2 + 1
			mb.tri(v0, v2, v1)
			mb.tri(v1, v2, v3)
		}
	}
	return mb.mesh()
}

func bowtieAt(u, v float32) ms3.Vec {
	const (
		scale = 0.1
		lift  = 0.82
	)
	sinu, cosu := sincos(u)
	sinv, cosv := sincos(v)
	x := scale * sinu / math32.Sqrt(2+sinv)
	y := scale * sinu / math32.Sqrt(2+cosv)
	z := scale * cosu / (1 + math32.Sqrt2)
	// Rotate -40 degrees about Z.
	const angle = -40 * pi / 180
	sina, cosa := sincos(angle)
	return ms3.Vec{X: x*cosa - y*sina, Y: x*sina + y*cosa + lift, Z: z}
}
