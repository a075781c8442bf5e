// Package scene lays out one instance of a mesh per dataset row and frames
// them with an orthographic camera sized from the dataset statistics.
package scene

import (
	"fmt"

	"github.com/soypat/dimview"
	"github.com/soypat/dimview/dataset"
	"github.com/soypat/geometry/ms3"
)

// pointScale is the ratio between the largest column range and the size of a point.
const pointScale = 1.0 / 100

// Instance is a placement of the scene mesh.
type Instance struct {
	Pos   ms3.Vec
	Scale float32
	Label dataset.Value
}

// Camera is an orthographic camera looking at Eye. Extent is the half-width of the
// viewing volume along every axis.
type Camera struct {
	Eye    ms3.Vec
	Extent float32
}

// Scene holds the instances of Mesh, one per dataset row.
type Scene struct {
	Mesh      dimview.Mesh
	Instances []Instance
	Camera    Camera
}

// New places an instance of mesh at the first three fields of every row in ds.
// Instances are scaled to a hundredth of the largest column range and the camera
// is centered on the per-column means.
func New(ds *dataset.Dataset, mesh dimview.Mesh) *Scene {
	s := &Scene{
		Mesh:      mesh,
		Instances: make([]Instance, ds.Len()),
	}
	scale := float32(ds.Stats.MaxRange * pointScale)
	for i, row := range ds.Points {
		s.Instances[i] = Instance{
			Pos:   dataset.Positions3(row),
			Scale: scale,
			Label: ds.Labels[i],
		}
	}
	s.Camera = Camera{
		Eye:    dataset.Positions3(ds.Stats.Mean),
		Extent: float32(ds.Stats.MaxRange),
	}
	return s
}

// SetPositions moves every instance to the corresponding row of an embedding
// after iter optimization steps. Embeddings are re-centered by their first step
// so the camera is moved to the origin when iter is 1.
func (s *Scene) SetPositions(solution [][]float64, iter int) error {
	if len(solution) != len(s.Instances) {
		return fmt.Errorf("scene: %d positions for %d instances", len(solution), len(s.Instances))
	}
	for i, row := range solution {
		s.Instances[i].Pos = dataset.Positions3(row)
	}
	if iter == 1 {
		s.Camera.Eye = ms3.Vec{}
	}
	return nil
}

// Rescale zooms the scene by factor, scaling the camera extent and every instance alike
// so points keep their apparent size.
func (s *Scene) Rescale(factor float32) {
	s.Camera.Extent *= factor
	for i := range s.Instances {
		s.Instances[i].Scale *= factor
	}
}

// Bounds returns the box containing all instance positions.
func (s *Scene) Bounds() ms3.Box {
	if len(s.Instances) == 0 {
		return ms3.Box{}
	}
	bb := ms3.Box{Min: s.Instances[0].Pos, Max: s.Instances[0].Pos}
	for _, inst := range s.Instances[1:] {
		bb = bb.IncludePoint(inst.Pos)
	}
	return bb
}

// Triangles appends the triangles of every placed instance to dst.
// Unlike merging meshes the result is not limited by index capacity.
func (s *Scene) Triangles(dst []ms3.Triangle) []ms3.Triangle {
	base := s.Mesh.Triangles(nil)
	for _, inst := range s.Instances {
		for _, t := range base {
			for k := range t {
				t[k] = ms3.Add(inst.Pos, ms3.Scale(inst.Scale, t[k]))
			}
			dst = append(dst, t)
		}
	}
	return dst
}
