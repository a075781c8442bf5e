package dimview

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// Mesh is the vertex and index buffer layout consumed by a renderer.
// Vertices and Normals hold XYZ triples aligned by vertex index, TextureCoord
// holds optional ST pairs. LineIndices holds vertex pairs for wireframe
// rendering and TriIndices vertex triples wound counter-clockwise when viewed
// from the outward normal.
type Mesh struct {
	Vertices     []float32
	Normals      []float32
	TextureCoord []float32
	LineIndices  []uint16
	TriIndices   []uint16
}

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() int { return len(m.Vertices) / 3 }

// TriangleCount returns the number of indexed triangles.
func (m *Mesh) TriangleCount() int { return len(m.TriIndices) / 3 }

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) ms3.Vec {
	return ms3.Vec{X: m.Vertices[3*i], Y: m.Vertices[3*i+1], Z: m.Vertices[3*i+2]}
}

// Normal returns the normal of vertex i.
func (m *Mesh) Normal(i int) ms3.Vec {
	return ms3.Vec{X: m.Normals[3*i], Y: m.Normals[3*i+1], Z: m.Normals[3*i+2]}
}

// Validate checks buffer alignment and that every index addresses an existing vertex.
func (m *Mesh) Validate() error {
	nv := m.VertexCount()
	switch {
	case len(m.Vertices)%3 != 0:
		return errors.New("vertex buffer length not a multiple of 3")
	case len(m.Normals) != len(m.Vertices):
		return fmt.Errorf("normal buffer length %d does not match vertex buffer length %d", len(m.Normals), len(m.Vertices))
	case m.TextureCoord != nil && len(m.TextureCoord) != 2*nv:
		return fmt.Errorf("texture coordinate buffer length %d, want %d", len(m.TextureCoord), 2*nv)
	case nv > MaxVertices:
		return fmt.Errorf("%d vertices: %w", nv, ErrIndexCapacity)
	case len(m.LineIndices)%2 != 0:
		return errors.New("line index buffer length not a multiple of 2")
	case len(m.TriIndices)%3 != 0:
		return errors.New("triangle index buffer length not a multiple of 3")
	}
	for i, idx := range m.LineIndices {
		if int(idx) >= nv {
			return fmt.Errorf("line index %d at %d out of range of %d vertices", idx, i, nv)
		}
	}
	for i, idx := range m.TriIndices {
		if int(idx) >= nv {
			return fmt.Errorf("triangle index %d at %d out of range of %d vertices", idx, i, nv)
		}
	}
	return nil
}

// Bounds returns the axis aligned bounding box of all vertices.
func (m *Mesh) Bounds() ms3.Box {
	nv := m.VertexCount()
	if nv == 0 {
		return ms3.Box{}
	}
	first := m.Vertex(0)
	bb := ms3.Box{Min: first, Max: first}
	for i := 1; i < nv; i++ {
		bb = bb.IncludePoint(m.Vertex(i))
	}
	return bb
}

// Triangles appends the mesh's indexed triangles to dst and returns the result.
func (m *Mesh) Triangles(dst []ms3.Triangle) []ms3.Triangle {
	for i := 0; i+2 < len(m.TriIndices); i += 3 {
		dst = append(dst, ms3.Triangle{
			m.Vertex(int(m.TriIndices[i])),
			m.Vertex(int(m.TriIndices[i+1])),
			m.Vertex(int(m.TriIndices[i+2])),
		})
	}
	return dst
}

// Merge concatenates meshes into a single mesh, offsetting indices accordingly.
// Texture coordinates are kept only if all meshes carry them.
// Returns [ErrIndexCapacity] if the combined vertex count does not fit in 16-bit indices.
func Merge(meshes ...Mesh) (Mesh, error) {
	var nv, nl, nt int
	withTex := len(meshes) > 0
	for i := range meshes {
		nv += meshes[i].VertexCount()
		nl += len(meshes[i].LineIndices)
		nt += len(meshes[i].TriIndices)
		withTex = withTex && meshes[i].TextureCoord != nil
	}
	if nv > MaxVertices {
		return Mesh{}, fmt.Errorf("merging %d vertices: %w", nv, ErrIndexCapacity)
	}
	dst := Mesh{
		Vertices:    make([]float32, 0, 3*nv),
		Normals:     make([]float32, 0, 3*nv),
		LineIndices: make([]uint16, 0, nl),
		TriIndices:  make([]uint16, 0, nt),
	}
	if withTex {
		dst.TextureCoord = make([]float32, 0, 2*nv)
	}
	for i := range meshes {
		m := &meshes[i]
		off := uint16(dst.VertexCount())
		dst.Vertices = append(dst.Vertices, m.Vertices...)
		dst.Normals = append(dst.Normals, m.Normals...)
		if withTex {
			dst.TextureCoord = append(dst.TextureCoord, m.TextureCoord...)
		}
		for _, idx := range m.LineIndices {
			dst.LineIndices = append(dst.LineIndices, idx+off)
		}
		for _, idx := range m.TriIndices {
			dst.TriIndices = append(dst.TriIndices, idx+off)
		}
	}
	return dst, nil
}

// meshBuilder accumulates vertex data during generation.
type meshBuilder struct {
	m Mesh
}

func newMeshBuilder(nverts, nlines, ntris int, withTex bool) *meshBuilder {
	mb := &meshBuilder{m: Mesh{
		Vertices:    make([]float32, 0, 3*nverts),
		Normals:     make([]float32, 0, 3*nverts),
		LineIndices: make([]uint16, 0, 2*nlines),
		TriIndices:  make([]uint16, 0, 3*ntris),
	}}
	if withTex {
		mb.m.TextureCoord = make([]float32, 0, 2*nverts)
	}
	return mb
}

// vertex appends a vertex and returns its index.
func (mb *meshBuilder) vertex(pos, normal ms3.Vec) int {
	idx := len(mb.m.Vertices) / 3
	mb.m.Vertices = append(mb.m.Vertices, pos.X, pos.Y, pos.Z)
	mb.m.Normals = append(mb.m.Normals, normal.X, normal.Y, normal.Z)
	return idx
}

func (mb *meshBuilder) texcoord(s, t float32) {
	mb.m.TextureCoord = append(mb.m.TextureCoord, s, t)
}

func (mb *meshBuilder) line(a, b int) {
	mb.m.LineIndices = append(mb.m.LineIndices, uint16(a), uint16(b))
}

func (mb *meshBuilder) tri(a, b, c int) {
	mb.m.TriIndices = append(mb.m.TriIndices, uint16(a), uint16(b), uint16(c))
}

// gridQuad emits the two triangles of the grid cell whose corners are
// a=(i,j), b=(i,j-1), c=(i-1,j) and d=(i-1,j-1). The default winding is
// counter-clockwise when dP/dj x dP/di points outward; flip reverses it.
func (mb *meshBuilder) gridQuad(a, b, c, d int, flip bool) {
	if flip {
		mb.tri(a, c, b)
		mb.tri(b, c, d)
		return
	}
	mb.tri(a, b, c)
	mb.tri(b, d, c)
}

// gridLines emits the wireframe segments from a to its predecessors b=(i,j-1) and c=(i-1,j).
func (mb *meshBuilder) gridLines(a, b, c int) {
	mb.line(b, a)
	mb.line(c, a)
}

func (mb *meshBuilder) mesh() Mesh { return mb.m }
