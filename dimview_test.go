package dimview

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-5

func TestSubdivideOctahedron(t *testing.T) {
	for k := 0; k <= MaxSubdivision; k++ {
		facets := SubdivideOctahedron(k)
		require.Len(t, facets, 8<<(2*k), "iterations=%d", k)
		for i, f := range facets {
			for _, v := range f {
				n := ms3.Norm(v)
				if math32.Abs(n-1) > tol {
					t.Fatalf("k=%d facet %d vertex %v has norm %v", k, i, v, n)
				}
			}
		}
	}
	// Clamped at the deepest subdivision.
	assert.Len(t, SubdivideOctahedron(MaxSubdivision+3), 8<<(2*MaxSubdivision))
	assert.Len(t, SubdivideOctahedron(-1), 8)
}

func TestSphere(t *testing.T) {
	var bld Builder
	for k := 0; k <= MaxSphereIterations; k++ {
		m := bld.NewSphere(k)
		facets := 8 << (2 * k)
		assert.Equal(t, 3*facets, m.VertexCount(), "iterations=%d", k)
		assert.Equal(t, facets, m.TriangleCount())
		assert.Len(t, m.LineIndices, 2*3*facets)
		require.NoError(t, m.Validate())
		assertUnitNormals(t, m)
		assertOutwardWinding(t, m)
		for i := 0; i < m.VertexCount(); i++ {
			assert.InDelta(t, 1, ms3.Norm(m.Vertex(i)), tol)
		}
	}
	assert.NoError(t, bld.Warnings())
	deepest := bld.NewSphere(MaxSphereIterations)
	assert.Equal(t, 24576, deepest.VertexCount())
}

func TestSphereClamp(t *testing.T) {
	var logbuf bytes.Buffer
	bld := Builder{Logger: slog.New(slog.NewTextHandler(&logbuf, nil))}
	m := Sphere{Iterations: 7, Radius: 2}.Generate(&bld)
	assert.Equal(t, 3*(8<<(2*MaxSphereIterations)), m.VertexCount())
	require.NoError(t, m.Validate())
	err := bld.Warnings()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexCapacity))
	assert.Contains(t, logbuf.String(), "sphere iterations clamped")
	for i := 0; i < m.VertexCount(); i++ {
		assert.InDelta(t, 2, ms3.Norm(m.Vertex(i)), 2*tol)
	}
}

func TestTorus(t *testing.T) {
	for _, yup := range []bool{false, true} {
		tor := Torus{MinorRadius: 0.3, MajorRadius: 0.5, N: 16, M: 24, YUp: yup, TexCoords: true, TexRepeat: 8, TexPhase: 0.25}
		var bld Builder
		m := tor.Generate(&bld)
		require.NoError(t, m.Validate())
		assert.Equal(t, 17*25, m.VertexCount())
		assert.Equal(t, 2*16*24, m.TriangleCount())
		assert.Len(t, m.LineIndices, 2*2*16*24)
		assert.Len(t, m.TextureCoord, 2*m.VertexCount())
		assertUnitNormals(t, m)
		assertOutwardWinding(t, m)
		for i := 1; i < len(m.TextureCoord); i += 2 {
			tc := m.TextureCoord[i]
			assert.True(t, tc >= 0 && tc <= 1, "mirrored t coordinate %v out of range", tc)
		}
		bb := m.Bounds()
		up := bb.Max.Z
		if yup {
			up = bb.Max.Y
		}
		assert.InDelta(t, 0.3, up, tol)
	}
	m := Torus{MinorRadius: 1, MajorRadius: 2, N: 4, M: 4}.Generate(&Builder{})
	assert.Nil(t, m.TextureCoord)
}

func TestCylinder(t *testing.T) {
	cyl := Cylinder{Radius: 1, HalfHeight: 0.5, N: 12, M: 3}
	m := cyl.Generate(&Builder{})
	require.NoError(t, m.Validate())
	nv := 13*4 + 2
	require.Equal(t, nv, m.VertexCount())
	assert.Equal(t, 2*12*3+2*12, m.TriangleCount())
	assertUnitNormals(t, m)
	assertOutwardWinding(t, m)
	bottom, top := m.Vertex(nv-2), m.Vertex(nv-1)
	assert.Equal(t, ms3.Vec{Y: -0.5}, bottom)
	assert.Equal(t, ms3.Vec{Y: 0.5}, top)
	assert.Equal(t, ms3.Vec{Y: -1}, m.Normal(nv-2))
	assert.Equal(t, ms3.Vec{Y: 1}, m.Normal(nv-1))
	for i := 0; i < nv-2; i++ {
		assert.Zero(t, m.Normal(i).Y)
	}
}

func TestDecorative(t *testing.T) {
	for _, s := range []Shape{ConeTree{}, HelixTube{}, Bowtie{}} {
		var bld Builder
		m := s.Generate(&bld)
		require.NoError(t, m.Validate(), s.Kind().String())
		assert.NotZero(t, m.TriangleCount())
		assert.NotEmpty(t, m.LineIndices)
		assertUnitNormals(t, m)
		assert.NoError(t, bld.Warnings())
	}
	assertOutwardWinding(t, ConeTree{}.Generate(&Builder{}))
	assertOutwardWinding(t, HelixTube{}.Generate(&Builder{}))
	// The bowtie folds over itself, only triangles away from the folds agree with their normals.
	against, checked := windingAgainstNormals(Bowtie{}.Generate(&Builder{}))
	require.NotZero(t, checked)
	assert.Less(t, float64(len(against)), 0.05*float64(checked))
}

func TestBuilderGenerate(t *testing.T) {
	var bld Builder
	var meshes []Mesh
	for _, k := range Kinds() {
		m, err := bld.Generate(k)
		require.NoError(t, err, k.String())
		require.NoError(t, m.Validate(), k.String())
		meshes = append(meshes, m)
	}
	_, err := bld.Generate(kindUndefined)
	assert.Error(t, err)
	_, err = bld.Generate(kindEnd)
	assert.Error(t, err)

	tree, err := Merge(meshes[3:]...)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())
	var nv, nt int
	for _, m := range meshes[3:] {
		nv += m.VertexCount()
		nt += m.TriangleCount()
	}
	assert.Equal(t, nv, tree.VertexCount())
	assert.Equal(t, nt, tree.TriangleCount())
	assert.Nil(t, tree.TextureCoord)
}

func TestMerge(t *testing.T) {
	var bld Builder
	a := bld.NewSphere(0)
	b := bld.NewSphere(1)
	m, err := Merge(a, b)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	off := uint16(a.VertexCount())
	assert.Equal(t, b.TriIndices[0]+off, m.TriIndices[len(a.TriIndices)])
	assert.Equal(t, b.Vertex(5), m.Vertex(int(off)+5))

	big := bld.NewSphere(MaxSphereIterations)
	_, err = Merge(big, big, big)
	assert.ErrorIs(t, err, ErrIndexCapacity)
}

func TestKindText(t *testing.T) {
	for _, k := range Kinds() {
		text, err := k.MarshalText()
		require.NoError(t, err)
		var got Kind
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, k, got)
		s, err := DefaultShape(k)
		require.NoError(t, err)
		assert.Equal(t, k, s.Kind())
	}
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte(" Torus ")))
	assert.Equal(t, KindTorus, k)
	assert.Error(t, k.UnmarshalText([]byte("teapot")))
	_, err := kindUndefined.MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Kind(200)", Kind(200).String())
}

func assertUnitNormals(t *testing.T, m Mesh) {
	t.Helper()
	for i := 0; i < m.VertexCount(); i++ {
		n := ms3.Norm(m.Normal(i))
		if math32.Abs(n-1) > tol {
			t.Fatalf("normal %d %v has length %v", i, m.Normal(i), n)
		}
	}
}

// assertOutwardWinding checks that counter-clockwise triangles agree with the
// vertex normals they are built from.
func assertOutwardWinding(t *testing.T, m Mesh) {
	t.Helper()
	if against, _ := windingAgainstNormals(m); len(against) > 0 {
		i := against[0]
		t.Fatalf("triangle %d (%d,%d,%d) wound against its normals", i, m.TriIndices[3*i], m.TriIndices[3*i+1], m.TriIndices[3*i+2])
	}
}

// windingAgainstNormals returns the triangles whose face normal opposes their
// summed vertex normals and the number of non-degenerate triangles checked.
func windingAgainstNormals(m Mesh) (against []int, checked int) {
	for i := 0; i < m.TriangleCount(); i++ {
		ia, ib, ic := int(m.TriIndices[3*i]), int(m.TriIndices[3*i+1]), int(m.TriIndices[3*i+2])
		a, b, c := m.Vertex(ia), m.Vertex(ib), m.Vertex(ic)
		face := ms3.Cross(ms3.Sub(b, a), ms3.Sub(c, a))
		if ms3.Norm(face) < 1e-12 {
			continue // Degenerate, as at a cone apex.
		}
		checked++
		avg := ms3.Add(ms3.Add(m.Normal(ia), m.Normal(ib)), m.Normal(ic))
		if ms3.Dot(face, avg) <= 0 {
			against = append(against, i)
		}
	}
	return against, checked
}
