// Package glrender writes meshes and embeddings to files consumed outside of the
// interactive viewer: binary STL for meshes and PNG scatter plots for embeddings.
package glrender

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/soypat/dimview"
	"github.com/soypat/geometry/ms3"
)

const (
	stlHeaderSize  = 80
	stlTriangleLen = 50 // normal, 3 vertices as float32 and a uint16 attribute.
)

// WriteBinarySTL writes triangles in binary STL format. Facet normals are computed
// from the counter-clockwise vertex order.
func WriteBinarySTL(w io.Writer, triangles []ms3.Triangle) (int, error) {
	if uint64(len(triangles)) > math.MaxUint32 {
		return 0, errors.New("too many triangles for STL")
	}
	var header [stlHeaderSize + 4]byte
	copy(header[:], "dimview binary STL")
	binary.LittleEndian.PutUint32(header[stlHeaderSize:], uint32(len(triangles)))
	n, err := w.Write(header[:])
	if err != nil {
		return n, err
	}
	const batch = 256
	buf := make([]byte, 0, batch*stlTriangleLen)
	for i, t := range triangles {
		nrm := facetNormal(t)
		buf = appendVec(buf, nrm)
		buf = appendVec(buf, t[0])
		buf = appendVec(buf, t[1])
		buf = appendVec(buf, t[2])
		buf = binary.LittleEndian.AppendUint16(buf, 0)
		if (i+1)%batch == 0 || i == len(triangles)-1 {
			ngot, err := w.Write(buf)
			n += ngot
			if err != nil {
				return n, err
			}
			buf = buf[:0]
		}
	}
	return n, nil
}

// WriteMeshSTL writes the indexed triangles of mesh in binary STL format.
func WriteMeshSTL(w io.Writer, mesh *dimview.Mesh) (int, error) {
	return WriteBinarySTL(w, mesh.Triangles(nil))
}

// ReadBinarySTL reads triangles written in binary STL format.
func ReadBinarySTL(r io.Reader) ([]ms3.Triangle, error) {
	var header [stlHeaderSize + 4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	nt := binary.LittleEndian.Uint32(header[stlHeaderSize:])
	triangles := make([]ms3.Triangle, 0, min(nt, 1<<20))
	var rec [stlTriangleLen]byte
	for i := uint32(0); i < nt; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, err
		}
		var t ms3.Triangle
		for k := range t {
			t[k] = readVec(rec[12*(k+1):])
		}
		triangles = append(triangles, t)
	}
	return triangles, nil
}

func facetNormal(t ms3.Triangle) ms3.Vec {
	n := ms3.Cross(ms3.Sub(t[1], t[0]), ms3.Sub(t[2], t[0]))
	l := ms3.Norm(n)
	if l == 0 {
		return ms3.Vec{}
	}
	return ms3.Scale(1/l, n)
}

func appendVec(b []byte, v ms3.Vec) []byte {
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v.X))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v.Y))
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(v.Z))
}

func readVec(b []byte) ms3.Vec {
	return ms3.Vec{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b)),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}
