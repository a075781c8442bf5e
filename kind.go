package dimview

import (
	"fmt"
	"strings"
)

// Kind enumerates the closed set of shapes the package can generate.
type Kind uint8

const (
	kindUndefined Kind = iota
	KindSphere
	KindTorus
	KindCylinder
	KindConeTree
	KindHelixTube
	KindBowtie
	kindEnd
)

var kindNames = [...]string{
	kindUndefined: "undefined",
	KindSphere:    "sphere",
	KindTorus:     "torus",
	KindCylinder:  "cylinder",
	KindConeTree:  "conetree",
	KindHelixTube: "helix",
	KindBowtie:    "bowtie",
}

// Kinds returns all valid shape kinds in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindEnd-1)
	for k := kindUndefined + 1; k < kindEnd; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) String() string {
	if k >= kindEnd {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// IsValid reports whether k names a generatable shape.
func (k Kind) IsValid() bool { return k > kindUndefined && k < kindEnd }

// MarshalText implements [encoding.TextMarshaler].
func (k Kind) MarshalText() ([]byte, error) {
	if !k.IsValid() {
		return nil, fmt.Errorf("invalid shape kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler]. Matching is case insensitive.
func (k *Kind) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i := kindUndefined + 1; i < kindEnd; i++ {
		if kindNames[i] == s {
			*k = i
			return nil
		}
	}
	return fmt.Errorf("unknown shape kind %q", text)
}

// Shape is implemented by the parameter sets of every generatable solid.
type Shape interface {
	// Kind returns the shape's kind.
	Kind() Kind
	// Generate synthesizes the shape's mesh. Generation never fails, parameters
	// out of the supported range are clamped and reported to bld.
	Generate(bld *Builder) Mesh
}

var (
	_ Shape = Sphere{}
	_ Shape = Torus{}
	_ Shape = Cylinder{}
	_ Shape = ConeTree{}
	_ Shape = HelixTube{}
	_ Shape = Bowtie{}
)

// DefaultShape returns the shape of the given kind with the parameters used in
// the reference scenes.
func DefaultShape(kind Kind) (Shape, error) {
	switch kind {
	case KindSphere:
		return Sphere{Iterations: 3, Radius: 1}, nil
	case KindTorus:
		return Torus{MinorRadius: 0.3, MajorRadius: 0.5, N: 16, M: 24, TexCoords: true, TexRepeat: 8, TexPhase: 0.25}, nil
	case KindCylinder:
		return Cylinder{Radius: 1, HalfHeight: 1, N: 32, M: 32}, nil
	case KindConeTree:
		return ConeTree{}, nil
	case KindHelixTube:
		return HelixTube{}, nil
	case KindBowtie:
		return Bowtie{}, nil
	}
	return nil, fmt.Errorf("no shape for kind %s", kind)
}
