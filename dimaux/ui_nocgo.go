//go:build tinygo || !cgo

package dimaux

import (
	"context"
	"errors"
)

// UI requires cgo for OpenGL and GLFW.
func UI(ctx context.Context, v *Viewer, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
