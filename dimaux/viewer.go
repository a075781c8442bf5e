package dimaux

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/soypat/dimview/dataset"
	"github.com/soypat/dimview/scene"
	"github.com/soypat/dimview/tsne"
)

// Action is a viewer command bound to a key.
type Action uint8

const (
	_ Action = iota
	// ActionStep runs one embedding step (T).
	ActionStep
	// ActionStep10 runs ten embedding steps (Shift+T).
	ActionStep10
	// ActionExport exports the current embedding with its labels (K).
	ActionExport
	// ActionZoomIn shrinks the viewing volume and points by 10% (B).
	ActionZoomIn
	// ActionZoomOut grows the viewing volume and points by 10% (Shift+B).
	ActionZoomOut
)

// Viewer applies actions to a scene whose points follow an embedding.
// It holds no rendering state so it can be driven without a window.
type Viewer struct {
	Scene   *scene.Scene
	Engine  *tsne.Engine
	Dataset *dataset.Dataset
	// Export receives the dataset of the current embedding on ActionExport.
	Export func(*dataset.Dataset) error
	Logger *slog.Logger
}

// Do applies a.
func (v *Viewer) Do(a Action) error {
	switch a {
	case ActionStep:
		return v.step(1)
	case ActionStep10:
		return v.step(10)
	case ActionZoomIn:
		v.Scene.Rescale(0.9)
	case ActionZoomOut:
		v.Scene.Rescale(1.1)
	case ActionExport:
		if v.Export == nil {
			return errors.New("no export configured")
		}
		emb, err := v.Dataset.WithPoints(v.Engine.Solution())
		if err != nil {
			return err
		}
		return v.Export(emb)
	default:
		return fmt.Errorf("unknown action %d", a)
	}
	return nil
}

func (v *Viewer) step(n int) error {
	var cost float64
	if v.Engine.Iter() == 0 {
		// Let the scene observe the first step so it re-centers the camera.
		cost = v.Engine.Step()
		if err := v.Scene.SetPositions(v.Engine.Solution(), v.Engine.Iter()); err != nil {
			return err
		}
		n--
	}
	if n > 0 {
		cost = v.Engine.StepN(n)
		if err := v.Scene.SetPositions(v.Engine.Solution(), v.Engine.Iter()); err != nil {
			return err
		}
	}
	if v.Logger != nil {
		v.Logger.Info("embedding step", slog.Int("iter", v.Engine.Iter()), slog.Float64("cost", cost))
	}
	return nil
}
