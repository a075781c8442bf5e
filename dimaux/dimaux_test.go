package dimaux

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/dimview"
	"github.com/soypat/dimview/dataset"
	"github.com/soypat/dimview/glrender"
	"github.com/soypat/dimview/scene"
	"github.com/soypat/dimview/tsne"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "run.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
source = "data/iris.csv.gz"
delimiter = ";"

[tsne]
perplexity = 12.5
steps = 50

[marker]
shape = "Torus"

[labels]
a = 0
b = 1
`), 0o644))
	cfg, err := LoadConfig(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, "data/iris.csv.gz", cfg.Source)
	assert.Equal(t, 12.5, cfg.TSNE.Perplexity)
	assert.Equal(t, 50, cfg.TSNE.Steps)
	assert.Equal(t, 3, cfg.TSNE.Dim, "defaults kept")
	assert.Equal(t, dimview.KindTorus, cfg.Marker.Shape)
	dc := cfg.DatasetConfig()
	assert.Equal(t, "iris", dc.Name)
	assert.Equal(t, ';', dc.Delimiter)
	assert.Equal(t, dataset.LabelMap{"a": 0, "b": 1}, dc.Labels)

	yamlPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
experiment: nested
samples_per_axis: 8
marker:
  shape: helix
output:
  dir: out
  png: ""
log:
  level: debug
  json: true
`), 0o644))
	cfg, err = LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.SamplesPerAxis)
	assert.Equal(t, dimview.KindHelixTube, cfg.Marker.Shape)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Empty(t, cfg.Output.PNG)
	assert.Equal(t, "embedding.csv", cfg.Output.CSV)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "nested", cfg.DatasetConfig().Name)
	assert.Nil(t, cfg.DatasetConfig().Labels)

	passPath := filepath.Join(dir, "passthrough.yaml")
	require.NoError(t, os.WriteFile(passPath, []byte("labels: {}\n"), 0o644))
	cfg, err = LoadConfig(passPath)
	require.NoError(t, err)
	dc = cfg.DatasetConfig()
	require.NotNil(t, dc.Labels)
	records := [][]dataset.Value{{dataset.Num(1), dataset.Str("Iris-setosa")}}
	ds, err := dataset.New(records, dc)
	require.NoError(t, err)
	assert.Equal(t, []dataset.Value{dataset.Str("Iris-setosa")}, ds.Labels, "empty table disables mapping")

	for name, content := range map[string]string{
		"unknown.toml": "bogus = 1\n",
		"unknown.yaml": "bogus: 1\n",
		"shape.toml":   "[marker]\nshape = \"teapot\"\n",
		"run.json":     "{}",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err, name)
	}
	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Experiment = "cubes"
	cfg.SamplesPerAxis = 0
	cfg.Delimiter = ";;"
	cfg.TSNE.Steps = -1
	cfg.TSNE.Dim = 4
	cfg.Marker.Shape = 0
	cfg.Output.ImageSize = 0
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"experiment", "samples_per_axis", "delimiter", "steps", "dim", "shape", "image_size"} {
		assert.Contains(t, err.Error(), want)
	}

	cfg = DefaultConfig()
	cfg.TSNE.Dim = 0
	assert.NoError(t, cfg.Validate(), "zero dim selects the default")
	assert.Equal(t, 0, cfg.EngineConfig().Dim)
	cfg.TSNE.Dim = -1
	assert.ErrorContains(t, cfg.Validate(), "0 selects 2")

	// Synthetic parameters are not checked when reading a source.
	cfg = DefaultConfig()
	cfg.Source = "iris.csv"
	cfg.Experiment = ""
	assert.NoError(t, cfg.Validate())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "warn", false)
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "k=1")

	buf.Reset()
	log, err = newLogger(&buf, " DEBUG ", true)
	require.NoError(t, err)
	log.Debug("msg", "iter", 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "msg", rec["msg"])
	assert.EqualValues(t, 3, rec["iter"])

	_, err = newLogger(&buf, "loud", false)
	assert.Error(t, err)
}

func TestClassColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, A: 255}, ClassColor(dataset.Num(0)))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, ClassColor(dataset.Num(1)))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, ClassColor(dataset.Num(2)))
	assert.Equal(t, unclassified, ClassColor(dataset.Str("Iris-setosa")))
	assert.Equal(t, unclassified, ClassColor(dataset.Num(1.5)))
	assert.Equal(t, unclassified, ClassColor(dataset.Num(-1)))

	seen := map[color.RGBA]bool{}
	for class := 0; class < 16; class++ {
		c := ClassColor(dataset.Num(float64(class)))
		assert.Equal(t, uint8(255), c.A)
		assert.NotEqual(t, unclassified, c)
		assert.False(t, seen[c], "class %d repeats a color", class)
		seen[c] = true
	}
	v := ClassColorVec(dataset.Num(3))
	assert.InDelta(t, 1, v.X, 1e-6)
	assert.InDelta(t, 1, v.Y, 1e-6)
	assert.InDelta(t, 0, v.Z, 1e-6)
}

func testViewer(t *testing.T) *Viewer {
	t.Helper()
	ds, err := dataset.New(dataset.NestedSpheres(3), dataset.Config{})
	require.NoError(t, err)
	eng, err := tsne.New(ds.Points, tsne.Config{Perplexity: 5, Dim: 3, Seed: 1})
	require.NoError(t, err)
	var bld dimview.Builder
	return &Viewer{
		Scene:   scene.New(ds, bld.NewSphere(0)),
		Engine:  eng,
		Dataset: ds,
	}
}

func TestViewerActions(t *testing.T) {
	v := testViewer(t)
	v.Scene.Camera.Eye = ms3.Vec{X: 1, Y: 2, Z: 3}

	require.NoError(t, v.Do(ActionStep10))
	assert.Equal(t, 10, v.Engine.Iter())
	assert.Zero(t, v.Scene.Camera.Eye, "first step recenters camera")
	sol := v.Engine.Solution()
	for i, inst := range v.Scene.Instances {
		assert.Equal(t, dataset.Positions3(sol[i]), inst.Pos)
	}
	require.NoError(t, v.Do(ActionStep))
	assert.Equal(t, 11, v.Engine.Iter())

	extent, scale := v.Scene.Camera.Extent, v.Scene.Instances[0].Scale
	require.NoError(t, v.Do(ActionZoomIn))
	assert.InDelta(t, 0.9*extent, v.Scene.Camera.Extent, 1e-5)
	assert.InDelta(t, 0.9*scale, v.Scene.Instances[0].Scale, 1e-5)
	require.NoError(t, v.Do(ActionZoomOut))
	assert.InDelta(t, 0.99*extent, v.Scene.Camera.Extent, 1e-5)

	assert.Error(t, v.Do(ActionExport), "no export callback")
	var exported *dataset.Dataset
	v.Export = func(ds *dataset.Dataset) error {
		exported = ds
		return nil
	}
	require.NoError(t, v.Do(ActionExport))
	require.NotNil(t, exported)
	assert.Equal(t, v.Engine.Solution(), exported.Points)
	assert.Equal(t, v.Dataset.Labels, exported.Labels)

	assert.Error(t, v.Do(Action(200)))
}

func TestRunner(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.SamplesPerAxis = 4
	cfg.TSNE.Steps = 20
	cfg.TSNE.Seed = 7
	cfg.Output.Dir = dir
	cfg.Output.CSV = "emb.csv.gz"
	cfg.Output.ImageSize = 64
	require.NoError(t, cfg.Validate())
	var logs bytes.Buffer
	log, err := newLogger(&logs, "info", false)
	require.NoError(t, err)
	r := Runner{Config: cfg, Logger: log}
	require.NoError(t, r.Run(context.Background()))

	nrows := len(dataset.NestedSpheres(4))
	src := DefaultConfig()
	src.Source = filepath.Join(dir, "emb.csv.gz")
	emb, err := (&Runner{Config: src, Logger: log}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nrows, emb.Len())
	assert.Equal(t, 3, emb.Dim())
	assert.Equal(t, "emb", emb.Name)

	pf, err := os.Open(filepath.Join(dir, "embedding.png"))
	require.NoError(t, err)
	defer pf.Close()
	img, err := png.Decode(pf)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	sf, err := os.Open(filepath.Join(dir, "embedding.stl"))
	require.NoError(t, err)
	defer sf.Close()
	tris, err := glrender.ReadBinarySTL(sf)
	require.NoError(t, err)
	marker, err := r.Marker()
	require.NoError(t, err)
	assert.Equal(t, nrows*marker.TriangleCount(), len(tris))

	out := logs.String()
	assert.Contains(t, out, "loaded dataset")
	assert.Contains(t, out, "embedded dataset")
	assert.Equal(t, 3, strings.Count(out, "wrote output"))
}

func TestWriteOutputsInvalidMarker(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output.Dir = dir
	cfg.Marker.Shape = 0
	r := Runner{Config: cfg, Logger: nopLogger(t)}
	ds, err := dataset.New(dataset.NestedSpheres(2), dataset.Config{})
	require.NoError(t, err)
	eng, err := tsne.New(ds.Points, tsne.Config{Perplexity: 3, Dim: 3, Seed: 1})
	require.NoError(t, err)
	require.Error(t, r.WriteOutputs(context.Background(), ds, eng))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no output written when the marker is invalid")
}

func TestRunnerMissingSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = filepath.Join(t.TempDir(), "missing.csv")
	r := Runner{Config: cfg, Logger: nopLogger(t)}
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening source")
}

func TestOutputURI(t *testing.T) {
	assert.Equal(t, "a.csv", outputURI("", "a.csv"))
	assert.Equal(t, "out/a.csv", outputURI("out/", "a.csv"))
	assert.Equal(t, "s3://bucket/run/a.csv", outputURI("s3://bucket/run", "a.csv"))
	assert.Equal(t, "file:///x/a.csv", outputURI("out", "file:///x/a.csv"))
}

func nopLogger(t *testing.T) *slog.Logger {
	log, err := newLogger(io.Discard, "error", false)
	require.NoError(t, err)
	return log
}
