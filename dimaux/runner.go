package dimaux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"

	"github.com/soypat/dimview"
	"github.com/soypat/dimview/dataset"
	"github.com/soypat/dimview/datasrc"
	"github.com/soypat/dimview/glrender"
	"github.com/soypat/dimview/scene"
	"github.com/soypat/dimview/tsne"
	"golang.org/x/sync/errgroup"
)

// Runner loads a dataset, embeds it and writes the results as configured.
type Runner struct {
	Config Config
	// Logger receives progress. If nil slog.Default is used.
	Logger *slog.Logger
}

func (r *Runner) log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run loads, embeds and writes outputs. The viewer is opened afterwards if enabled.
func (r *Runner) Run(ctx context.Context) error {
	ds, err := r.Load(ctx)
	if err != nil {
		return err
	}
	eng, err := r.Embed(ds)
	if err != nil {
		return err
	}
	if err := r.WriteOutputs(ctx, ds, eng); err != nil {
		return err
	}
	if !r.Config.UI.Enable {
		return nil
	}
	marker, err := r.Marker()
	if err != nil {
		return err
	}
	sc := scene.New(ds, marker)
	if err := sc.SetPositions(eng.Solution(), eng.Iter()); err != nil {
		return err
	}
	return UI(ctx, &Viewer{
		Scene:   sc,
		Engine:  eng,
		Dataset: ds,
		Export: func(emb *dataset.Dataset) error {
			return r.writeCSV(ctx, emb)
		},
		Logger: r.log(),
	}, r.Config.UI)
}

// Load reads the configured source or synthesizes the configured experiment.
func (r *Runner) Load(ctx context.Context) (*dataset.Dataset, error) {
	cfg := &r.Config
	watch := stopwatch()
	dc := cfg.DatasetConfig()
	var ds *dataset.Dataset
	if cfg.Source != "" {
		rc, err := datasrc.Open(ctx, cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("opening source: %w", err)
		}
		defer rc.Close()
		ds, err = dataset.Load(rc, dc)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", cfg.Source, err)
		}
	} else {
		records, ok := dataset.Synthesize(cfg.Experiment, cfg.SamplesPerAxis)
		if !ok {
			return nil, fmt.Errorf("unknown experiment %q", cfg.Experiment)
		}
		var err error
		ds, err = dataset.New(records, dc)
		if err != nil {
			return nil, err
		}
	}
	r.log().Info("loaded dataset", slog.String("name", ds.Name), slog.Int("rows", ds.Len()),
		slog.Int("columns", ds.Dim()), slog.Float64("max_range", ds.Stats.MaxRange), slog.Duration("elapsed", watch()))
	return ds, nil
}

// Embed initializes an embedding of ds and runs the configured number of steps.
func (r *Runner) Embed(ds *dataset.Dataset) (*tsne.Engine, error) {
	watch := stopwatch()
	ec := r.Config.EngineConfig()
	ec.Logger = r.log()
	eng, err := tsne.New(ds.Points, ec)
	if err != nil {
		return nil, err
	}
	r.log().Info("initialized embedding", slog.Int("dim", eng.Dim()), slog.Duration("elapsed", watch()))
	if steps := r.Config.TSNE.Steps; steps > 0 {
		watch = stopwatch()
		cost := eng.StepN(steps)
		r.log().Info("embedded dataset", slog.Int("iter", eng.Iter()), slog.Float64("cost", cost), slog.Duration("elapsed", watch()))
	}
	return eng, nil
}

// Marker generates the mesh drawn at every point.
func (r *Runner) Marker() (dimview.Mesh, error) {
	bld := dimview.Builder{Logger: r.log()}
	cfg := r.Config.Marker
	if cfg.Shape == dimview.KindSphere {
		return bld.NewSphere(cfg.Iterations), nil
	}
	return bld.Generate(cfg.Shape)
}

// WriteOutputs writes the embedding as CSV with labels, a PNG scatter plot of
// its first two coordinates and an STL of the markers placed at every point.
// Outputs are written concurrently, empty output names are skipped.
func (r *Runner) WriteOutputs(ctx context.Context, ds *dataset.Dataset, eng *tsne.Engine) error {
	emb, err := ds.WithPoints(eng.Solution())
	if err != nil {
		return err
	}
	out := r.Config.Output
	var marker dimview.Mesh
	if out.STL != "" {
		// Resolved before any writer starts so a failure leaves no partial outputs.
		marker, err = r.Marker()
		if err != nil {
			return err
		}
	}
	g, ctx := errgroup.WithContext(ctx)
	if out.CSV != "" {
		g.Go(func() error { return r.writeCSV(ctx, emb) })
	}
	if out.PNG != "" {
		g.Go(func() error {
			caption := fmt.Sprintf("%s step:%d", emb.Name, eng.Iter())
			return r.writeOutput(ctx, out.PNG, func(w io.Writer) error {
				return writeScatterPNG(w, emb, out.ImageSize, caption)
			})
		})
	}
	if out.STL != "" {
		g.Go(func() error {
			sc := scene.New(emb, marker)
			return r.writeOutput(ctx, out.STL, func(w io.Writer) error {
				_, err := glrender.WriteBinarySTL(w, sc.Triangles(nil))
				return err
			})
		})
	}
	return g.Wait()
}

func (r *Runner) writeCSV(ctx context.Context, emb *dataset.Dataset) error {
	delim := r.Config.DatasetConfig().Delimiter
	return r.writeOutput(ctx, r.Config.Output.CSV, func(w io.Writer) error {
		return dataset.WriteCSV(w, emb, delim)
	})
}

func (r *Runner) writeOutput(ctx context.Context, name string, write func(io.Writer) error) (err error) {
	uri := outputURI(r.Config.Output.Dir, name)
	watch := stopwatch()
	wc, err := datasrc.Create(ctx, uri)
	if err != nil {
		return fmt.Errorf("creating %s: %w", uri, err)
	}
	if err = write(wc); err != nil {
		return errors.Join(fmt.Errorf("writing %s: %w", uri, err), wc.Close())
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", uri, err)
	}
	r.log().Info("wrote output", slog.String("uri", uri), slog.Duration("elapsed", watch()))
	return nil
}

func writeScatterPNG(w io.Writer, emb *dataset.Dataset, size int, caption string) error {
	sr, err := glrender.NewScatterRenderer(max(2, size/200), func(v dataset.Value) color.Color {
		return ClassColor(v)
	})
	if err != nil {
		return err
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	if err := sr.Render(img, emb.Points, emb.Labels, caption); err != nil {
		return err
	}
	return png.Encode(w, img)
}

// outputURI joins an output directory, which may be a URI, and a file name.
func outputURI(dir, name string) string {
	if dir == "" || strings.Contains(name, "://") {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}
