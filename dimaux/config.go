// Package dimaux wires datasets, embeddings and meshes into a runnable pipeline
// with configuration loading, logging setup and an interactive viewer.
package dimaux

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/dimview"
	"github.com/soypat/dimview/dataset"
	"github.com/soypat/dimview/tsne"
	"gopkg.in/yaml.v3"
)

// Config configures a [Runner]. The zero value is not valid, start from [DefaultConfig].
type Config struct {
	// Source is the dataset URI, see datasrc.ParseLocation. Empty selects Experiment.
	Source string `toml:"source" yaml:"source"`
	// Experiment names the synthetic dataset used when Source is empty.
	Experiment string `toml:"experiment" yaml:"experiment"`
	// SamplesPerAxis is the angular resolution of synthetic datasets.
	SamplesPerAxis int `toml:"samples_per_axis" yaml:"samples_per_axis"`
	// Delimiter separates fields of the source. Must be a single character.
	Delimiter string `toml:"delimiter" yaml:"delimiter"`
	// Labels maps text labels to classes. Absent selects the Iris species mapping,
	// an empty table disables mapping so labels pass through unchanged.
	Labels map[string]int `toml:"labels" yaml:"labels"`

	TSNE   TSNEConfig   `toml:"tsne" yaml:"tsne"`
	Marker MarkerConfig `toml:"marker" yaml:"marker"`
	Output OutputConfig `toml:"output" yaml:"output"`
	Log    LogConfig    `toml:"log" yaml:"log"`
	UI     UIConfig     `toml:"ui" yaml:"ui"`
}

type TSNEConfig struct {
	LearningRate float64 `toml:"learning_rate" yaml:"learning_rate"`
	Perplexity   float64 `toml:"perplexity" yaml:"perplexity"`
	// Dim is the embedding dimensionality in [0,3]. Zero selects 2.
	Dim          int     `toml:"dim" yaml:"dim"`
	Seed         uint64  `toml:"seed" yaml:"seed"`
	// Steps is the number of iterations run before writing outputs.
	Steps int `toml:"steps" yaml:"steps"`
}

// MarkerConfig selects the mesh drawn at every point.
type MarkerConfig struct {
	Shape dimview.Kind `toml:"shape" yaml:"shape"`
	// Iterations is the subdivision depth of sphere markers.
	Iterations int `toml:"iterations" yaml:"iterations"`
}

// OutputConfig names the files written by [Runner.WriteOutputs]. Empty names are skipped.
// Names are relative to Dir, which may be any location accepted by datasrc.
type OutputConfig struct {
	Dir       string `toml:"dir" yaml:"dir"`
	CSV       string `toml:"csv" yaml:"csv"`
	PNG       string `toml:"png" yaml:"png"`
	STL       string `toml:"stl" yaml:"stl"`
	ImageSize int    `toml:"image_size" yaml:"image_size"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

type UIConfig struct {
	Enable bool `toml:"enable" yaml:"enable"`
	Width  int  `toml:"width" yaml:"width"`
	Height int  `toml:"height" yaml:"height"`
}

// DefaultConfig returns the configuration of the reference scene: two nested
// spheres embedded in 3 dimensions.
func DefaultConfig() Config {
	return Config{
		Experiment:     dataset.ExperimentNested,
		SamplesPerAxis: 16,
		Delimiter:      ",",
		TSNE: TSNEConfig{
			LearningRate: 5,
			Perplexity:   5,
			Dim:          3,
			Steps:        200,
		},
		Marker: MarkerConfig{Shape: dimview.KindSphere, Iterations: 1},
		Output: OutputConfig{
			CSV:       "embedding.csv",
			PNG:       "embedding.png",
			STL:       "embedding.stl",
			ImageSize: 800,
		},
		Log: LogConfig{Level: "info"},
		UI:  UIConfig{Width: 800, Height: 800},
	}
}

// LoadConfig decodes the TOML or YAML file at path, chosen by extension, over [DefaultConfig].
// Unknown fields are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("decoding %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the configuration can be run.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Source == "" {
		if _, ok := dataset.Synthesize(cfg.Experiment, 1); !ok {
			errs = append(errs, fmt.Errorf("unknown experiment %q", cfg.Experiment))
		}
		if cfg.SamplesPerAxis < 1 {
			errs = append(errs, errors.New("samples_per_axis must be positive"))
		}
	}
	if utf8.RuneCountInString(cfg.Delimiter) > 1 {
		errs = append(errs, fmt.Errorf("delimiter %q must be a single character", cfg.Delimiter))
	}
	if cfg.TSNE.Steps < 0 {
		errs = append(errs, errors.New("negative tsne steps"))
	}
	if cfg.TSNE.Dim < 0 || cfg.TSNE.Dim > 3 {
		errs = append(errs, fmt.Errorf("tsne dim %d out of range [0,3], 0 selects 2", cfg.TSNE.Dim))
	}
	if !cfg.Marker.Shape.IsValid() {
		errs = append(errs, errors.New("invalid marker shape"))
	}
	if cfg.Output.PNG != "" && cfg.Output.ImageSize <= 0 {
		errs = append(errs, errors.New("image_size must be positive"))
	}
	return errors.Join(errs...)
}

// DatasetConfig returns the ingest configuration.
func (cfg *Config) DatasetConfig() dataset.Config {
	dc := dataset.Config{Name: cfg.Experiment}
	if cfg.Source != "" {
		dc.Name = datasetName(cfg.Source)
	}
	if r, _ := utf8.DecodeRuneInString(cfg.Delimiter); r != utf8.RuneError {
		dc.Delimiter = r
	}
	if cfg.Labels != nil {
		dc.Labels = cfg.Labels
	}
	return dc
}

// EngineConfig returns the embedding engine configuration.
func (cfg *Config) EngineConfig() tsne.Config {
	return tsne.Config{
		LearningRate: cfg.TSNE.LearningRate,
		Perplexity:   cfg.TSNE.Perplexity,
		Dim:          cfg.TSNE.Dim,
		Seed:         cfg.TSNE.Seed,
	}
}

// datasetName returns the base name of a source without extensions, i.e: "s3://b/iris.csv.gz" -> "iris".
func datasetName(uri string) string {
	base := uri[strings.LastIndexByte(uri, '/')+1:]
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
