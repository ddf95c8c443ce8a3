// Package projectconfig provides the ProjectConfig struct and loader for
// .faeval.yaml project-level configuration files.
package projectconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the project configuration file looked up from the
// working directory.
const ConfigFileName = ".faeval.yaml"

// Default values for project configuration. These are the single source of
// truth: New() references them and no other code should duplicate them.
const (
	DefaultDataPath = "../Who&When/Algorithm-Generated"

	DefaultMatch = "contains"

	DefaultConfidence = 0.0
	DefaultSeed       = int64(-1)

	DefaultFormat = "text"
)

// maxWalkUp bounds how many parent directories are searched for the config file.
const maxWalkUp = 10

// PathsConfig holds input locations.
type PathsConfig struct {
	Data string `yaml:"data,omitempty" validate:"required"`
}

// ScoringConfig holds comparison settings.
type ScoringConfig struct {
	Match string `yaml:"match,omitempty" validate:"oneof=contains exact"`
}

// StatisticsConfig holds confidence interval settings. A zero confidence
// disables intervals.
type StatisticsConfig struct {
	Confidence float64 `yaml:"confidence,omitempty" validate:"gte=0,lt=1"`
	Seed       *int64  `yaml:"seed,omitempty"`
}

// ReportConfig holds output settings.
type ReportConfig struct {
	Format string `yaml:"format,omitempty" validate:"oneof=text markdown json"`
	Strict *bool  `yaml:"strict,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .faeval.yaml.
type ProjectConfig struct {
	Paths      PathsConfig      `yaml:"paths,omitempty"`
	Scoring    ScoringConfig    `yaml:"scoring,omitempty"`
	Statistics StatisticsConfig `yaml:"statistics,omitempty"`
	Report     ReportConfig     `yaml:"report,omitempty"`
}

// envOverrides lists the settings that may come from the environment.
// Empty or zero values leave the file configuration untouched.
type envOverrides struct {
	DataPath   string  `env:"FAEVAL_DATA_PATH"`
	Match      string  `env:"FAEVAL_MATCH"`
	Confidence float64 `env:"FAEVAL_CONFIDENCE"`
	Format     string  `env:"FAEVAL_FORMAT"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	seed := DefaultSeed
	return &ProjectConfig{
		Paths: PathsConfig{
			Data: DefaultDataPath,
		},
		Scoring: ScoringConfig{
			Match: DefaultMatch,
		},
		Statistics: StatisticsConfig{
			Confidence: DefaultConfidence,
			Seed:       &seed,
		},
		Report: ReportConfig{
			Format: DefaultFormat,
			Strict: boolPtr(false),
		},
	}
}

// Load finds .faeval.yaml by walking up from startDir, merges it onto the
// defaults, applies FAEVAL_* environment overrides and validates the result.
// If no config file is found the defaults are used. Real I/O errors (e.g.
// permission denied) are returned to the caller.
func Load(ctx context.Context, fsys afero.Fs, startDir string) (*ProjectConfig, error) {
	return LoadWithLookuper(ctx, fsys, startDir, envconfig.OsLookuper())
}

// LoadWithLookuper is Load with the environment supplied by lookuper.
func LoadWithLookuper(ctx context.Context, fsys afero.Fs, startDir string, lookuper envconfig.Lookuper) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(fsys, startDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// no file found → defaults
	case err != nil:
		return nil, fmt.Errorf("loading %s: %w", ConfigFileName, err)
	default:
		var fileCfg ProjectConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
		}
		mergeConfig(cfg, &fileCfg)
	}

	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &env, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	applyEnv(cfg, &env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *ProjectConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// findConfigFile walks up from dir looking for .faeval.yaml. Returns
// os.ErrNotExist if no config file is found.
func findConfigFile(fsys afero.Fs, dir string) ([]byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < maxWalkUp; i++ {
		p := filepath.Join(dir, ConfigFileName)
		data, err := afero.ReadFile(fsys, p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Paths.Data != "" {
		dst.Paths.Data = src.Paths.Data
	}
	if src.Scoring.Match != "" {
		dst.Scoring.Match = src.Scoring.Match
	}
	if src.Statistics.Confidence != 0 {
		dst.Statistics.Confidence = src.Statistics.Confidence
	}
	if src.Statistics.Seed != nil {
		dst.Statistics.Seed = src.Statistics.Seed
	}
	if src.Report.Format != "" {
		dst.Report.Format = src.Report.Format
	}
	if src.Report.Strict != nil {
		dst.Report.Strict = src.Report.Strict
	}
}

func applyEnv(dst *ProjectConfig, env *envOverrides) {
	if env.DataPath != "" {
		dst.Paths.Data = env.DataPath
	}
	if env.Match != "" {
		dst.Scoring.Match = env.Match
	}
	if env.Confidence != 0 {
		dst.Statistics.Confidence = env.Confidence
	}
	if env.Format != "" {
		dst.Report.Format = env.Format
	}
}

func boolPtr(b bool) *bool {
	return &b
}
