// Package config loads runtime settings from defaults, an optional YAML run
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go.ngs.io/gridprofiles/internal/adapter/hsds"
	"go.ngs.io/gridprofiles/internal/adapter/noaa"
	"go.ngs.io/gridprofiles/internal/adapter/powercurve"
)

// FileEnv names the YAML run file.
const FileEnv = "GRIDPROFILES_CONFIG"

// Output formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatBoth    = "both"
)

// Config holds runtime settings.
type Config struct {
	Port         string `yaml:"port"`
	PlantsCSV    string `yaml:"plants_csv"`
	OutputDir    string `yaml:"output_dir"`
	OutputFormat string `yaml:"output_format"`

	NOAABaseURL     string `yaml:"noaa_base_url"`
	NOAAFallbackURL string `yaml:"noaa_fallback_url"`

	NRELAPIKey   string `yaml:"nrel_api_key"`
	HSDSEndpoint string `yaml:"hsds_endpoint"`
	HSDSDomain   string `yaml:"hsds_domain"`

	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	ProgressEvery int           `yaml:"progress_every"`
	BoxMarginDeg  float64       `yaml:"box_margin_deg"`

	PowerCurveTurbineCSV string `yaml:"power_curve_turbine_csv"`
	PowerCurveStateCSV   string `yaml:"power_curve_state_csv"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:            "8080",
		PlantsCSV:       "./data/plant.csv",
		OutputDir:       "./output",
		OutputFormat:    FormatCSV,
		NOAABaseURL:     noaa.DefaultBaseURL,
		NOAAFallbackURL: noaa.DefaultFallbackURL,
		HSDSEndpoint:    hsds.DefaultEndpoint,
		HSDSDomain:      hsds.DefaultDomain,
		HTTPTimeout:     60 * time.Second,
		ProgressEvery:   24,
		BoxMarginDeg:    1.0,
	}
}

// Load reads .env (when present), the YAML file named by GRIDPROFILES_CONFIG
// and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: .env could not be loaded: %v", err)
	}

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	//nolint:gosec // G304: Path comes from the operator.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	strs := map[string]*string{
		"PORT":                    &c.Port,
		"PLANTS_CSV":              &c.PlantsCSV,
		"OUTPUT_DIR":              &c.OutputDir,
		"OUTPUT_FORMAT":           &c.OutputFormat,
		"NOAA_BASE_URL":           &c.NOAABaseURL,
		"NOAA_FALLBACK_URL":       &c.NOAAFallbackURL,
		"NREL_API_KEY":            &c.NRELAPIKey,
		"HSDS_ENDPOINT":           &c.HSDSEndpoint,
		"HSDS_DOMAIN":             &c.HSDSDomain,
		"POWER_CURVE_TURBINE_CSV": &c.PowerCurveTurbineCSV,
		"POWER_CURVE_STATE_CSV":   &c.PowerCurveStateCSV,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	if v := os.Getenv("PROGRESS_EVERY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PROGRESS_EVERY: %w", err)
		}
		c.ProgressEvery = n
	}
	if v := os.Getenv("BOX_MARGIN_DEG"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid BOX_MARGIN_DEG: %w", err)
		}
		c.BoxMarginDeg = f
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case FormatCSV, FormatParquet, FormatBoth:
	default:
		return fmt.Errorf("invalid output format %q (expected csv, parquet or both)", c.OutputFormat)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.ProgressEvery <= 0 {
		return fmt.Errorf("progress interval must be positive, got %d", c.ProgressEvery)
	}
	if c.BoxMarginDeg < 0 {
		return fmt.Errorf("box margin must not be negative, got %g", c.BoxMarginDeg)
	}
	return nil
}

// PowerCurves returns the evaluator for the configured tables. Unset paths
// use the embedded tables.
func (c *Config) PowerCurves() (*powercurve.Evaluator, error) {
	if c.PowerCurveTurbineCSV == "" && c.PowerCurveStateCSV == "" {
		return powercurve.Default()
	}

	embedded, err := powercurve.Default()
	if err != nil {
		return nil, err
	}
	turbine, state := embedded.Tables()
	if c.PowerCurveTurbineCSV != "" {
		if turbine, err = powercurve.LoadTableFile(c.PowerCurveTurbineCSV); err != nil {
			return nil, err
		}
	}
	if c.PowerCurveStateCSV != "" {
		if state, err = powercurve.LoadTableFile(c.PowerCurveStateCSV); err != nil {
			return nil, err
		}
	}
	return powercurve.NewEvaluator(turbine, state)
}
