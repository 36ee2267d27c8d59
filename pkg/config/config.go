package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samjwillis97/GoModal/pkg/analysis"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/modal"
	"github.com/samjwillis97/GoModal/pkg/sonogram"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	LogFile      string `mapstructure:"log_file"`
	OutputFormat string `mapstructure:"output_format"`
	Workspace    string `mapstructure:"workspace"`

	TEMA     TEMAConfig     `mapstructure:"tema"`
	RFP      RFPConfig      `mapstructure:"rfp"`
	Sonogram SonogramConfig `mapstructure:"sonogram"`
}

// TEMAConfig contains the per peak extractor settings
type TEMAConfig struct {
	MaxTan     float64 `mapstructure:"max_tan"`
	EdgeMargin int     `mapstructure:"edge_margin"`
}

// RFPConfig contains the global curve fit settings
type RFPConfig struct {
	MaxIter int     `mapstructure:"max_iter"`
	Tol     float64 `mapstructure:"tol"`
}

// SonogramConfig contains the short time spectrum settings
type SonogramConfig struct {
	Window string `mapstructure:"window"`
	Width  int    `mapstructure:"width"`
	Hop    int    `mapstructure:"hop"`
	Plot   string `mapstructure:"plot"`
}

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var knownKeys = map[string]bool{
	"verbose":          true,
	"log_level":        true,
	"log_file":         true,
	"output_format":    true,
	"workspace":        true,
	"config":           true,
	"tema.max_tan":     true,
	"tema.edge_margin": true,
	"rfp.max_iter":     true,
	"rfp.tol":          true,
	"sonogram.window":  true,
	"sonogram.width":   true,
	"sonogram.hop":     true,
	"sonogram.plot":    true,
}

// New returns a viper instance holding the defaults.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	if err := checkKeys(v); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkKeys(v *viper.Viper) error {
	var unknown []string
	for _, k := range v.AllKeys() {
		if !knownKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return failure.New(failure.UnknownKey, "config.Load", "%s", strings.Join(unknown, ", "))
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	const op = "config.Validate"
	if !(cfg.TEMA.MaxTan > 0) {
		return failure.New(failure.DomainReject, op, "tema.max_tan must be positive")
	}
	if cfg.TEMA.EdgeMargin < 1 {
		return failure.New(failure.DomainReject, op, "tema.edge_margin must be at least 1")
	}
	if cfg.RFP.MaxIter < 1 {
		return failure.New(failure.DomainReject, op, "rfp.max_iter must be at least 1")
	}
	if !(cfg.RFP.Tol > 0) {
		return failure.New(failure.DomainReject, op, "rfp.tol must be positive")
	}
	if _, err := analysis.Window(cfg.Sonogram.Window); err != nil {
		return err
	}
	if _, err := sonogram.ParsePlotType(cfg.Sonogram.Plot); err != nil {
		return err
	}
	if cfg.Sonogram.Width < 2 {
		return failure.New(failure.DomainReject, op, "sonogram.width must be at least 2")
	}
	if cfg.Sonogram.Hop < 1 || cfg.Sonogram.Hop > cfg.Sonogram.Width {
		return failure.New(failure.DomainReject, op, "sonogram.hop must be within [1, width]")
	}
	switch cfg.OutputFormat {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return failure.New(failure.UnknownKey, op, "output format %q", cfg.OutputFormat)
	}
	return nil
}

// TEMAOptions returns the extractor options.
func (c *Config) TEMAOptions() modal.TEMAOptions {
	return modal.TEMAOptions{MaxTan: c.TEMA.MaxTan, EdgeMargin: c.TEMA.EdgeMargin}
}

// RFPOptions returns the curve fit options.
func (c *Config) RFPOptions() modal.RFPOptions {
	return modal.RFPOptions{MaxIter: c.RFP.MaxIter, Tol: c.RFP.Tol}
}

// SonogramOptions returns the sonogram options.
func (c *Config) SonogramOptions() (sonogram.Options, error) {
	plot, err := sonogram.ParsePlotType(c.Sonogram.Plot)
	if err != nil {
		return sonogram.Options{}, err
	}
	return sonogram.Options{
		Width:  c.Sonogram.Width,
		Hop:    c.Sonogram.Hop,
		Window: c.Sonogram.Window,
		Plot:   plot,
	}, nil
}
