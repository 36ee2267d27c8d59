package config

import (
	"github.com/spf13/viper"
)

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	// Application defaults
	v.SetDefault("verbose", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("output_format", FormatTable)

	// Peak extraction
	v.SetDefault("tema.max_tan", 1e6)
	v.SetDefault("tema.edge_margin", 3)

	// Global fit
	v.SetDefault("rfp.max_iter", 200)
	v.SetDefault("rfp.tol", 1e-8)

	// Sonogram
	v.SetDefault("sonogram.window", "hann")
	v.SetDefault("sonogram.width", 256)
	v.SetDefault("sonogram.hop", 32)
	v.SetDefault("sonogram.plot", "colourmap")
}
