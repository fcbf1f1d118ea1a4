package maplejuice

import (
	"github.com/spf13/viper"
)

func loadConfig() {
	viper.SetConfigName("maplejuicerc")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.maplejuice")

	setupDefaults()

	viper.ReadInConfig()

	viper.SetEnvPrefix("maplejuice")
	viper.AutomaticEnv()
}

func setupDefaults() {
	defaultSettings := map[string]interface{}{
		"kind":               "maple_unit",
		"inputfile":          "",
		"query":              "",
		"pattern":            "Video,Radio",
		"column":             "",
		"indicator_column":   DefaultIndicatorColumn,
		"strict":             false, // Fail on malformed lines instead of truncating
		"verbose":            false,
		"cleanup":            true, // Remove intermediate query files after the juice stage
		"max_concurrency":    8,    // Maximum number of inputs processed at once
		"working_location":   "",   // Empty means write to stdout
		"pattern_cache_size": defaultPatternCacheSize,
	}
	for key, value := range defaultSettings {
		viper.SetDefault(key, value)
	}

	aliases := map[string]string{
		"verbose":          "v",
		"working_location": "o",
	}
	for key, alias := range aliases {
		viper.RegisterAlias(alias, key)
	}
}
