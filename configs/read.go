package configs

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ReadTo loads a JSON config file into config. Missing file or bad
// content is fatal: a half-configured process is worse than none.
func ReadTo(configFile string, config interface{}) {
	viper.SetConfigFile(configFile)
	viper.AddConfigPath(".")
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if err := viper.Unmarshal(config); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error parsing config file: %s\n", err)
		os.Exit(1)
	}
}
