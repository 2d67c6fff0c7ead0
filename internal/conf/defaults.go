package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets viper defaults for every configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "archaeotools-cms")
	viper.SetDefault("main.log.level", "info")
	viper.SetDefault("main.log.path", "logs")

	viper.SetDefault("api.baseurl", "http://localhost:3000")
	viper.SetDefault("api.storagebaseurl", "")
	viper.SetDefault("api.timeout", 30*time.Second)
	viper.SetDefault("api.retrymax", 3)
	viper.SetDefault("api.retrybackoff", 1*time.Second)

	viper.SetDefault("session.path", defaultSessionPath())

	viper.SetDefault("import.projectname", "Demo Dataset")
	viper.SetDefault("import.placedelay", 150*time.Millisecond)
	viper.SetDefault("import.photodelay", 250*time.Millisecond)
	viper.SetDefault("import.deletedelay", 200*time.Millisecond)
	viper.SetDefault("import.retryattempts", 3)
	viper.SetDefault("import.retrybackoff", 2*time.Second)
	viper.SetDefault("import.maxfileplaces", 1000)
}
