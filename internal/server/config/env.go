package config

import (
	"github.com/ilyakaznacheev/cleanenv"
)

// parseEnv overlays variables named by the env tags. Unset variables leave
// fields untouched.
func parseEnv(config *Config) {
	if err := cleanenv.ReadEnv(config); err != nil {
		panic(err)
	}
}
