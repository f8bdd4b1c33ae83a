package config

import (
	"os"
	"path/filepath"
)

// Init loads app.yml from the directory named by FLASHDECK_CONFIG_DIR,
// defaulting to the working directory. Without an app.yml the configuration
// comes from defaults and the environment alone.
func Init() (*Config, error) {
	dir := os.Getenv(envPrefix + "_CONFIG_DIR")
	if dir == "" {
		dir = "."
	}

	path := filepath.Join(dir, "app.yml")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return LoadConfig("")
		}
		return nil, err
	}
	return LoadConfig(path)
}
