package config

import "os"

// InitConfig writes a default config file to the default location,
// returning its path. If a file already exists there and force is
// false, InitConfig refuses to overwrite it.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", os.ErrExist
		}
	}

	cfg := GetDefaultConfig()
	if err := SaveConfig(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}
