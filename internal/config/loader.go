package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitediff.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Load resolves and parses the site configuration. An explicitly given
// path must exist. With an empty path the default file name is searched
// in the working directory and then the home directory; a miss in both
// yields an empty configuration, not an error.
func Load(path string) (*File, error) {
	if path != "" {
		cf, err := LoadConfigFile(path)
		if errors.Is(err, ErrConfigNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cf, err
	}

	for _, dir := range searchDirs() {
		cf, err := LoadConfigFile(filepath.Join(dir, DefaultConfigFile))
		if errors.Is(err, ErrConfigNotFound) {
			continue
		}
		return cf, err
	}
	return &File{Sites: make(map[string]SiteConfig)}, nil
}

// LoadConfigFile parses one YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// searchDirs lists the directories probed for DefaultConfigFile, in
// search order.
func searchDirs() []string {
	dirs := make([]string, 0, 2)
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return dirs
}
