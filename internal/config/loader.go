package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvKeyConfigPath is the environment variable naming the settings file.
const EnvKeyConfigPath = "CONFIG_PATH"

// Load reads a YAML settings file and expands environment variables.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var s Settings
	if err := yaml.Unmarshal([]byte(expanded), &s); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &s, nil
}

// LoadAndValidate loads settings, applies defaults, and validates.
// An empty path yields the defaults.
func LoadAndValidate(path string) (*Settings, error) {
	s := &Settings{}
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		s = loaded
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return s, nil
}

// LoadFromEnv loads the file named by CONFIG_PATH, or the defaults when unset.
func LoadFromEnv() (*Settings, error) {
	return LoadAndValidate(os.Getenv(EnvKeyConfigPath))
}
