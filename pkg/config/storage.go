package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
)

// SaveToFile writes the configuration as JSON when path ends in .json and
// as YAML otherwise
func SaveToFile(configuration *DeviceConfig, path string) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(configuration, "", "  ")
	} else {
		data, err = yaml.Marshal(configuration)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadFromFile reads a YAML or JSON configuration and validates it
func LoadFromFile(path string) (*DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	configuration := Default("")
	if err := yaml.Unmarshal(data, configuration); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := configuration.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}

	return configuration, nil
}

func GetConfigPath(serial string) string {
	return filepath.Join("etc", "dtv", fmt.Sprintf("%s.yaml", serial))
}
