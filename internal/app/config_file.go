package app

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the optional YAML configuration file. Nested
// sections map naturally to the flag names.
type FileConfig struct {
	API struct {
		Key  string `yaml:"key"`
		Base string `yaml:"base"`
	} `yaml:"api"`

	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`

	Listen string `yaml:"listen"`

	Rate struct {
		RPS float64 `yaml:"rps"`
	} `yaml:"rate"`

	Verbose bool `yaml:"verbose"`
}

// LoadFileConfig reads and parses a YAML config file.
func LoadFileConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// Apply fills empty Config fields from the file. Flags and environment take
// precedence; the file only supplies what they left unset.
func (fc *FileConfig) Apply(cfg *Config) {
	if cfg.APIKey == "" {
		cfg.APIKey = fc.API.Key
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fc.API.Base
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = fc.Output.Dir
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fc.Listen
	}
	if cfg.RateRPS == 0 {
		cfg.RateRPS = fc.Rate.RPS
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}
