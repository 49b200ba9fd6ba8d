package core

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseConfig parses YAML content into a validated Config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, configErrorf("parse yaml: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads a pipelines file and returns a validated Config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read pipelines file")
	}
	return ParseConfig(data)
}

// BuiltinConfig is the gate shipped in the binary, used when no pipelines
// file is given: format and lint first, then the test suite under each
// feature configuration. Every step is required, so the first failure
// stops the run before the slower test steps.
func BuiltinConfig() *Config {
	return &Config{
		Pipelines: []Pipeline{
			{
				Name: "check",
				Steps: []Step{
					{Name: "format check", Command: "cargo", Args: []string{"fmt", "--all", "--", "--check"}, Required: true},
					{Name: "lint", Command: "cargo", Args: []string{"clippy", "--all-targets", "--all-features", "--", "-D", "warnings"}, Required: true},
					{Name: "test: default features", Command: "cargo", Args: []string{"test"}, Required: true},
					{Name: "test: all features", Command: "cargo", Args: []string{"test", "--all-features"}, Required: true},
					{Name: "test: no default features", Command: "cargo", Args: []string{"test", "--no-default-features"}, Required: true},
					{Name: "test: codec feature", Command: "cargo", Args: []string{"test", "--no-default-features", "--features", "parity-scale-codec"}, Required: true},
				},
			},
		},
	}
}
