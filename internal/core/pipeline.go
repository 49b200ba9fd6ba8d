package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Pipeline is a named, ordered list of steps. It is built once from
// configuration and never mutated afterwards.
type Pipeline struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// ConfigError marks a malformed pipeline definition. It is raised before
// any process is spawned and is distinct from a step failing at runtime.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "pipeline config: " + e.Reason
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err (or anything it wraps) is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Validate checks the pipeline definition before execution.
func (p *Pipeline) Validate() error {
	if p.Name == "" {
		return configErrorf("pipeline has no name")
	}
	seen := make(map[string]bool, len(p.Steps))
	for i, step := range p.Steps {
		if step.Command == "" {
			return configErrorf("pipeline %q: step %d (%q) has no command", p.Name, i, step.Name)
		}
		if step.Name == "" {
			return configErrorf("pipeline %q: step %d has no name", p.Name, i)
		}
		if seen[step.Name] {
			return configErrorf("pipeline %q: duplicate step name %q", p.Name, step.Name)
		}
		seen[step.Name] = true
	}
	return nil
}

// Config is the full set of named pipelines available for selection.
type Config struct {
	Pipelines []Pipeline `yaml:"pipelines"`
}

// Validate checks every pipeline and rejects duplicate pipeline names.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Pipelines))
	for i := range c.Pipelines {
		p := &c.Pipelines[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return configErrorf("duplicate pipeline name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Lookup returns the pipeline with the given name.
func (c *Config) Lookup(name string) (*Pipeline, error) {
	for i := range c.Pipelines {
		if c.Pipelines[i].Name == name {
			return &c.Pipelines[i], nil
		}
	}
	return nil, configErrorf("unknown pipeline %q", name)
}

// Names lists pipeline names in declaration order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Pipelines))
	for i := range c.Pipelines {
		names = append(names, c.Pipelines[i].Name)
	}
	return names
}
