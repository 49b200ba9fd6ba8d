package core

import "gopkg.in/yaml.v3"

// Step is a single verification action: one external command to run.
type Step struct {
	Name     string   `yaml:"name"`     // label shown in reports (e.g. "format check")
	Command  string   `yaml:"command"`  // executable name
	Args     []string `yaml:"args"`     // ordered arguments
	Dir      string   `yaml:"dir"`      // working directory, empty = inherit
	Required bool     `yaml:"required"` // failure aborts the pipeline when true
}

// UnmarshalYAML defaults required to true so configs only need to mark
// the optional steps.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type rawStep Step
	raw := rawStep{Required: true}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*s = Step(raw)
	return nil
}
