package testcase

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suite is a test suite file: an optional language plus its cases.
type Suite struct {
	Language string `yaml:"language"`
	Cases    []Case `yaml:"cases"`
}

// LoadSuite reads a test suite from a YAML file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite %s: %w", path, err)
	}
	return ParseSuite(data)
}

// ParseSuite decodes and validates a YAML test suite.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing suite: %w", err)
	}
	if err := Validate(s.Cases); err != nil {
		return nil, fmt.Errorf("parsing suite: %w", err)
	}
	return &s, nil
}
