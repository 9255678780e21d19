package platform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the schema of a platforms.yaml file.
type File struct {
	Platforms []*Platform `yaml:"platforms"`
}

// Parse decodes and validates platform definitions.
func Parse(data []byte) ([]*Platform, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing platforms: %w", err)
	}
	for _, p := range f.Platforms {
		if err := p.compile(); err != nil {
			return nil, err
		}
	}
	return f.Platforms, nil
}

// LoadFile reads platform definitions from path. A missing file yields no
// platforms and no error.
func LoadFile(path string) ([]*Platform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	platforms, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return platforms, nil
}
