package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of a catalog definition.
type catalogFile struct {
	Categories []Category `yaml:"categories"`
}

// Parse decodes a YAML catalog definition and validates referential basics:
// non-empty ids, unique category and flow ids, and a capability on every step.
func Parse(data []byte) ([]Category, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seenCat := map[string]bool{}
	for _, c := range file.Categories {
		if c.ID == "" {
			return nil, fmt.Errorf("parse catalog: category with empty id")
		}
		if seenCat[c.ID] {
			return nil, fmt.Errorf("parse catalog: duplicate category id %q", c.ID)
		}
		seenCat[c.ID] = true
		seenFlow := map[string]bool{}
		for _, f := range c.Flows {
			if f.ID == "" {
				return nil, fmt.Errorf("parse catalog: flow with empty id in category %q", c.ID)
			}
			if seenFlow[f.ID] {
				return nil, fmt.Errorf("parse catalog: duplicate flow id %q in category %q", f.ID, c.ID)
			}
			seenFlow[f.ID] = true
			for i, s := range f.Steps {
				if s.Capability == "" {
					return nil, fmt.Errorf("parse catalog: flow %q step %d has no capability", f.ID, i)
				}
				if s.Branch != nil && (*s.Branch < 0 || *s.Branch > len(f.Steps)) {
					return nil, fmt.Errorf("parse catalog: flow %q step %d branch target %d out of range", f.ID, i, *s.Branch)
				}
			}
		}
	}
	return file.Categories, nil
}

// LoadFile reads and parses a YAML catalog file.
func LoadFile(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}
