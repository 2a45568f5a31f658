package persistence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mitigationengine/pkg/models"
)

// BootstrapFixture is the shape of an optional first-boot YAML fixture for
// the three catalogs, keyed the way the teacher's own rule files are: a flat
// list per concern, loaded once and then handed to the same Put/Load paths
// as any other persisted or POSTed catalog entry.
type BootstrapFixture struct {
	Conditions []models.Condition         `yaml:"conditions"`
	Graphs     []models.AttackGraph       `yaml:"graphs"`
	Workflows  []models.WorkflowSignature `yaml:"workflows"`
}

// LoadBootstrapFixture reads and parses a bootstrap YAML document. A file
// that cannot be read or parsed is returned as an error; callers only
// consult BootstrapYAML when it is non-empty.
func LoadBootstrapFixture(path string) (*BootstrapFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap fixture %s: %w", path, err)
	}
	var fixture BootstrapFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parse bootstrap fixture %s: %w", path, err)
	}
	return &fixture, nil
}
