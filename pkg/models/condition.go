package models

import "encoding/json"

// ArgSpec declares how a condition or workflow argument is resolved from an
// alert's data map: a single field name, or a list denoting any-one-of.
type ArgSpec struct {
	Names []string
}

// UnmarshalYAML accepts either a scalar field name or a list of field names.
func (a *ArgSpec) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		a.Names = []string{single}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	a.Names = list
	return nil
}

// MarshalYAML renders a single-element spec as a scalar for round-trip
// fidelity, and multi-element specs as a list.
func (a ArgSpec) MarshalYAML() (interface{}, error) {
	if len(a.Names) == 1 {
		return a.Names[0], nil
	}
	return a.Names, nil
}

// UnmarshalJSON accepts either a scalar field name or a list of field names,
// matching UnmarshalYAML's shape for the persisted catalog documents and the
// HTTP CRUD API, both of which carry ArgSpec through encoding/json rather
// than yaml.v3.
func (a *ArgSpec) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		a.Names = []string{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	a.Names = list
	return nil
}

// MarshalJSON renders a single-element spec as a scalar for round-trip
// fidelity, and multi-element specs as a list, mirroring MarshalYAML.
func (a ArgSpec) MarshalJSON() ([]byte, error) {
	if len(a.Names) == 1 {
		return json.Marshal(a.Names[0])
	}
	return json.Marshal(a.Names)
}

// Condition is a stored predicate gating graph-node advancement or workflow
// applicability.
type Condition struct {
	ID          string             `json:"id" yaml:"id"`
	Description string             `json:"description" yaml:"description"`
	Params      map[string]Scalar  `json:"params" yaml:"params"`
	Args        map[string]ArgSpec `json:"args" yaml:"args"`
	Check       string             `json:"check" yaml:"check"`
}
