package models

import (
	"regexp"
	"sort"
	"time"
)

// mitreIDPattern matches MITRE ATT&CK technique identifiers of the form
// T####[.###].
var mitreIDPattern = regexp.MustCompile(`^T\d{4}(\.\d{3})?$`)

// IsValidTechniqueID reports whether s has the shape of a MITRE technique ID.
func IsValidTechniqueID(s string) bool {
	return mitreIDPattern.MatchString(s)
}

// Scalar is any value an alert field may hold: string, float64, bool, or nil.
// Homogeneous vectors of these are represented as []any holding one of these
// underlying kinds.
type Scalar = any

// Alert is an immutable, normalized intrusion-detection alert.
type Alert struct {
	Description string              `json:"description"`
	Timestamp   time.Time           `json:"timestamp"`
	Techniques  map[string]struct{} `json:"-"`
	Data        map[string]Scalar   `json:"data"`
}

// TechniqueList returns the alert's technique IDs as a slice, for JSON
// serialization and deterministic iteration.
func (a *Alert) TechniqueList() []string {
	out := make([]string, 0, len(a.Techniques))
	for t := range a.Techniques {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasTechnique reports whether the alert is tagged with the given technique.
func (a *Alert) HasTechnique(id string) bool {
	_, ok := a.Techniques[id]
	return ok
}

// RawAlert is the unprocessed inbound document, prior to normalization.
type RawAlert struct {
	Document map[string]any
}
