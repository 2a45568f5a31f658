package alert

import (
	"testing"

	"mitigationengine/pkg/models"
)

func TestNormalizeFlattensNestedFileObject(t *testing.T) {
	raw := &models.RawAlert{Document: map[string]interface{}{
		"description": "ransomware chain",
		"mitre_ids":   []interface{}{"T1041", "T1219"},
		"file": map[string]interface{}{
			"path":  "/tmp/zerologon_tester.py",
			"perms": "rwxr-xr-x",
		},
	}}

	a, err := Normalize(raw, DefaultSchema())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if a.Description != "ransomware chain" {
		t.Fatalf("description = %q", a.Description)
	}
	if !a.HasTechnique("T1041") || !a.HasTechnique("T1219") {
		t.Fatalf("techniques = %v", a.TechniqueList())
	}
	if a.Data["file_path"] != "/tmp/zerologon_tester.py" {
		t.Fatalf("file_path = %v", a.Data["file_path"])
	}
	if a.Data["file_perms"] != "rwxr-xr-x" {
		t.Fatalf("file_perms = %v", a.Data["file_perms"])
	}
}

func TestNormalizeDropsAbsentKeys(t *testing.T) {
	raw := &models.RawAlert{Document: map[string]interface{}{
		"description": "minimal",
	}}
	a, err := Normalize(raw, DefaultSchema())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(a.Techniques) != 0 {
		t.Fatalf("expected no techniques, got %v", a.TechniqueList())
	}
	if len(a.Data) != 0 {
		t.Fatalf("expected no data fields, got %v", a.Data)
	}
}

func TestNormalizeRejectsHeterogeneousVector(t *testing.T) {
	raw := &models.RawAlert{Document: map[string]interface{}{
		"file_path": []interface{}{"a", 1.0},
	}}
	if _, err := Normalize(raw, DefaultSchema()); err == nil {
		t.Fatalf("expected MalformedAlert for heterogeneous vector")
	}
}
