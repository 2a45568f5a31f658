// Package alert normalizes raw inbound alert documents into the flat,
// typed shape the rest of the engine operates on.
package alert

import (
	"fmt"
	"time"

	"mitigationengine/pkg/models"
)

// Schema is a declarative field-mapping schema. A nested object in the
// schema recurses into the matching key of the document; a leaf string names
// the output field that key's value should be written to.
type Schema map[string]interface{}

// DefaultSchema mirrors the shape of the fixtures used in §8's scenarios:
// a shallow document with a "mitre_ids" list and a handful of file/network
// fields, plus a nested "file" object.
func DefaultSchema() Schema {
	return Schema{
		"description":         "description",
		"timestamp":           "timestamp",
		"mitre_ids":           "mitre_ids",
		"file_path":           "file_path",
		"file_perms":          "file_perms",
		"agent_ip":            "agent_ip",
		"connection_dst_port": "connection_dst_port",
		"file": Schema{
			"path":  "file_path",
			"perms": "file_perms",
		},
	}
}

// Normalize walks raw in parallel with schema, producing a models.Alert.
// Keys absent from raw are silently dropped. A leaf value that is neither a
// scalar nor a homogeneous vector of scalars fails with MalformedAlert.
func Normalize(raw *models.RawAlert, schema Schema) (*models.Alert, error) {
	if raw == nil || raw.Document == nil {
		return nil, &models.MalformedAlert{Reason: "empty document"}
	}

	data := make(map[string]models.Scalar)
	if err := walk(raw.Document, schema, data); err != nil {
		return nil, err
	}

	a := &models.Alert{
		Data:       data,
		Techniques: map[string]struct{}{},
	}

	if v, ok := data["description"]; ok {
		if s, ok := v.(string); ok {
			a.Description = s
		}
		delete(data, "description")
	}

	a.Timestamp = time.Now().UTC()
	if v, ok := data["timestamp"]; ok {
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				a.Timestamp = t
			}
		}
		delete(data, "timestamp")
	}

	if v, ok := data["mitre_ids"]; ok {
		ids, err := toStringSet(v)
		if err != nil {
			return nil, &models.MalformedAlert{Reason: "mitre_ids", Cause: err}
		}
		a.Techniques = ids
		delete(data, "mitre_ids")
	}

	return a, nil
}

func walk(doc map[string]interface{}, schema Schema, out map[string]models.Scalar) error {
	for key, target := range schema {
		v, present := doc[key]
		if !present {
			continue
		}
		switch t := target.(type) {
		case Schema:
			nested, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			if err := walk(nested, t, out); err != nil {
				return err
			}
		case string:
			val, err := toOutputValue(v)
			if err != nil {
				return &models.MalformedAlert{Reason: fmt.Sprintf("field %q", key), Cause: err}
			}
			out[t] = val
		default:
			return &models.MalformedAlert{Reason: fmt.Sprintf("schema leaf for %q has unsupported type", key)}
		}
	}
	return nil
}

// toOutputValue enforces the scalar-or-homogeneous-vector contract.
func toOutputValue(v interface{}) (models.Scalar, error) {
	switch val := v.(type) {
	case string, float64, bool, nil:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case []interface{}:
		if len(val) == 0 {
			return []models.Scalar{}, nil
		}
		kind := scalarKind(val[0])
		if kind == "other" {
			return nil, fmt.Errorf("vector element has unsupported shape %T", val[0])
		}
		out := make([]models.Scalar, 0, len(val))
		for _, elem := range val {
			if scalarKind(elem) != kind {
				return nil, fmt.Errorf("heterogeneous vector")
			}
			sv, err := toOutputValue(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, sv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value shape %T", v)
	}
}

func scalarKind(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	default:
		return "other"
	}
}

func toStringSet(v interface{}) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	switch val := v.(type) {
	case string:
		out[val] = struct{}{}
	case []interface{}:
		for _, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("mitre_ids entry is not a string")
			}
			out[s] = struct{}{}
		}
	default:
		return nil, fmt.Errorf("mitre_ids has unsupported shape %T", v)
	}
	return out, nil
}
