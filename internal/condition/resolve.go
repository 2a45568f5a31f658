package condition

import "mitigationengine/pkg/models"

// ResolveArgs implements the merge-args rule shared by §4.2 (condition
// resolution) and §4.6 (workflow instance generation): for each declared
// arg, look up a single field or the first present-and-non-null field of a
// list, in alert.Data. ok is false if any declared arg cannot be resolved.
func ResolveArgs(args map[string]models.ArgSpec, alert *models.Alert) (map[string]interface{}, bool) {
	resolved := make(map[string]interface{}, len(args))
	for key, spec := range args {
		var (
			val   interface{}
			found bool
		)
		for _, name := range spec.Names {
			v, present := alert.Data[name]
			if present && v != nil {
				val, found = v, true
				break
			}
		}
		if !found {
			return nil, false
		}
		resolved[key] = val
	}
	return resolved, true
}

// MergeParams merges literal params with resolved arguments, resolved
// entries overriding matching param keys.
func MergeParams(params map[string]models.Scalar, resolved map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params)+len(resolved))
	for k, v := range params {
		out[k] = v
	}
	for k, v := range resolved {
		out[k] = v
	}
	return out
}
