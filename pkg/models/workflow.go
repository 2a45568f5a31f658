package models

// WorkflowSignature is the static description of a mitigation action.
type WorkflowSignature struct {
	ID          string             `json:"id" yaml:"id"`
	Description string             `json:"description" yaml:"description"`
	URL         string             `json:"url" yaml:"url"`
	Target      string             `json:"target" yaml:"target"`
	Cost        float64            `json:"cost" yaml:"cost"`
	Params      map[string]Scalar  `json:"params" yaml:"params"`
	Args        map[string]ArgSpec `json:"args" yaml:"args"`
	Conditions  []string           `json:"conditions" yaml:"conditions"`
}

// AppliesTo reports whether the signature targets a technique on the alert.
func (s *WorkflowSignature) AppliesTo(a *Alert) bool {
	return a.HasTechnique(s.Target)
}

// WorkflowInstance is a signature bound to parameters resolved from a
// specific alert.
type WorkflowInstance struct {
	Signature      *WorkflowSignature `json:"signature"`
	ResolvedParams map[string]Scalar  `json:"resolved_params"`
	CostFactor     float64            `json:"cost_factor"`
}

// EffectiveCost returns the integer soft-score the planner optimizes,
// matching §3/§9's factor-1000 scaling.
func (w *WorkflowInstance) EffectiveCost() int64 {
	cf := w.CostFactor
	if cf == 0 {
		cf = 1.0
	}
	return int64(w.Signature.Cost*cf*1000 + 0.5)
}

// MitigationAssignment pairs an alert with the workflow instance chosen to
// mitigate it, or none if the planner could not find a feasible workflow.
type MitigationAssignment struct {
	Alert    *Alert
	Workflow *WorkflowInstance
}
