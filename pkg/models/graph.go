package models

// AttackNode is a single step of an attack-graph template.
type AttackNode struct {
	ID          string   `json:"id" yaml:"id"`
	Technique   string   `json:"technique" yaml:"technique"`
	Next        []string `json:"next" yaml:"next"`
	Conditions  []string `json:"conditions" yaml:"conditions"`
	Description string   `json:"description" yaml:"description"`

	// Probability is the modeled likelihood that this node fires next,
	// given the instances currently tracking it. It is not part of the
	// base graph contract and the attack-instance engine never writes it;
	// it is read from the template's JSON document (YAML fixtures skip it)
	// and consulted only by probability-weighted planning.
	Probability float64 `json:"probability,omitempty" yaml:"-"`
}

// AttackGraph is a template: a population of nodes reachable from a single
// initial node.
type AttackGraph struct {
	ID          string                 `json:"id" yaml:"id"`
	Description string                 `json:"description" yaml:"description"`
	Nodes       map[string]*AttackNode `json:"nodes" yaml:"nodes"`
	Initial     string                 `json:"initial" yaml:"initial"`
}

// Validate checks the invariants of §3: every referenced node ID exists.
func (g *AttackGraph) Validate() error {
	if _, ok := g.Nodes[g.Initial]; !ok {
		return &CatalogInvariantError{Entity: "attack_graph", ID: g.ID, Reason: "initial node " + g.Initial + " not in nodes"}
	}
	for id, n := range g.Nodes {
		if n.ID == "" {
			n.ID = id
		}
		for _, next := range n.Next {
			if _, ok := g.Nodes[next]; !ok {
				return &CatalogInvariantError{Entity: "attack_graph", ID: g.ID, Reason: "node " + id + " references unknown successor " + next}
			}
		}
	}
	return nil
}

// AttackInstance is a live traversal of an AttackGraph template.
type AttackInstance struct {
	ID       string   `json:"id"`
	Template string   `json:"template"`
	Ctx      []*Alert `json:"ctx"` // newest first
	Front    []string `json:"front"`
}

// NodeTrigger records a single node firing during advancement, in the order
// it occurred.
type NodeTrigger struct {
	Template string
	Instance string
	Node     *AttackNode
	Alert    *Alert
}
