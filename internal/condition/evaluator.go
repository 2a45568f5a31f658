package condition

import (
	"context"
	"fmt"
	"net"

	"mitigationengine/internal/logger"
	"mitigationengine/pkg/models"
)

// evalContext carries the merged parameters map and the graph-database
// escape for a single evaluation.
type evalContext struct {
	ctx         context.Context
	conditionID string
	params      map[string]interface{}
	db          GraphDB
}

// Evaluate runs a compiled check expression against parameters, returning
// the boolean result. Any evaluation failure (including a failed
// graph-database escape) is returned as a *models.ConditionEvalError and
// must be treated as false — Evaluate returns (false, err) in that case so
// callers cannot accidentally treat an error as true.
func Evaluate(ctx context.Context, conditionID string, node Node, params map[string]interface{}, db GraphDB) (bool, error) {
	ec := &evalContext{ctx: ctx, conditionID: conditionID, params: params, db: db}
	v, err := ec.evalBool(node)
	if err != nil {
		return false, &models.ConditionEvalError{ConditionID: conditionID, Cause: err}
	}
	return v, nil
}

func (ec *evalContext) evalBool(n Node) (bool, error) {
	switch node := n.(type) {
	case *Unary:
		if node.Op != "not" {
			return false, fmt.Errorf("unsupported unary operator %q", node.Op)
		}
		v, err := ec.evalBool(node.Operand)
		if err != nil {
			return false, err
		}
		return !v, nil
	case *Binary:
		switch node.Op {
		case "and":
			l, err := ec.evalBool(node.Left)
			if err != nil {
				return false, err
			}
			if !l {
				return false, nil
			}
			return ec.evalBool(node.Right)
		case "or":
			l, err := ec.evalBool(node.Left)
			if err != nil {
				return false, err
			}
			if l {
				return true, nil
			}
			return ec.evalBool(node.Right)
		case "==", "!=", "<", "<=", ">", ">=":
			l, err := ec.evalValue(node.Left)
			if err != nil {
				return false, err
			}
			r, err := ec.evalValue(node.Right)
			if err != nil {
				return false, err
			}
			return compare(node.Op, l, r)
		case "in":
			l, err := ec.evalValue(node.Left)
			if err != nil {
				return false, err
			}
			r, err := ec.evalValue(node.Right)
			if err != nil {
				return false, err
			}
			return membership(l, r)
		default:
			return false, fmt.Errorf("unsupported binary operator %q", node.Op)
		}
	case *IsNotNone:
		v, err := ec.evalValue(node.Operand)
		if err != nil {
			return false, err
		}
		return v != nil, nil
	case *Call:
		v, err := ec.evalCall(node)
		if err != nil {
			return false, err
		}
		b, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("%s() used in boolean position but returned %T", node.Name, v)
		}
		return b, nil
	case *Literal:
		b, ok := node.Value.(bool)
		if !ok {
			return false, fmt.Errorf("literal %v used in boolean position", node.Value)
		}
		return b, nil
	default:
		return false, fmt.Errorf("unsupported node in boolean position: %T", n)
	}
}

func (ec *evalContext) evalValue(n Node) (interface{}, error) {
	switch node := n.(type) {
	case *Literal:
		return node.Value, nil
	case *Index:
		v, ok := ec.params[node.Key]
		if !ok {
			return nil, nil
		}
		return v, nil
	case *Call:
		return ec.evalCall(node)
	case *IsNotNone:
		v, err := ec.evalValue(node.Operand)
		if err != nil {
			return nil, err
		}
		return v != nil, nil
	case *Unary, *Binary:
		return ec.evalBool(n)
	default:
		return nil, fmt.Errorf("unsupported node: %T", n)
	}
}

func (ec *evalContext) evalCall(c *Call) (interface{}, error) {
	switch c.Name {
	case "startswith", "endswith", "contains":
		a, err := ec.evalValue(c.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := ec.evalValue(c.Args[1])
		if err != nil {
			return nil, err
		}
		return stringBuiltin(c.Name, a, b)
	case "cidrcontains":
		cidrVal, err := ec.evalValue(c.Args[0])
		if err != nil {
			return nil, err
		}
		ipVal, err := ec.evalValue(c.Args[1])
		if err != nil {
			return nil, err
		}
		return cidrContains(cidrVal, ipVal)
	case "graphdb":
		if ec.db == nil {
			logger.Warnf("condition %s: graphdb escape invoked with no client configured", ec.conditionID)
			return nil, fmt.Errorf("no graph-database client configured")
		}
		query, err := ec.evalValue(c.Args[0])
		if err != nil {
			return nil, err
		}
		queryStr, ok := query.(string)
		if !ok {
			return nil, fmt.Errorf("graphdb() query must be a string")
		}
		params := map[string]interface{}{}
		for i, argNode := range c.Args[1:] {
			v, err := ec.evalValue(argNode)
			if err != nil {
				return nil, err
			}
			params[fmt.Sprintf("p%d", i)] = v
		}
		n, err := ec.db.CountRows(ec.ctx, queryStr, params)
		if err != nil {
			logger.Warnf("condition %s: graphdb escape failed: %v", ec.conditionID, err)
			return nil, err
		}
		return float64(n), nil
	default:
		return nil, fmt.Errorf("unknown builtin %q", c.Name)
	}
}

func membership(value, collection interface{}) (bool, error) {
	if s, ok := collection.(string); ok {
		if _, ipNet, err := net.ParseCIDR(s); err == nil {
			ipStr, ok := value.(string)
			if !ok {
				return false, fmt.Errorf("cidr membership requires a string IP")
			}
			ip := net.ParseIP(ipStr)
			if ip == nil {
				return false, fmt.Errorf("invalid IP %q", ipStr)
			}
			return ipNet.Contains(ip), nil
		}
		vs, ok := value.(string)
		if !ok {
			return false, fmt.Errorf("string membership requires a string value")
		}
		return containsSubstring(s, vs), nil
	}

	list, err := toSlice(collection)
	if err != nil {
		return false, err
	}
	for _, elem := range list {
		if equalValues(elem, value) {
			return true, nil
		}
	}
	return false, nil
}

func toSlice(v interface{}) ([]interface{}, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return val, nil
	default:
		return nil, fmt.Errorf("value is not a list: %T", v)
	}
}
