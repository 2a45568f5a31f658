package condition

import (
	"fmt"
	"net"
	"strings"
)

func stringBuiltin(name string, a, b interface{}) (bool, error) {
	as, ok := a.(string)
	if !ok {
		return false, fmt.Errorf("%s() first argument must be a string, got %T", name, a)
	}
	bs, ok := b.(string)
	if !ok {
		return false, fmt.Errorf("%s() second argument must be a string, got %T", name, b)
	}
	switch name {
	case "startswith":
		return strings.HasPrefix(as, bs), nil
	case "endswith":
		return strings.HasSuffix(as, bs), nil
	case "contains":
		return containsSubstring(as, bs), nil
	default:
		return false, fmt.Errorf("unknown string builtin %q", name)
	}
}

func containsSubstring(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

func cidrContains(cidrVal, ipVal interface{}) (bool, error) {
	cidrStr, ok := cidrVal.(string)
	if !ok {
		return false, fmt.Errorf("cidrcontains() first argument must be a string CIDR")
	}
	ipStr, ok := ipVal.(string)
	if !ok {
		return false, fmt.Errorf("cidrcontains() second argument must be a string IP")
	}
	_, ipNet, err := net.ParseCIDR(cidrStr)
	if err != nil {
		return false, fmt.Errorf("invalid CIDR %q: %w", cidrStr, err)
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false, fmt.Errorf("invalid IP %q", ipStr)
	}
	return ipNet.Contains(ip), nil
}

// compare implements equality and ordering. Equality works across any
// comparable value shape; ordering requires both sides to be numbers.
func compare(op string, l, r interface{}) (bool, error) {
	if op == "==" {
		return equalValues(l, r), nil
	}
	if op == "!=" {
		return !equalValues(l, r), nil
	}

	lf, ok1 := toFloat(l)
	rf, ok2 := toFloat(r)
	if !ok1 || !ok2 {
		return false, fmt.Errorf("operator %q requires numeric operands, got %T and %T", op, l, r)
	}
	switch op {
	case "<":
		return lf < rf, nil
	case "<=":
		return lf <= rf, nil
	case ">":
		return lf > rf, nil
	case ">=":
		return lf >= rf, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %q", op)
	}
}

func toFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func equalValues(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		return ab == bb
	}
	return false
}
