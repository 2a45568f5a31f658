package condition

import (
	"fmt"
	"strconv"

	"mitigationengine/pkg/models"
)

// knownBuiltins is the closed set of functions the expression language
// accepts. Anything else fails at parse time, never at evaluation time.
var knownBuiltins = map[string]int{
	"startswith":   2,
	"endswith":     2,
	"contains":     2,
	"cidrcontains": 2,
	"graphdb":      -1, // variadic: query, then bind params
}

// Parse compiles a check expression into an AST, rejecting unknown forms
// per §9. The returned error is always suitable to surface as a
// models.ConditionSyntaxError by the caller.
func Parse(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing token %q", p.peek().text)
	}
	return node, nil
}

// CompileCheck is the entry point used by the catalog loaders: it parses
// the expression and wraps any failure as a ConditionSyntaxError.
func CompileCheck(conditionID, src string) (Node, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, &models.ConditionSyntaxError{ConditionID: conditionID, Reason: err.Error()}
	}
	return node, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, text string) error {
	t := p.peek()
	if t.kind != kind || (text != "" && t.text != text) {
		return fmt.Errorf("expected %q, got %q", text, t.text)
	}
	p.next()
	return nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "and" {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.peek().kind == tokIdent && p.peek().text == "not" {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "not", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseMembership()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokOp {
		op := p.next().text
		right, err := p.parseMembership()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseMembership() (Node, error) {
	left, err := p.parseIsNotNone()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokIdent && p.peek().text == "in" {
		p.next()
		right, err := p.parseIsNotNone()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: "in", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseIsNotNone() (Node, error) {
	operand, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokIdent && p.peek().text == "is" {
		p.next()
		if err := p.expectIdent("not"); err != nil {
			return nil, err
		}
		if err := p.expectIdent("none"); err != nil {
			return nil, err
		}
		return &IsNotNone{Operand: operand}, nil
	}
	return operand, nil
}

func (p *parser) expectIdent(word string) error {
	t := p.peek()
	if t.kind != tokIdent || t.text != word {
		return fmt.Errorf("expected %q, got %q", word, t.text)
	}
	p.next()
	return nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()
	switch {
	case t.kind == tokLParen:
		p.next()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return node, nil
	case t.kind == tokString:
		p.next()
		return &Literal{Value: t.text}, nil
	case t.kind == tokNumber:
		p.next()
		f, _ := strconv.ParseFloat(t.text, 64)
		return &Literal{Value: f}, nil
	case t.kind == tokIdent && t.text == "true":
		p.next()
		return &Literal{Value: true}, nil
	case t.kind == tokIdent && t.text == "false":
		p.next()
		return &Literal{Value: false}, nil
	case t.kind == tokIdent && t.text == "none":
		p.next()
		return &Literal{Value: nil}, nil
	case t.kind == tokIdent && t.text == "parameters":
		p.next()
		if err := p.expect(tokLBracket, "["); err != nil {
			return nil, err
		}
		key := p.peek()
		if key.kind != tokString {
			return nil, fmt.Errorf("expected string key in parameters[...], got %q", key.text)
		}
		p.next()
		if err := p.expect(tokRBracket, "]"); err != nil {
			return nil, err
		}
		return &Index{Key: key.text}, nil
	case t.kind == tokIdent:
		name := t.text
		arity, known := knownBuiltins[name]
		if !known {
			return nil, fmt.Errorf("unknown identifier or form %q", name)
		}
		p.next()
		if err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		var args []Node
		for p.peek().kind != tokRParen {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind == tokComma {
				p.next()
				continue
			}
			break
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		if arity >= 0 && len(args) != arity {
			return nil, fmt.Errorf("%s expects %d arguments, got %d", name, arity, len(args))
		}
		if arity < 0 && len(args) < 1 {
			return nil, fmt.Errorf("%s expects at least 1 argument", name)
		}
		return &Call{Name: name, Args: args}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}
