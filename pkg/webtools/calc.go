package webtools

import (
	"context"
	"math"
	"regexp"

	"github.com/alecthomas/participle/v2"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
)

// safeExpression gates input before it reaches the parser. Anything
// outside plain arithmetic characters is rejected, so identifiers and
// function calls never parse.
var safeExpression = regexp.MustCompile(`^[0-9+\-*/().\s]+$`)

// Arithmetic grammar with the usual precedence: expression handles
// addition, term handles multiplication, factor handles literals,
// unary minus and parentheses.
type calcExpression struct {
	Left  *calcTerm     `parser:"@@"`
	Right []*calcOpTerm `parser:"@@*"`
}

type calcOpTerm struct {
	Op   string    `parser:"@('+' | '-')"`
	Term *calcTerm `parser:"@@"`
}

type calcTerm struct {
	Left  *calcFactor     `parser:"@@"`
	Right []*calcOpFactor `parser:"@@*"`
}

type calcOpFactor struct {
	Op     string      `parser:"@('*' | '/')"`
	Factor *calcFactor `parser:"@@"`
}

type calcFactor struct {
	Number *float64        `parser:"  @(Float | Int)"`
	Neg    *calcFactor     `parser:"| '-' @@"`
	Group  *calcExpression `parser:"| '(' @@ ')'"`
}

var calcParser = participle.MustBuild[calcExpression]()

func (e *calcExpression) eval() float64 {
	value := e.Left.eval()
	for _, op := range e.Right {
		switch op.Op {
		case "+":
			value += op.Term.eval()
		case "-":
			value -= op.Term.eval()
		}
	}
	return value
}

func (t *calcTerm) eval() float64 {
	value := t.Left.eval()
	for _, op := range t.Right {
		switch op.Op {
		case "*":
			value *= op.Factor.eval()
		case "/":
			value /= op.Factor.eval()
		}
	}
	return value
}

func (f *calcFactor) eval() float64 {
	switch {
	case f.Number != nil:
		return *f.Number
	case f.Neg != nil:
		return -f.Neg.eval()
	default:
		return f.Group.eval()
	}
}

// Evaluate computes an arithmetic expression. Expressions that fail
// the character gate, fail to parse, or do not produce a finite number
// are rejected.
func (h *Handler) Evaluate(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	expression, err := call.RequiredString("expression")
	if err != nil {
		return nil, err
	}
	if !safeExpression.MatchString(expression) {
		return nil, dispatcher.Validationf("expression contains unsupported characters")
	}

	parsed, err := calcParser.ParseString("", expression)
	if err != nil {
		return nil, dispatcher.Validationf("invalid expression: %v", err)
	}

	value := parsed.eval()
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, dispatcher.Validationf("expression does not evaluate to a finite number")
	}

	return map[string]interface{}{
		"expression": expression,
		"result":     value,
	}, nil
}
