package webtools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/go-mcp-registry/internal/testutils"
	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/webtools"
)

func evaluate(t *testing.T, expression string) (interface{}, error) {
	t.Helper()
	h := webtools.NewHandler(testutils.TestToolConfig(t))
	return h.Evaluate(context.Background(), dispatcher.ToolCall{
		MCPID:  "mcp-calculator",
		Tool:   "evaluate",
		Params: map[string]interface{}{"expression": expression},
	})
}

func requireToolError(t *testing.T, err error, code dispatcher.ErrorCode) *dispatcher.CallError {
	t.Helper()
	require.Error(t, err)
	callErr, ok := err.(*dispatcher.CallError)
	require.True(t, ok, "expected *dispatcher.CallError, got %T", err)
	assert.Equal(t, code, callErr.Code)
	return callErr
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expression string
		want       float64
	}{
		{"2+2", 4},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"-3 + 5", 2},
		{"2 * -3", -6},
		{"((1 + 2) * (3 + 4))", 21},
		{"1.5 * 2", 3},
	}

	for _, test := range tests {
		t.Run(test.expression, func(t *testing.T) {
			result, err := evaluate(t, test.expression)
			require.NoError(t, err)
			got := result.(map[string]interface{})
			assert.Equal(t, test.expression, got["expression"])
			assert.InDelta(t, test.want, got["result"], 1e-9)
		})
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	_, err := evaluate(t, "1/0")
	callErr := requireToolError(t, err, dispatcher.CodeValidation)
	assert.Contains(t, callErr.Message, "finite")
}

func TestEvaluateRejectsNonArithmetic(t *testing.T) {
	for _, expression := range []string{
		"process.exit(1)",
		"__import__('os')",
		"1 + x",
		"pow(2, 10)",
	} {
		t.Run(expression, func(t *testing.T) {
			_, err := evaluate(t, expression)
			callErr := requireToolError(t, err, dispatcher.CodeValidation)
			assert.Contains(t, callErr.Message, "unsupported characters")
		})
	}
}

func TestEvaluateMalformedExpression(t *testing.T) {
	for _, expression := range []string{"2 +", "(1 + 2", "* 3", "..."} {
		t.Run(expression, func(t *testing.T) {
			_, err := evaluate(t, expression)
			requireToolError(t, err, dispatcher.CodeValidation)
		})
	}
}

func TestEvaluateMissingExpression(t *testing.T) {
	h := webtools.NewHandler(testutils.TestToolConfig(t))
	_, err := h.Evaluate(context.Background(), dispatcher.ToolCall{Params: map[string]interface{}{}})
	requireToolError(t, err, dispatcher.CodeValidation)
}
