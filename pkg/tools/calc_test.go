package tools

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		expression string
		want       float64
	}{
		{"2 + 3", 5},
		{"5 * 6", 30},
		{"2 ** 8", 256},
		{"10 / 4", 2.5},
		{"10 // 4", 2},
		{"-10 // 4", -3},
		{"10 % 3", 1},
		{"-10 % 3", 2},
		{"10 % -3", -2},
		{"-5 + 3", -2},
		{"-2 ** 2", -4},
		{"(-2) ** 2", 4},
		{"2 ** -1", 0.5},
		{"2 ** 3 ** 2", 512},
		{"(1 + 2) * 3", 9},
		{"1.5 + 2.25", 3.75},
		{"+7", 7},
		{"--4", 4},
		{"0.5 * 4", 2},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			got, err := Calculate(tt.expression)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCalculate_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"identifier", "x + 1"},
		{"function call", "abs(-1)"},
		{"attribute access", "(1).real"},
		{"string literal", `"hi" + "there"`},
		{"dangling operator", "1 +"},
		{"missing close paren", "(1 + 2"},
		{"stray close paren", "1 + 2)"},
		{"double dot number", "1.2.3"},
		{"unsupported character", "1 & 2"},
		{"dunder", "__import__"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.expression)
			require.Error(t, err)
			var invalid *InvalidExpressionError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestCalculate_DivisionByZero(t *testing.T) {
	for _, expression := range []string{"1 / 0", "1 // 0", "1 % 0", "0 ** -1", "1 / (2 - 2)"} {
		t.Run(expression, func(t *testing.T) {
			_, err := Calculate(expression)
			require.Error(t, err)
			var dbz *DivisionByZeroError
			assert.ErrorAs(t, err, &dbz)
		})
	}
}

// Arbitrary input must never panic: the worst outcome is an error.
func TestCalculate_NeverPanics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("any string yields a value or an error", prop.ForAll(
		func(expression string) (ok bool) {
			defer func() {
				if recover() != nil {
					ok = false
				}
			}()
			_, _ = Calculate(expression)
			return true
		},
		gen.AnyString(),
	))

	properties.Property("well-formed additions evaluate", prop.ForAll(
		func(a, b int) bool {
			got, err := Calculate(formatAddition(a, b))
			return err == nil && got == float64(a)+float64(b)
		},
		gen.IntRange(-1000, 1000),
		gen.IntRange(-1000, 1000),
	))

	properties.TestingRun(t)
}

func formatAddition(a, b int) string {
	// Negative literals arrive as unary minus, which the grammar allows.
	return "(" + strconv.Itoa(a) + ") + (" + strconv.Itoa(b) + ")"
}
