package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr    string
		want    float64
		wantErr bool
	}{
		{expr: "2+3*4", want: 14},
		{expr: "(2+3)*4", want: 20},
		{expr: "10/4", want: 2.5},
		{expr: "10 % 3", want: 1},
		{expr: "2^10", want: 1024},
		{expr: "2^3^2", want: 512}, // right associative
		{expr: "-5 + 3", want: -2},
		{expr: "sqrt(16)", want: 4},
		{expr: "abs(-7.5)", want: 7.5},
		{expr: "pow(2, 8)", want: 256},
		{expr: "(2+3)*sqrt(16)", want: 20},
		{expr: "1/0", wantErr: true},
		{expr: "sqrt(-1)", wantErr: true},
		{expr: "2+", wantErr: true},
		{expr: "foo(3)", wantErr: true},
		{expr: "", wantErr: true},
		{expr: "2 3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConvertUnit(t *testing.T) {
	tests := []struct {
		value   float64
		from    string
		to      string
		want    float64
		wantErr bool
	}{
		{value: 1, from: "km", to: "m", want: 1000},
		{value: 1, from: "mi", to: "km", want: 1.609344},
		{value: 12, from: "in", to: "ft", want: 1},
		{value: 1, from: "kg", to: "lb", want: 2.20462442},
		{value: 100, from: "c", to: "f", want: 212},
		{value: 32, from: "f", to: "c", want: 0},
		{value: 0, from: "c", to: "k", want: 273.15},
		{value: 1, from: "kg", to: "km", wantErr: true},
		{value: 1, from: "parsec", to: "m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			got, err := convertUnit(tt.value, tt.from, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-4)
		})
	}
}

func TestFormatWithSeparators(t *testing.T) {
	assert.Equal(t, "1,234,567", formatWithSeparators(1234567, -1))
	assert.Equal(t, "1,234.57", formatWithSeparators(1234.5678, -1))
	assert.Equal(t, "-9,999", formatWithSeparators(-9999, 0))
	assert.Equal(t, "0.500", formatWithSeparators(0.5, 3))
}

func TestExtractKeywords(t *testing.T) {
	keywords := ExtractKeywords("The quick brown fox jumps over the lazy dog. The fox is quick.", 3)
	require.NotEmpty(t, keywords)
	assert.Equal(t, "quick", keywords[0])
	assert.NotContains(t, keywords, "the")
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()

	t.Run("calculate", func(t *testing.T) {
		out, err := r.Execute(context.Background(), "calculate", `{"expression": "6*7"}`)
		require.NoError(t, err)
		assert.Equal(t, "42", out)
	})

	t.Run("hash sha256", func(t *testing.T) {
		out, err := r.Execute(context.Background(), "hash_string", `{"text": "abc", "algorithm": "sha256"}`)
		require.NoError(t, err)
		assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", out)
	})

	t.Run("base64 round trip", func(t *testing.T) {
		encoded, err := r.Execute(context.Background(), "base64_encode", `{"text": "hello"}`)
		require.NoError(t, err)
		decoded, err := r.Execute(context.Background(), "base64_decode", `{"text": "`+encoded+`"}`)
		require.NoError(t, err)
		assert.Equal(t, "hello", decoded)
	})

	t.Run("days between dates", func(t *testing.T) {
		out, err := r.Execute(context.Background(), "days_between_dates", `{"start_date": "2025-01-01", "end_date": "2025-03-01"}`)
		require.NoError(t, err)
		assert.Equal(t, "59", out)
	})

	t.Run("malformed args become empty object", func(t *testing.T) {
		// get_current_date works with no arguments, so garbage args must not fail.
		out, err := r.Execute(context.Background(), "get_current_date", `{not json`)
		require.NoError(t, err)
		assert.NotEmpty(t, out)
	})

	t.Run("unknown tool errors", func(t *testing.T) {
		_, err := r.Execute(context.Background(), "launch_missiles", `{}`)
		require.Error(t, err)
	})

	t.Run("tool failure surfaces as error", func(t *testing.T) {
		_, err := r.Execute(context.Background(), "calculate", `{"expression": "1/0"}`)
		require.Error(t, err)
	})
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	defs := NewRegistry().Definitions()
	require.NotEmpty(t, defs)
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].Function.Name, defs[i].Function.Name)
	}
}
