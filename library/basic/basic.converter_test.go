package basic

import (
	"testing"

	tessera "github.com/itsatony/go-tessera"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert(t *testing.T) {
	conv := NewConverter()

	tests := []struct {
		name   string
		value  any
		target tessera.ValueType
		want   any
	}{
		{"already typed", "x", tessera.TypeString, "x"},
		{"int to string", 3, tessera.TypeString, "3"},
		{"string to int", " 42 ", tessera.TypeInt, 42},
		{"integral float to int", 3.0, tessera.TypeInt, 3},
		{"bool to int", true, tessera.TypeInt, 1},
		{"string to float", "1.5", tessera.TypeFloat, 1.5},
		{"int to float", 2, tessera.TypeFloat, 2.0},
		{"string to bool", "true", tessera.TypeBool, true},
		{"int to bool", 0, tessera.TypeBool, false},
		{"csv to list", "a, b,c", tessera.TypeList, []any{"a", "b", "c"}},
		{"empty string to list", "", tessera.TypeList, []any{}},
		{"string slice to list", []string{"a"}, tessera.TypeList, []any{"a"}},
		{"string map to map", map[string]string{"k": "v"}, tessera.TypeMap, map[string]any{"k": "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conv.Convert(tt.value, tt.target, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConverter_Errors(t *testing.T) {
	conv := NewConverter()

	t.Run("non numeric string", func(t *testing.T) {
		_, err := conv.Convert("abc", tessera.TypeInt, nil)
		require.Error(t, err)
	})

	t.Run("fractional float", func(t *testing.T) {
		_, err := conv.Convert(1.5, tessera.TypeInt, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgUnsupportedType)
	})

	t.Run("scalar to list", func(t *testing.T) {
		_, err := conv.Convert(3, tessera.TypeList, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgNotAList)
	})

	t.Run("scalar to map", func(t *testing.T) {
		_, err := conv.Convert("x", tessera.TypeMap, nil)
		require.Error(t, err)
	})
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"false", false},
		{"0", false},
		{"yes", true},
		{0, false},
		{7, true},
		{0.0, false},
		{[]any{}, false},
		{[]any{1}, true},
		{map[string]any{}, false},
		{struct{}{}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truthy(tt.value), "%#v", tt.value)
	}
}
