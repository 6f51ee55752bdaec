package basic

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	tessera "github.com/itsatony/go-tessera"
)

// Converter implements tessera.Converter for the scalar and list types
// produced by text templates. Strings are parsed, lists may be given as
// comma-separated strings and integral floats become ints.
type Converter struct{}

// NewConverter creates a Converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert implements tessera.Converter.
func (cv *Converter) Convert(value any, target tessera.ValueType, _ *tessera.Context) (any, error) {
	if target.Matches(value) {
		return value, nil
	}
	switch target {
	case tessera.TypeString:
		return tessera.Stringify(value), nil
	case tessera.TypeInt:
		return toInt(value)
	case tessera.TypeFloat:
		return toFloat(value)
	case tessera.TypeBool:
		return toBool(value)
	case tessera.TypeList:
		return toList(value)
	case tessera.TypeMap:
		return toMap(value)
	}
	return nil, unsupported(value, target)
}

func unsupported(value any, target tessera.ValueType) error {
	return fmt.Errorf("%s: %T to %s", ErrMsgUnsupportedType, value, target)
}

func toInt(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return nil, unsupported(value, tessera.TypeInt)
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, unsupported(value, tessera.TypeFloat)
}

func toBool(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case nil:
		return false, nil
	}
	return Truthy(value), nil
}

func toList(value any) (any, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return []any{}, nil
		}
		parts := strings.Split(v, ListSeparator)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	case nil:
		return []any{}, nil
	}
	return nil, fmt.Errorf("%s: %T", ErrMsgNotAList, value)
}

func toMap(value any) (any, error) {
	if v, ok := value.(map[string]string); ok {
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	}
	return nil, unsupported(value, tessera.TypeMap)
}
