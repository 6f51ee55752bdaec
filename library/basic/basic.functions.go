package basic

import (
	"errors"
	"fmt"
	"strings"

	tessera "github.com/itsatony/go-tessera"
)

// stringFunc adapts a one-argument string function to a tessera function.
func stringFunc(fn func(string) string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: want 1, got %d", ErrMsgArgumentCount, len(args))
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, errors.New(ErrMsgNotAString)
		}
		return fn(s), nil
	}
}

// join concatenates the stringified items of a list: join(list[, sep]).
func join(args ...any) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("%s: want 1 or 2, got %d", ErrMsgArgumentCount, len(args))
	}
	items, ok := args[0].([]any)
	if !ok {
		return nil, errors.New(ErrMsgNotAList)
	}
	sep := ListSeparator
	if len(args) == 2 {
		if sep, ok = args[1].(string); !ok {
			return nil, errors.New(ErrMsgNotAString)
		}
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = tessera.Stringify(item)
	}
	return strings.Join(parts, sep), nil
}
