package tessera

import (
	"errors"
	"fmt"
)

// ValueType is the self-described type of an action parameter.
type ValueType int

// Value types
const (
	TypeAny ValueType = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	TypeList
	TypeMap
)

// Value type names
const (
	TypeNameAny    = "any"
	TypeNameString = "string"
	TypeNameInt    = "int"
	TypeNameFloat  = "float"
	TypeNameBool   = "bool"
	TypeNameList   = "list"
	TypeNameMap    = "map"
)

// String returns the type name
func (t ValueType) String() string {
	switch t {
	case TypeString:
		return TypeNameString
	case TypeInt:
		return TypeNameInt
	case TypeFloat:
		return TypeNameFloat
	case TypeBool:
		return TypeNameBool
	case TypeList:
		return TypeNameList
	case TypeMap:
		return TypeNameMap
	default:
		return TypeNameAny
	}
}

// Matches reports whether v already has this type, without conversion.
func (t ValueType) Matches(v any) bool {
	switch t {
	case TypeAny:
		return true
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInt:
		switch v.(type) {
		case int, int8, int16, int32, int64:
			return true
		}
		return false
	case TypeFloat:
		_, ok := v.(float64)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeList:
		_, ok := v.([]any)
		return ok
	case TypeMap:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// ParamDescriptor describes one parameter an action accepts.
type ParamDescriptor struct {
	Name     string
	Type     ValueType
	Required bool
	Default  any // Used when the parameter is absent; nil means unset
}

// Converter converts parameter values to the type an action declares.
// The engine performs no coercion of its own.
type Converter interface {
	Convert(value any, target ValueType, c *Context) (any, error)
}

// Action is a materialized action instance, created once per invocation.
type Action interface {
	Execute(inv *Invocation) error
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(inv *Invocation) error

// Execute implements Action.
func (f ActionFunc) Execute(inv *Invocation) error {
	return f(inv)
}

// ActionFactory creates action instances. Params describes the accepted
// parameters; a nil slice accepts any parameter untyped.
type ActionFactory interface {
	Name() string
	Params() []ParamDescriptor
	NewAction(inv *Invocation) (Action, error)
}

// funcActionFactory is the ActionFactory built by NewActionFactory.
type funcActionFactory struct {
	name   string
	params []ParamDescriptor
	create func(inv *Invocation) (Action, error)
}

// NewActionFactory builds a factory from a constructor function.
func NewActionFactory(name string, params []ParamDescriptor, create func(inv *Invocation) (Action, error)) ActionFactory {
	return &funcActionFactory{name: name, params: params, create: create}
}

// NewSimpleAction builds a factory whose actions run fn on execution.
func NewSimpleAction(name string, params []ParamDescriptor, fn func(inv *Invocation) error) ActionFactory {
	return NewActionFactory(name, params, func(*Invocation) (Action, error) {
		return ActionFunc(fn), nil
	})
}

func (f *funcActionFactory) Name() string              { return f.name }
func (f *funcActionFactory) Params() []ParamDescriptor { return f.params }

func (f *funcActionFactory) NewAction(inv *Invocation) (Action, error) {
	return f.create(inv)
}

// Params holds parameter values bound at creation time.
type Params map[string]any

// Has reports whether a value is bound under name.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Get returns the bound value.
func (p Params) Get(name string) (any, bool) {
	v, ok := p[name]
	return v, ok
}

// GetString returns the bound value formatted as a string, or "" if unset.
func (p Params) GetString(name string) string {
	v, ok := p[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetInt returns the bound value as an int; false if unset or not an int.
func (p Params) GetInt(name string) (int, bool) {
	switch v := p[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	}
	return 0, false
}

// GetBool returns the bound value as a bool; false if unset or not a bool.
func (p Params) GetBool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// GetList returns the bound value as a list; nil if unset or not a list.
func (p Params) GetList(name string) []any {
	l, _ := p[name].([]any)
	return l
}

// bindParams binds node parameters against descriptors, evaluating
// expression-backed values in c and converting where types differ.
func bindParams(action string, descriptors []ParamDescriptor, given []Parameter, c *Context, conv Converter) (Params, error) {
	out := make(Params, len(given))
	if descriptors == nil {
		for _, p := range given {
			v, err := p.Value(c)
			if err != nil {
				return nil, WrapEngineError(err, ErrMsgExpressionFailed, action)
			}
			out[p.Name] = v
		}
		return out, nil
	}

	declared := make(map[string]ParamDescriptor, len(descriptors))
	for _, d := range descriptors {
		declared[d.Name] = d
	}
	for _, p := range given {
		if _, ok := declared[p.Name]; !ok {
			return nil, newParameterError(ErrMsgUnknownParameter, action, p.Name)
		}
	}

	for _, d := range descriptors {
		var (
			value any
			found bool
		)
		for _, p := range given {
			if p.Name != d.Name {
				continue
			}
			v, err := p.Value(c)
			if err != nil {
				return nil, WrapEngineError(err, ErrMsgExpressionFailed, action)
			}
			value, found = v, true
			break
		}
		if !found {
			if d.Required {
				return nil, newParameterError(ErrMsgMissingParameter, action, d.Name)
			}
			if d.Default == nil {
				continue
			}
			value = d.Default
		}
		converted, err := convertValue(d, value, c, conv)
		if err != nil {
			return nil, err
		}
		out[d.Name] = converted
	}
	return out, nil
}

// convertValue converts value to the descriptor's type via conv.
func convertValue(d ParamDescriptor, value any, c *Context, conv Converter) (any, error) {
	if d.Type.Matches(value) {
		return value, nil
	}
	if conv == nil {
		return nil, NewConversionError(d.Name, d.Type, value, errors.New(ErrMsgNoConverter))
	}
	converted, err := conv.Convert(value, d.Type, c)
	if err != nil {
		if KindOf(err) != "" {
			return nil, err
		}
		return nil, NewConversionError(d.Name, d.Type, value, err)
	}
	return converted, nil
}

// newParameterError creates an execution error naming a parameter.
func newParameterError(msg, action, param string) error {
	return newEngineError(KindExecution, msg, nil).
		WithMetadata(MetaKeyAction, action).
		WithMetadata(MetaKeyParameter, param)
}
