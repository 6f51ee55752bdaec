package basic

import (
	"errors"
	"strconv"
	"time"

	tessera "github.com/itsatony/go-tessera"
)

// setAction stores a variable: "% set name=x value=${y} [scope=s]".
// Without scope the innermost scope is written.
func setAction() tessera.ActionFactory {
	return tessera.NewSimpleAction(ActionSet, []tessera.ParamDescriptor{
		{Name: ParamName, Type: tessera.TypeString, Required: true},
		{Name: ParamValue, Type: tessera.TypeAny, Required: true},
		{Name: ParamScope, Type: tessera.TypeString},
	}, func(inv *tessera.Invocation) error {
		p := inv.Params()
		c := inv.Context()
		if !p.Has(ParamScope) {
			c.SetVariable(p.GetString(ParamName), p[ParamValue])
			return nil
		}
		scope, ok := c.Scope(p.GetString(ParamScope))
		if !ok {
			return tessera.NewContextError(tessera.ErrMsgUnknownScope, p.GetString(ParamScope))
		}
		return c.SetScopedVariable(scope, p.GetString(ParamName), p[ParamValue])
	})
}

// ifAction renders its body when test is truthy.
func ifAction() tessera.ActionFactory {
	return tessera.NewSimpleAction(ActionIf, []tessera.ParamDescriptor{
		{Name: ParamTest, Type: tessera.TypeAny, Required: true},
	}, func(inv *tessera.Invocation) error {
		if !Truthy(inv.Params()[ParamTest]) {
			return nil
		}
		return inv.RenderBody()
	})
}

// eachAction renders its body once per list item. The item and its index
// live in a scope pushed for the loop and removed afterwards.
func eachAction() tessera.ActionFactory {
	return tessera.NewSimpleAction(ActionEach, []tessera.ParamDescriptor{
		{Name: ParamItems, Type: tessera.TypeList, Required: true},
		{Name: ParamVar, Type: tessera.TypeString, Default: DefaultEachVar},
		{Name: ParamIndex, Type: tessera.TypeString},
	}, func(inv *tessera.Invocation) error {
		p := inv.Params()
		c := inv.Context()

		scope, err := c.AddScope(eachScopePrefix+strconv.Itoa(inv.Node().Line), true)
		if err != nil {
			return err
		}
		defer func() { _ = c.RemoveScope(scope) }()

		for i, item := range p.GetList(ParamItems) {
			if err := c.SetScopedVariable(scope, p.GetString(ParamVar), item); err != nil {
				return err
			}
			if p.Has(ParamIndex) {
				if err := c.SetScopedVariable(scope, p.GetString(ParamIndex), i); err != nil {
					return err
				}
			}
			if err := inv.RenderBody(); err != nil {
				return err
			}
		}
		return nil
	})
}

// includeAction renders another template:
// "% include template=footer [parser=text] key=value ...". Parameters other
// than template and parser become variables of the included template.
func includeAction() tessera.ActionFactory {
	return tessera.NewSimpleAction(ActionInclude, nil, func(inv *tessera.Invocation) error {
		p := inv.Params()
		name := p.GetString(ParamTemplate)
		if name == "" {
			return tessera.NewExecutionError(tessera.ErrMsgMissingParameter, inv.Name(), nil)
		}
		vars := make(map[string]any, len(p))
		for k, v := range p {
			if k != ParamTemplate && k != ParamParser {
				vars[k] = v
			}
		}
		return inv.Include(name, p.GetString(ParamParser), vars)
	})
}

// echoAction writes its value.
func echoAction() tessera.ActionFactory {
	return tessera.NewSimpleAction(ActionEcho, []tessera.ParamDescriptor{
		{Name: ParamValue, Type: tessera.TypeAny, Required: true},
	}, func(inv *tessera.Invocation) error {
		return inv.WriteString(tessera.Stringify(inv.Params()[ParamValue]))
	})
}

// scopeAction renders its body inside a new named scope.
func scopeAction() tessera.ActionFactory {
	return tessera.NewSimpleAction(ActionScope, []tessera.ParamDescriptor{
		{Name: ParamName, Type: tessera.TypeString, Required: true},
	}, func(inv *tessera.Invocation) error {
		c := inv.Context()
		scope, err := c.AddScope(inv.Params().GetString(ParamName), true)
		if err != nil {
			return err
		}
		defer func() { _ = c.RemoveScope(scope) }()
		return inv.RenderBody()
	})
}

// nowAction writes the render start time of the clock implicit object.
func nowAction() tessera.ActionFactory {
	return tessera.NewSimpleAction(ActionNow, []tessera.ParamDescriptor{
		{Name: ParamFormat, Type: tessera.TypeString, Default: DefaultTimeFormat},
	}, func(inv *tessera.Invocation) error {
		obj, err := inv.Context().RequireImplicitObject(ImplicitClock)
		if err != nil {
			return err
		}
		clock, ok := obj.(*Clock)
		if !ok {
			return errors.New(ErrMsgNotAClock)
		}
		return inv.WriteString(clock.Start().Format(inv.Params().GetString(ParamFormat)))
	})
}

// Truthy reports whether v counts as true: false, nil, zero numbers and
// empty strings, lists and maps are false; "false" and "0" are false too.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "false" && val != "0"
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	case time.Time:
		return !val.IsZero()
	default:
		return true
	}
}
