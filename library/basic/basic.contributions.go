package basic

import (
	"errors"

	tessera "github.com/itsatony/go-tessera"
	"github.com/microcosm-cc/bluemonday"
)

// skipContribution suppresses creation and execution of its action.
func skipContribution() tessera.ContributionFactory {
	return tessera.NewContributionFactory(ContribSkip, func(tessera.Params) (tessera.Interceptor, error) {
		return tessera.NewInterceptor(tessera.BothPhases,
			func(*tessera.Invocation, tessera.Phase, *tessera.Chain) error { return nil })
	})
}

// whenContribution lets its action run only when test is truthy:
// "% echo value=x +when(test=${debug})".
func whenContribution() tessera.ContributionFactory {
	return tessera.NewContributionFactory(ContribWhen, func(args tessera.Params) (tessera.Interceptor, error) {
		enabled := Truthy(args[ParamTest])
		return tessera.NewInterceptor(tessera.BothPhases,
			func(_ *tessera.Invocation, _ tessera.Phase, chain *tessera.Chain) error {
				if !enabled {
					return nil
				}
				return chain.Proceed()
			})
	})
}

// indentContribution prefixes every line written by its action.
func indentContribution() tessera.ContributionFactory {
	return tessera.NewContributionFactory(ContribIndent, func(args tessera.Params) (tessera.Interceptor, error) {
		prefix := args.GetString(ParamPrefix)
		return &tessera.WriterInterceptor{
			NewWriter: func(_ *tessera.Invocation, inner tessera.Writer) (tessera.Writer, error) {
				return tessera.NewIndentWriter(inner, prefix), nil
			},
		}, nil
	})
}

// captureContribution stores the output of its action in a variable
// instead of writing it: "% include template=footer +capture(name=footer)".
func captureContribution() tessera.ContributionFactory {
	return tessera.NewContributionFactory(ContribCapture, func(args tessera.Params) (tessera.Interceptor, error) {
		name := args.GetString(ParamName)
		if name == "" {
			return nil, errors.New(ErrMsgCaptureNoName)
		}
		return &tessera.WriterInterceptor{
			NewWriter: func(inv *tessera.Invocation, inner tessera.Writer) (tessera.Writer, error) {
				c := inv.Context()
				return tessera.NewCaptureWriter(inner, func(out string) (string, error) {
					c.SetVariable(name, out)
					return "", nil
				}), nil
			},
		}, nil
	})
}

// sanitizeContribution runs the output of its action through an HTML
// sanitizer policy, "strict" (default) or "ugc".
func sanitizeContribution() tessera.ContributionFactory {
	return tessera.NewContributionFactory(ContribSanitize, func(args tessera.Params) (tessera.Interceptor, error) {
		policy, err := sanitizePolicy(args.GetString(ParamPolicy))
		if err != nil {
			return nil, err
		}
		return &tessera.WriterInterceptor{
			NewWriter: func(_ *tessera.Invocation, inner tessera.Writer) (tessera.Writer, error) {
				return tessera.NewCaptureWriter(inner, func(out string) (string, error) {
					return policy.Sanitize(out), nil
				}), nil
			},
		}, nil
	})
}

func sanitizePolicy(name string) (*bluemonday.Policy, error) {
	switch name {
	case "", PolicyStrict:
		return bluemonday.StrictPolicy(), nil
	case PolicyUGC:
		return bluemonday.UGCPolicy(), nil
	}
	return nil, errors.New(ErrMsgUnknownPolicy + ": " + name)
}
