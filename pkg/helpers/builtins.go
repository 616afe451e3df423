package helpers

import (
	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/mustache"
	"github.com/sambeau/mustachepp/pkg/scope"
)

// frame finds the frame the helper was invoked on.
func frame(s *mustache.Section, helper string) (*mustache.Context, error) {
	c, ok := s.Session().FrameFor(s.View)
	if !ok {
		return nil, perrors.New("HELPER-0001", map[string]any{"Helper": helper})
	}
	return c, nil
}

// With renders body once against the value at the args path.
//
//	{{#with options}}{{width}}x{{height}}{{/with}}
//
// The value is also available as @value. A missing or nil value renders
// nothing.
func With(s *mustache.Section, args, body string) (string, error) {
	if args == "" {
		return s.Render(body)
	}
	c, err := frame(s, "with")
	if err != nil {
		return "", err
	}
	v, ok := c.Lookup(args)
	if !ok || mustache.IsNil(v) {
		return "", nil
	}
	return s.Render(body, c.Push(scope.NewOverlay(v, map[string]any{"@value": v})))
}

// Each renders body for every element of a sequence or every entry of a
// mapping at the args path, skipping nil values. Each pass sees @index,
// @key and @value. For sequences @index and @key are the position; for
// mappings both are the key.
func Each(s *mustache.Section, args, body string) (string, error) {
	if args == "" {
		return s.Render(body)
	}
	c, err := frame(s, "each")
	if err != nil {
		return "", err
	}
	v, ok := c.Lookup(args)
	if !ok || mustache.IsNil(v) {
		return "", nil
	}

	var out []byte
	emit := func(key, value any) error {
		if mustache.IsNil(value) {
			return nil
		}
		pushed := c.Push(scope.NewOverlay(value, map[string]any{
			"@index": key,
			"@key":   key,
			"@value": value,
		}))
		rendered, err := s.Render(body, pushed)
		if err != nil {
			return err
		}
		out = append(out, rendered...)
		return nil
	}

	if items, ok := mustache.Items(v); ok {
		for i, item := range items {
			if err := emit(i, item); err != nil {
				return "", err
			}
		}
		return string(out), nil
	}
	if entries, ok := mustache.Entries(v); ok {
		for _, e := range entries {
			if err := emit(e.Key, e.Value); err != nil {
				return "", err
			}
		}
	}
	return string(out), nil
}

// If renders body when the condition in args is true.
//
//	{{#if members.length > 0}}...{{/if}}
//
// A condition with a function call, brackets, braces or an assignment is
// an error. A condition that fails to evaluate is false.
func (r *Registry) If(s *mustache.Section, args, body string) (string, error) {
	return r.conditional(s, "if", args, body, true)
}

// Unless renders body when the condition in args is false.
func (r *Registry) Unless(s *mustache.Section, args, body string) (string, error) {
	return r.conditional(s, "unless", args, body, false)
}

func (r *Registry) conditional(s *mustache.Section, helper, args, body string, want bool) (string, error) {
	if args == "" {
		return s.Render(body)
	}
	c, err := frame(s, helper)
	if err != nil {
		return "", err
	}
	ok, err := r.Evaluator.Evaluate(c, args)
	if err != nil {
		return "", err
	}
	if ok != want {
		return "", nil
	}
	return s.Render(body)
}
