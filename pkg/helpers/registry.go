// Package helpers provides section helpers: named lambdas that receive the
// arguments written in their opening tag along with their body.
//
//	{{#each people}}<li>{{name}}</li>{{/each}}
//
// After the opener is rewritten, the raw section text is "people;<li>...".
// A Registry splits it back into arguments and body before calling the
// Helper.
package helpers

import (
	"sort"
	"strings"
	"sync"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/expr"
	"github.com/sambeau/mustachepp/pkg/mustache"
)

// Helper renders a section. args is the trimmed argument text and body the
// section text after it. The section's View is the view the helper was
// invoked on.
type Helper func(s *mustache.Section, args, body string) (string, error)

type entry struct {
	lambda mustache.Lambda
	target string // set for aliases
}

// Registry maps helper names to lambdas. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry

	// Evaluator evaluates if and unless conditions.
	Evaluator *expr.Evaluator
}

// NewRegistry returns a registry holding the built-in helpers with, each,
// if and unless.
func NewRegistry() *Registry {
	r := &Registry{
		entries:   make(map[string]entry),
		Evaluator: &expr.Evaluator{},
	}
	r.Register("with", With)
	r.Register("each", Each)
	r.Register("if", r.If)
	r.Register("unless", r.Unless)
	return r
}

// Register stores h under name, replacing any helper or alias already there.
func (r *Registry) Register(name string, h Helper) {
	lambda := mustache.Lambda(func(s *mustache.Section) (string, error) {
		args, body := SplitSection(s.Text)
		return h(s, args, body)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{lambda: lambda}
}

// Alias makes name call whatever target names at the time of the call.
func (r *Registry) Alias(name, target string) {
	lambda := mustache.Lambda(func(s *mustache.Section) (string, error) {
		resolved, err := r.resolve(name)
		if err != nil {
			return "", err
		}
		return resolved(s)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{lambda: lambda, target: target}
}

// resolve follows the alias chain from name to a registered helper.
func (r *Registry) resolve(name string) (mustache.Lambda, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	current := name
	for {
		e, ok := r.entries[current]
		if !ok {
			return nil, perrors.NewUnknownAlias(name, current, r.namesLocked())
		}
		if e.target == "" {
			return e.lambda, nil
		}
		if seen[current] {
			return nil, perrors.NewUnknownAlias(name, e.target, nil)
		}
		seen[current] = true
		current = e.target
	}
}

// Get returns the lambda stored under name. For an alias this is the alias
// itself, which resolves its target when called.
func (r *Registry) Get(name string) (mustache.Lambda, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.lambda, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered helper and alias names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SplitSection splits raw section text at the first ";" on its first line.
// A ";" preceded by a backslash does not split and at least one character
// must come before the separator. Both parts are trimmed. Without a
// separator args is empty and body is the whole text.
func SplitSection(text string) (args, body string) {
	line := text
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	for i := 1; i < len(line); i++ {
		if line[i] != ';' || line[i-1] == '\\' {
			continue
		}
		args = strings.ReplaceAll(line[:i], `\;`, ";")
		return strings.TrimSpace(args), strings.TrimSpace(text[i+1:])
	}
	return "", text
}
