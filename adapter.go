package mustachepp

import (
	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/helpers"
	"github.com/sambeau/mustachepp/pkg/mustache"
	"github.com/sambeau/mustachepp/pkg/rewrite"
	"github.com/sambeau/mustachepp/pkg/scope"
)

// adapter connects the helper registry to a mustache engine. It rewrites
// section arguments at compile time, wraps pushed views for scope jumps and
// frame lookup, and makes helper names resolve to their lambdas.
type adapter struct {
	scope.Extension
	helpers *helpers.Registry
}

func (a *adapter) OnCompile(text string, tags mustache.Tags, next mustache.CompileFunc) (*mustache.Template, error) {
	return next(rewrite.Rewrite(text, tags), tags)
}

// OnLookup gives helpers precedence over view data of the same name.
func (a *adapter) OnLookup(c *mustache.Context, name string, next mustache.LookupFunc) (any, bool) {
	if h, ok := a.helpers.Get(name); ok {
		return h, true
	}
	return a.Extension.OnLookup(c, name, next)
}

func reportTo(logger Logger) func(*perrors.TemplateError) {
	return func(err *perrors.TemplateError) {
		logger.LogLine("mustachepp:", err.Error())
	}
}
