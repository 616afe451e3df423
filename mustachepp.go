package mustachepp

import (
	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/helpers"
	"github.com/sambeau/mustachepp/pkg/mustache"
)

type options struct {
	logger Logger
	strict bool
	tags   mustache.Tags
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets where conditions that fail to evaluate are reported.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStrict makes a missing variable or partial a render error. It only
// affects engines created by New.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithTags sets the default delimiters.
func WithTags(open, close string) Option {
	return func(o *options) { o.tags = mustache.Tags{open, close} }
}

// Engine renders mustache templates with section helpers and scope jumps.
// It is safe for concurrent use.
type Engine struct {
	core    *mustache.Engine
	helpers *helpers.Registry
	logger  Logger
	tags    mustache.Tags
}

// New returns an engine with the built-in helpers registered.
func New(opts ...Option) *Engine {
	o := options{logger: NullLogger(), tags: mustache.DefaultTags}
	for _, opt := range opts {
		opt(&o)
	}
	core := mustache.New(mustache.Delimiters(o.tags.Open(), o.tags.Close()), mustache.Strict(o.strict))
	return wrap(core, o)
}

// Wrap installs helpers and scope jumps on an existing mustache engine.
// Without a core it fails with a configuration error.
func Wrap(core *mustache.Engine, opts ...Option) (*Engine, error) {
	if core == nil {
		return nil, perrors.New("CONFIG-0001", nil)
	}
	o := options{logger: NullLogger(), tags: core.Tags()}
	for _, opt := range opts {
		opt(&o)
	}
	return wrap(core, o), nil
}

func wrap(core *mustache.Engine, o options) *Engine {
	registry := helpers.NewRegistry()
	registry.Evaluator.Report = reportTo(o.logger)
	core.Use(&adapter{helpers: registry})
	return &Engine{
		core:    core,
		helpers: registry,
		logger:  o.logger,
		tags:    o.tags,
	}
}

// Render compiles text and renders it against view.
func (e *Engine) Render(text string, view any, partials map[string]string) (string, error) {
	t, err := e.Compile(text)
	if err != nil {
		return "", err
	}
	return t.Render(view, partials)
}

// Compile compiles text. tags defaults to the engine's delimiters.
func (e *Engine) Compile(text string, tags ...mustache.Tags) (*mustache.Template, error) {
	t := e.tags
	if len(tags) > 0 {
		t = tags[0]
	}
	return e.core.CompileTags(text, t)
}

// RegisterHelper registers h under name, replacing any earlier helper.
func (e *Engine) RegisterHelper(name string, h helpers.Helper) {
	e.helpers.Register(name, h)
}

// AliasHelper makes name call whatever helper existing names when the
// template is rendered.
func (e *Engine) AliasHelper(name, existing string) {
	e.helpers.Alias(name, existing)
}

// GetHelper returns the lambda registered under name.
func (e *Engine) GetHelper(name string) (mustache.Lambda, bool) {
	return e.helpers.Get(name)
}

// Helpers returns the engine's helper registry.
func (e *Engine) Helpers() *helpers.Registry { return e.helpers }

// Core returns the underlying mustache engine.
func (e *Engine) Core() *mustache.Engine { return e.core }

// Tags returns the default delimiters.
func (e *Engine) Tags() mustache.Tags { return e.tags }

var defaultEngine = New()

// Default returns the engine used by the package-level functions.
func Default() *Engine { return defaultEngine }

// Render renders text with the default engine.
func Render(text string, view any, partials map[string]string) (string, error) {
	return defaultEngine.Render(text, view, partials)
}

// Compile compiles text with the default engine.
func Compile(text string, tags ...mustache.Tags) (*mustache.Template, error) {
	return defaultEngine.Compile(text, tags...)
}

// RegisterHelper registers a helper on the default engine.
func RegisterHelper(name string, h helpers.Helper) {
	defaultEngine.RegisterHelper(name, h)
}

// AliasHelper aliases a helper on the default engine.
func AliasHelper(name, existing string) {
	defaultEngine.AliasHelper(name, existing)
}

// GetHelper returns a helper of the default engine.
func GetHelper(name string) (mustache.Lambda, bool) {
	return defaultEngine.GetHelper(name)
}
