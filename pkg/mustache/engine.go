package mustache

import (
	"strings"
	"sync"
	"sync/atomic"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
)

// CompileFunc turns template text into a Template.
type CompileFunc func(text string, tags Tags) (*Template, error)

// PushFunc creates a frame for view. parent is nil when the root frame of a
// render call is being created.
type PushFunc func(parent *Context, view any) *Context

// LookupFunc resolves name against a frame.
type LookupFunc func(c *Context, name string) (any, bool)

// Extension hooks into the engine. Each method does its own work and calls
// next to continue with the rest of the chain.
type Extension interface {
	OnCompile(text string, tags Tags, next CompileFunc) (*Template, error)
	OnPush(parent *Context, view any, next PushFunc) *Context
	OnLookup(c *Context, name string, next LookupFunc) (any, bool)
}

// BaseExtension passes every call straight through. Embed it to implement
// only some of the hooks.
type BaseExtension struct{}

func (BaseExtension) OnCompile(text string, tags Tags, next CompileFunc) (*Template, error) {
	return next(text, tags)
}

func (BaseExtension) OnPush(parent *Context, view any, next PushFunc) *Context {
	return next(parent, view)
}

func (BaseExtension) OnLookup(c *Context, name string, next LookupFunc) (any, bool) {
	return next(c, name)
}

// Lambda is a section value that renders the section itself. It receives the
// raw text of the section and returns the output to insert.
type Lambda func(s *Section) (string, error)

// Section is what a Lambda is called with.
type Section struct {
	Name string // tag name
	Text string // raw, unrendered text between the opening and closing tags
	View any    // view of the frame the section was found in

	ctx  *Context
	tags Tags
}

// Session returns the render session of the invoking frame.
func (s *Section) Session() *Session { return s.ctx.session }

// Tags returns the delimiters in effect where the section was opened.
func (s *Section) Tags() Tags { return s.tags }

// Render compiles text with the section's delimiters and renders it. With no
// view it renders against the invoking frame; a *Context renders against that
// frame; any other value becomes the root of a new chain that keeps the
// current partials.
func (s *Section) Render(text string, view ...any) (string, error) {
	e := s.ctx.engine
	t, err := e.CompileTags(text, s.tags)
	if err != nil {
		return "", err
	}
	if len(view) == 0 {
		return t.RenderContext(s.ctx)
	}
	if c, ok := view[0].(*Context); ok && c != nil {
		return t.RenderContext(c)
	}
	return t.RenderContext(e.newRoot(view[0], s.ctx.session.partials, s.tags))
}

// Option configures an Engine.
type Option func(*Engine)

// Delimiters sets the default tag delimiters.
func Delimiters(open, close string) Option {
	return func(e *Engine) {
		e.tags = Tags{open, close}
	}
}

// Strict makes a variable or partial that cannot be found an error instead
// of empty output.
func Strict(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// WithExtension installs extensions, outermost first.
func WithExtension(exts ...Extension) Option {
	return func(e *Engine) {
		e.exts = append(e.exts, exts...)
	}
}

type cacheKey struct {
	tags Tags
	text string
}

// Engine compiles and renders templates. It is safe for concurrent use.
type Engine struct {
	tags   Tags
	strict bool

	mu     sync.RWMutex
	exts   []Extension
	cache  map[cacheKey]*Template
	chains atomic.Pointer[chains]
}

// chains holds the extension chains built from one snapshot of the
// extension list.
type chains struct {
	exts    []Extension
	compile CompileFunc
	push    PushFunc
	lookup  LookupFunc
}

// New returns an engine configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		tags:  DefaultTags,
		cache: make(map[cacheKey]*Template),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rebuild()
	return e
}

// Use appends extensions to the chain. Extensions added later run after
// the ones already installed.
func (e *Engine) Use(exts ...Extension) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exts = append(e.exts, exts...)
	e.rebuild()
}

// Tags returns the engine's default delimiters.
func (e *Engine) Tags() Tags { return e.tags }

// IsStrict reports whether missing values are errors.
func (e *Engine) IsStrict() bool { return e.strict }

// Compile compiles text with the default delimiters.
func (e *Engine) Compile(text string) (*Template, error) {
	return e.CompileTags(text, e.tags)
}

// CompileTags compiles text with the given delimiters, running the OnCompile
// extensions first.
func (e *Engine) CompileTags(text string, tags Tags) (*Template, error) {
	if !tags.Valid() {
		return nil, perrors.New("CONFIG-0002", map[string]any{"Open": tags.Open(), "Close": tags.Close()})
	}
	return e.chains.Load().compile(text, tags)
}

// Render compiles text and renders it against view.
func (e *Engine) Render(text string, view any, partials map[string]string) (string, error) {
	t, err := e.Compile(text)
	if err != nil {
		return "", err
	}
	return t.Render(view, partials)
}

// NewContext creates the root frame of a new render session.
func (e *Engine) NewContext(view any) *Context {
	return e.newRoot(view, nil, e.tags)
}

func (e *Engine) newRoot(view any, partials map[string]string, tags Tags) *Context {
	session := newSession(partials, tags)
	base := func(_ *Context, v any) *Context {
		c := &Context{view: v, engine: e, session: session}
		session.record(c)
		return c
	}
	return chainPush(e.chains.Load().exts, base)(nil, view)
}

func pushChild(parent *Context, view any) *Context {
	c := &Context{
		view:    view,
		parent:  parent,
		depth:   parent.depth + 1,
		engine:  parent.engine,
		session: parent.session,
	}
	parent.session.record(c)
	return c
}

// rebuild recomputes the extension chains. Callers hold e.mu or own e.
func (e *Engine) rebuild() {
	exts := append([]Extension(nil), e.exts...)
	ch := &chains{
		exts: exts,
		push: chainPush(exts, pushChild),
	}

	compile := CompileFunc(e.parse)
	lookup := LookupFunc(lookupBase)
	for i := len(exts) - 1; i >= 0; i-- {
		ext, innerCompile, innerLookup := exts[i], compile, lookup
		compile = func(text string, tags Tags) (*Template, error) {
			return ext.OnCompile(text, tags, innerCompile)
		}
		lookup = func(c *Context, name string) (any, bool) {
			return ext.OnLookup(c, name, innerLookup)
		}
	}
	ch.compile, ch.lookup = compile, lookup
	e.chains.Store(ch)
}

func chainPush(exts []Extension, base PushFunc) PushFunc {
	next := base
	for i := len(exts) - 1; i >= 0; i-- {
		ext, inner := exts[i], next
		next = func(parent *Context, view any) *Context {
			return ext.OnPush(parent, view, inner)
		}
	}
	return next
}

// parse is the end of the compile chain. Parsed templates are cached by
// delimiters and text.
func (e *Engine) parse(text string, tags Tags) (*Template, error) {
	key := cacheKey{tags: tags, text: text}
	e.mu.RLock()
	t, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return t, nil
	}

	nodes, err := parse(text, tags)
	if err != nil {
		return nil, err
	}
	t = &Template{engine: e, source: text, tags: tags, nodes: nodes}

	e.mu.Lock()
	e.cache[key] = t
	e.mu.Unlock()
	return t, nil
}

// Template is a compiled template. It can be rendered any number of times.
type Template struct {
	engine *Engine
	source string
	tags   Tags
	nodes  []node
}

// Source returns the text the template was parsed from, after the compile
// extensions ran.
func (t *Template) Source() string { return t.source }

// Tags returns the delimiters the template was compiled with.
func (t *Template) Tags() Tags { return t.tags }

// Render renders the template against view in a new session.
func (t *Template) Render(view any, partials map[string]string) (string, error) {
	return t.RenderContext(t.engine.newRoot(view, partials, t.tags))
}

// RenderContext renders the template against an existing frame.
func (t *Template) RenderContext(c *Context) (string, error) {
	var b strings.Builder
	if err := renderNodes(t, &b, c, t.nodes); err != nil {
		return "", err
	}
	return b.String(), nil
}
