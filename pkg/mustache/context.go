package mustache

import (
	"reflect"
	"strings"
)

// Context is one frame of the view chain. The root frame has no parent.
type Context struct {
	view    any
	parent  *Context
	depth   int
	engine  *Engine
	session *Session
}

// View returns the value held by the frame.
func (c *Context) View() any { return c.view }

// Parent returns the frame this one was pushed from, or nil for the root.
func (c *Context) Parent() *Context { return c.parent }

// Depth returns the number of parent links between c and the root.
func (c *Context) Depth() int { return c.depth }

// Session returns the render session the frame belongs to.
func (c *Context) Session() *Session { return c.session }

// Engine returns the engine whose extensions the frame runs through.
func (c *Context) Engine() *Engine { return c.engine }

// Root walks the parent links to the frame with no parent.
func (c *Context) Root() *Context {
	root := c
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Ancestor walks up at most n parent links and returns the frame reached.
func (c *Context) Ancestor(n int) *Context {
	target := c
	for ; n > 0 && target.parent != nil; n-- {
		target = target.parent
	}
	return target
}

// Push creates a child frame for view. The engine's OnPush extensions see
// the view first and may replace it.
func (c *Context) Push(view any) *Context {
	return c.engine.chains.Load().push(c, view)
}

// Lookup resolves name against the frame, running the engine's OnLookup
// extensions. A miss returns (nil, false).
func (c *Context) Lookup(name string) (any, bool) {
	return c.engine.chains.Load().lookup(c, name)
}

// lookupBase is the engine's own lookup: "." is the frame view, anything
// else is a dotted path tried against each frame from c up to the root.
// The first frame on which the whole path resolves to a non-nil value wins;
// a nil value is only returned when no outer frame has one.
func lookupBase(c *Context, name string) (any, bool) {
	if name == "." {
		return c.view, true
	}
	parts := strings.Split(name, ".")
	found := false
	for frame := c; frame != nil; frame = frame.parent {
		if v, ok := resolve(frame.view, parts); ok {
			if !IsNil(v) {
				return v, true
			}
			found = true
		}
	}
	return nil, found
}

func resolve(v any, parts []string) (any, bool) {
	for _, part := range parts {
		next, ok := Member(v, part)
		if !ok {
			return nil, false
		}
		v = next
	}
	return v, true
}

// Session holds the state of one top-level render call: every frame created
// while rendering, and the partials the call was given. A Session is never
// shared between render calls.
type Session struct {
	frames   []*Context
	byView   map[any]*Context
	partials map[string]string
	tags     Tags
}

func newSession(partials map[string]string, tags Tags) *Session {
	return &Session{
		byView:   make(map[any]*Context),
		partials: partials,
		tags:     tags,
	}
}

func (s *Session) record(c *Context) {
	s.frames = append(s.frames, c)
	if !identifiable(c.view) {
		return
	}
	if _, ok := s.byView[c.view]; !ok {
		s.byView[c.view] = c
	}
}

// identifiable reports whether v has a reference identity that can serve as
// a map key. Only pointers qualify.
func identifiable(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Pointer
}

// FrameFor returns the first frame recorded in the session whose view is v.
// Views are compared by reference identity, so only pointer views can be
// found.
func (s *Session) FrameFor(v any) (*Context, bool) {
	if s == nil || !identifiable(v) {
		return nil, false
	}
	c, ok := s.byView[v]
	return c, ok
}

// Frames returns every frame recorded so far, in creation order.
func (s *Session) Frames() []*Context {
	return append([]*Context(nil), s.frames...)
}

// Len returns the number of recorded frames.
func (s *Session) Len() int { return len(s.frames) }

// Partial returns the partial template registered under name.
func (s *Session) Partial(name string) (string, bool) {
	p, ok := s.partials[name]
	return p, ok
}

// Partials returns the partials the render call was given.
func (s *Session) Partials() map[string]string { return s.partials }
