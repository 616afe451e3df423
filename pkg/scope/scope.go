// Package scope adds scope jumps to name lookup.
//
// A name starting with "~" is resolved on the root frame. A name starting
// with one or more ":" is resolved that many frames up the chain; when the
// chain is shorter, the walk stops at the root, and when no walk happens at
// all the name is resolved on the current frame as usual.
package scope

import (
	"strings"

	"github.com/sambeau/mustachepp/pkg/mustache"
)

// Lookup resolves path on c, honouring the "~" and ":" prefixes. Plain
// paths go to next. A miss returns (nil, false).
func Lookup(c *mustache.Context, path string, next mustache.LookupFunc) (any, bool) {
	switch {
	case strings.HasPrefix(path, "~"):
		root := c.Root()
		if root == c {
			return nil, false
		}
		return root.Lookup(path[1:])

	case strings.HasPrefix(path, ":"):
		rest := strings.TrimLeft(path, ":")
		target := c.Ancestor(len(path) - len(rest))
		if target != c {
			return target.Lookup(rest)
		}
		return next(c, rest)
	}
	return next(c, path)
}

// Extension installs scope jumps on an engine and wraps every pushed view in
// its own Overlay.
type Extension struct {
	mustache.BaseExtension
}

// OnPush wraps view in an Overlay.
func (Extension) OnPush(parent *mustache.Context, view any, next mustache.PushFunc) *mustache.Context {
	return next(parent, Wrap(view))
}

// OnLookup resolves scope jumps.
func (Extension) OnLookup(c *mustache.Context, name string, next mustache.LookupFunc) (any, bool) {
	return Lookup(c, name, next)
}
