package scope

import (
	"github.com/sambeau/mustachepp/pkg/mustache"
)

// Overlay decorates a view with extra properties without touching it. Each
// frame gets its own Overlay, which gives every frame view a reference
// identity even when the underlying value is a map, slice or scalar.
type Overlay struct {
	base  any
	props map[string]any
}

// NewOverlay wraps base. props may be nil.
func NewOverlay(base any, props map[string]any) *Overlay {
	o := &Overlay{base: base, props: make(map[string]any, len(props))}
	for k, v := range props {
		o.props[k] = v
	}
	return o
}

// Wrap returns view if it is already an Overlay, and a new Overlay around
// it otherwise.
func Wrap(view any) *Overlay {
	if o, ok := view.(*Overlay); ok {
		return o
	}
	return NewOverlay(view, nil)
}

// Get resolves name on the overlay properties first, then on the base.
func (o *Overlay) Get(name string) (any, bool) {
	if v, ok := o.props[name]; ok {
		return v, true
	}
	return mustache.Member(o.base, name)
}

// Set adds or replaces a property.
func (o *Overlay) Set(name string, v any) { o.props[name] = v }

// Base returns the wrapped value.
func (o *Overlay) Base() any { return o.base }

// Unwrap implements mustache.Unwrapper.
func (o *Overlay) Unwrap() any { return o.base }

func (o *Overlay) String() string { return mustache.Stringify(o.base) }
