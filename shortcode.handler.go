package shortcode

import (
	"context"

	"github.com/itsatony/go-shortcode/internal"
)

// Attributes holds a directive's attribute values. Values are strings;
// handlers coerce them with Bool, Int and friends.
type Attributes = internal.Attributes

// Handler resolves and renders one directive name.
type Handler interface {
	// Name returns the directive name this handler serves (e.g. "field").
	Name() string

	// DefaultAttributes are merged under the explicit attributes found in the
	// text. Explicit values always win, even when empty.
	DefaultAttributes() map[string]string

	// Validate checks the merged attributes. A non-nil error omits the
	// directive from the output.
	Validate(attrs Attributes) error

	// Resolve produces the directive's value. It must not panic; failures are
	// reported through the returned state.
	// ctx carries cancellation and the per-call deadline.
	Resolve(ctx context.Context, rc *Context, attrs Attributes) ResolvedValue

	// Render turns a Resolved value into output. It is only called for
	// StateResolved; the renderer handles the other states.
	Render(value ResolvedValue, attrs Attributes) Node
}

// ResolveFunc is the resolve step of a HandlerFunc.
type ResolveFunc func(ctx context.Context, rc *Context, attrs Attributes) ResolvedValue

// RenderFunc is the render step of a HandlerFunc.
type RenderFunc func(value ResolvedValue, attrs Attributes) Node

// ValidateFunc is the validation step of a HandlerFunc.
type ValidateFunc func(attrs Attributes) error

// HandlerFunc is a convenience type for building handlers from functions.
type HandlerFunc struct {
	name     string
	defaults map[string]string
	resolve  ResolveFunc
	render   RenderFunc
	validate ValidateFunc
}

// NewHandlerFunc creates a function-based handler.
// If render is nil the raw value is rendered as text.
// If validate is nil, Validate() always returns nil.
func NewHandlerFunc(
	name string,
	defaults map[string]string,
	resolve ResolveFunc,
	render RenderFunc,
	validate ValidateFunc,
) *HandlerFunc {
	return &HandlerFunc{
		name:     name,
		defaults: defaults,
		resolve:  resolve,
		render:   render,
		validate: validate,
	}
}

// Name returns the directive name.
func (h *HandlerFunc) Name() string {
	return h.name
}

// DefaultAttributes returns a copy of the default attributes.
func (h *HandlerFunc) DefaultAttributes() map[string]string {
	out := make(map[string]string, len(h.defaults))
	for k, v := range h.defaults {
		out[k] = v
	}
	return out
}

// Validate runs the validation function if provided.
func (h *HandlerFunc) Validate(attrs Attributes) error {
	if h.validate != nil {
		return h.validate(attrs)
	}
	return nil
}

// Resolve runs the resolve function. A nil function resolves to Empty.
func (h *HandlerFunc) Resolve(ctx context.Context, rc *Context, attrs Attributes) ResolvedValue {
	if h.resolve == nil {
		return Empty()
	}
	return h.resolve(ctx, rc, attrs)
}

// Render runs the render function, or stringifies the raw value.
func (h *HandlerFunc) Render(value ResolvedValue, attrs Attributes) Node {
	if h.render != nil {
		return h.render(value, attrs)
	}
	return TextNode(toString(value.Raw))
}

// requireAttributes returns a validator that checks each named attribute is
// present and non-empty.
func requireAttributes(directive string, names ...string) ValidateFunc {
	return func(attrs Attributes) error {
		for _, name := range names {
			if v, ok := attrs.Get(name); !ok || v == "" {
				return NewMissingAttributeError(name, directive)
			}
		}
		return nil
	}
}
