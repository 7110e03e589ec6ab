package shortcode

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/itsatony/go-shortcode/internal"
)

// Directive is one parsed occurrence of a directive in the source text.
type Directive = internal.Directive

// Position is a location in the source text.
type Position = internal.Position

// Error marker and placeholder markup
const (
	attrAriaBusyTrue = "true"
	markerTag        = "span"
	defaultWrapper   = "span"
)

// allowedWrappers lists the tags accepted by the wrapper attribute.
var allowedWrappers = map[string]bool{
	"span": true, "div": true, "p": true, "section": true, "article": true,
	"strong": true, "em": true, "small": true, "mark": true, "code": true,
	"blockquote": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Fragment is one piece of a rendered document: either literal source text
// or the output of one directive.
type Fragment struct {
	// Literal is true for source text between directives and for
	// directives with no registered handler.
	Literal bool
	// Text is the literal text. For unregistered directives it is the
	// directive's full match.
	Text string
	// Directive is the occurrence this fragment renders; nil for plain text.
	Directive *Directive
	// Omitted is true when the directive failed validation.
	Omitted bool
	// State is the directive's lifecycle state.
	State State
	// Value is the resolved value once State is final.
	Value ResolvedValue
	// Node is the current output: a placeholder while loading.
	Node Node
}

// String returns the fragment's textual form.
func (f Fragment) String() string {
	if f.Literal {
		return f.Text
	}
	return f.Node.String()
}

// Document is the ordered fragment sequence produced for a source text.
type Document struct {
	Source    string
	Fragments []Fragment
}

// String concatenates the fragments.
func (d *Document) String() string {
	var sb strings.Builder
	for _, f := range d.Fragments {
		sb.WriteString(f.String())
	}
	return sb.String()
}

// Directives returns the directive fragments in source order.
func (d *Document) Directives() []Fragment {
	out := make([]Fragment, 0, len(d.Fragments))
	for _, f := range d.Fragments {
		if f.Directive != nil {
			out = append(out, f)
		}
	}
	return out
}

// pendingDirective is a directive scheduled for resolution.
type pendingDirective struct {
	index   int
	handler Handler
	attrs   Attributes
}

// plan splits text into fragments. Registered, valid directives are returned
// as pending work with a loading placeholder in their slot. Only registered
// names take the block form; an unknown [name]...[/name] leaves both tags
// literal and its content is planned like any other text.
func (e *Engine) plan(text string) ([]Fragment, []pendingDirective) {
	directives := internal.ScanBlocks(text, e.logger, e.Has)
	fragments := make([]Fragment, 0, 2*len(directives)+1)
	var pending []pendingDirective

	cursor := 0
	for i := range directives {
		d := directives[i]
		start := d.Position.Offset
		if start < cursor || !strings.HasPrefix(text[start:], d.FullMatch) {
			rel := strings.Index(text[cursor:], d.FullMatch)
			if rel < 0 {
				continue
			}
			start = cursor + rel
		}
		if start > cursor {
			fragments = append(fragments, Fragment{Literal: true, Text: text[cursor:start]})
		}
		cursor = start + len(d.FullMatch)

		handler, ok := e.lookup(d.Name)
		if !ok {
			e.logger.Warn(LogMsgDirectiveUnknown,
				zap.String(LogFieldDirective, d.Name),
				zap.Int(LogFieldLine, d.Position.Line),
				zap.Int(LogFieldColumn, d.Position.Column))
			fragments = append(fragments, Fragment{Literal: true, Text: d.FullMatch, Directive: &d})
			continue
		}

		attrs := internal.MergeAttributes(handler.DefaultAttributes(), d.Attributes)
		if err := handler.Validate(attrs); err != nil {
			e.logger.Warn(LogMsgDirectiveInvalid,
				zap.String(LogFieldDirective, d.Name),
				zap.Int(LogFieldLine, d.Position.Line),
				zap.Int(LogFieldColumn, d.Position.Column),
				zap.Error(err))
			fragments = append(fragments, Fragment{Directive: &d, Omitted: true, State: StateEmpty})
			continue
		}

		pending = append(pending, pendingDirective{index: len(fragments), handler: handler, attrs: attrs})
		fragments = append(fragments, Fragment{
			Directive: &d,
			State:     StateLoading,
			Node:      loadingPlaceholder(d.Name),
		})
	}
	if cursor < len(text) {
		fragments = append(fragments, Fragment{Literal: true, Text: text[cursor:]})
	}
	return fragments, pending
}

// resolve runs the handler. A panic becomes an Errored value and a
// non-final state is treated as Empty.
func (e *Engine) resolve(ctx context.Context, rc *Context, d *Directive, handler Handler, attrs Attributes) (value ResolvedValue) {
	defer func() {
		if r := recover(); r != nil {
			err := NewHandlerPanicError(d.Name, r)
			e.logger.Error(LogMsgHandlerPanic, zap.String(LogFieldDirective, d.Name), zap.Error(err))
			value = Errored(err, ErrMsgHandlerPanic)
		}
	}()

	value = handler.Resolve(ctx, rc, attrs)
	if !value.State.IsFinal() {
		value = Empty()
	}
	if value.State == StateErrored && value.Message == "" {
		value.Message = describeError(value.Err)
	}
	if value.Locale == "" {
		value.Locale = rc.Locale
	}
	return value
}

// renderValue produces the output node for a final state.
func (e *Engine) renderValue(d *Directive, handler Handler, attrs Attributes, value ResolvedValue) (node Node) {
	switch value.State {
	case StateResolved:
		defer func() {
			if r := recover(); r != nil {
				err := NewHandlerPanicError(d.Name, r)
				e.logger.Error(LogMsgHandlerPanic, zap.String(LogFieldDirective, d.Name), zap.Error(err))
				node = e.renderValue(d, handler, attrs, Errored(err, ErrMsgHandlerPanic))
			}
		}()
		return wrap(handler.Render(value, attrs), attrs)
	case StateEmpty:
		if def, ok := attrs.Get(AttrDefault); ok {
			return RawNode(def)
		}
		return Node{}
	case StateErrored:
		if def, ok := attrs.Get(AttrDefault); ok {
			return RawNode(def)
		}
		return errorMarker(d.Name, value.Message)
	default:
		return loadingPlaceholder(d.Name)
	}
}

// wrap places node in the wrapper element when a wrapper or class is given.
func wrap(node Node, attrs Attributes) Node {
	wrapper := strings.ToLower(attrs.GetDefault(AttrWrapper, ""))
	class := attrs.GetDefault(AttrClass, "")
	if wrapper == "" && class == "" {
		return node
	}
	if !allowedWrappers[wrapper] {
		wrapper = defaultWrapper
	}
	return ElementNode(wrapper, []htmlAttr{Attr(attrClass, class)}, node)
}

func loadingPlaceholder(name string) Node {
	return ElementNode(markerTag, []htmlAttr{
		Attr(attrClass, ClassLoading),
		Attr(DataShortcode, name),
		Attr(AriaBusy, attrAriaBusyTrue),
	})
}

// errorMarker names the directive and carries the short message as a
// diagnostic attribute. Underlying error text is never included.
func errorMarker(name, message string) Node {
	if message == "" {
		message = ErrMsgSourceRequest
	}
	return ElementNode(markerTag, []htmlAttr{
		Attr(attrClass, ClassError),
		Attr(DataShortcode, name),
		Attr(DataError, message),
	}, TextNode(DefaultErrorText))
}
