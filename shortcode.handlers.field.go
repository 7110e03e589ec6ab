package shortcode

import (
	"context"
	"strconv"
)

// targetID returns the post_id attribute, else the ambient item id.
func targetID(rc *Context, attrs Attributes) (int64, bool) {
	if id, ok := attrs.Int64(AttrPostID); ok {
		return id, true
	}
	id := rc.AmbientID()
	return id, id != 0
}

// validatePostID rejects a post_id that is present but not an integer.
func validatePostID(attrs Attributes) error {
	v, ok := attrs.Get(AttrPostID)
	if !ok || v == "" {
		return nil
	}
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		return NewInvalidAttributeError(AttrPostID, v, err.Error())
	}
	return nil
}

// validateOneOf rejects a present attribute whose value is not in allowed.
func validateOneOf(attrs Attributes, name string, allowed ...string) error {
	v, ok := attrs.Get(name)
	if !ok || v == "" {
		return nil
	}
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return NewInvalidAttributeError(name, v, ErrMsgInvalidAttribute)
}

// fieldHandler serves [field]: one field of an item.
type fieldHandler struct {
	providers *Providers
	formatter *Formatter
}

func newFieldHandler(p *Providers, f *Formatter) *fieldHandler {
	return &fieldHandler{providers: p, formatter: f}
}

func (h *fieldHandler) Name() string { return DirectiveField }

func (h *fieldHandler) DefaultAttributes() map[string]string {
	return map[string]string{}
}

func (h *fieldHandler) Validate(attrs Attributes) error {
	if err := requireAttributes(DirectiveField, AttrField)(attrs); err != nil {
		return err
	}
	return validatePostID(attrs)
}

func (h *fieldHandler) Resolve(ctx context.Context, rc *Context, attrs Attributes) ResolvedValue {
	id, ok := targetID(rc, attrs)
	if !ok {
		return Errored(NewNoTargetItemError(DirectiveField), "")
	}
	postType := attrs.GetDefault(AttrPostType, "")
	return h.providers.Field(ctx, rc, postType, id, attrs.GetDefault(AttrField, ""))
}

func (h *fieldHandler) Render(value ResolvedValue, attrs Attributes) Node {
	return h.formatter.ForLocale(value.Locale).Format(
		attrs.GetDefault(AttrField, ""), value.Raw, value.TypeTag, attrs.GetDefault(AttrFormat, ""), attrs)
}

// typedFieldHandler serves [typed_field]: a custom field with a type tag.
type typedFieldHandler struct {
	providers *Providers
	formatter *Formatter
}

func newTypedFieldHandler(p *Providers, f *Formatter) *typedFieldHandler {
	return &typedFieldHandler{providers: p, formatter: f}
}

func (h *typedFieldHandler) Name() string { return DirectiveTypedField }

func (h *typedFieldHandler) DefaultAttributes() map[string]string {
	return map[string]string{
		AttrFormat:    FormatFormatted,
		AttrSize:      DefaultImageSize,
		AttrSeparator: DefaultSeparator,
	}
}

func (h *typedFieldHandler) Validate(attrs Attributes) error {
	if err := requireAttributes(DirectiveTypedField, AttrName)(attrs); err != nil {
		return err
	}
	if err := validateOneOf(attrs, AttrFormat, FormatRaw, FormatFormatted, FormatHTML); err != nil {
		return err
	}
	return validatePostID(attrs)
}

func (h *typedFieldHandler) Resolve(ctx context.Context, rc *Context, attrs Attributes) ResolvedValue {
	id, ok := targetID(rc, attrs)
	if !ok {
		return Errored(NewNoTargetItemError(DirectiveTypedField), "")
	}
	return h.providers.TypedField(ctx, rc, id, attrs.GetDefault(AttrName, ""), attrs.GetDefault(AttrType, ""))
}

func (h *typedFieldHandler) Render(value ResolvedValue, attrs Attributes) Node {
	return h.formatter.ForLocale(value.Locale).Format(
		attrs.GetDefault(AttrName, ""), value.Raw, value.TypeTag, attrs.GetDefault(AttrFormat, ""), attrs)
}

// rawMetaHandler serves [raw_meta]: an untyped metadata value.
type rawMetaHandler struct {
	providers *Providers
	formatter *Formatter
}

func newRawMetaHandler(p *Providers, f *Formatter) *rawMetaHandler {
	return &rawMetaHandler{providers: p, formatter: f}
}

func (h *rawMetaHandler) Name() string { return DirectiveRawMeta }

func (h *rawMetaHandler) DefaultAttributes() map[string]string {
	return map[string]string{
		AttrSingle:    AttrValueTrue,
		AttrSeparator: DefaultSeparator,
	}
}

func (h *rawMetaHandler) Validate(attrs Attributes) error {
	if err := requireAttributes(DirectiveRawMeta, AttrKey)(attrs); err != nil {
		return err
	}
	return validatePostID(attrs)
}

func (h *rawMetaHandler) Resolve(ctx context.Context, rc *Context, attrs Attributes) ResolvedValue {
	id, ok := targetID(rc, attrs)
	if !ok {
		return Errored(NewNoTargetItemError(DirectiveRawMeta), "")
	}
	return h.providers.Meta(ctx, rc, id, attrs.GetDefault(AttrKey, ""), attrs.Bool(AttrSingle, true))
}

func (h *rawMetaHandler) Render(value ResolvedValue, attrs Attributes) Node {
	return h.formatter.ForLocale(value.Locale).Format(
		attrs.GetDefault(AttrKey, ""), value.Raw, "", attrs.GetDefault(AttrFormat, ""), attrs)
}
