package shortcode

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// List markup
const (
	tagArticle   = "article"
	tagH3        = "h3"
	tagP         = "p"
	tagTime      = "time"
	attrDateTime = "datetime"
	attrStyle    = "style"
	attrColumns  = "data-columns"

	listMetaSep       = " · "
	listColumnsStyle  = "--shortcode-columns: "
	listCardWrapClass = "shortcode-card-list"
	listCompactClass  = "shortcode-list-compact"

	// MaxListColumns bounds the grid columns attribute.
	MaxListColumns = 12
)

// listHandler serves [list]: a query over one content type.
type listHandler struct {
	providers *Providers
	formatter *Formatter
	emptyText string
}

func newListHandler(p *Providers, f *Formatter, emptyText string) *listHandler {
	if emptyText == "" {
		emptyText = DefaultEmptyListText
	}
	return &listHandler{providers: p, formatter: f, emptyText: emptyText}
}

func (h *listHandler) Name() string { return DirectiveList }

func (h *listHandler) DefaultAttributes() map[string]string {
	return map[string]string{
		AttrCount:         strconv.Itoa(DefaultListCount),
		AttrOrderBy:       OrderByDate,
		AttrOrder:         OrderDesc,
		AttrStatus:        StatusPublish,
		AttrTemplate:      TemplateDefault,
		AttrColumns:       strconv.Itoa(DefaultColumns),
		AttrShowThumbnail: AttrValueTrue,
		AttrShowExcerpt:   AttrValueTrue,
		AttrShowMeta:      AttrValueFalse,
		AttrCache:         AttrValueTrue,
	}
}

func (h *listHandler) Validate(attrs Attributes) error {
	if err := requireAttributes(DirectiveList, AttrType)(attrs); err != nil {
		return err
	}
	if err := validateIntRange(attrs, AttrCount, 1, MaxListCount); err != nil {
		return err
	}
	if err := validateIntRange(attrs, AttrColumns, 1, MaxListColumns); err != nil {
		return err
	}
	if err := validateOneOf(attrs, AttrOrderBy, OrderByDate, OrderByTitle, OrderByModified, OrderByRandom); err != nil {
		return err
	}
	if v, ok := attrs.Get(AttrOrder); ok && v != "" {
		if u := strings.ToUpper(v); u != OrderAsc && u != OrderDesc {
			return NewInvalidAttributeError(AttrOrder, v, ErrMsgInvalidAttribute)
		}
	}
	return validateOneOf(attrs, AttrTemplate, TemplateDefault, TemplateGrid, TemplateList, TemplateCard)
}

func validateIntRange(attrs Attributes, name string, lo, hi int) error {
	v, ok := attrs.Get(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return NewInvalidAttributeError(name, v, err.Error())
	}
	if n < lo || n > hi {
		return NewInvalidAttributeError(name, v, ErrMsgInvalidAttribute)
	}
	return nil
}

// cacheControl reads the cache attribute: false disables caching, a
// positive integer is a TTL in seconds, anything else uses the default.
func cacheControl(attrs Attributes) (time.Duration, bool) {
	v := attrs.GetDefault(AttrCache, AttrValueTrue)
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, false
		}
		return time.Duration(n) * time.Second, true
	}
	return 0, attrs.Bool(AttrCache, true)
}

func (h *listHandler) Resolve(ctx context.Context, rc *Context, attrs Attributes) ResolvedValue {
	q := ListQuery{
		Type:      attrs.GetDefault(AttrType, ""),
		Count:     attrs.Int(AttrCount, DefaultListCount),
		OrderBy:   attrs.GetDefault(AttrOrderBy, OrderByDate),
		Order:     strings.ToUpper(attrs.GetDefault(AttrOrder, OrderDesc)),
		Status:    attrs.GetDefault(AttrStatus, StatusPublish),
		MetaKey:   attrs.GetDefault(AttrMetaKey, ""),
		MetaValue: attrs.GetDefault(AttrMetaValue, ""),
	}
	ttl, useCache := cacheControl(attrs)
	return h.providers.List(ctx, rc, q, ttl, useCache)
}

func (h *listHandler) Render(value ResolvedValue, attrs Attributes) Node {
	items, _ := value.Raw.([]Item)
	if len(items) == 0 {
		return ElementNode(tagP, []htmlAttr{Attr(attrClass, ClassListEmpty)}, TextNode(h.emptyText))
	}

	f := h.formatter.ForLocale(value.Locale)
	opts := listOptions{
		thumbnail: attrs.Bool(AttrShowThumbnail, true),
		excerpt:   attrs.Bool(AttrShowExcerpt, true),
		meta:      attrs.Bool(AttrShowMeta, false),
	}

	switch attrs.GetDefault(AttrTemplate, TemplateDefault) {
	case TemplateList:
		children := make([]Node, 0, len(items))
		for i := range items {
			children = append(children, ElementNode(tagLI, []htmlAttr{Attr(attrClass, ClassListItem)},
				h.itemBody(f, &items[i], opts, false)...))
		}
		return ElementNode(tagUL, []htmlAttr{Attr(attrClass, ClassList+" "+listCompactClass)}, children...)
	case TemplateGrid:
		columns := strconv.Itoa(attrs.Int(AttrColumns, DefaultColumns))
		return ElementNode(tagDiv, []htmlAttr{
			Attr(attrClass, ClassList+" "+ClassListGrid),
			Attr(attrColumns, columns),
			Attr(attrStyle, listColumnsStyle+columns),
		}, h.articles(f, items, opts, ClassListItem)...)
	case TemplateCard:
		return ElementNode(tagDiv, []htmlAttr{Attr(attrClass, ClassList+" "+listCardWrapClass)},
			h.articles(f, items, opts, ClassListCard)...)
	default:
		return ElementNode(tagDiv, []htmlAttr{Attr(attrClass, ClassList)}, h.articles(f, items, opts, ClassListItem)...)
	}
}

type listOptions struct {
	thumbnail bool
	excerpt   bool
	meta      bool
}

func (h *listHandler) articles(f *Formatter, items []Item, opts listOptions, class string) []Node {
	out := make([]Node, 0, len(items))
	for i := range items {
		out = append(out, ElementNode(tagArticle, []htmlAttr{Attr(attrClass, class)}, h.itemBody(f, &items[i], opts, true)...))
	}
	return out
}

// itemBody renders thumbnail, title, excerpt and meta for one item.
// heading wraps the title in an h3.
func (h *listHandler) itemBody(f *Formatter, item *Item, opts listOptions, heading bool) []Node {
	var parts []Node
	if opts.thumbnail && item.Thumbnail != "" {
		parts = append(parts, ElementNode(tagImg, []htmlAttr{
			Attr(attrClass, ClassItemThumb),
			Attr(attrSrc, item.Thumbnail),
			Attr(attrAlt, item.Title),
		}))
	}

	title := TextNode(item.Title)
	if item.Link != "" {
		title = ElementNode(tagA, []htmlAttr{Attr(attrHref, item.Link)}, title)
	}
	if heading {
		parts = append(parts, ElementNode(tagH3, []htmlAttr{Attr(attrClass, ClassItemTitle)}, title))
	} else {
		parts = append(parts, ElementNode(tagSpan, []htmlAttr{Attr(attrClass, ClassItemTitle)}, title))
	}

	if opts.excerpt && item.Excerpt != "" {
		tag := tagP
		if !heading {
			tag = tagSpan
		}
		parts = append(parts, ElementNode(tag, []htmlAttr{Attr(attrClass, ClassItemExcerpt)}, TextNode(item.Excerpt)))
	}

	if opts.meta {
		var meta []Node
		if !item.Date.IsZero() {
			meta = append(meta, ElementNode(tagTime, []htmlAttr{Attr(attrDateTime, item.Date.Format(time.RFC3339))},
				TextNode(f.formatDate(item.Date, false))))
		}
		if item.Author != "" {
			if len(meta) > 0 {
				meta = append(meta, TextNode(listMetaSep))
			}
			meta = append(meta, TextNode(item.Author))
		}
		if len(meta) > 0 {
			parts = append(parts, ElementNode(tagDiv, []htmlAttr{Attr(attrClass, ClassItemMeta)}, meta...))
		}
	}
	return parts
}
