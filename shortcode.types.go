package shortcode

import (
	"strconv"
	"time"
)

// Context carries the ambient data a render pass resolves against.
type Context struct {
	// PostID is the ambient content item; post_id attributes default to it.
	PostID int64
	// PostType is the ambient item's content type.
	PostType string
	// UserID identifies the viewer. It is part of cache keys so that
	// per-user content never leaks between viewers.
	UserID int64
	// APIBase is the content service base URL the HTTP source talks to.
	// When set it overrides the source's configured base for this pass.
	APIBase string
	// Locale overrides the engine locale for this pass (e.g. "de-DE").
	Locale string
	// Post is the already-loaded ambient item. Field lookups against it
	// are answered without a source call.
	Post *Item
}

// AmbientID returns the id of the ambient item, preferring the loaded Post.
func (c *Context) AmbientID() int64 {
	if c == nil {
		return 0
	}
	if c.Post != nil && c.Post.ID != 0 {
		return c.Post.ID
	}
	return c.PostID
}

// IsAmbient reports whether id refers to the loaded ambient item.
func (c *Context) IsAmbient(id int64) bool {
	return c != nil && c.Post != nil && c.Post.ID == id
}

// cacheFields returns the context fields that participate in cache keys.
func (c *Context) cacheFields() map[string]string {
	if c == nil {
		return nil
	}
	return map[string]string{
		"user": strconv.FormatInt(c.UserID, 10),
		"api":  c.APIBase,
	}
}

// Item is a content item summary as returned by a content source.
type Item struct {
	ID        int64          `json:"id" yaml:"id"`
	Type      string         `json:"type,omitempty" yaml:"type,omitempty"`
	Title     string         `json:"title" yaml:"title"`
	Excerpt   string         `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Content   string         `json:"content,omitempty" yaml:"content,omitempty"`
	Slug      string         `json:"slug,omitempty" yaml:"slug,omitempty"`
	Status    string         `json:"status,omitempty" yaml:"status,omitempty"`
	Thumbnail string         `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Author    string         `json:"author,omitempty" yaml:"author,omitempty"`
	Link      string         `json:"link,omitempty" yaml:"link,omitempty"`
	Date      time.Time      `json:"date" yaml:"date"`
	Modified  time.Time      `json:"modified" yaml:"modified"`
	Fields    map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// FieldValue returns a named field: a built-in column or an entry of the
// arbitrary field bag. ok is false when the field is absent or empty.
func (i *Item) FieldValue(name string) (any, bool) {
	if i == nil {
		return nil, false
	}
	var v any
	switch name {
	case ItemFieldID:
		return i.ID, i.ID != 0
	case ItemFieldTitle:
		v = i.Title
	case ItemFieldContent:
		v = i.Content
	case ItemFieldExcerpt:
		v = i.Excerpt
	case ItemFieldSlug:
		v = i.Slug
	case ItemFieldStatus:
		v = i.Status
	case ItemFieldThumbnail:
		v = i.Thumbnail
	case ItemFieldAuthor:
		v = i.Author
	case ItemFieldLink:
		v = i.Link
	case ItemFieldType:
		v = i.Type
	case ItemFieldDate:
		return i.Date, !i.Date.IsZero()
	case ItemFieldModified:
		return i.Modified, !i.Modified.IsZero()
	default:
		fv, ok := i.Fields[name]
		if !ok || fv == nil {
			return nil, false
		}
		return fv, true
	}
	s, _ := v.(string)
	return s, s != ""
}

// Clone returns a deep-enough copy for cache isolation.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Fields != nil {
		c.Fields = make(map[string]any, len(i.Fields))
		for k, v := range i.Fields {
			c.Fields[k] = v
		}
	}
	return &c
}

// TypedValue is a custom field value together with its type tag.
type TypedValue struct {
	Value any    `json:"value" yaml:"value"`
	Type  string `json:"type" yaml:"type"`
}

// ListQuery selects items for the list directive.
type ListQuery struct {
	Type      string
	Count     int
	OrderBy   string
	Order     string
	Status    string
	MetaKey   string
	MetaValue string
}

// State is the lifecycle of one directive within a render pass.
type State int

// Directive states. Pending and Loading are transient; the other three are final.
const (
	StatePending State = iota
	StateLoading
	StateResolved
	StateEmpty
	StateErrored
)

// State names
const (
	StateNamePending  = "pending"
	StateNameLoading  = "loading"
	StateNameResolved = "resolved"
	StateNameEmpty    = "empty"
	StateNameErrored  = "errored"
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StatePending:
		return StateNamePending
	case StateLoading:
		return StateNameLoading
	case StateResolved:
		return StateNameResolved
	case StateEmpty:
		return StateNameEmpty
	case StateErrored:
		return StateNameErrored
	default:
		return StateNamePending
	}
}

// IsFinal reports whether the state can no longer change.
func (s State) IsFinal() bool {
	return s == StateResolved || s == StateEmpty || s == StateErrored
}

// ResolvedValue is the outcome of resolving one directive.
type ResolvedValue struct {
	Raw     any
	TypeTag string
	State   State
	// Err is the underlying failure for StateErrored.
	Err error
	// Message is a human-readable description of Err, safe to show.
	Message string
	// Locale is the render pass locale, set by the renderer before Render.
	Locale string
}

// Resolved creates a successful value
func Resolved(raw any, typeTag string) ResolvedValue {
	return ResolvedValue{Raw: raw, TypeTag: typeTag, State: StateResolved}
}

// Empty creates a not-found value
func Empty() ResolvedValue {
	return ResolvedValue{State: StateEmpty}
}

// Errored creates a failed value with a human-readable message
func Errored(err error, message string) ResolvedValue {
	if message == "" {
		message = describeError(err)
	}
	return ResolvedValue{State: StateErrored, Err: err, Message: message}
}

// fromError maps a source error onto the state machine: not-found is Empty,
// anything else is Errored.
func fromError(err error) ResolvedValue {
	if IsNotFound(err) {
		return Empty()
	}
	return Errored(err, "")
}
