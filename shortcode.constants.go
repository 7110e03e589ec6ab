package shortcode

import "time"

// Built-in directive names
const (
	DirectiveList       = "list"
	DirectiveField      = "field"
	DirectiveTypedField = "typed_field"
	DirectiveRawMeta    = "raw_meta"
)

// Attribute name constants
const (
	AttrType          = "type"
	AttrCount         = "count"
	AttrOrderBy       = "orderby"
	AttrOrder         = "order"
	AttrStatus        = "status"
	AttrTemplate      = "template"
	AttrColumns       = "columns"
	AttrShowThumbnail = "show_thumbnail"
	AttrShowExcerpt   = "show_excerpt"
	AttrShowMeta      = "show_meta"
	AttrCache         = "cache"
	AttrMetaKey       = "meta_key"
	AttrMetaValue     = "meta_value"
	AttrPostType      = "post_type"
	AttrPostID        = "post_id"
	AttrField         = "field"
	AttrFormat        = "format"
	AttrWrapper       = "wrapper"
	AttrClass         = "class"
	AttrName          = "name"
	AttrSize          = "size"
	AttrSeparator     = "separator"
	AttrKey           = "key"
	AttrSingle        = "single"
)

const (
	// AttrDefault is the fallback for Empty and Errored directives. Its value
	// is emitted verbatim as markup, unlike resolved values which are escaped.
	AttrDefault = "default"

	// AttrGrouping set to "false" drops thousands separators from numbers.
	AttrGrouping = "grouping"
)

// Attribute value constants
const (
	OrderByDate     = "date"
	OrderByTitle    = "title"
	OrderByModified = "modified"
	OrderByRandom   = "random"

	OrderAsc  = "ASC"
	OrderDesc = "DESC"

	TemplateDefault = "default"
	TemplateGrid    = "grid"
	TemplateList    = "list"
	TemplateCard    = "card"

	StatusPublish = "publish"

	FormatRaw       = "raw"
	FormatFormatted = "formatted"
	FormatHTML      = "html"

	AttrValueTrue  = "true"
	AttrValueFalse = "false"
)

// Type tags. Custom field sources report one of these (or an alias) and the
// formatter dispatches on it.
const (
	TypeText         = "text"
	TypeTextarea     = "textarea"
	TypeNumber       = "number"
	TypeCurrency     = "currency"
	TypeDate         = "date"
	TypeDateTime     = "datetime"
	TypeRelative     = "relative"
	TypeBoolean      = "boolean"
	TypeTrueFalse    = "true_false"
	TypeImage        = "image"
	TypeGallery      = "gallery"
	TypeFile         = "file"
	TypeURL          = "url"
	TypeLink         = "link"
	TypeEmail        = "email"
	TypeRichText     = "rich_text"
	TypeWysiwyg      = "wysiwyg"
	TypeMarkdown     = "markdown"
	TypeSelect       = "select"
	TypeCheckbox     = "checkbox"
	TypeRadio        = "radio"
	TypeRelationship = "relationship"
	TypePostObject   = "post_object"
	TypeTaxonomy     = "taxonomy"
	TypeRepeater     = "repeater"
)

// Item field names understood by the field directive
const (
	ItemFieldID        = "id"
	ItemFieldTitle     = "title"
	ItemFieldContent   = "content"
	ItemFieldExcerpt   = "excerpt"
	ItemFieldDate      = "date"
	ItemFieldModified  = "modified"
	ItemFieldAuthor    = "author"
	ItemFieldSlug      = "slug"
	ItemFieldThumbnail = "thumbnail"
	ItemFieldLink      = "link"
	ItemFieldStatus    = "status"
	ItemFieldType      = "type"
)

// Default configuration values
const (
	DefaultListCount       = 10
	MaxListCount           = 100
	DefaultColumns         = 3
	DefaultListTTL         = 5 * time.Minute
	DefaultFieldTTL        = 1 * time.Minute
	DefaultRequestTimeout  = 10 * time.Second
	DefaultConcurrency     = 8
	DefaultCacheMaxEntries = 1000
	DefaultLocale          = "en-US"
	DefaultCurrency        = "USD"
	DefaultSeparator       = ", "
	DefaultEmptyListText   = "No items found."
	DefaultImageSize       = "full"
	DefaultErrorText       = "Unable to load"
)

// CSS classes and data attributes on generated markup
const (
	ClassLoading     = "shortcode-loading"
	ClassError       = "shortcode-error"
	ClassList        = "shortcode-list"
	ClassListEmpty   = "shortcode-list-empty"
	ClassListItem    = "shortcode-list-item"
	ClassListGrid    = "shortcode-grid"
	ClassListCard    = "shortcode-card"
	ClassItemTitle   = "shortcode-item-title"
	ClassItemExcerpt = "shortcode-item-excerpt"
	ClassItemMeta    = "shortcode-item-meta"
	ClassItemThumb   = "shortcode-item-thumbnail"
	ClassGallery     = "shortcode-gallery"
	ClassRepeater    = "shortcode-repeater"
	ClassRepeaterKey = "shortcode-repeater-key"
	ClassRepeaterVal = "shortcode-repeater-value"
	ClassRelations   = "shortcode-relationship"

	DataShortcode = "data-shortcode"
	DataError     = "data-error"
	DataState     = "data-state"
	AriaBusy      = "aria-busy"
)

// Cache key kinds
const (
	CacheKindList  = "list"
	CacheKindItem  = "item"
	CacheKindTyped = "typed"
	CacheKindMeta  = "meta"
)

// Log message constants
const (
	LogMsgEngineCreated       = "engine created"
	LogMsgRenderStart         = "starting render"
	LogMsgRenderEnd           = "render complete"
	LogMsgSessionDisposed     = "render session disposed"
	LogMsgLateResultDropped   = "late result dropped after dispose"
	LogMsgDirectiveUnknown    = "no handler registered for directive - rendering literal"
	LogMsgDirectiveInvalid    = "directive attributes failed validation - omitted"
	LogMsgDirectiveResolved   = "directive resolved"
	LogMsgHandlerPanic        = "handler panicked"
	LogMsgFormatFallback      = "formatting failed - falling back to plain text"
	LogMsgCacheHit            = "cache hit"
	LogMsgCacheMiss           = "cache miss"
	LogMsgCacheInvalidated    = "cache invalidated"
	LogMsgSourceFetch         = "fetching from content source"
	LogMsgSourceFailed        = "content source request failed"
	LogMsgAmbientItemUsed     = "resolved from ambient item"
	LogMsgSourceOpened        = "content source opened"
	LogMsgConfigLoaded        = "configuration loaded"
	LogMsgHandlerRegistered   = "handler registered"
	LogMsgHandlerUnregistered = "handler unregistered"
)

// Log field names
const (
	LogFieldDirective = "directive"
	LogFieldState     = "state"
	LogFieldSession   = "session"
	LogFieldCount     = "count"
	LogFieldCacheKey  = "cache_key"
	LogFieldPattern   = "pattern"
	LogFieldRemoved   = "removed"
	LogFieldPostID    = "post_id"
	LogFieldURL       = "url"
	LogFieldStatus    = "status"
	LogFieldDuration  = "duration"
	LogFieldKind      = "kind"
	LogFieldDriver    = "driver"
	LogFieldPath      = "path"
	LogFieldLine      = "line"
	LogFieldColumn    = "column"
	LogFieldName      = "name"
	LogFieldLocale    = "locale"
	LogFieldAddr      = "addr"
	LogFieldError     = "error"
)

// Metadata keys attached to errors
const (
	MetaKeyDirective = "directive"
	MetaKeyAttribute = "attribute"
	MetaKeyValue     = "value"
	MetaKeyReason    = "reason"
	MetaKeyResource  = "resource"
	MetaKeyID        = "id"
	MetaKeyStatus    = "status"
	MetaKeyURL       = "url"
	MetaKeyKind      = "kind"
	MetaKeyDriver    = "driver"
	MetaKeyPath      = "path"
)
