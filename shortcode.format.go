package shortcode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter error messages
const (
	ErrMsgNotANumber    = "value is not numeric"
	ErrMsgNotADate      = "value is not a date"
	ErrMsgNoImageURL    = "image value has no url"
	ErrMsgNotAList      = "value is not a list"
	ErrMsgUnknownLocale = "unknown locale"
	ErrMsgUnknownUnit   = "unknown currency unit"
)

// Value map keys used by content services for structured values
const (
	valueKeyURL      = "url"
	valueKeyAlt      = "alt"
	valueKeyTitle    = "title"
	valueKeySizes    = "sizes"
	valueKeyFilename = "filename"
	valueKeyTarget   = "target"
	valueKeyLabel    = "label"
	valueKeyName     = "name"
	valueKeyValue    = "value"
	valueKeyLink     = "link"
	valueKeyID       = "id"
)

// HTML tags and attributes emitted by the formatter
const (
	tagImg    = "img"
	tagA      = "a"
	tagDiv    = "div"
	tagSpan   = "span"
	tagUL     = "ul"
	tagLI     = "li"
	attrSrc   = "src"
	attrAlt   = "alt"
	attrHref  = "href"
	attrClass = "class"
	attrTgt   = "target"
	attrRel   = "rel"

	mailtoPrefix   = "mailto:"
	relNoopener    = "noopener"
	targetBlank    = "_blank"
	repeaterKeySep = ": "
	negativeSign   = "-"
)

var (
	errNotANumber = errors.New(ErrMsgNotANumber)
	errNotADate   = errors.New(ErrMsgNotADate)
	errNoImageURL = errors.New(ErrMsgNoImageURL)
	errNotAList   = errors.New(ErrMsgNotAList)
)

// currencySymbols covers the common units; others render with their ISO code.
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"INR": "₹",
	"KRW": "₩",
	"BRL": "R$",
	"CAD": "CA$",
	"AUD": "A$",
	"CHF": "CHF ",
}

// booleanWords holds localized yes/no by base language.
var booleanWords = map[string][2]string{
	"en": {"Yes", "No"},
	"de": {"Ja", "Nein"},
	"fr": {"Oui", "Non"},
	"es": {"Sí", "No"},
	"it": {"Sì", "No"},
	"nl": {"Ja", "Nee"},
	"pt": {"Sim", "Não"},
}

// FormatterConfig configures a Formatter.
type FormatterConfig struct {
	// Locale is a BCP 47 tag. Default: en-US.
	Locale string
	// Currency is an ISO 4217 code. Default: USD.
	Currency string
	// NameRules overrides the ordered name-rule table.
	NameRules []NameRule
	// Now is the clock used for relative dates. Default: time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// Formatter maps resolved values to output nodes. It is safe for concurrent use.
type Formatter struct {
	locale   language.Tag
	unit     currency.Unit
	printer  *message.Printer
	markdown goldmark.Markdown
	rules    []NameRule
	now      func() time.Time
	logger   *zap.Logger
}

// NewFormatter creates a formatter for the configured locale and currency.
func NewFormatter(config FormatterConfig) (*Formatter, error) {
	if config.Locale == "" {
		config.Locale = DefaultLocale
	}
	if config.Currency == "" {
		config.Currency = DefaultCurrency
	}
	tag, err := language.Parse(config.Locale)
	if err != nil {
		return nil, NewConfigError(ErrMsgUnknownLocale, config.Locale, err)
	}
	unit, err := currency.ParseISO(config.Currency)
	if err != nil {
		return nil, NewConfigError(ErrMsgUnknownUnit, config.Currency, err)
	}
	if config.NameRules == nil {
		config.NameRules = DefaultNameRules()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Formatter{
		locale:   tag,
		unit:     unit,
		printer:  message.NewPrinter(tag),
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		rules:    config.NameRules,
		now:      config.Now,
		logger:   logger,
	}, nil
}

// MustNewFormatter is NewFormatter that panics on error.
func MustNewFormatter(config FormatterConfig) *Formatter {
	f, err := NewFormatter(config)
	if err != nil {
		panic(err)
	}
	return f
}

// Locale returns the formatter's language tag.
func (f *Formatter) Locale() language.Tag {
	return f.locale
}

// ForLocale returns a formatter for another locale sharing everything else.
// An empty or unparseable locale returns f unchanged.
func (f *Formatter) ForLocale(locale string) *Formatter {
	if locale == "" {
		return f
	}
	tag, err := language.Parse(locale)
	if err != nil || tag == f.locale {
		return f
	}
	c := *f
	c.locale = tag
	c.printer = message.NewPrinter(tag)
	return &c
}

// Kind returns the kind a value will be formatted as. Precedence: explicit
// hint, then type tag, then the name-rule table, then the Go type of the
// value, then text.
func (f *Formatter) Kind(name string, value any, typeTag, hint string) string {
	switch hint {
	case FormatRaw:
		return KindText
	case "", FormatFormatted:
	default:
		if k := NormalizeKind(hint); k != "" {
			return k
		}
	}
	if k := NormalizeKind(typeTag); k != "" {
		return k
	}
	if k := MatchNameRule(f.rules, name); k != "" {
		return k
	}
	return inferKind(value)
}

// Format renders value. It never fails: when the selected kind cannot
// represent the value the output falls back to plain text.
func (f *Formatter) Format(name string, value any, typeTag, hint string, attrs Attributes) Node {
	kind := f.Kind(name, value, typeTag, hint)
	node, err := f.TryFormat(kind, value, attrs)
	if err != nil {
		f.logger.Warn(LogMsgFormatFallback,
			zap.String(LogFieldKind, kind),
			zap.String(LogFieldName, name),
			zap.Error(err))
		return TextNode(f.text(value, attrs))
	}
	return node
}

// TryFormat renders value as kind, returning a FormatError when it cannot.
// Panics raised while formatting are converted to errors.
func (f *Formatter) TryFormat(kind string, value any, attrs Attributes) (node Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node = Node{}
			err = NewFormatError(kind, fmt.Errorf(FmtHandlerPanic, ErrMsgFormatFailed, r))
		}
	}()

	if value == nil {
		return Node{}, nil
	}

	switch kind {
	case KindNumber:
		n, ok := toFloat(value)
		if !ok {
			return Node{}, NewFormatError(kind, errNotANumber)
		}
		if !attrs.Bool(AttrGrouping, true) {
			return TextNode(f.FormatPlainNumber(n)), nil
		}
		return TextNode(f.FormatNumber(n)), nil
	case KindCurrency:
		n, ok := toFloat(value)
		if !ok {
			return Node{}, NewFormatError(kind, errNotANumber)
		}
		return TextNode(f.FormatCurrency(n)), nil
	case KindDate, KindDateTime, KindRelative:
		t, ok := toTime(value)
		if !ok {
			return Node{}, NewFormatError(kind, errNotADate)
		}
		switch kind {
		case KindRelative:
			return TextNode(f.formatRelative(t)), nil
		case KindDateTime:
			return TextNode(f.formatDate(t, true)), nil
		default:
			return TextNode(f.formatDate(t, false)), nil
		}
	case KindBoolean:
		return TextNode(f.FormatBool(toBool(value))), nil
	case KindImage:
		return f.image(value, attrs)
	case KindGallery:
		return f.gallery(value, attrs)
	case KindFile:
		return f.file(value)
	case KindURL:
		return f.link(value)
	case KindEmail:
		addr := toString(value)
		return ElementNode(tagA, []htmlAttr{Attr(attrHref, mailtoPrefix+addr)}, TextNode(addr)), nil
	case KindRichText:
		return RawNode(toString(value)), nil
	case KindMarkdown:
		var buf bytes.Buffer
		if err := f.markdown.Convert([]byte(toString(value)), &buf); err != nil {
			return Node{}, NewFormatError(kind, err)
		}
		return RawNode(strings.TrimSpace(buf.String())), nil
	case KindChoice:
		return TextNode(f.choices(value, attrs)), nil
	case KindRelationship:
		return f.relationship(value)
	case KindTaxonomy:
		return TextNode(f.terms(value, attrs)), nil
	case KindRepeater:
		return f.repeater(value, attrs)
	default:
		return TextNode(f.text(value, attrs)), nil
	}
}

// FormatNumber renders n with locale grouping.
func (f *Formatter) FormatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return f.printer.Sprint(number.Decimal(int64(n)))
	}
	return f.printer.Sprint(number.Decimal(n))
}

// FormatPlainNumber renders n without thousands separators.
func (f *Formatter) FormatPlainNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return f.printer.Sprint(number.Decimal(int64(n), number.NoSeparator()))
	}
	return f.printer.Sprint(number.Decimal(n, number.NoSeparator()))
}

// FormatCurrency renders n as an amount in the formatter's currency with two decimals.
func (f *Formatter) FormatCurrency(n float64) string {
	code := f.unit.String()
	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code + " "
	}
	amount := f.printer.Sprint(number.Decimal(math.Abs(n), number.Scale(2)))
	if n < 0 {
		return negativeSign + symbol + amount
	}
	return symbol + amount
}

// FormatBool renders b as a localized yes/no.
func (f *Formatter) FormatBool(b bool) string {
	base, _ := f.locale.Base()
	words, ok := booleanWords[base.String()]
	if !ok {
		words = booleanWords["en"]
	}
	if b {
		return words[0]
	}
	return words[1]
}

func (f *Formatter) image(value any, attrs Attributes) (Node, error) {
	src, alt := imageSource(value, attrs.GetDefault(AttrSize, DefaultImageSize))
	if src == "" {
		return Node{}, NewFormatError(KindImage, errNoImageURL)
	}
	return ElementNode(tagImg, []htmlAttr{Attr(attrSrc, src), Attr(attrAlt, alt)}), nil
}

func (f *Formatter) gallery(value any, attrs Attributes) (Node, error) {
	items, ok := toSlice(value)
	if !ok {
		return Node{}, NewFormatError(KindGallery, errNotAList)
	}
	size := attrs.GetDefault(AttrSize, DefaultImageSize)
	children := make([]Node, 0, len(items))
	for _, item := range items {
		src, alt := imageSource(item, size)
		if src == "" {
			continue
		}
		children = append(children, ElementNode(tagImg, []htmlAttr{Attr(attrSrc, src), Attr(attrAlt, alt)}))
	}
	return ElementNode(tagDiv, []htmlAttr{Attr(attrClass, ClassGallery)}, children...), nil
}

func (f *Formatter) file(value any) (Node, error) {
	if m, ok := value.(map[string]any); ok {
		href := toString(m[valueKeyURL])
		if href == "" {
			return Node{}, NewFormatError(KindFile, errNoImageURL)
		}
		label := firstNonEmpty(toString(m[valueKeyTitle]), toString(m[valueKeyFilename]), href)
		return ElementNode(tagA, []htmlAttr{Attr(attrHref, href)}, TextNode(label)), nil
	}
	href := toString(value)
	return ElementNode(tagA, []htmlAttr{Attr(attrHref, href)}, TextNode(href)), nil
}

func (f *Formatter) link(value any) (Node, error) {
	if m, ok := value.(map[string]any); ok {
		href := toString(m[valueKeyURL])
		label := firstNonEmpty(toString(m[valueKeyTitle]), href)
		attrs := []htmlAttr{Attr(attrHref, href)}
		if target := toString(m[valueKeyTarget]); target != "" {
			attrs = append(attrs, Attr(attrTgt, target))
			if target == targetBlank {
				attrs = append(attrs, Attr(attrRel, relNoopener))
			}
		}
		return ElementNode(tagA, attrs, TextNode(label)), nil
	}
	href := toString(value)
	return ElementNode(tagA, []htmlAttr{Attr(attrHref, href)}, TextNode(href)), nil
}

func (f *Formatter) relationship(value any) (Node, error) {
	items, ok := toSlice(value)
	if !ok {
		return relatedLink(value), nil
	}
	children := make([]Node, 0, len(items))
	for _, item := range items {
		children = append(children, ElementNode(tagLI, nil, relatedLink(item)))
	}
	return ElementNode(tagUL, []htmlAttr{Attr(attrClass, ClassRelations)}, children...), nil
}

func relatedLink(value any) Node {
	var title, href string
	switch v := value.(type) {
	case *Item:
		title, href = v.Title, v.Link
	case Item:
		title, href = v.Title, v.Link
	case map[string]any:
		title = firstNonEmpty(toString(v[valueKeyTitle]), toString(v[valueKeyName]), toString(v[valueKeyID]))
		href = firstNonEmpty(toString(v[valueKeyLink]), toString(v[valueKeyURL]))
	default:
		title = toString(v)
	}
	if href == "" {
		return TextNode(title)
	}
	return ElementNode(tagA, []htmlAttr{Attr(attrHref, href)}, TextNode(title))
}

func (f *Formatter) terms(value any, attrs Attributes) string {
	items, ok := toSlice(value)
	if !ok {
		items = []any{value}
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			names = append(names, firstNonEmpty(toString(m[valueKeyName]), toString(m[valueKeyLabel])))
			continue
		}
		names = append(names, toString(item))
	}
	return strings.Join(names, attrs.GetDefault(AttrSeparator, DefaultSeparator))
}

func (f *Formatter) choices(value any, attrs Attributes) string {
	items, ok := toSlice(value)
	if !ok {
		items = []any{value}
	}
	labels := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			labels = append(labels, firstNonEmpty(toString(m[valueKeyLabel]), toString(m[valueKeyValue])))
			continue
		}
		labels = append(labels, toString(item))
	}
	return strings.Join(labels, attrs.GetDefault(AttrSeparator, DefaultSeparator))
}

func (f *Formatter) repeater(value any, attrs Attributes) (Node, error) {
	rows, ok := toSlice(value)
	if !ok {
		return Node{}, NewFormatError(KindRepeater, errNotAList)
	}
	children := make([]Node, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			children = append(children, ElementNode(tagLI, nil, TextNode(f.text(row, attrs))))
			continue
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cells := make([]Node, 0, len(keys))
		for _, k := range keys {
			cells = append(cells, ElementNode(tagDiv, nil,
				ElementNode(tagSpan, []htmlAttr{Attr(attrClass, ClassRepeaterKey)}, TextNode(k)),
				TextNode(repeaterKeySep),
				ElementNode(tagSpan, []htmlAttr{Attr(attrClass, ClassRepeaterVal)}, TextNode(f.text(m[k], attrs))),
			))
		}
		children = append(children, ElementNode(tagLI, nil, cells...))
	}
	return ElementNode(tagUL, []htmlAttr{Attr(attrClass, ClassRepeater)}, children...), nil
}

// text is the plain stringification used for the text kind and as the fallback.
func (f *Formatter) text(value any, attrs Attributes) string {
	if items, ok := toSlice(value); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, toString(item))
		}
		return strings.Join(parts, attrs.GetDefault(AttrSeparator, DefaultSeparator))
	}
	return toString(value)
}

// inferKind picks a kind from the Go type of value.
func inferKind(value any) string {
	switch v := value.(type) {
	case bool:
		return KindBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return KindNumber
	case time.Time, *time.Time:
		return KindDate
	case *Item, Item:
		return KindRelationship
	case map[string]any:
		if _, ok := v[valueKeyURL]; ok {
			return KindImage
		}
		return KindText
	case string:
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return KindURL
		}
		return KindText
	}
	if items, ok := toSlice(value); ok {
		if len(items) > 0 {
			if _, ok := items[0].(map[string]any); ok {
				return KindRepeater
			}
		}
		return KindChoice
	}
	return KindText
}

func imageSource(value any, size string) (string, string) {
	switch v := value.(type) {
	case string:
		return v, ""
	case map[string]any:
		src := toString(v[valueKeyURL])
		if sizes, ok := v[valueKeySizes].(map[string]any); ok && size != DefaultImageSize {
			if sized := toString(sizes[size]); sized != "" {
				src = sized
			}
		}
		return src, firstNonEmpty(toString(v[valueKeyAlt]), toString(v[valueKeyTitle]))
	default:
		return "", ""
	}
}

// toSlice returns the elements of any slice or array value. Strings and
// byte slices are not lists.
func toSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case nil, string, []byte:
		return nil, false
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no", "off":
			return false
		default:
			return true
		}
	}
	if n, ok := toFloat(value); ok {
		return n != 0
	}
	return value != nil
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any:
		return firstNonEmpty(toString(v[valueKeyLabel]), toString(v[valueKeyTitle]), toString(v[valueKeyName]), toString(v[valueKeyValue]), toString(v[valueKeyURL]))
	default:
		return fmt.Sprint(v)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
