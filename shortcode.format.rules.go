package shortcode

import (
	"strings"
)

// Canonical formatter kinds. Type tags, hints and name rules all normalize to one of these.
const (
	KindText         = "text"
	KindNumber       = "number"
	KindCurrency     = "currency"
	KindDate         = "date"
	KindDateTime     = "datetime"
	KindRelative     = "relative"
	KindBoolean      = "boolean"
	KindImage        = "image"
	KindGallery      = "gallery"
	KindFile         = "file"
	KindURL          = "url"
	KindEmail        = "email"
	KindRichText     = "rich_text"
	KindMarkdown     = "markdown"
	KindChoice       = "choice"
	KindRelationship = "relationship"
	KindTaxonomy     = "taxonomy"
	KindRepeater     = "repeater"
)

// kindAliases maps type tags and format hints onto canonical kinds.
var kindAliases = map[string]string{
	TypeText:         KindText,
	TypeTextarea:     KindText,
	TypeNumber:       KindNumber,
	TypeCurrency:     KindCurrency,
	TypeDate:         KindDate,
	TypeDateTime:     KindDateTime,
	TypeRelative:     KindRelative,
	TypeBoolean:      KindBoolean,
	TypeTrueFalse:    KindBoolean,
	TypeImage:        KindImage,
	TypeGallery:      KindGallery,
	TypeFile:         KindFile,
	TypeURL:          KindURL,
	TypeLink:         KindURL,
	TypeEmail:        KindEmail,
	TypeRichText:     KindRichText,
	TypeWysiwyg:      KindRichText,
	FormatHTML:       KindRichText,
	TypeMarkdown:     KindMarkdown,
	TypeSelect:       KindChoice,
	TypeCheckbox:     KindChoice,
	TypeRadio:        KindChoice,
	TypeRelationship: KindRelationship,
	TypePostObject:   KindRelationship,
	TypeTaxonomy:     KindTaxonomy,
	TypeRepeater:     KindRepeater,

	"date_picker":      KindDate,
	"date_time_picker": KindDateTime,
	"money":            KindCurrency,
	"bool":             KindBoolean,
	"page_link":        KindURL,
}

// NormalizeKind maps a type tag or format hint to a canonical kind.
// It returns "" when the tag is unknown.
func NormalizeKind(tag string) string {
	return kindAliases[strings.ToLower(strings.TrimSpace(tag))]
}

// NameRule maps field names to a kind. A rule matches when the lowercased
// name contains any of Contains, starts with any of Prefixes, or ends with
// any of Suffixes.
type NameRule struct {
	Kind     string
	Contains []string
	Prefixes []string
	Suffixes []string
}

// Matches reports whether the rule applies to name.
func (r NameRule) Matches(name string) bool {
	name = strings.ToLower(name)
	for _, s := range r.Contains {
		if strings.Contains(name, s) {
			return true
		}
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range r.Suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// DefaultNameRules is the ordered rule table applied when neither a hint nor a
// type tag selects a kind. The first matching rule wins.
func DefaultNameRules() []NameRule {
	return []NameRule{
		{Kind: KindCurrency, Contains: []string{"price", "cost", "amount", "fee"}},
		{Kind: KindDate, Contains: []string{"date", "time"}, Suffixes: []string{"_at"}},
		{Kind: KindEmail, Contains: []string{"email"}},
		{Kind: KindURL, Contains: []string{"url", "link", "website"}},
		{Kind: KindImage, Contains: []string{"image", "thumbnail", "photo", "avatar"}},
		{Kind: KindBoolean, Contains: []string{"enabled"}, Prefixes: []string{"is_", "has_"}},
	}
}

// MatchNameRule returns the kind of the first rule matching name, or "".
func MatchNameRule(rules []NameRule, name string) string {
	if name == "" {
		return ""
	}
	for _, r := range rules {
		if r.Matches(name) {
			return r.Kind
		}
	}
	return ""
}
