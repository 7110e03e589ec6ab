package shortcode

import (
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	source        ContentSource
	ownsSource    bool
	cache         *Cache
	formatter     *Formatter
	locale        string
	currency      string
	nameRules     []NameRule
	listTTL       time.Duration
	fieldTTL      time.Duration
	timeout       time.Duration
	concurrency   int
	emptyListText string
	noBuiltins    bool
	now           func() time.Time
	logger        *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		locale:        DefaultLocale,
		currency:      DefaultCurrency,
		listTTL:       DefaultListTTL,
		fieldTTL:      DefaultFieldTTL,
		timeout:       DefaultRequestTimeout,
		concurrency:   DefaultConcurrency,
		emptyListText: DefaultEmptyListText,
	}
}

// WithSource sets the content source the built-in directives read from.
// Default: nil (data directives resolve to Errored)
func WithSource(source ContentSource) Option {
	return func(c *engineConfig) {
		c.source = source
	}
}

// WithCache shares a cache between engines.
// Default: a private cache with DefaultCacheMaxEntries entries
func WithCache(cache *Cache) Option {
	return func(c *engineConfig) {
		c.cache = cache
	}
}

// WithLocale sets the default output locale as a BCP 47 tag.
// Default: "en-US"
func WithLocale(locale string) Option {
	return func(c *engineConfig) {
		if locale != "" {
			c.locale = locale
		}
	}
}

// WithCurrency sets the ISO 4217 code used for currency values.
// Default: "USD"
func WithCurrency(code string) Option {
	return func(c *engineConfig) {
		if code != "" {
			c.currency = code
		}
	}
}

// WithNameRules replaces the field-name rule table used to infer a kind
// for untyped values.
func WithNameRules(rules []NameRule) Option {
	return func(c *engineConfig) {
		c.nameRules = rules
	}
}

// WithFormatter supplies a preconfigured formatter; WithLocale,
// WithCurrency and WithNameRules are then ignored.
func WithFormatter(f *Formatter) Option {
	return func(c *engineConfig) {
		c.formatter = f
	}
}

// WithListTTL sets the cache lifetime of list results.
// Default: 5 minutes
func WithListTTL(ttl time.Duration) Option {
	return func(c *engineConfig) {
		if ttl > 0 {
			c.listTTL = ttl
		}
	}
}

// WithFieldTTL sets the cache lifetime of item, typed field and meta lookups.
// Default: 1 minute
func WithFieldTTL(ttl time.Duration) Option {
	return func(c *engineConfig) {
		if ttl > 0 {
			c.fieldTTL = ttl
		}
	}
}

// WithTimeout bounds every content source call.
// Default: 10 seconds
func WithTimeout(timeout time.Duration) Option {
	return func(c *engineConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithConcurrency limits how many directives of one pass resolve at once.
// Default: 8
func WithConcurrency(n int) Option {
	return func(c *engineConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithEmptyListText sets the message shown when a list query matches nothing.
// Default: "No items found."
func WithEmptyListText(text string) Option {
	return func(c *engineConfig) {
		if text != "" {
			c.emptyListText = text
		}
	}
}

// WithoutBuiltins skips registration of list, field, typed_field and raw_meta.
func WithoutBuiltins() Option {
	return func(c *engineConfig) {
		c.noBuiltins = true
	}
}

// WithClock sets the clock used by the cache and relative dates.
// Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) {
		c.now = now
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}
