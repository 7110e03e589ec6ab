package shortcode

import (
	"context"

	"go.uber.org/zap"

	"github.com/itsatony/go-shortcode/internal"
)

// Engine is the main entry point: it owns the handler registry, the data
// providers, the shared cache and the formatter.
type Engine struct {
	registry  *internal.Registry
	providers *Providers
	formatter *Formatter
	cache     *Cache
	config    *engineConfig
	logger    *zap.Logger
}

// New creates a new Engine with the given options. The built-in directives
// list, field, typed_field and raw_meta are registered unless WithoutBuiltins
// is given.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	formatter := config.formatter
	if formatter == nil {
		f, err := NewFormatter(FormatterConfig{
			Locale:    config.locale,
			Currency:  config.currency,
			NameRules: config.nameRules,
			Now:       config.now,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		formatter = f
	}

	cache := config.cache
	if cache == nil {
		cacheConfig := DefaultCacheConfig()
		if config.now != nil {
			cacheConfig.Now = config.now
		}
		cacheConfig.Logger = logger
		cache = NewCache(cacheConfig)
	}

	providers := NewProviders(ProviderConfig{
		Source:   config.source,
		Cache:    cache,
		ListTTL:  config.listTTL,
		FieldTTL: config.fieldTTL,
		Timeout:  config.timeout,
		Logger:   logger,
	})

	e := &Engine{
		registry:  internal.NewRegistry(logger),
		providers: providers,
		formatter: formatter,
		cache:     cache,
		config:    config,
		logger:    logger,
	}

	if !config.noBuiltins {
		e.registry.MustRegister(newListHandler(providers, formatter, config.emptyListText))
		e.registry.MustRegister(newFieldHandler(providers, formatter))
		e.registry.MustRegister(newTypedFieldHandler(providers, formatter))
		e.registry.MustRegister(newRawMetaHandler(providers, formatter))
	}

	logger.Debug(LogMsgEngineCreated,
		zap.String(LogFieldLocale, formatter.Locale().String()),
		zap.Int(LogFieldCount, e.registry.Count()))
	return e, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// Register adds a handler. The first registration of a name wins; a second
// one returns an error and leaves the existing handler in place.
func (e *Engine) Register(h Handler) error {
	if h == nil {
		return NewRegistryError(ErrMsgNilHandler)
	}
	if h.Name() == "" {
		return NewRegistryError(ErrMsgEmptyName)
	}
	if err := e.registry.Register(h); err != nil {
		return NewHandlerExistsError(h.Name())
	}
	e.logger.Debug(LogMsgHandlerRegistered, zap.String(LogFieldDirective, h.Name()))
	return nil
}

// MustRegister adds a handler and panics if registration fails.
func (e *Engine) MustRegister(h Handler) {
	if err := e.Register(h); err != nil {
		panic(err)
	}
}

// Unregister removes a handler. Directives with that name render literally
// from the next pass on.
func (e *Engine) Unregister(name string) bool {
	removed := e.registry.Unregister(name)
	if removed {
		e.logger.Debug(LogMsgHandlerUnregistered, zap.String(LogFieldDirective, name))
	}
	return removed
}

// Get returns the handler registered for name.
func (e *Engine) Get(name string) (Handler, bool) {
	return e.lookup(name)
}

// Has reports whether a handler is registered for name.
func (e *Engine) Has(name string) bool {
	return e.registry.Has(name)
}

// List returns the registered directive names in sorted order.
func (e *Engine) List() []string {
	return e.registry.List()
}

// All returns every registered handler ordered by name.
func (e *Engine) All() []Handler {
	all := e.registry.All()
	out := make([]Handler, 0, len(all))
	for _, h := range all {
		if handler, ok := h.(Handler); ok {
			out = append(out, handler)
		}
	}
	return out
}

func (e *Engine) lookup(name string) (Handler, bool) {
	h, ok := e.registry.Get(name)
	if !ok {
		return nil, false
	}
	handler, ok := h.(Handler)
	return handler, ok
}

// Parse returns every well-formed directive in text, registered or not,
// in source order.
func (e *Engine) Parse(text string) []Directive {
	return internal.Scan(text, e.logger)
}

// Render runs a full pass and waits for every directive to settle. When ctx
// ends first, the document so far is returned together with ctx's error.
func (e *Engine) Render(ctx context.Context, text string, rc *Context) (*Document, error) {
	session := e.Start(ctx, text, rc)
	if err := session.Wait(ctx); err != nil {
		session.Dispose()
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// RenderString is Render returning the document text.
func (e *Engine) RenderString(ctx context.Context, text string, rc *Context) (string, error) {
	doc, err := e.Render(ctx, text, rc)
	if doc == nil {
		return "", err
	}
	return doc.String(), err
}

// Cache returns the engine's shared cache.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Formatter returns the engine's default-locale formatter.
func (e *Engine) Formatter() *Formatter {
	return e.formatter
}

// Source returns the configured content source, or nil.
func (e *Engine) Source() ContentSource {
	return e.config.source
}

// InvalidateItem drops every cached lookup for one item.
func (e *Engine) InvalidateItem(id int64) int {
	return e.providers.InvalidateItem(id)
}

// InvalidateList drops every cached list of one content type.
func (e *Engine) InvalidateList(postType string) int {
	return e.providers.InvalidateList(postType)
}

// Close releases the content source when the engine opened it itself.
func (e *Engine) Close() error {
	if e.config.ownsSource && e.config.source != nil {
		return e.config.source.Close()
	}
	return nil
}
