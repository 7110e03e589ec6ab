package shortcode

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache key parameter names
const (
	keyParamType      = "type"
	keyParamCount     = "count"
	keyParamOrderBy   = "orderby"
	keyParamOrder     = "order"
	keyParamStatus    = "status"
	keyParamMetaKey   = "meta_key"
	keyParamMetaValue = "meta_value"
	keyParamPostType  = "post_type"
	keyParamName      = "name"
	keyParamKey       = "key"
	keyParamSingle    = "single"
)

// ProviderConfig configures the data providers.
type ProviderConfig struct {
	Source ContentSource
	Cache  *Cache
	// ListTTL is the cache lifetime of list results. Default: 5 minutes.
	ListTTL time.Duration
	// FieldTTL is the cache lifetime of item, typed field and meta lookups. Default: 1 minute.
	FieldTTL time.Duration
	// Timeout bounds each source call. Default: 10 seconds.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Providers fetch raw values for directives. Every fetch consults the cache
// first, and concurrent misses for one key share a single source call.
type Providers struct {
	source   ContentSource
	cache    *Cache
	group    singleflight.Group
	flightMu sync.Mutex
	flights  map[string]*flight
	listTTL  time.Duration
	fieldTTL time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewProviders creates the provider set. A nil cache gets a private default cache.
func NewProviders(config ProviderConfig) *Providers {
	if config.ListTTL <= 0 {
		config.ListTTL = DefaultListTTL
	}
	if config.FieldTTL <= 0 {
		config.FieldTTL = DefaultFieldTTL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRequestTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := config.Cache
	if cache == nil {
		cache = NewCache(DefaultCacheConfig())
	}
	return &Providers{
		source:   config.Source,
		cache:    cache,
		flights:  make(map[string]*flight),
		listTTL:  config.ListTTL,
		fieldTTL: config.FieldTTL,
		timeout:  config.Timeout,
		logger:   logger,
	}
}

// Cache returns the shared cache.
func (p *Providers) Cache() *Cache {
	return p.cache
}

// List resolves a list query. ttl overrides the list TTL when positive;
// useCache false bypasses the cache entirely.
func (p *Providers) List(ctx context.Context, rc *Context, q ListQuery, ttl time.Duration, useCache bool) ResolvedValue {
	q = normalizeListQuery(q)
	if ttl <= 0 {
		ttl = p.listTTL
	}
	params := map[string]string{
		keyParamType:      q.Type,
		keyParamCount:     strconv.Itoa(q.Count),
		keyParamOrderBy:   q.OrderBy,
		keyParamOrder:     q.Order,
		keyParamStatus:    q.Status,
		keyParamMetaKey:   q.MetaKey,
		keyParamMetaValue: q.MetaValue,
	}
	// Random order is re-drawn on every pass.
	if q.OrderBy == OrderByRandom {
		useCache = false
	}
	key := CacheKey(CacheKindList, q.Type, params, rc.cacheFields())

	value, err := p.fetch(ctx, rc, key, ttl, useCache, func(ctx context.Context) (any, error) {
		return p.source.ListItems(ctx, q)
	})
	if err != nil {
		return fromError(err)
	}
	items, _ := value.([]Item)
	if items == nil {
		items = []Item{}
	}
	return Resolved(items, "")
}

// Field resolves one named field of an item. When id is the loaded ambient
// item the value comes from it without a fetch.
func (p *Providers) Field(ctx context.Context, rc *Context, postType string, id int64, field string) ResolvedValue {
	var item *Item
	if rc.IsAmbient(id) {
		p.logger.Debug(LogMsgAmbientItemUsed,
			zap.Int64(LogFieldPostID, id),
			zap.String(LogFieldName, field))
		item = rc.Post
	} else {
		value, err := p.fetch(ctx, rc, CacheKey(CacheKindItem, strconv.FormatInt(id, 10),
			map[string]string{keyParamPostType: postType}, rc.cacheFields()),
			p.fieldTTL, true, func(ctx context.Context) (any, error) {
				return p.source.GetItem(ctx, postType, id)
			})
		if err != nil {
			return fromError(err)
		}
		item, _ = value.(*Item)
	}

	raw, ok := item.FieldValue(field)
	if !ok {
		return Empty()
	}
	return Resolved(raw, "")
}

// TypedField resolves a typed custom field. A non-empty typeOverride replaces
// the tag reported by the source.
func (p *Providers) TypedField(ctx context.Context, rc *Context, id int64, name, typeOverride string) ResolvedValue {
	key := CacheKey(CacheKindTyped, strconv.FormatInt(id, 10),
		map[string]string{keyParamName: name}, rc.cacheFields())
	value, err := p.fetch(ctx, rc, key, p.fieldTTL, true, func(ctx context.Context) (any, error) {
		return p.source.GetTypedField(ctx, id, name)
	})
	if err != nil {
		return fromError(err)
	}
	tv, _ := value.(TypedValue)
	if tv.Value == nil {
		return Empty()
	}
	tag := tv.Type
	if typeOverride != "" {
		tag = typeOverride
	}
	return Resolved(tv.Value, tag)
}

// Meta resolves an untyped metadata value.
func (p *Providers) Meta(ctx context.Context, rc *Context, id int64, key string, single bool) ResolvedValue {
	cacheKey := CacheKey(CacheKindMeta, strconv.FormatInt(id, 10),
		map[string]string{keyParamKey: key, keyParamSingle: strconv.FormatBool(single)}, rc.cacheFields())
	value, err := p.fetch(ctx, rc, cacheKey, p.fieldTTL, true, func(ctx context.Context) (any, error) {
		return p.source.GetMeta(ctx, id, key, single)
	})
	if err != nil {
		return fromError(err)
	}
	if value == nil || value == "" {
		return Empty()
	}
	return Resolved(value, "")
}

// InvalidateItem drops every cached lookup for one item.
func (p *Providers) InvalidateItem(id int64) int {
	scope := strconv.FormatInt(id, 10)
	removed := 0
	for _, kind := range []string{CacheKindItem, CacheKindTyped, CacheKindMeta} {
		removed += p.cache.InvalidatePrefix(CacheScopePrefix(kind, scope))
	}
	return removed
}

// InvalidateList drops every cached list of one content type.
func (p *Providers) InvalidateList(postType string) int {
	return p.cache.InvalidatePrefix(CacheScopePrefix(CacheKindList, postType))
}

// maxFlightRetries bounds how often a caller rejoins a shared call that was
// abandoned by every other waiter.
const maxFlightRetries = 3

// errFlightAbandoned marks a shared call cancelled because no caller was
// waiting for it any more.
var errFlightAbandoned = errors.New("shared source call abandoned")

// flight is the cancellation scope of one shared source call. It is detached
// from the caller that started it and cancelled only when every waiter has left.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (p *Providers) join(ctx context.Context, key string) *flight {
	p.flightMu.Lock()
	defer p.flightMu.Unlock()
	f, ok := p.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		p.flights[key] = f
	}
	f.waiters++
	return f
}

func (p *Providers) leave(key string, f *flight) {
	p.flightMu.Lock()
	defer p.flightMu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if p.flights[key] == f {
		delete(p.flights, key)
	}
}

// fetch returns the cached value for key or calls fn under the per-call
// timeout. Successful results are cached for ttl; failures never are.
// Concurrent callers share one call; a caller leaving early never fails the
// others.
func (p *Providers) fetch(ctx context.Context, rc *Context, key string, ttl time.Duration, useCache bool, fn func(context.Context) (any, error)) (any, error) {
	if p.source == nil {
		return nil, ErrNoSource
	}
	if useCache {
		if value, ok := p.cache.Get(key); ok {
			return value, nil
		}
	}

	for attempt := 0; ; attempt++ {
		value, err := p.share(ctx, rc, key, ttl, useCache, fn)
		if errors.Is(err, errFlightAbandoned) && ctx.Err() == nil && attempt < maxFlightRetries {
			continue
		}
		if errors.Is(err, errFlightAbandoned) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, NewSourceError(ErrMsgSourceUnavailable, err)
		}
		return value, err
	}
}

// share joins the shared call for key and waits for it or for ctx.
func (p *Providers) share(ctx context.Context, rc *Context, key string, ttl time.Duration, useCache bool, fn func(context.Context) (any, error)) (any, error) {
	f := p.join(ctx, key)
	defer p.leave(key, f)

	ch := p.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(f.ctx, p.timeout)
		defer cancel()
		if rc != nil {
			callCtx = WithAPIBase(callCtx, rc.APIBase)
		}

		start := time.Now()
		value, err := fn(callCtx)
		if err != nil {
			switch {
			case f.ctx.Err() != nil:
				err = errFlightAbandoned
			case !IsTimeout(err) && errors.Is(callCtx.Err(), context.DeadlineExceeded):
				err = NewTimeoutError(err)
			}
			p.logger.Debug(LogMsgSourceFailed,
				zap.String(LogFieldCacheKey, key),
				zap.Duration(LogFieldDuration, time.Since(start)),
				zap.Error(err))
			return nil, err
		}
		if useCache {
			p.cache.Set(key, value, ttl)
		}
		return value, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
