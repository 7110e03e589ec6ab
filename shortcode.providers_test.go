package shortcode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource wraps a MemorySource, counting calls and optionally
// delaying or failing them.
type countingSource struct {
	*MemorySource
	lists  atomic.Int64
	items  atomic.Int64
	typed  atomic.Int64
	metas  atomic.Int64
	delay  time.Duration
	gate   chan struct{}
	failMu sync.Mutex
	fail   error
}

func newCountingSource() *countingSource {
	return &countingSource{MemorySource: newProductSource()}
}

func (s *countingSource) setFailure(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.fail = err
}

func (s *countingSource) wait(ctx context.Context) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.fail
}

func (s *countingSource) ListItems(ctx context.Context, q ListQuery) ([]Item, error) {
	s.lists.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.MemorySource.ListItems(ctx, q)
}

func (s *countingSource) GetItem(ctx context.Context, postType string, id int64) (*Item, error) {
	s.items.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.MemorySource.GetItem(ctx, postType, id)
}

func (s *countingSource) GetTypedField(ctx context.Context, id int64, name string) (TypedValue, error) {
	s.typed.Add(1)
	if err := s.wait(ctx); err != nil {
		return TypedValue{}, err
	}
	return s.MemorySource.GetTypedField(ctx, id, name)
}

func (s *countingSource) GetMeta(ctx context.Context, id int64, key string, single bool) (any, error) {
	s.metas.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.MemorySource.GetMeta(ctx, id, key, single)
}

func newTestProviders(src ContentSource, clock *fakeClock) *Providers {
	return NewProviders(ProviderConfig{
		Source:   src,
		Cache:    newTestCache(clock),
		ListTTL:  5 * time.Minute,
		FieldTTL: time.Minute,
		Timeout:  time.Second,
	})
}

func TestProviders_ListCaching(t *testing.T) {
	src := newCountingSource()
	clock := newFakeClock()
	p := newTestProviders(src, clock)
	ctx := context.Background()
	rc := &Context{}
	q := ListQuery{Type: "product", Count: 2}

	for i := 0; i < 3; i++ {
		v := p.List(ctx, rc, q, 0, true)
		require.Equal(t, StateResolved, v.State)
		assert.Len(t, v.Raw, 2)
	}
	assert.Equal(t, int64(1), src.lists.Load(), "identical queries within the TTL fetch once")

	clock.Advance(5*time.Minute - time.Second)
	p.List(ctx, rc, q, 0, true)
	assert.Equal(t, int64(1), src.lists.Load())

	clock.Advance(time.Second)
	p.List(ctx, rc, q, 0, true)
	assert.Equal(t, int64(2), src.lists.Load(), "an entry exactly TTL old is stale")

	p.List(ctx, rc, ListQuery{Type: "product", Count: 3}, 0, true)
	assert.Equal(t, int64(3), src.lists.Load(), "different attributes use a different key")

	p.List(ctx, &Context{UserID: 7}, q, 0, true)
	assert.Equal(t, int64(4), src.lists.Load(), "different viewer uses a different key")
}

func TestProviders_ListCacheControl(t *testing.T) {
	src := newCountingSource()
	clock := newFakeClock()
	p := newTestProviders(src, clock)
	ctx := context.Background()

	t.Run("cache disabled", func(t *testing.T) {
		p.List(ctx, nil, ListQuery{Type: "product"}, 0, false)
		p.List(ctx, nil, ListQuery{Type: "product"}, 0, false)
		assert.Equal(t, int64(2), src.lists.Load())
	})

	t.Run("random order is never cached", func(t *testing.T) {
		before := src.lists.Load()
		p.List(ctx, nil, ListQuery{Type: "product", OrderBy: OrderByRandom}, 0, true)
		p.List(ctx, nil, ListQuery{Type: "product", OrderBy: OrderByRandom}, 0, true)
		assert.Equal(t, before+2, src.lists.Load())
	})

	t.Run("custom ttl", func(t *testing.T) {
		q := ListQuery{Type: "page"}
		before := src.lists.Load()
		p.List(ctx, nil, q, 10*time.Second, true)
		clock.Advance(9 * time.Second)
		p.List(ctx, nil, q, 10*time.Second, true)
		assert.Equal(t, before+1, src.lists.Load())
		clock.Advance(time.Second)
		p.List(ctx, nil, q, 10*time.Second, true)
		assert.Equal(t, before+2, src.lists.Load())
	})

	t.Run("no matches is resolved and empty", func(t *testing.T) {
		v := p.List(ctx, nil, ListQuery{Type: "event"}, 0, true)
		assert.Equal(t, StateResolved, v.State)
		assert.Equal(t, []Item{}, v.Raw)
	})
}

func TestProviders_Field(t *testing.T) {
	src := newCountingSource()
	p := newTestProviders(src, newFakeClock())
	ctx := context.Background()

	t.Run("fetches and caches the item", func(t *testing.T) {
		v := p.Field(ctx, &Context{}, "", 1, "title")
		require.Equal(t, StateResolved, v.State)
		assert.Equal(t, "Anvil", v.Raw)

		v = p.Field(ctx, &Context{}, "", 1, "price")
		assert.Equal(t, 50000, v.Raw)
		assert.Equal(t, int64(1), src.items.Load())
	})

	t.Run("ambient item needs no fetch", func(t *testing.T) {
		before := src.items.Load()
		rc := &Context{Post: &Item{ID: 77, Title: "Loaded"}}
		v := p.Field(ctx, rc, "", 77, "title")
		assert.Equal(t, "Loaded", v.Raw)
		assert.Equal(t, before, src.items.Load())
	})

	t.Run("missing field is empty", func(t *testing.T) {
		v := p.Field(ctx, &Context{}, "", 1, "nonexistent")
		assert.Equal(t, StateEmpty, v.State)
	})

	t.Run("missing item is empty", func(t *testing.T) {
		v := p.Field(ctx, &Context{}, "", 404, "title")
		assert.Equal(t, StateEmpty, v.State)
	})
}

func TestProviders_TypedAndMeta(t *testing.T) {
	src := newCountingSource()
	p := newTestProviders(src, newFakeClock())
	ctx := context.Background()

	v := p.TypedField(ctx, nil, 1, "launch", "")
	require.Equal(t, StateResolved, v.State)
	assert.Equal(t, TypeDate, v.TypeTag)

	v = p.TypedField(ctx, nil, 1, "launch", TypeRelative)
	assert.Equal(t, TypeRelative, v.TypeTag, "explicit type overrides the source tag")
	assert.Equal(t, int64(1), src.typed.Load())

	v = p.TypedField(ctx, nil, 1, "nope", "")
	assert.Equal(t, StateEmpty, v.State)

	v = p.Meta(ctx, nil, 1, "sku", true)
	assert.Equal(t, "ANV-1", v.Raw)
	v = p.Meta(ctx, nil, 1, "tags", false)
	assert.Equal(t, []any{"heavy", "iron"}, v.Raw)
	v = p.Meta(ctx, nil, 2, "sku", true)
	assert.Equal(t, StateEmpty, v.State)
}

func TestProviders_FailuresAreNotCached(t *testing.T) {
	src := newCountingSource()
	p := newTestProviders(src, newFakeClock())
	ctx := context.Background()

	src.setFailure(errors.New("connection refused"))
	v := p.Field(ctx, nil, "", 1, "title")
	assert.Equal(t, StateErrored, v.State)
	assert.Equal(t, ErrMsgSourceRequest, v.Message)

	src.setFailure(nil)
	v = p.Field(ctx, nil, "", 1, "title")
	assert.Equal(t, StateResolved, v.State)
	assert.Equal(t, int64(2), src.items.Load())

	notFound := p.Field(ctx, nil, "", 404, "title")
	assert.Equal(t, StateEmpty, notFound.State)
	p.Field(ctx, nil, "", 404, "title")
	assert.Equal(t, int64(4), src.items.Load(), "not-found is not cached")
}

func TestProviders_Timeout(t *testing.T) {
	src := newCountingSource()
	src.delay = time.Second
	p := NewProviders(ProviderConfig{Source: src, Timeout: 20 * time.Millisecond})

	v := p.TypedField(context.Background(), nil, 1, "launch", "")

	assert.Equal(t, StateErrored, v.State)
	assert.True(t, IsTimeout(v.Err))
	assert.Equal(t, ErrMsgRequestTimeout, v.Message)
}

func TestProviders_NoSource(t *testing.T) {
	p := NewProviders(ProviderConfig{})

	v := p.Field(context.Background(), nil, "", 1, "title")

	assert.Equal(t, StateErrored, v.State)
	assert.ErrorIs(t, v.Err, ErrNoSource)
}

func TestProviders_ConcurrentMissesShareOneFetch(t *testing.T) {
	src := newCountingSource()
	src.gate = make(chan struct{})
	p := newTestProviders(src, newFakeClock())
	ctx := context.Background()

	const callers = 10
	var wg sync.WaitGroup
	results := make([]ResolvedValue, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Meta(ctx, nil, 1, "sku", true)
		}(i)
	}

	require.Eventually(t, func() bool { return src.metas.Load() >= 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int64(1), src.metas.Load())
	for _, r := range results {
		assert.Equal(t, "ANV-1", r.Raw)
	}
}

func TestProviders_Invalidate(t *testing.T) {
	src := newCountingSource()
	p := newTestProviders(src, newFakeClock())
	ctx := context.Background()

	p.Field(ctx, nil, "", 1, "title")
	p.TypedField(ctx, nil, 1, "launch", "")
	p.Meta(ctx, nil, 1, "sku", true)
	p.Meta(ctx, nil, 2, "missing", true)
	p.List(ctx, nil, ListQuery{Type: "product"}, 0, true)

	assert.Equal(t, 3, p.InvalidateItem(1))
	assert.Equal(t, 1, p.InvalidateList("product"))
	assert.Equal(t, 0, p.Cache().Len())
}
