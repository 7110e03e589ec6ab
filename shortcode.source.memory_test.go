package shortcode

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProductSource returns a source with three products, one draft, one page
// and one note stored without a status.
func newProductSource() *MemorySource {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	src := NewMemorySource()
	src.AddItem(Item{ID: 1, Type: "product", Title: "Anvil", Status: StatusPublish, Date: day(1), Modified: day(9), Link: "/anvil",
		Fields: map[string]any{"price": 50000, "color": "black"}})
	src.AddItem(Item{ID: 2, Type: "product", Title: "Bucket", Status: StatusPublish, Date: day(3), Modified: day(4), Excerpt: "Holds water",
		Fields: map[string]any{"price": 12.5, "color": "red"}})
	src.AddItem(Item{ID: 3, Type: "product", Title: "crate", Status: StatusPublish, Date: day(2), Modified: day(2)})
	src.AddItem(Item{ID: 4, Type: "product", Title: "Draft thing", Status: "draft", Date: day(5)})
	src.AddItem(Item{ID: 10, Type: "page", Title: "About", Status: StatusPublish, Date: day(1)})
	src.AddItem(Item{ID: 11, Type: "note", Title: "Loose note", Date: day(6)})
	src.SetTypedField(1, "launch", TypedValue{Value: "2024-03-15", Type: TypeDate})
	src.SetTypedField(1, "gallery", TypedValue{Value: []any{
		map[string]any{"url": "/1.jpg"}, map[string]any{"url": "/2.jpg"},
	}, Type: TypeGallery})
	src.SetMeta(1, "sku", "ANV-1")
	src.SetMeta(3, "featured", "yes")
	src.AddMeta(1, "tags", "heavy")
	src.AddMeta(1, "tags", "iron")
	return src
}

func titles(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func TestMemorySource_ListItems(t *testing.T) {
	src := newProductSource()
	ctx := context.Background()

	tests := []struct {
		name     string
		query    ListQuery
		expected []string
	}{
		{"default order is date desc", ListQuery{Type: "product"}, []string{"Bucket", "crate", "Anvil"}},
		{"date asc", ListQuery{Type: "product", Order: OrderAsc}, []string{"Anvil", "crate", "Bucket"}},
		{"title is case-insensitive", ListQuery{Type: "product", OrderBy: OrderByTitle, Order: OrderAsc}, []string{"Anvil", "Bucket", "crate"}},
		{"modified desc", ListQuery{Type: "product", OrderBy: OrderByModified}, []string{"Anvil", "Bucket", "crate"}},
		{"count limits", ListQuery{Type: "product", Count: 2}, []string{"Bucket", "crate"}},
		{"status filter", ListQuery{Type: "product", Status: "draft"}, []string{"Draft thing"}},
		{"meta store filter", ListQuery{Type: "product", MetaKey: "featured", MetaValue: "yes"}, []string{"crate"}},
		{"field bag filter", ListQuery{Type: "product", MetaKey: "color", MetaValue: "red"}, []string{"Bucket"}},
		{"meta key presence", ListQuery{Type: "product", MetaKey: "sku"}, []string{"Anvil"}},
		{"missing status counts as published", ListQuery{Type: "note"}, []string{"Loose note"}},
		{"missing status is not a draft", ListQuery{Type: "note", Status: "draft"}, []string{}},
		{"unknown type", ListQuery{Type: "event"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := src.ListItems(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, titles(items))
		})
	}

	t.Run("random returns every item", func(t *testing.T) {
		items, err := src.ListItems(ctx, ListQuery{Type: "product", OrderBy: OrderByRandom})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Anvil", "Bucket", "crate"}, titles(items))
	})

	t.Run("results are copies", func(t *testing.T) {
		items, err := src.ListItems(ctx, ListQuery{Type: "product", Count: 1})
		require.NoError(t, err)
		items[0].Title = "changed"

		item, err := src.GetItem(ctx, "", items[0].ID)
		require.NoError(t, err)
		assert.NotEqual(t, "changed", item.Title)
	})
}

func TestMemorySource_GetItem(t *testing.T) {
	src := newProductSource()
	ctx := context.Background()

	item, err := src.GetItem(ctx, "product", 1)
	require.NoError(t, err)
	assert.Equal(t, "Anvil", item.Title)

	_, err = src.GetItem(ctx, "page", 1)
	assert.True(t, IsNotFound(err), "type mismatch is not found")

	_, err = src.GetItem(ctx, "", 999)
	assert.True(t, IsNotFound(err))
}

func TestMemorySource_FieldsAndMeta(t *testing.T) {
	src := newProductSource()
	ctx := context.Background()

	tv, err := src.GetTypedField(ctx, 1, "launch")
	require.NoError(t, err)
	assert.Equal(t, TypeDate, tv.Type)

	_, err = src.GetTypedField(ctx, 1, "missing")
	assert.True(t, IsNotFound(err))

	sku, err := src.GetMeta(ctx, 1, "sku", true)
	require.NoError(t, err)
	assert.Equal(t, "ANV-1", sku)

	tags, err := src.GetMeta(ctx, 1, "tags", false)
	require.NoError(t, err)
	assert.Equal(t, []any{"heavy", "iron"}, tags)

	first, err := src.GetMeta(ctx, 1, "tags", true)
	require.NoError(t, err)
	assert.Equal(t, "heavy", first)

	_, err = src.GetMeta(ctx, 2, "sku", true)
	assert.True(t, IsNotFound(err))

	src.RemoveItem(1)
	_, err = src.GetMeta(ctx, 1, "sku", true)
	assert.True(t, IsNotFound(err))
}

func TestMemorySource_Closed(t *testing.T) {
	src := newProductSource()
	require.NoError(t, src.Close())

	_, err := src.ListItems(context.Background(), ListQuery{Type: "product"})
	assert.ErrorIs(t, err, ErrSourceClosed)

	_, err = src.GetItem(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrSourceClosed)
}

func TestMemorySource_CancelledContext(t *testing.T) {
	src := newProductSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.GetItem(ctx, "", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

const testFixture = `
items:
  - id: 7
    type: event
    title: Launch party
    status: publish
    date: 2024-06-01T18:00:00Z
    fields:
      venue: Hall A
typed:
  - item: 7
    name: ticket_price
    type: currency
    value: 25
meta:
  - item: 7
    key: capacity
    values: [120]
`

func TestParseFixture(t *testing.T) {
	src, err := ParseFixture([]byte(testFixture))
	require.NoError(t, err)
	ctx := context.Background()

	item, err := src.GetItem(ctx, "event", 7)
	require.NoError(t, err)
	assert.Equal(t, "Launch party", item.Title)
	assert.Equal(t, 2024, item.Date.Year())
	assert.Equal(t, "Hall A", item.Fields["venue"])

	tv, err := src.GetTypedField(ctx, 7, "ticket_price")
	require.NoError(t, err)
	assert.Equal(t, TypeCurrency, tv.Type)
	assert.Equal(t, 25, tv.Value)

	capacity, err := src.GetMeta(ctx, 7, "capacity", true)
	require.NoError(t, err)
	assert.Equal(t, 120, capacity)

	_, err = ParseFixture([]byte("items: [unclosed"))
	assert.Error(t, err)
}

func TestSourceDrivers(t *testing.T) {
	assert.Equal(t, []string{SourceDriverHTTP, SourceDriverMemory, SourceDriverPostgres, SourceDriverSQLite}, ListSourceDrivers())

	t.Run("memory without fixture", func(t *testing.T) {
		src, err := OpenSource(SourceDriverMemory, "")
		require.NoError(t, err)
		assert.IsType(t, &MemorySource{}, src)
	})

	t.Run("memory with fixture file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "content.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testFixture), 0o600))

		src, err := OpenSource(SourceDriverMemory, path)
		require.NoError(t, err)
		_, err = src.GetItem(context.Background(), "", 7)
		assert.NoError(t, err)
	})

	t.Run("missing fixture file", func(t *testing.T) {
		_, err := OpenSource(SourceDriverMemory, filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("http requires base url", func(t *testing.T) {
		_, err := OpenSource(SourceDriverHTTP, "")
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := OpenSource("mongo", "")
		assert.Error(t, err)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		assert.Panics(t, func() { RegisterSourceDriver(SourceDriverMemory, &MemorySourceDriver{}) })
		assert.Panics(t, func() { RegisterSourceDriver("nil-driver", nil) })
	})
}

func TestNormalizeListQuery(t *testing.T) {
	q := normalizeListQuery(ListQuery{Type: "x", Count: 500, Order: "asc"})
	assert.Equal(t, MaxListCount, q.Count)
	assert.Equal(t, OrderByDate, q.OrderBy)
	assert.Equal(t, OrderAsc, q.Order)
	assert.Equal(t, StatusPublish, q.Status)

	q = normalizeListQuery(ListQuery{Type: "x", Order: "sideways"})
	assert.Equal(t, DefaultListCount, q.Count)
	assert.Equal(t, OrderDesc, q.Order)
}
