package shortcode

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Resource names used in not-found errors
const (
	ResourceItem  = "item"
	ResourceField = "field"
	ResourceMeta  = "meta"
	ResourceList  = "list"
)

// MemorySource is an in-memory ContentSource.
// It is primarily intended for testing, development and the CLI fixture file.
type MemorySource struct {
	mu     sync.RWMutex
	items  map[int64]*Item
	typed  map[int64]map[string]TypedValue
	meta   map[int64]map[string][]any
	closed bool
}

// MemorySourceDriver opens MemorySource instances.
type MemorySourceDriver struct{}

func init() {
	RegisterSourceDriver(SourceDriverMemory, &MemorySourceDriver{})
}

// Open creates a MemorySource. A non-empty connection string is a fixture
// file path (YAML or JSON) loaded into the source.
func (d *MemorySourceDriver) Open(connectionString string) (ContentSource, error) {
	if connectionString == "" {
		return NewMemorySource(), nil
	}
	return LoadMemorySource(connectionString)
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		items: make(map[int64]*Item),
		typed: make(map[int64]map[string]TypedValue),
		meta:  make(map[int64]map[string][]any),
	}
}

// Fixture is the file format understood by LoadMemorySource.
type Fixture struct {
	Items []Item         `yaml:"items" json:"items"`
	Typed []FixtureTyped `yaml:"typed" json:"typed"`
	Meta  []FixtureMeta  `yaml:"meta" json:"meta"`
}

// FixtureTyped is one typed custom field in a fixture.
type FixtureTyped struct {
	Item  int64  `yaml:"item" json:"item"`
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type"`
	Value any    `yaml:"value" json:"value"`
}

// FixtureMeta is one metadata key in a fixture. Values holds every stored
// value; single reads return the first.
type FixtureMeta struct {
	Item   int64  `yaml:"item" json:"item"`
	Key    string `yaml:"key" json:"key"`
	Values []any  `yaml:"values" json:"values"`
}

// LoadMemorySource reads a fixture file into a new MemorySource.
func LoadMemorySource(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(ErrMsgFixtureReadFailed, path, err)
	}
	src, err := ParseFixture(data)
	if err != nil {
		return nil, NewConfigError(ErrMsgFixtureParseFailed, path, err)
	}
	return src, nil
}

// ParseFixture builds a MemorySource from YAML or JSON fixture data.
func ParseFixture(data []byte) (*MemorySource, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, err
	}
	src := NewMemorySource()
	for i := range fx.Items {
		src.AddItem(fx.Items[i])
	}
	for _, t := range fx.Typed {
		src.SetTypedField(t.Item, t.Name, TypedValue{Value: t.Value, Type: t.Type})
	}
	for _, m := range fx.Meta {
		src.SetMeta(m.Item, m.Key, m.Values...)
	}
	return src, nil
}

// AddItem stores or replaces an item.
func (s *MemorySource) AddItem(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item.Clone()
}

// RemoveItem deletes an item with its fields and meta.
func (s *MemorySource) RemoveItem(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	delete(s.typed, id)
	delete(s.meta, id)
}

// SetTypedField stores a typed custom field for an item.
func (s *MemorySource) SetTypedField(id int64, name string, value TypedValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typed[id] == nil {
		s.typed[id] = make(map[string]TypedValue)
	}
	s.typed[id][name] = value
}

// SetMeta replaces every value stored under key.
func (s *MemorySource) SetMeta(id int64, key string, values ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta[id] == nil {
		s.meta[id] = make(map[string][]any)
	}
	s.meta[id][key] = append([]any(nil), values...)
}

// AddMeta appends a value under key.
func (s *MemorySource) AddMeta(id int64, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta[id] == nil {
		s.meta[id] = make(map[string][]any)
	}
	s.meta[id][key] = append(s.meta[id][key], value)
}

// ListItems returns matching items ordered per q.
func (s *MemorySource) ListItems(ctx context.Context, q ListQuery) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewSourceClosedError()
	}

	q = normalizeListQuery(q)
	out := make([]Item, 0)
	for _, item := range s.items {
		if item.Type != q.Type {
			continue
		}
		if itemStatus(item.Status) != q.Status {
			continue
		}
		if q.MetaKey != "" && !s.metaMatches(item, q.MetaKey, q.MetaValue) {
			continue
		}
		out = append(out, *item.Clone())
	}

	sortItems(out, q.OrderBy, q.Order)
	if len(out) > q.Count {
		out = out[:q.Count]
	}
	return out, nil
}

// metaMatches checks the meta store first, then the item's field bag.
func (s *MemorySource) metaMatches(item *Item, key, value string) bool {
	if values, ok := s.meta[item.ID][key]; ok {
		if value == "" {
			return true
		}
		for _, v := range values {
			if fmt.Sprint(v) == value {
				return true
			}
		}
		return false
	}
	v, ok := item.Fields[key]
	if !ok {
		return false
	}
	return value == "" || fmt.Sprint(v) == value
}

// sortItems orders items in place. Ties break on id for a stable order.
func sortItems(items []Item, orderBy, order string) {
	if orderBy == OrderByRandom {
		rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		return
	}
	compare := func(a, b Item) int {
		switch orderBy {
		case OrderByTitle:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case OrderByModified:
			return a.Modified.Compare(b.Modified)
		default:
			return a.Date.Compare(b.Date)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		c := compare(items[i], items[j])
		if c == 0 {
			c = compareInt64(items[i].ID, items[j].ID)
		}
		if order == OrderAsc {
			return c < 0
		}
		return c > 0
	})
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// GetItem returns one item. A non-empty postType must match the item's type.
func (s *MemorySource) GetItem(ctx context.Context, postType string, id int64) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewSourceClosedError()
	}

	item, ok := s.items[id]
	if !ok || (postType != "" && item.Type != postType) {
		return nil, NewContentNotFoundError(ResourceItem, strconv.FormatInt(id, 10))
	}
	return item.Clone(), nil
}

// GetTypedField returns a typed custom field.
func (s *MemorySource) GetTypedField(ctx context.Context, id int64, name string) (TypedValue, error) {
	if err := ctx.Err(); err != nil {
		return TypedValue{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return TypedValue{}, NewSourceClosedError()
	}

	tv, ok := s.typed[id][name]
	if !ok {
		return TypedValue{}, NewContentNotFoundError(ResourceField, name)
	}
	return tv, nil
}

// GetMeta returns the first value (single) or all values under key.
func (s *MemorySource) GetMeta(ctx context.Context, id int64, key string, single bool) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewSourceClosedError()
	}

	values, ok := s.meta[id][key]
	if !ok || len(values) == 0 {
		return nil, NewContentNotFoundError(ResourceMeta, key)
	}
	if single {
		return values[0], nil
	}
	return append([]any(nil), values...), nil
}

// Close marks the source closed.
func (s *MemorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// itemStatus treats an item stored without a status as published.
func itemStatus(status string) string {
	if status == "" {
		return StatusPublish
	}
	return status
}
