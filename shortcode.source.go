package shortcode

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Source driver names
const (
	SourceDriverMemory   = "memory"
	SourceDriverHTTP     = "http"
	SourceDriverPostgres = "postgres"
	SourceDriverSQLite   = "sqlite"
)

// Source driver registry panics
const (
	ErrMsgNilSourceDriver        = "content source driver is nil"
	ErrMsgSourceDriverRegistered = "content source driver already registered"
)

// ContentSource is the narrow interface through which providers read content.
// Implementations signal absence by returning an error wrapping
// ErrContentNotFound; any other error is reported as a failure.
type ContentSource interface {
	// ListItems returns items of q.Type ordered and limited per q.
	ListItems(ctx context.Context, q ListQuery) ([]Item, error)

	// GetItem returns one item. postType may be empty.
	GetItem(ctx context.Context, postType string, id int64) (*Item, error)

	// GetTypedField returns a custom field value and its type tag.
	GetTypedField(ctx context.Context, id int64, name string) (TypedValue, error)

	// GetMeta returns an untyped metadata value. With single false the
	// result is a []any of every stored value for key.
	GetMeta(ctx context.Context, id int64, key string, single bool) (any, error)

	// Close releases resources. After Close, the source should not be used.
	Close() error
}

// SourceDriver is a factory for content sources.
// Drivers register themselves during init().
type SourceDriver interface {
	// Open creates a source from a driver-specific connection string.
	Open(connectionString string) (ContentSource, error)
}

var (
	sourceDriversMu sync.RWMutex
	sourceDrivers   = make(map[string]SourceDriver)
)

// RegisterSourceDriver registers a content source driver by name.
// It panics if driver is nil or the name is taken.
func RegisterSourceDriver(name string, driver SourceDriver) {
	sourceDriversMu.Lock()
	defer sourceDriversMu.Unlock()

	if driver == nil {
		panic(ErrMsgNilSourceDriver)
	}
	if _, exists := sourceDrivers[name]; exists {
		panic(ErrMsgSourceDriverRegistered + ": " + name)
	}
	sourceDrivers[name] = driver
}

// OpenSource opens a content source with a registered driver.
func OpenSource(driverName, connectionString string) (ContentSource, error) {
	sourceDriversMu.RLock()
	driver, ok := sourceDrivers[driverName]
	sourceDriversMu.RUnlock()

	if !ok {
		return nil, NewUnknownDriverError(driverName)
	}
	return driver.Open(connectionString)
}

// ListSourceDrivers returns the names of all registered drivers, sorted.
func ListSourceDrivers() []string {
	sourceDriversMu.RLock()
	defer sourceDriversMu.RUnlock()

	names := make([]string, 0, len(sourceDrivers))
	for name := range sourceDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeListQuery fills defaults and clamps the count.
func normalizeListQuery(q ListQuery) ListQuery {
	if q.Count <= 0 {
		q.Count = DefaultListCount
	}
	if q.Count > MaxListCount {
		q.Count = MaxListCount
	}
	if q.OrderBy == "" {
		q.OrderBy = OrderByDate
	}
	if strings.EqualFold(q.Order, OrderAsc) {
		q.Order = OrderAsc
	} else {
		q.Order = OrderDesc
	}
	if q.Status == "" {
		q.Status = StatusPublish
	}
	return q
}
