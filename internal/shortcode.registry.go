package internal

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// InternalHandler is the slice of the public Handler interface the registry
// needs. It keeps this package free of an import on the root package.
type InternalHandler interface {
	Name() string
}

// Registry manages handler registration with first-come-wins semantics.
// It is thread-safe for concurrent read/write access.
type Registry struct {
	handlers map[string]InternalHandler
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewRegistry creates a new handler registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgRegistryCreated)
	return &Registry{
		handlers: make(map[string]InternalHandler),
		logger:   logger,
	}
}

// Register adds a handler to the registry.
// If a handler for the same name already exists, returns an error and keeps
// the existing handler (first-come-wins semantics).
func (r *Registry) Register(handler InternalHandler) error {
	if handler == nil {
		return NewRegistryError(ErrMsgNilHandler, "")
	}

	name := handler.Name()
	if name == "" {
		return NewRegistryError(ErrMsgEmptyName, "")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.handlers[name]; exists {
		r.logger.Warn(LogMsgHandlerCollision,
			zap.String(LogFieldName, name),
			zap.String(LogFieldExisting, fmt.Sprintf("%T", existing)),
		)
		return NewRegistryError(ErrMsgHandlerAlreadyExists, name)
	}

	r.handlers[name] = handler
	r.logger.Debug(LogMsgHandlerRegistered, zap.String(LogFieldName, name))
	return nil
}

// MustRegister adds a handler and panics if registration fails.
// Use this for built-in handlers that must always be available.
func (r *Registry) MustRegister(handler InternalHandler) {
	if err := r.Register(handler); err != nil {
		panic(err)
	}
}

// Unregister removes a handler by name.
// Returns true if a handler was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; !exists {
		return false
	}
	delete(r.handlers, name)
	r.logger.Debug(LogMsgHandlerRemoved, zap.String(LogFieldName, name))
	return true
}

// Get retrieves a handler by name.
// Returns the handler and true if found, or nil and false if not.
func (r *Registry) Get(name string) (InternalHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, exists := r.handlers[name]
	return handler, exists
}

// Has checks if a handler is registered for the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.handlers[name]
	return exists
}

// List returns all registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered handler ordered by name.
func (r *Registry) All() []InternalHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]InternalHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		all = append(all, h)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers)
}

// RegistryError represents a registry operation error
type RegistryError struct {
	Message string
	Name    string
}

// NewRegistryError creates a new registry error
func NewRegistryError(message, name string) *RegistryError {
	return &RegistryError{
		Message: message,
		Name:    name,
	}
}

// Error implements the error interface
func (e *RegistryError) Error() string {
	if e.Name != StringValueEmpty {
		return fmt.Sprintf(ErrFmtNameMessage, e.Message, e.Name)
	}
	return e.Message
}

// Registry error message constants
const (
	ErrMsgNilHandler           = "handler cannot be nil"
	ErrMsgEmptyName            = "handler name cannot be empty"
	ErrMsgHandlerAlreadyExists = "handler already registered for directive"
)

// ErrFmtNameMessage formats a message with the directive name
const ErrFmtNameMessage = "%s: %s"
