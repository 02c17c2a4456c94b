package serializer

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Factory returns a new Builder. It takes no arguments so that a format
// can be chosen purely by name at configuration time.
type Factory func() Builder

// Registry maps format names to builder factories. Names are matched
// case-insensitively. A Registry is safe for concurrent use; it is
// normally populated once at startup through explicit Register calls.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a format. It fails for an empty name, a nil factory or a
// name that is already taken.
func (r *Registry) Register(name string, factory Factory) error {
	key := normalizeName(name)
	if key == "" {
		return errors.Wrap(ErrInvalidFormat, "empty format name")
	}
	if factory == nil {
		return errors.Wrapf(ErrInvalidFormat, "nil factory for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[key]; ok {
		return errors.Wrapf(ErrDuplicateFormat, "%q", name)
	}
	r.factories[key] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Builder returns a fresh Builder for the named format.
func (r *Registry) Builder(name string) (Builder, error) {
	r.mu.RLock()
	factory, ok := r.factories[normalizeName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFormat, "%q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return factory(), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[normalizeName(name)]
	return ok
}

// Names returns the registered format names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := lo.Keys(r.factories)
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
