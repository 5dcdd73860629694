package schema

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/roach88/relmap/internal/logging"
)

// Registry is the type-keyed schema cache.
//
// Schemas are built outside the lock and published under it; when two
// callers race on first use the first published schema wins and the other
// build is discarded. Readers of published entries only take the read lock.
type Registry struct {
	mu      sync.RWMutex
	schemas map[reflect.Type]*Schema
	log     *logrus.Entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for build diagnostics.
func WithLogger(log *logrus.Entry) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		schemas: make(map[reflect.Type]*Schema),
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Of returns the schema of t, building it on first use. Pointer types are
// dereferenced.
func (r *Registry) Of(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("schema of nil type")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, structural(ErrCodeInvalidField, t.String(), "", "record type must be a struct, got %s", t.Kind())
	}

	r.mu.RLock()
	s, ok := r.schemas[t]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	b := &builder{root: t}
	built, err := b.build(t, nil, nil, "", "")
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.schemas[t]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.schemas[t] = built
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"type":    t.String(),
		"table":   built.Table,
		"fields":  len(built.Fields),
		"indices": len(built.Indices),
	}).Debug("schema built")

	return built, nil
}

// For returns the schema of T.
func For[T any](r *Registry) (*Schema, error) {
	return r.Of(reflect.TypeFor[T]())
}

// Foreign returns the schema referenced by an eager or reference field.
func (r *Registry) Foreign(f *Field) (*Schema, error) {
	if f.ForeignType == nil {
		return nil, fmt.Errorf("field %s does not reference a record", f.Path)
	}
	return r.Of(f.ForeignType)
}

// Schemas returns every published schema ordered by table name.
func (r *Registry) Schemas() []*Schema {
	r.mu.RLock()
	out := make([]*Schema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Table < out[j].Table
	})
	return out
}
