// Package mapping reads merged extension trees into object mappers: the
// table, columns, keys and conversions a data-access layer needs for each
// struct type.
package mapping

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

// Option configures a Schema
type Option func(*Schema)

// WithLogger sets the schema logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Schema) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry sets the member mapper registry
func WithRegistry(registry *Registry) Option {
	return func(s *Schema) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// Schema builds and caches object mappers from an extension list. Types with
// no tree in the list map with defaults.
type Schema struct {
	list     *extension.List
	registry *Registry
	logger   *zap.Logger

	mu      sync.RWMutex
	mappers map[reflect.Type]*ObjectMapper
}

// NewSchema creates a schema over list
func NewSchema(list *extension.List, opts ...Option) *Schema {
	if list == nil {
		list = extension.NewList()
	}
	s := &Schema{
		list:     list,
		registry: NewRegistry(),
		logger:   zap.NewNop(),
		mappers:  make(map[reflect.Type]*ObjectMapper),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the underlying extension list
func (s *Schema) List() *extension.List {
	return s.list
}

// Registry returns the member mapper registry
func (s *Schema) Registry() *Registry {
	return s.registry
}

// Mapper returns the object mapper of t, building it on first use
func (s *Schema) Mapper(t reflect.Type) (*ObjectMapper, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}

	s.mu.RLock()
	om, ok := s.mappers[t]
	s.mu.RUnlock()
	if ok {
		return om, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if om, ok := s.mappers[t]; ok {
		return om, nil
	}

	name := extension.TypeName(t)
	ext, _ := s.list.Get(name)
	om = &ObjectMapper{
		Type:     t,
		TypeName: name,
		Renames:  make(map[string]string),
		byMember: make(map[string]*Column),
		byName:   make(map[string]*Column),
	}
	b := &objectBuilder{schema: s, ext: ext, om: om}
	if err := b.build(); err != nil {
		return nil, err
	}

	s.mappers[t] = om
	s.logger.Debug("built object mapper",
		zap.String("type", name),
		zap.String("table", om.Table),
		zap.Int("columns", len(om.Columns)),
		zap.Bool("configured", ext != nil),
	)
	return om, nil
}

// MapperOf returns the object mapper of T
func MapperOf[T any](s *Schema) (*ObjectMapper, error) {
	return s.Mapper(reflect.TypeOf((*T)(nil)).Elem())
}

// Invalidate drops every cached mapper so later calls see list changes
func (s *Schema) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappers = make(map[reflect.Type]*ObjectMapper)
}
