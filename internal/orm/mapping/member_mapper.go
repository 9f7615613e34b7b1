package mapping

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"sync"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

// MemberMapper replaces the default conversion of one member
type MemberMapper interface {
	// Serialize converts a member value into its storage form
	Serialize(value interface{}) (interface{}, error)
	// Deserialize converts a storage value into a value of type target
	Deserialize(storage interface{}, target reflect.Type) (interface{}, error)
}

// Registry resolves member mapper type names recorded in metadata
type Registry struct {
	mu      sync.RWMutex
	mappers map[string]MemberMapper
}

// NewRegistry creates a registry holding the built-in GobMapper
func NewRegistry() *Registry {
	r := &Registry{mappers: make(map[string]MemberMapper)}
	r.Register(GobMapper{})
	return r
}

// Register adds m under the fully qualified name of its type
func (r *Registry) Register(m MemberMapper) {
	r.RegisterAs(extension.TypeName(reflect.TypeOf(m)), m)
}

// RegisterAs adds m under an explicit type name
func (r *Registry) RegisterAs(typeName string, m MemberMapper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappers[typeName] = m
}

// Lookup returns the mapper registered under typeName
func (r *Registry) Lookup(typeName string) (MemberMapper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappers[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMemberMapper, typeName)
	}
	return m, nil
}

// GobMapper stores a member as its gob encoding
type GobMapper struct{}

// Serialize encodes value. A nil value is stored as NULL.
func (GobMapper) Serialize(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).EncodeValue(rv); err != nil {
		return nil, fmt.Errorf("gob encode %T: %w", value, err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes storage into a new value of type target
func (GobMapper) Deserialize(storage interface{}, target reflect.Type) (interface{}, error) {
	ptr := reflect.New(target)
	if storage == nil {
		return ptr.Elem().Interface(), nil
	}

	var data []byte
	switch v := storage.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, fmt.Errorf("%w: gob storage must be bytes, got %T", ErrConversion, storage)
	}

	if err := gob.NewDecoder(bytes.NewReader(data)).DecodeValue(ptr); err != nil {
		return nil, fmt.Errorf("gob decode %s: %w", target, err)
	}
	return ptr.Elem().Interface(), nil
}
