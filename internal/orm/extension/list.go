package extension

import (
	"fmt"
)

// List is a mapping schema: the set of type trees keyed by type name.
// It is not safe for concurrent mutation.
type List struct {
	order []string
	types map[string]*TypeExtension
}

// NewList creates an empty schema
func NewList() *List {
	return &List{
		types: make(map[string]*TypeExtension),
	}
}

// Add inserts a tree. It fails when a tree with the same name is present;
// callers wanting replacement remove first.
func (l *List) Add(ext *TypeExtension) error {
	if _, exists := l.types[ext.Name]; exists {
		return fmt.Errorf("type %s is already registered", ext.Name)
	}
	l.types[ext.Name] = ext
	l.order = append(l.order, ext.Name)
	return nil
}

// Remove deletes the tree registered under name and reports whether it existed
func (l *List) Remove(name string) bool {
	if _, exists := l.types[name]; !exists {
		return false
	}
	delete(l.types, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the tree registered under name
func (l *List) Get(name string) (*TypeExtension, bool) {
	ext, ok := l.types[name]
	return ext, ok
}

// Contains reports whether a tree is registered under name
func (l *List) Contains(name string) bool {
	_, ok := l.types[name]
	return ok
}

// Names returns type names in registration order
func (l *List) Names() []string {
	names := make([]string, len(l.order))
	copy(names, l.order)
	return names
}

// Len returns the number of registered trees
func (l *List) Len() int {
	return len(l.order)
}
