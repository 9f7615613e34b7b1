// Package extension provides the string-keyed metadata tree that describes how
// a Go type maps onto a database table. Trees are produced by the fluent
// builder and read by the mapping schema.
package extension

import (
	"sort"
)

// Well-known attribute value keys
const (
	// ValueKey is the key holding the value of a single-value attribute
	ValueKey = "Value"

	// TypePostfix is appended to a value key to record the Go type of the value
	TypePostfix = "-type"
)

// Values is an ordered string record
type Values struct {
	keys []string
	data map[string]string
}

// Set stores a value, keeping the position of an existing key
func (v *Values) Set(key, value string) {
	if v.data == nil {
		v.data = make(map[string]string)
	}
	if _, exists := v.data[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.data[key] = value
}

// Get returns the value stored under key
func (v *Values) Get(key string) (string, bool) {
	value, ok := v.data[key]
	return value, ok
}

// Keys returns the keys in insertion order
func (v *Values) Keys() []string {
	keys := make([]string, len(v.keys))
	copy(keys, v.keys)
	return keys
}

// Len returns the number of stored keys
func (v *Values) Len() int {
	return len(v.keys)
}

// AttributeExtension is a single attribute record. Besides its own values it
// may carry nested attribute collections (relation indexes use this).
type AttributeExtension struct {
	Values     Values
	Attributes AttributeNameCollection
}

// NewAttributeExtension creates an empty attribute record
func NewAttributeExtension() *AttributeExtension {
	return &AttributeExtension{
		Attributes: make(AttributeNameCollection),
	}
}

// NewValueAttribute creates a record holding a single Value entry
func NewValueAttribute(value string) *AttributeExtension {
	ae := NewAttributeExtension()
	ae.Values.Set(ValueKey, value)
	return ae
}

// Value returns the record's Value entry
func (ae *AttributeExtension) Value() string {
	value, _ := ae.Values.Get(ValueKey)
	return value
}

// Get returns a named value of the record
func (ae *AttributeExtension) Get(key string) (string, bool) {
	return ae.Values.Get(key)
}

// AttributeExtensionCollection is an ordered list of records sharing one attribute name
type AttributeExtensionCollection []*AttributeExtension

// First returns the first record or nil
func (c AttributeExtensionCollection) First() *AttributeExtension {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// AttributeNameCollection maps attribute names to their records
type AttributeNameCollection map[string]*AttributeExtensionCollection

// Set replaces any records under name with a single Value record
func (a AttributeNameCollection) Set(name, value string) {
	a[name] = &AttributeExtensionCollection{NewValueAttribute(value)}
}

// Collection returns the records stored under name, creating an empty
// collection when none exists
func (a AttributeNameCollection) Collection(name string) *AttributeExtensionCollection {
	if c, ok := a[name]; ok {
		return c
	}
	c := &AttributeExtensionCollection{}
	a[name] = c
	return c
}

// Append adds a record to the collection stored under name
func (a AttributeNameCollection) Append(name string, ae *AttributeExtension) {
	c := a.Collection(name)
	*c = append(*c, ae)
}

// Replace clears the collection stored under name and stores ae as its only record
func (a AttributeNameCollection) Replace(name string, ae *AttributeExtension) {
	c := a.Collection(name)
	*c = append((*c)[:0], ae)
}

// Get returns the records stored under name
func (a AttributeNameCollection) Get(name string) (AttributeExtensionCollection, bool) {
	c, ok := a[name]
	if !ok {
		return nil, false
	}
	return *c, true
}

// Value returns the Value entry of the first record stored under name
func (a AttributeNameCollection) Value(name string) (string, bool) {
	c, ok := a.Get(name)
	if !ok || len(c) == 0 {
		return "", false
	}
	return c[0].Value(), true
}

// Has reports whether an attribute is registered under name
func (a AttributeNameCollection) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Remove deletes the attribute registered under name
func (a AttributeNameCollection) Remove(name string) {
	delete(a, name)
}

// Names returns the registered attribute names in sorted order
func (a AttributeNameCollection) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
