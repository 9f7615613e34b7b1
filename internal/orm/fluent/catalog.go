package fluent

import (
	"sort"

	"go.uber.org/zap"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

// Constructor creates a configured mapper. It takes no arguments so a
// catalog can build every registered mapper on demand.
type Constructor func() Mapper

// Catalog lists the mappers of each code unit (usually a package path)
type Catalog struct {
	units map[string][]Constructor
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		units: make(map[string][]Constructor),
	}
}

// Register adds constructors to a unit, keeping registration order
func (c *Catalog) Register(unit string, ctors ...Constructor) {
	c.units[unit] = append(c.units[unit], ctors...)
}

// Units returns the registered unit names in sorted order
func (c *Catalog) Units() []string {
	units := make([]string, 0, len(c.units))
	for u := range c.units {
		units = append(units, u)
	}
	sort.Strings(units)
	return units
}

// Build runs every constructor of unit in registration order
func (c *Catalog) Build(unit string) []Mapper {
	ctors := c.units[unit]
	mappers := make([]Mapper, 0, len(ctors))
	for _, ctor := range ctors {
		mappers = append(mappers, ctor())
	}
	return mappers
}

// Discover builds every mapper of unit and returns their trees in
// registration order
func (c *Catalog) Discover(unit string) []*extension.TypeExtension {
	return Extensions(c.Build(unit)...)
}

// Cache memoizes discovery per unit for the lifetime of one configuration
// session. Create one per session instead of sharing it process wide.
type Cache struct {
	catalog *Catalog
	entries map[string][]*extension.TypeExtension
	logger  *zap.Logger
}

// NewCache creates a cache over catalog
func NewCache(catalog *Catalog, opts ...Option) *Cache {
	o := newOptions(opts)
	return &Cache{
		catalog: catalog,
		entries: make(map[string][]*extension.TypeExtension),
		logger:  o.logger,
	}
}

// Get returns the trees of unit, discovering them on first use
func (c *Cache) Get(unit string) []*extension.TypeExtension {
	if trees, ok := c.entries[unit]; ok {
		return trees
	}
	trees := c.catalog.Discover(unit)
	c.entries[unit] = trees
	c.logger.Debug("discovered mappings", zap.String("unit", unit), zap.Int("types", len(trees)))
	return trees
}

// ConfigureUnit merges the trees of unit into list
func (c *Cache) ConfigureUnit(list *extension.List, unit string) {
	Configure(list, c.Get(unit), WithLogger(c.logger))
}

// Reset forgets every discovered unit
func (c *Cache) Reset() {
	c.entries = make(map[string][]*extension.TypeExtension)
}
