package fluent

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

// Mapper produces the metadata tree of one type. *Map[T] implements it.
type Mapper interface {
	Extension() *extension.TypeExtension
	Type() reflect.Type
}

// Option configures merging and discovery
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for merge and discovery events
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Configure merges trees into list in order. A tree replaces whatever was
// registered under its type name before; nothing is merged field by field.
func Configure(list *extension.List, trees []*extension.TypeExtension, opts ...Option) {
	o := newOptions(opts)
	for _, ext := range trees {
		replaced := list.Remove(ext.Name)
		// Add cannot fail: the name was just removed
		_ = list.Add(ext)
		o.logger.Debug("merged type metadata",
			zap.String("type", ext.Name),
			zap.Bool("replaced", replaced),
			zap.Int("members", ext.Members.Len()),
		)
	}
}

// Extensions collects the trees of the given mappers in order
func Extensions(mappers ...Mapper) []*extension.TypeExtension {
	trees := make([]*extension.TypeExtension, 0, len(mappers))
	for _, m := range mappers {
		trees = append(trees, m.Extension())
	}
	return trees
}
