// Package formats wires the built-in serializer formats into a registry.
package formats

import (
	"sync"

	"github.com/philipp01105/nlogsink/serializer"
	"github.com/philipp01105/nlogsink/serializer/container"
	"github.com/philipp01105/nlogsink/serializer/jsonser"
	"github.com/philipp01105/nlogsink/serializer/textser"
)

// Register adds the text, json_lines and container formats to r.
func Register(r *serializer.Registry) error {
	for name, factory := range builtins() {
		if err := r.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in formats.
func NewRegistry() *serializer.Registry {
	r := serializer.NewRegistry()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *serializer.Registry
)

// Default returns the process-wide registry. It is created with the
// built-in formats on first use; callers may register more formats on it.
func Default() *serializer.Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

func builtins() map[string]serializer.Factory {
	return map[string]serializer.Factory{
		textser.FormatName:   func() serializer.Builder { return textser.Builder{} },
		jsonser.FormatName:   func() serializer.Builder { return jsonser.Builder{} },
		container.FormatName: func() serializer.Builder { return container.Builder{} },
	}
}
