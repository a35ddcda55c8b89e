// Package upload archives submission artifacts to remote object storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// Object is one artifact to store.
type Object struct {
	Path            string
	Body            io.Reader
	Size            int64 // -1 when unknown
	ContentType     string
	ContentEncoding string
}

// Provider stores objects in a remote backend.
type Provider interface {
	Name() string
	Configure(config map[string]any) error
	Upload(ctx context.Context, obj Object) error
}

// Verifier is implemented by providers that can check their destination
// before any upload is attempted.
type Verifier interface {
	Verify(ctx context.Context) error
}

type Factory func() Provider

var registry = map[string]Factory{
	"minio": func() Provider { return NewMinioProvider() },
}

// Register adds or replaces a provider factory.
func Register(name string, f Factory) {
	registry[name] = f
}

// Providers lists registered provider names.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New creates and configures a provider by name.
func New(name string, config map[string]any) (Provider, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown upload provider: %s", name)
	}
	p := f()
	if err := p.Configure(config); err != nil {
		return nil, err
	}
	return p, nil
}
