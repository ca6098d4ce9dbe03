// Package catalog supplies the business catalog the recommendation engine
// ranks. Every Loader returns a fresh, caller-owned slice per call.
package catalog

import (
	"context"

	"magick-workers/internal/models"
)

// Loader supplies an already merged and resolved catalog snapshot.
type Loader interface {
	Load(ctx context.Context) ([]models.Business, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]models.Business, error)

func (f LoaderFunc) Load(ctx context.Context) ([]models.Business, error) {
	return f(ctx)
}

// Named is implemented by loaders that report a source label for logs and
// metrics.
type Named interface {
	Name() string
}

// SourceName returns the loader's label, or "custom".
func SourceName(l Loader) string {
	if n, ok := l.(Named); ok {
		return n.Name()
	}
	return "custom"
}
