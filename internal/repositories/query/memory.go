// Package query provides an in-memory implementation of
// ports.QueryRepository, backed by a registry of QueryRenderer closures
// (typically produced by pkg/querytemplate).
package query

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/nexustables/managedtable/internal/apperrors"
	"github.com/nexustables/managedtable/internal/domain"
)

// Repository is a map-backed ports.QueryRepository. The zero value is not
// usable; construct with New.
type Repository struct {
	mu        sync.RWMutex
	renderers map[string]domain.QueryRenderer
}

func New() *Repository {
	return &Repository{renderers: make(map[string]domain.QueryRenderer)}
}

func (r *Repository) GetQuery(ctx context.Context, queryName, runDay string, runTimeFields map[string]any) (string, error) {
	r.mu.RLock()
	renderer, ok := r.renderers[queryName]
	r.mu.RUnlock()
	if !ok {
		return "", apperrors.NewNotFound("query", queryName)
	}
	return renderer(runDay, runTimeFields)
}

// GetQueryHash hashes the query's text rendered with an empty run day and no
// per-render fields: the hash identifies the query definition, not any
// particular day's rendering.
func (r *Repository) GetQueryHash(ctx context.Context, queryName string) (uint64, error) {
	text, err := r.GetQuery(ctx, queryName, "", nil)
	if err != nil {
		return 0, err
	}
	return hashString(text), nil
}

func (r *Repository) CopyQuery(ctx context.Context, sourceQueryName, destinationQueryName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	renderer, ok := r.renderers[sourceQueryName]
	if !ok {
		return apperrors.NewNotFound("query", sourceQueryName)
	}
	r.renderers[destinationQueryName] = renderer
	return nil
}

func (r *Repository) AddQuery(ctx context.Context, queryName string, renderer domain.QueryRenderer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[queryName] = renderer
	return nil
}

func hashString(s string) uint64 {
	sum := sha256.Sum256([]byte(s))
	return binary.BigEndian.Uint64(sum[:8])
}
