package ports

import (
	"context"

	"github.com/nexustables/managedtable/internal/domain"
)

// QueryRepository is the port for resolving a registered query's text.
type QueryRepository interface {
	// GetQuery renders the named query for the given run day and
	// per-render fields.
	GetQuery(ctx context.Context, queryName, runDay string, runTimeFields map[string]any) (string, error)

	// GetQueryHash returns a deterministic hash of the named query's
	// rendered text, used to name side-load shadow tables.
	GetQueryHash(ctx context.Context, queryName string) (uint64, error)

	// CopyQuery registers destinationQueryName as an alias of
	// sourceQueryName's renderer.
	CopyQuery(ctx context.Context, sourceQueryName, destinationQueryName string) error

	// AddQuery registers a renderer under a name, overwriting any
	// existing registration.
	AddQuery(ctx context.Context, queryName string, renderer domain.QueryRenderer) error
}
