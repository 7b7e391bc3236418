package ports

import (
	"context"
	"time"

	"github.com/nexustables/managedtable/internal/domain"
)

// TableRepository is the warehouse-facing port: everything the core needs
// to know or change about a physical table. Implementations report a
// missing table as an error satisfying apperrors.IsTableNotFound, never as
// a zero-value TableMetadata.
type TableRepository interface {
	// GetTableMetadata returns the observed state of a table.
	GetTableMetadata(ctx context.Context, tableName string) (domain.TableMetadata, error)

	// TableExists reports whether a table is physically present. It
	// returns an apperrors.TableNotFound-satisfying error if not.
	TableExists(ctx context.Context, tableName string) error

	// CreateTable creates a table from its config.
	CreateTable(ctx context.Context, config domain.TableConfig) error

	// CopyTable duplicates a table's structure, contents, and any
	// partition child tables under a new name. If expires is non-nil, the
	// copy is tagged with that expiry.
	CopyTable(ctx context.Context, sourceTableName, destinationTableName string, expires *time.Time) error

	// DeleteTable removes a table. If notFoundOK is true, a missing table
	// is not an error.
	DeleteTable(ctx context.Context, tableName string, notFoundOK bool) error

	// WriteQueryResultsToTablePartition executes query and writes its
	// results into the named partition of tableName, replacing whatever
	// was there. It returns apperrors.QueryReturnedNoData if the query
	// produced zero rows.
	WriteQueryResultsToTablePartition(ctx context.Context, tableName, query, partition string) error

	// WriteQueryResultsToTable executes query and replaces the full
	// contents of tableName with its results. It returns
	// apperrors.QueryReturnedNoData if the query produced zero rows.
	WriteQueryResultsToTable(ctx context.Context, tableName, query string) error

	// FormatDefinition computes the bounded, deterministic fingerprint a
	// table's definition is stored and compared as.
	FormatDefinition(definition string) string
}
