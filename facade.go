// Package managedtable is the reconciliation engine's public entry point: a
// small facade over the message bus, exposing one method per top-level
// reconciliation operation through explicit Go constructor functions.
package managedtable

import (
	"context"
	"log"

	"github.com/nexustables/managedtable/internal/config"
	configrepo "github.com/nexustables/managedtable/internal/repositories/config"
	queryrepo "github.com/nexustables/managedtable/internal/repositories/query"
	"github.com/nexustables/managedtable/internal/domain"
	"github.com/nexustables/managedtable/internal/ports"
	"github.com/nexustables/managedtable/internal/services"
)

// Options configures a Facade. TableRepository is the only required field:
// QueryRepository and TableConfigRepository default to the core's in-memory
// adapters if left nil, since nothing about them is warehouse-specific.
type Options struct {
	TableRepository       ports.TableRepository
	QueryRepository       ports.QueryRepository
	TableConfigRepository ports.TableConfigRepository
	Logger                *log.Logger
	MaxRetries            int
}

// Facade is the engine's public surface: register a query and reconcile a
// partitioned table (SyncPartitionedTable), rewrite an unpartitioned table
// wholesale (SyncUnpartitionedTable), register a query renderer on its own
// (AddQuery), or swap a table for a replacement (ReplaceTable).
type Facade struct {
	bus *services.MessageBus
}

// New constructs a Facade from Options, defaulting MaxRetries to
// services.DefaultMaxRetries when unset.
func New(opts Options) *Facade {
	if opts.QueryRepository == nil {
		opts.QueryRepository = queryrepo.New()
	}
	if opts.TableConfigRepository == nil {
		opts.TableConfigRepository = configrepo.New(opts.Logger)
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = services.DefaultMaxRetries
	}
	repos := services.Repositories{
		Table:       opts.TableRepository,
		Query:       opts.QueryRepository,
		TableConfig: opts.TableConfigRepository,
	}
	return &Facade{bus: services.NewMessageBus(repos, opts.Logger, maxRetries)}
}

// NewFromConfig constructs a Facade using internal/config.Config's retry
// budget, with the given table repository.
func NewFromConfig(cfg config.Config, tableRepo ports.TableRepository) *Facade {
	return New(Options{TableRepository: tableRepo, MaxRetries: cfg.MaxRetries})
}

// SyncPartitionedTable registers renderer under expected.TableName and
// reconciles the table's full state (existence, upstream freshness,
// definition, partition field, schema, and partitions) against expected.
func (f *Facade) SyncPartitionedTable(ctx context.Context, expected domain.TableConfig, renderer domain.QueryRenderer) error {
	return f.bus.Dispatch(ctx, &domain.SyncPartitionedTable{Expected: expected, Renderer: renderer})
}

// SyncUnpartitionedTable rewrites tableName's entire contents from query.
func (f *Facade) SyncUnpartitionedTable(ctx context.Context, tableName, query string) error {
	return f.bus.Dispatch(ctx, &domain.SyncUnpartitionedTable{TableName: tableName, Query: query})
}

// AddQuery registers renderer under queryName without triggering any
// reconciliation.
func (f *Facade) AddQuery(ctx context.Context, queryName string, renderer domain.QueryRenderer) error {
	return f.bus.Dispatch(ctx, &domain.AddQuery{QueryName: queryName, Renderer: renderer})
}

// ReplaceTable swaps tableName for replacementTableName: the original is
// deleted and the replacement copied into its place.
func (f *Facade) ReplaceTable(ctx context.Context, tableName, replacementTableName string) error {
	return f.bus.Dispatch(ctx, &domain.ReplaceTable{TableName: tableName, ReplacementTableName: replacementTableName})
}

// Log returns the message log of the facade's most recent dispatch run.
func (f *Facade) Log() []domain.Message {
	return f.bus.Log()
}
