package domain

import "time"

// QueryRenderer produces a query's text for a given run day and any
// per-render fields supplied at dispatch time. It is the boundary between a
// registered query template and the repositories that execute it.
type QueryRenderer func(runDay string, runTimeFields map[string]any) (string, error)

// CheckTableState seeds a table config into the config repository and
// expands into the full sequence of checks that reconcile a table against
// it.
type CheckTableState struct {
	baseCommand
	Expected TableConfig
}

// CheckTableExists asks whether a table is physically present in the
// warehouse.
type CheckTableExists struct {
	baseCommand
	TableName string
}

// CheckForNewUpstreamDependencies compares an upstream table's creation time
// against the downstream table's last update time, to decide whether a
// rebuild is owed.
type CheckForNewUpstreamDependencies struct {
	baseCommand
	TableName          string
	UpstreamTableNames []string
}

// CheckTableDefinition compares the warehouse-stored definition fingerprint
// against the expected definition's fingerprint.
type CheckTableDefinition struct {
	baseCommand
	TableName string
}

// CheckTablePartitionField compares the warehouse partition field against
// the expected one.
type CheckTablePartitionField struct {
	baseCommand
	TableName string
}

// CheckTableSchema compares the warehouse schema against the expected one.
type CheckTableSchema struct {
	baseCommand
	TableName      string
	ExpectedSchema []SchemaField
}

// CheckTablePartitionsAreNotEmpty checks that a table expected to be
// partitioned actually has at least one partition.
type CheckTablePartitionsAreNotEmpty struct {
	baseCommand
	TableName string
}

// CheckTablePartitions compares the warehouse's partition list against the
// expected partition list.
type CheckTablePartitions struct {
	baseCommand
	TableName          string
	ExpectedPartitions []string
}

// UpdateTablePartition backfills a single missing partition by running a
// query and writing its results into that partition.
type UpdateTablePartition struct {
	baseCommand
	TableName string
	Query     string
	Partition string
}

// CreateTable creates a table from its registered config. If the table
// already exists, the handler returns TableAlreadyExists and creates
// nothing; the default error-trigger map has no entry for that error, so the
// bus ends the dispatch with an error.
type CreateTable struct {
	baseCommand
	TableName string
}

// CopyTable duplicates a table's structure and contents (and, if present,
// its partition child tables) under a new name.
type CopyTable struct {
	baseCommand
	SourceTableName      string
	DestinationTableName string
	Expires              *time.Time
}

// DeleteTable removes a table. If NotFoundOK is set, a missing table is not
// an error.
type DeleteTable struct {
	baseCommand
	TableName  string
	NotFoundOK bool
}

// PlanBackfill expands into one UpdateTablePartition command per missing
// partition.
type PlanBackfill struct {
	baseCommand
	TableName  string
	Partitions []string
}

// PlanSideload expands into the side-load sequence: build a shadow table
// under a new name, validate it, retain a backup of the original, then swap.
type PlanSideload struct {
	baseCommand
	TableName string
}

// AddQuery registers a query renderer under a name.
type AddQuery struct {
	baseCommand
	QueryName string
	Renderer  QueryRenderer
}

// ReplaceTable atomically (from the caller's point of view) swaps a table
// for its replacement: delete the original, copy the replacement into its
// place.
type ReplaceTable struct {
	baseCommand
	TableName            string
	ReplacementTableName string
}

// SyncPartitionedTable is the facade-level entry command for a partitioned
// managed table: register its query, then reconcile its state.
type SyncPartitionedTable struct {
	baseCommand
	Expected TableConfig
	Renderer QueryRenderer
}

// SyncUnpartitionedTable is the facade-level entry command for an
// unpartitioned managed table: a single full-table rewrite from a query.
type SyncUnpartitionedTable struct {
	baseCommand
	TableName string
	Query     string
}
