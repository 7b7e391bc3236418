package domain

// TableExists reports that a table was found in the warehouse.
type TableExists struct {
	baseEvent
	TableName string
}

// TableUpToDate reports that every check command in a CheckTableState
// sequence resolved without error: the table fully matches its expected
// config.
type TableUpToDate struct {
	baseEvent
	TableName string
}

// TableDeleted reports that a table was removed.
type TableDeleted struct {
	baseEvent
	TableName string
}

// TableCopied reports that a table was duplicated under a new name.
type TableCopied struct {
	baseEvent
	SourceTableName      string
	DestinationTableName string
}

// TableCreated reports that a table was created from its registered config.
type TableCreated struct {
	baseEvent
	TableName      string
	Schema         []SchemaField
	PartitionField string
}

// TablePartitionUpdated reports that a single partition was backfilled.
type TablePartitionUpdated struct {
	baseEvent
	TableName string
	Partition string
}

// TableDefinitionUpToDate reports that the warehouse definition fingerprint
// matches the expected definition's fingerprint.
type TableDefinitionUpToDate struct {
	baseEvent
	TableName string
}

// TablePartitionFieldUpToDate reports that the warehouse partition field
// matches the expected one.
type TablePartitionFieldUpToDate struct {
	baseEvent
	TableName string
}

// TableSchemaUpToDate reports that the warehouse schema matches the
// expected one.
type TableSchemaUpToDate struct {
	baseEvent
	TableName string
}

// TablePartitionsExist reports that CheckTablePartitionsAreNotEmpty passed:
// the table has at least one partition, or its config expects none.
type TablePartitionsExist struct {
	baseEvent
	TableName string
}

// TablePartitionsUpToDate reports that the warehouse partition list matches
// the expected partition list.
type TablePartitionsUpToDate struct {
	baseEvent
	TableName string
}

// NoNewUpstreamDependencies reports that no upstream table has been created
// more recently than the downstream table was last updated.
type NoNewUpstreamDependencies struct {
	baseEvent
	TableName string
}

// QueryAdded reports that a query renderer was registered under a name.
type QueryAdded struct {
	baseEvent
	QueryName string
}

// TableReplaced reports that a table was swapped for its replacement.
type TableReplaced struct {
	baseEvent
	TableName string
}

// TableSynchronized reports that a facade-level sync operation completed.
type TableSynchronized struct {
	baseEvent
	TableName string
}
