package domain

import (
	"slices"
	"time"
)

// SchemaField describes a single column of a managed table.
type SchemaField struct {
	Name string
	Type string
	Mode string
}

// SchemaEqual reports whether two schemas have the same fields in the same
// order. Schema comparison is order-sensitive: a reordered column list is a
// schema drift, not a no-op.
func SchemaEqual(a, b []SchemaField) bool {
	return slices.Equal(a, b)
}

// TableConfig is the expected, user-declared shape of a managed table: what
// it should look like, not what it currently looks like in the warehouse.
type TableConfig struct {
	TableName          string
	Schema             []SchemaField
	PartitionField     string
	Partitions         []string
	Definition         string
	UpstreamTableNames []string
	Expires            *time.Time
}

// PartitionsEqual reports whether two ordered partition-date lists are
// identical. Partition dates are YYYY-MM-DD strings, for which lexicographic
// order equals chronological order.
func PartitionsEqual(a, b []string) bool {
	return slices.Equal(a, b)
}

// TableMetadata is the observed, warehouse-side state of a managed table:
// everything in TableConfig plus the bookkeeping timestamps the warehouse
// itself tracks.
type TableMetadata struct {
	TableConfig
	Created time.Time
	Updated time.Time
}
