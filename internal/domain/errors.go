package domain

import "fmt"

// TableDoesNotExist is raised by CheckTableExists when a table is absent.
// Its registered trigger is CreateTable.
type TableDoesNotExist struct {
	baseError
	TableName string
}

func (e *TableDoesNotExist) Error() string {
	return fmt.Sprintf("table %q does not exist", e.TableName)
}

// TableAlreadyExists is returned by CreateTable when the table is already
// present; it carries the observed metadata rather than the table name
// alone, since the caller usually wants to know what's already there.
type TableAlreadyExists struct {
	baseError
	TableMetadata TableMetadata
}

func (e *TableAlreadyExists) Error() string {
	return fmt.Sprintf("table %q already exists", e.TableMetadata.TableName)
}

// TableHasNoPartitions is raised by CheckTablePartitionsAreNotEmpty. Its
// registered trigger is PlanBackfill over the full expected partition list.
type TableHasNoPartitions struct {
	baseError
	TableName         string
	MissingPartitions []string
}

func (e *TableHasNoPartitions) Error() string {
	return fmt.Sprintf("table %q has no partitions", e.TableName)
}

// PartitionFieldDoesNotMatchExpectation is raised by
// CheckTablePartitionField. Its registered trigger is PlanSideload: a
// partition field change requires a full rebuild, not an in-place repair.
type PartitionFieldDoesNotMatchExpectation struct {
	baseError
	TableName string
}

func (e *PartitionFieldDoesNotMatchExpectation) Error() string {
	return fmt.Sprintf("table %q partition field does not match expectation", e.TableName)
}

// SchemaDoesNotMatchExpectation is raised by CheckTableSchema. Its
// registered trigger is PlanSideload.
type SchemaDoesNotMatchExpectation struct {
	baseError
	TableName string
}

func (e *SchemaDoesNotMatchExpectation) Error() string {
	return fmt.Sprintf("table %q schema does not match expectation", e.TableName)
}

// DefinitionDoesNotMatchExpectation is raised by CheckTableDefinition. Its
// registered trigger is PlanSideload.
type DefinitionDoesNotMatchExpectation struct {
	baseError
	TableName string
}

func (e *DefinitionDoesNotMatchExpectation) Error() string {
	return fmt.Sprintf("table %q definition does not match expectation", e.TableName)
}

// PartitionsDoNotMatchExpectation is raised by CheckTablePartitions when the
// warehouse partition list differs from the expected list and holds no
// partition older than the expected minimum. MissingPartitions lists the
// expected partitions the warehouse lacks, in expected order; it is empty
// when the lists differ only by extra or reordered entries. Its registered
// trigger is PlanBackfill over MissingPartitions.
type PartitionsDoNotMatchExpectation struct {
	baseError
	TableName         string
	MissingPartitions []string
}

func (e *PartitionsDoNotMatchExpectation) Error() string {
	return fmt.Sprintf("table %q partitions do not match expectation", e.TableName)
}

// ExistingPartitionsExceedExpectations is raised by CheckTablePartitions
// when the warehouse holds a partition older than the expected minimum
// partition: the expected list has shrunk from below, which an in-place
// backfill cannot repair. Its registered trigger is PlanSideload.
type ExistingPartitionsExceedExpectations struct {
	baseError
	TableName string
}

func (e *ExistingPartitionsExceedExpectations) Error() string {
	return fmt.Sprintf("table %q has partitions older than the expected minimum", e.TableName)
}

// NewUpstreamDependenciesSinceLastUpdate is raised by
// CheckForNewUpstreamDependencies. Its registered trigger is PlanSideload:
// an upstream rebuild invalidates the downstream table's contents entirely.
type NewUpstreamDependenciesSinceLastUpdate struct {
	baseError
	TableName string
}

func (e *NewUpstreamDependenciesSinceLastUpdate) Error() string {
	return fmt.Sprintf("table %q has upstream dependencies newer than its last update", e.TableName)
}
