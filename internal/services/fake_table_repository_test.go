package services_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nexustables/managedtable/internal/apperrors"
	"github.com/nexustables/managedtable/internal/domain"
)

// fakeTableRepository is an in-memory stand-in for a real warehouse,
// private to this package's tests. The core's Non-goals explicitly exclude
// shipping a default in-memory TableRepository as part of the production
// contract (unlike the query and table-config repositories, which are
// genuinely warehouse-agnostic), so this fake lives only in _test.go files.
type fakeTableRepository struct {
	mu     sync.Mutex
	tables map[string]*fakeTable
}

type fakeTable struct {
	schema         []domain.SchemaField
	partitionField string
	definition     string
	partitions     map[string]struct{}
	created        time.Time
	updated        time.Time
	expires        *time.Time
}

func newFakeTableRepository() *fakeTableRepository {
	return &fakeTableRepository{tables: make(map[string]*fakeTable)}
}

func (f *fakeTableRepository) FormatDefinition(definition string) string {
	if len(definition) > 63 {
		return definition[:63]
	}
	return definition
}

func (f *fakeTableRepository) TableExists(ctx context.Context, tableName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[tableName]; !ok {
		return apperrors.NewTableNotFound(tableName)
	}
	return nil
}

func (f *fakeTableRepository) GetTableMetadata(ctx context.Context, tableName string) (domain.TableMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[tableName]
	if !ok {
		return domain.TableMetadata{}, apperrors.NewTableNotFound(tableName)
	}
	partitions := make([]string, 0, len(t.partitions))
	for p := range t.partitions {
		partitions = append(partitions, p)
	}
	sortStrings(partitions)
	return domain.TableMetadata{
		TableConfig: domain.TableConfig{
			TableName:      tableName,
			Schema:         t.schema,
			PartitionField: t.partitionField,
			Partitions:     partitions,
			Definition:     t.definition,
			Expires:        t.expires,
		},
		Created: t.created,
		Updated: t.updated,
	}, nil
}

func (f *fakeTableRepository) CreateTable(ctx context.Context, config domain.TableConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.tables[config.TableName] = &fakeTable{
		schema:         config.Schema,
		partitionField: config.PartitionField,
		definition:     f.FormatDefinition(config.Definition),
		partitions:     make(map[string]struct{}),
		created:        now,
		updated:        now,
		expires:        config.Expires,
	}
	return nil
}

func (f *fakeTableRepository) CopyTable(ctx context.Context, sourceTableName, destinationTableName string, expires *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.tables[sourceTableName]
	if !ok {
		return apperrors.NewTableNotFound(sourceTableName)
	}
	partitions := make(map[string]struct{}, len(src.partitions))
	for p := range src.partitions {
		partitions[p] = struct{}{}
	}
	now := time.Now()
	f.tables[destinationTableName] = &fakeTable{
		schema:         src.schema,
		partitionField: src.partitionField,
		definition:     src.definition,
		partitions:     partitions,
		created:        src.created,
		updated:        now,
		expires:        expires,
	}
	return nil
}

func (f *fakeTableRepository) DeleteTable(ctx context.Context, tableName string, notFoundOK bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[tableName]; !ok {
		if notFoundOK {
			return nil
		}
		return apperrors.NewTableNotFound(tableName)
	}
	delete(f.tables, tableName)
	return nil
}

func (f *fakeTableRepository) WriteQueryResultsToTablePartition(ctx context.Context, tableName, query, partition string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[tableName]
	if !ok {
		return apperrors.NewTableNotFound(tableName)
	}
	if strings.Contains(query, "NO_ROWS") {
		return apperrors.NewQueryReturnedNoData(tableName)
	}
	t.partitions[partition] = struct{}{}
	t.updated = time.Now()
	return nil
}

func (f *fakeTableRepository) WriteQueryResultsToTable(ctx context.Context, tableName, query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[tableName]
	if !ok {
		return apperrors.NewTableNotFound(tableName)
	}
	if strings.Contains(query, "NO_ROWS") {
		return apperrors.NewQueryReturnedNoData(tableName)
	}
	t.updated = time.Now()
	return nil
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}
