package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configrepo "github.com/nexustables/managedtable/internal/repositories/config"
	queryrepo "github.com/nexustables/managedtable/internal/repositories/query"
	"github.com/nexustables/managedtable/internal/apperrors"
	"github.com/nexustables/managedtable/internal/domain"
	"github.com/nexustables/managedtable/internal/services"
)

func newTestBus(t *testing.T, tableRepo *fakeTableRepository) (*services.MessageBus, services.Repositories) {
	t.Helper()
	repos := services.Repositories{
		Table:       tableRepo,
		Query:       queryrepo.New(),
		TableConfig: configrepo.New(nil),
	}
	return services.NewMessageBus(repos, nil, 3), repos
}

func constantRenderer(text string) domain.QueryRenderer {
	return func(runDay string, runTimeFields map[string]any) (string, error) {
		return text, nil
	}
}

func TestSyncPartitionedTableCreatesMissingTable(t *testing.T) {
	ctx := context.Background()
	tableRepo := newFakeTableRepository()
	bus, _ := newTestBus(t, tableRepo)

	expected := domain.TableConfig{
		TableName:      "orders",
		Schema:         []domain.SchemaField{{Name: "id", Type: "INT"}},
		PartitionField: "day",
		Partitions:     []string{"2024-01-01", "2024-01-02"},
		Definition:     "select * from raw_orders",
	}

	err := bus.Dispatch(ctx, &domain.SyncPartitionedTable{Expected: expected, Renderer: constantRenderer("select 1")})
	require.NoError(t, err)

	meta, err := tableRepo.GetTableMetadata(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, meta.Partitions)
	assert.Equal(t, "day", meta.PartitionField)

	var sawUpToDate bool
	for _, m := range bus.Log() {
		if _, ok := m.(*domain.TableUpToDate); ok {
			sawUpToDate = true
		}
	}
	assert.True(t, sawUpToDate, "expected a TableUpToDate event in the dispatch log")
}

func TestCheckTableStateBackfillsMissingPartitionsInPlace(t *testing.T) {
	ctx := context.Background()
	tableRepo := newFakeTableRepository()
	bus, repos := newTestBus(t, tableRepo)

	require.NoError(t, tableRepo.CreateTable(ctx, domain.TableConfig{
		TableName:      "events",
		Schema:         []domain.SchemaField{{Name: "id", Type: "INT"}},
		PartitionField: "day",
		Definition:     "select * from raw_events",
	}))
	require.NoError(t, repos.Query.AddQuery(ctx, "events", constantRenderer("select 1")))

	expected := domain.TableConfig{
		TableName:      "events",
		Schema:         []domain.SchemaField{{Name: "id", Type: "INT"}},
		PartitionField: "day",
		Partitions:     []string{"2024-01-01"},
		Definition:     "select * from raw_events",
	}

	err := bus.Dispatch(ctx, &domain.CheckTableState{Expected: expected})
	require.NoError(t, err)

	meta, err := tableRepo.GetTableMetadata(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, meta.Partitions)
}

func TestSchemaDriftTriggersSideloadRebuild(t *testing.T) {
	ctx := context.Background()
	tableRepo := newFakeTableRepository()
	bus, repos := newTestBus(t, tableRepo)

	require.NoError(t, tableRepo.CreateTable(ctx, domain.TableConfig{
		TableName:      "customers",
		Schema:         []domain.SchemaField{{Name: "id", Type: "INT"}},
		PartitionField: "day",
		Definition:     "select * from raw_customers",
	}))
	require.NoError(t, repos.Query.AddQuery(ctx, "customers", constantRenderer("select 1")))

	expected := domain.TableConfig{
		TableName:      "customers",
		Schema:         []domain.SchemaField{{Name: "id", Type: "INT"}, {Name: "email", Type: "TEXT"}},
		PartitionField: "day",
		Partitions:     []string{"2024-01-01"},
		Definition:     "select * from raw_customers",
	}

	err := bus.Dispatch(ctx, &domain.CheckTableState{Expected: expected})
	require.NoError(t, err)

	_, err = tableRepo.GetTableMetadata(ctx, "customers_backup")
	require.NoError(t, err, "the original table should have been retained as a backup")

	meta, err := tableRepo.GetTableMetadata(ctx, "customers")
	require.NoError(t, err)
	assert.Equal(t, expected.Schema, meta.Schema)
}

func TestExistingPartitionsExceedExpectationsTriggersSideloadRebuild(t *testing.T) {
	ctx := context.Background()
	tableRepo := newFakeTableRepository()
	bus, repos := newTestBus(t, tableRepo)

	require.NoError(t, tableRepo.CreateTable(ctx, domain.TableConfig{
		TableName:      "sessions",
		Schema:         []domain.SchemaField{{Name: "id", Type: "INT"}},
		PartitionField: "day",
		Definition:     "select * from raw_sessions",
	}))
	require.NoError(t, repos.Query.AddQuery(ctx, "sessions", constantRenderer("select 1")))
	require.NoError(t, tableRepo.WriteQueryResultsToTablePartition(ctx, "sessions", "select 1", "2024-01-01"))
	require.NoError(t, tableRepo.WriteQueryResultsToTablePartition(ctx, "sessions", "select 1", "2024-01-02"))

	expected := domain.TableConfig{
		TableName:      "sessions",
		Schema:         []domain.SchemaField{{Name: "id", Type: "INT"}},
		PartitionField: "day",
		Partitions:     []string{"2024-01-02"},
		Definition:     "select * from raw_sessions",
	}

	err := bus.Dispatch(ctx, &domain.CheckTableState{Expected: expected})
	require.NoError(t, err)

	_, err = tableRepo.GetTableMetadata(ctx, "sessions_backup")
	require.NoError(t, err, "the original table should have been retained as a backup")

	meta, err := tableRepo.GetTableMetadata(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02"}, meta.Partitions)
}

func TestNewUpstreamDependencyTriggersSideloadRebuild(t *testing.T) {
	ctx := context.Background()
	tableRepo := newFakeTableRepository()
	bus, repos := newTestBus(t, tableRepo)

	require.NoError(t, tableRepo.CreateTable(ctx, domain.TableConfig{TableName: "raw_events", Definition: "raw"}))
	require.NoError(t, tableRepo.CreateTable(ctx, domain.TableConfig{
		TableName:  "metrics",
		Schema:     []domain.SchemaField{{Name: "id", Type: "INT"}},
		Definition: "select * from raw_events",
	}))
	require.NoError(t, repos.Query.AddQuery(ctx, "metrics", constantRenderer("select 1")))

	// Backdate metrics' last update so raw_events looks newer than it.
	tableRepo.mu.Lock()
	tableRepo.tables["metrics"].updated = time.Now().Add(-time.Hour)
	tableRepo.mu.Unlock()

	expected := domain.TableConfig{
		TableName:          "metrics",
		Schema:             []domain.SchemaField{{Name: "id", Type: "INT"}},
		Definition:         "select * from raw_events",
		UpstreamTableNames: []string{"raw_events"},
	}

	err := bus.Dispatch(ctx, &domain.CheckTableState{Expected: expected})
	require.NoError(t, err)

	_, err = tableRepo.GetTableMetadata(ctx, "metrics_backup")
	require.NoError(t, err, "the original table should have been retained as a backup")

	var sawUpstreamDrift bool
	for _, m := range bus.Log() {
		if _, ok := m.(*domain.NewUpstreamDependenciesSinceLastUpdate); ok {
			sawUpstreamDrift = true
		}
	}
	assert.True(t, sawUpstreamDrift, "expected a NewUpstreamDependenciesSinceLastUpdate error in the dispatch log")
}

func TestHandlerThatAlwaysErrorsAbortsAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	tableRepo := newFakeTableRepository()
	bus, _ := newTestBus(t, tableRepo)

	// Wire a command whose handler always reports the table missing, and
	// an error trigger that just re-issues the same command: neither side
	// of the cycle ever returns an event or a sequence, so the retry
	// counter climbs on every pass until the budget is exhausted.
	bus.RegisterCommandHandler(&domain.CheckTableExists{}, func(ctx context.Context, c domain.Command, repos services.Repositories) (domain.Message, error) {
		cmd := c.(*domain.CheckTableExists)
		return &domain.TableDoesNotExist{TableName: cmd.TableName}, nil
	})
	bus.RegisterErrorHandler(&domain.TableDoesNotExist{}, func(err domain.Error) domain.Command {
		e := err.(*domain.TableDoesNotExist)
		return &domain.CheckTableExists{TableName: e.TableName}
	})

	err := bus.Dispatch(ctx, &domain.CheckTableExists{TableName: "never_created"})
	require.Error(t, err)
	assert.True(t, apperrors.IsMaxRetriesExceeded(err))
}

func TestReplaceTableSwapsContents(t *testing.T) {
	ctx := context.Background()
	tableRepo := newFakeTableRepository()
	bus, _ := newTestBus(t, tableRepo)

	require.NoError(t, tableRepo.CreateTable(ctx, domain.TableConfig{TableName: "live", Definition: "old"}))
	require.NoError(t, tableRepo.CreateTable(ctx, domain.TableConfig{TableName: "candidate", Definition: "new"}))

	err := bus.Dispatch(ctx, &domain.ReplaceTable{TableName: "live", ReplacementTableName: "candidate"})
	require.NoError(t, err)

	meta, err := tableRepo.GetTableMetadata(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, tableRepo.FormatDefinition("new"), meta.Definition)
}

func TestAddQueryRegistersRendererWithoutReconciling(t *testing.T) {
	ctx := context.Background()
	tableRepo := newFakeTableRepository()
	bus, repos := newTestBus(t, tableRepo)

	err := bus.Dispatch(ctx, &domain.AddQuery{QueryName: "standalone", Renderer: constantRenderer("select 1")})
	require.NoError(t, err)

	text, err := repos.Query.GetQuery(ctx, "standalone", "2024-01-01", nil)
	require.NoError(t, err)
	assert.Equal(t, "select 1", text)
}

func TestSyncUnpartitionedTableRewritesFullTable(t *testing.T) {
	ctx := context.Background()
	tableRepo := newFakeTableRepository()
	bus, _ := newTestBus(t, tableRepo)
	require.NoError(t, tableRepo.CreateTable(ctx, domain.TableConfig{TableName: "summary"}))

	err := bus.Dispatch(ctx, &domain.SyncUnpartitionedTable{TableName: "summary", Query: "select * from detail"})
	require.NoError(t, err)

	var sawSynchronized bool
	for _, m := range bus.Log() {
		if e, ok := m.(*domain.TableSynchronized); ok && e.TableName == "summary" {
			sawSynchronized = true
		}
	}
	assert.True(t, sawSynchronized)
}
