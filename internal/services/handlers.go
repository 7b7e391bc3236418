package services

import (
	"context"
	"fmt"

	"github.com/nexustables/managedtable/internal/apperrors"
	"github.com/nexustables/managedtable/internal/domain"
)

// CommandHandler acts on a command and returns the next message: an event,
// an error, or a Sequence of follow-up commands/events. A non-nil error
// return is an infrastructure failure (not a domain.Error) and aborts the
// dispatch run outright.
type CommandHandler func(ctx context.Context, cmd domain.Command, repos Repositories) (domain.Message, error)

func checkTableState(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CheckTableState)
	if err := repos.TableConfig.AddTableConfig(cmd.Expected); err != nil {
		return nil, err
	}
	name := cmd.Expected.TableName
	return domain.Sequence{
		&domain.CheckTableExists{TableName: name},
		&domain.CheckForNewUpstreamDependencies{TableName: name, UpstreamTableNames: cmd.Expected.UpstreamTableNames},
		&domain.CheckTableDefinition{TableName: name},
		&domain.CheckTablePartitionField{TableName: name},
		&domain.CheckTableSchema{TableName: name, ExpectedSchema: cmd.Expected.Schema},
		&domain.CheckTablePartitionsAreNotEmpty{TableName: name},
		&domain.CheckTablePartitions{TableName: name, ExpectedPartitions: cmd.Expected.Partitions},
		&domain.TableUpToDate{TableName: name},
	}, nil
}

func checkTableExists(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CheckTableExists)
	if err := repos.Table.TableExists(ctx, cmd.TableName); err != nil {
		if apperrors.IsTableNotFound(err) {
			return &domain.TableDoesNotExist{TableName: cmd.TableName}, nil
		}
		return nil, err
	}
	return &domain.TableExists{TableName: cmd.TableName}, nil
}

func checkForNewUpstreamDependencies(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CheckForNewUpstreamDependencies)
	downstream, err := repos.Table.GetTableMetadata(ctx, cmd.TableName)
	if err != nil {
		return nil, err
	}
	for _, upstream := range cmd.UpstreamTableNames {
		upstreamMeta, err := repos.Table.GetTableMetadata(ctx, upstream)
		if err != nil {
			return nil, err
		}
		if upstreamMeta.Created.After(downstream.Updated) {
			return &domain.NewUpstreamDependenciesSinceLastUpdate{TableName: cmd.TableName}, nil
		}
	}
	return &domain.NoNewUpstreamDependencies{TableName: cmd.TableName}, nil
}

func checkTableDefinition(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CheckTableDefinition)
	config, err := repos.TableConfig.GetTableConfig(cmd.TableName)
	if err != nil {
		return nil, err
	}
	meta, err := repos.Table.GetTableMetadata(ctx, cmd.TableName)
	if err != nil {
		return nil, err
	}
	if meta.Definition != repos.Table.FormatDefinition(config.Definition) {
		return &domain.DefinitionDoesNotMatchExpectation{TableName: cmd.TableName}, nil
	}
	return &domain.TableDefinitionUpToDate{TableName: cmd.TableName}, nil
}

func checkTablePartitionField(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CheckTablePartitionField)
	config, err := repos.TableConfig.GetTableConfig(cmd.TableName)
	if err != nil {
		return nil, err
	}
	meta, err := repos.Table.GetTableMetadata(ctx, cmd.TableName)
	if err != nil {
		return nil, err
	}
	if meta.PartitionField != config.PartitionField {
		return &domain.PartitionFieldDoesNotMatchExpectation{TableName: cmd.TableName}, nil
	}
	return &domain.TablePartitionFieldUpToDate{TableName: cmd.TableName}, nil
}

func checkTableSchema(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CheckTableSchema)
	meta, err := repos.Table.GetTableMetadata(ctx, cmd.TableName)
	if err != nil {
		return nil, err
	}
	if !domain.SchemaEqual(meta.Schema, cmd.ExpectedSchema) {
		return &domain.SchemaDoesNotMatchExpectation{TableName: cmd.TableName}, nil
	}
	return &domain.TableSchemaUpToDate{TableName: cmd.TableName}, nil
}

func checkTablePartitionsAreNotEmpty(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CheckTablePartitionsAreNotEmpty)
	config, err := repos.TableConfig.GetTableConfig(cmd.TableName)
	if err != nil {
		return nil, err
	}
	meta, err := repos.Table.GetTableMetadata(ctx, cmd.TableName)
	if err != nil {
		return nil, err
	}
	if len(meta.Partitions) == 0 && len(config.Partitions) > 0 {
		return &domain.TableHasNoPartitions{TableName: cmd.TableName, MissingPartitions: config.Partitions}, nil
	}
	return &domain.TablePartitionsExist{TableName: cmd.TableName}, nil
}

func checkTablePartitions(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CheckTablePartitions)
	meta, err := repos.Table.GetTableMetadata(ctx, cmd.TableName)
	if err != nil {
		return nil, err
	}
	actual := meta.Partitions
	expected := cmd.ExpectedPartitions

	if len(expected) > 0 {
		minExpected := minString(expected)
		for _, p := range actual {
			if p < minExpected {
				return &domain.ExistingPartitionsExceedExpectations{TableName: cmd.TableName}, nil
			}
		}
	}

	if domain.PartitionsEqual(actual, expected) {
		return &domain.TablePartitionsUpToDate{TableName: cmd.TableName}, nil
	}

	actualSet := make(map[string]struct{}, len(actual))
	for _, p := range actual {
		actualSet[p] = struct{}{}
	}
	var missing []string
	for _, p := range expected {
		if _, ok := actualSet[p]; !ok {
			missing = append(missing, p)
		}
	}
	return &domain.PartitionsDoNotMatchExpectation{TableName: cmd.TableName, MissingPartitions: missing}, nil
}

func updateTablePartition(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.UpdateTablePartition)
	if err := repos.Table.WriteQueryResultsToTablePartition(ctx, cmd.TableName, cmd.Query, cmd.Partition); err != nil {
		return nil, err
	}
	return &domain.TablePartitionUpdated{TableName: cmd.TableName, Partition: cmd.Partition}, nil
}

func createTable(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CreateTable)
	meta, err := repos.Table.GetTableMetadata(ctx, cmd.TableName)
	if err == nil {
		return &domain.TableAlreadyExists{TableMetadata: meta}, nil
	}
	if !apperrors.IsTableNotFound(err) {
		return nil, err
	}
	config, err := repos.TableConfig.GetTableConfig(cmd.TableName)
	if err != nil {
		return nil, err
	}
	if err := repos.Table.CreateTable(ctx, config); err != nil {
		return nil, err
	}
	return &domain.TableCreated{TableName: cmd.TableName, Schema: config.Schema, PartitionField: config.PartitionField}, nil
}

func copyTable(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.CopyTable)
	if err := repos.Table.CopyTable(ctx, cmd.SourceTableName, cmd.DestinationTableName, cmd.Expires); err != nil {
		return nil, err
	}
	return &domain.TableCopied{SourceTableName: cmd.SourceTableName, DestinationTableName: cmd.DestinationTableName}, nil
}

func deleteTable(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.DeleteTable)
	if err := repos.Table.DeleteTable(ctx, cmd.TableName, cmd.NotFoundOK); err != nil {
		return nil, err
	}
	return &domain.TableDeleted{TableName: cmd.TableName}, nil
}

func planBackfill(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.PlanBackfill)
	seq := make(domain.Sequence, 0, len(cmd.Partitions))
	for _, partition := range cmd.Partitions {
		query, err := repos.Query.GetQuery(ctx, cmd.TableName, partition, map[string]any{"table_name": cmd.TableName})
		if err != nil {
			return nil, err
		}
		seq = append(seq, &domain.UpdateTablePartition{TableName: cmd.TableName, Query: query, Partition: partition})
	}
	return seq, nil
}

func planSideload(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.PlanSideload)
	config, err := repos.TableConfig.GetTableConfig(cmd.TableName)
	if err != nil {
		return nil, err
	}
	hash, err := repos.Query.GetQueryHash(ctx, cmd.TableName)
	if err != nil {
		return nil, err
	}
	sideloadName := fmt.Sprintf("%s_sideload_%d", cmd.TableName, hash)
	backupName := fmt.Sprintf("%s_backup", cmd.TableName)

	if err := repos.Query.CopyQuery(ctx, cmd.TableName, sideloadName); err != nil {
		return nil, err
	}

	expected := domain.TableConfig{
		TableName:      sideloadName,
		Schema:         config.Schema,
		PartitionField: config.PartitionField,
		Partitions:     config.Partitions,
		Definition:     config.Definition,
	}

	return domain.Sequence{
		&domain.CheckTableState{Expected: expected},
		&domain.DeleteTable{TableName: backupName, NotFoundOK: true},
		&domain.CopyTable{SourceTableName: cmd.TableName, DestinationTableName: backupName},
		&domain.ReplaceTable{TableName: cmd.TableName, ReplacementTableName: sideloadName},
		&domain.DeleteTable{TableName: sideloadName},
	}, nil
}

func replaceTable(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.ReplaceTable)
	return domain.Sequence{
		&domain.DeleteTable{TableName: cmd.TableName},
		&domain.CopyTable{SourceTableName: cmd.ReplacementTableName, DestinationTableName: cmd.TableName},
		&domain.TableReplaced{TableName: cmd.TableName},
	}, nil
}

func addQuery(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.AddQuery)
	if err := repos.Query.AddQuery(ctx, cmd.QueryName, cmd.Renderer); err != nil {
		return nil, err
	}
	return &domain.QueryAdded{QueryName: cmd.QueryName}, nil
}

func syncPartitionedTable(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.SyncPartitionedTable)
	return domain.Sequence{
		&domain.AddQuery{QueryName: cmd.Expected.TableName, Renderer: cmd.Renderer},
		&domain.CheckTableState{Expected: cmd.Expected},
		&domain.TableSynchronized{TableName: cmd.Expected.TableName},
	}, nil
}

func syncUnpartitionedTable(ctx context.Context, c domain.Command, repos Repositories) (domain.Message, error) {
	cmd := c.(*domain.SyncUnpartitionedTable)
	if err := repos.Table.WriteQueryResultsToTable(ctx, cmd.TableName, cmd.Query); err != nil {
		return nil, err
	}
	return &domain.TableSynchronized{TableName: cmd.TableName}, nil
}

func minString(ss []string) string {
	min := ss[0]
	for _, s := range ss[1:] {
		if s < min {
			min = s
		}
	}
	return min
}
