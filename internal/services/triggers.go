package services

import "github.com/nexustables/managedtable/internal/domain"

// ErrorHandler maps a domain.Error to the compensating command that repairs
// it. This is the bus's fixed error -> command trigger table: in-place
// repairs (missing partitions) trigger a backfill plan; anything
// that requires a structural rebuild (schema, partition field, definition,
// or upstream drift, or a partition list that has shrunk from below)
// triggers a side-load plan.
type ErrorHandler func(err domain.Error) domain.Command

func triggerTableCreation(err domain.Error) domain.Command {
	e := err.(*domain.TableDoesNotExist)
	return &domain.CreateTable{TableName: e.TableName}
}

func triggerBackfillPlanFromNoPartitions(err domain.Error) domain.Command {
	e := err.(*domain.TableHasNoPartitions)
	return &domain.PlanBackfill{TableName: e.TableName, Partitions: e.MissingPartitions}
}

func triggerBackfillPlanFromMissingPartitions(err domain.Error) domain.Command {
	e := err.(*domain.PartitionsDoNotMatchExpectation)
	return &domain.PlanBackfill{TableName: e.TableName, Partitions: e.MissingPartitions}
}

func triggerSideloadPlanFromPartitionField(err domain.Error) domain.Command {
	e := err.(*domain.PartitionFieldDoesNotMatchExpectation)
	return &domain.PlanSideload{TableName: e.TableName}
}

func triggerSideloadPlanFromSchema(err domain.Error) domain.Command {
	e := err.(*domain.SchemaDoesNotMatchExpectation)
	return &domain.PlanSideload{TableName: e.TableName}
}

func triggerSideloadPlanFromDefinition(err domain.Error) domain.Command {
	e := err.(*domain.DefinitionDoesNotMatchExpectation)
	return &domain.PlanSideload{TableName: e.TableName}
}

func triggerSideloadPlanFromExcessPartitions(err domain.Error) domain.Command {
	e := err.(*domain.ExistingPartitionsExceedExpectations)
	return &domain.PlanSideload{TableName: e.TableName}
}

func triggerSideloadPlanFromNewUpstream(err domain.Error) domain.Command {
	e := err.(*domain.NewUpstreamDependenciesSinceLastUpdate)
	return &domain.PlanSideload{TableName: e.TableName}
}
