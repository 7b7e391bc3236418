package services

import (
	"context"
	"fmt"
	"log"
	"reflect"

	"github.com/google/uuid"

	"github.com/nexustables/managedtable/internal/apperrors"
	"github.com/nexustables/managedtable/internal/domain"
)

// DefaultMaxRetries is the bus's default error-retry budget: a handler may
// fail with the same (or a different) domain.Error up to this many times
// in a row before the bus aborts with MaxRetriesExceeded; the count resets
// whenever a handler returns an event or a Sequence. It is overridable per MessageBus, giving internal/config's
// MANAGEDTABLE_MAX_RETRIES knob somewhere to land.
const DefaultMaxRetries = 3

// MessageBus dispatches a root message to completion: commands run their
// handler and queue whatever it returns; errors run their registered
// trigger to produce a compensating command, which is dispatched to
// completion before the message that failed is retried; events are
// absorbed unless a handler is registered for their concrete type.
//
// Dispatch is iterative, not recursive: a "dispatch the error, then resume"
// step is reshaped into an explicit stack of (queue, dead-letter-queue)
// frames, one frame per error escalation, so dispatch depth is bounded by
// the retry budget rather than the Go call stack.
type MessageBus struct {
	repos           Repositories
	commandHandlers map[reflect.Type]CommandHandler
	eventHandlers   map[reflect.Type]func(ctx context.Context, evt domain.Event) error
	errorHandlers   map[reflect.Type]ErrorHandler
	maxRetries      int
	retryCount      int
	log             []domain.Message
	logger          *log.Logger
}

// NewMessageBus constructs a MessageBus wired with the default command and
// error handler registries. A nil logger defaults to log.Default(); a
// non-positive maxRetries defaults to DefaultMaxRetries.
func NewMessageBus(repos Repositories, logger *log.Logger, maxRetries int) *MessageBus {
	if logger == nil {
		logger = log.Default()
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &MessageBus{
		repos:           repos,
		commandHandlers: defaultCommandHandlers(),
		eventHandlers:   map[reflect.Type]func(ctx context.Context, evt domain.Event) error{},
		errorHandlers:   defaultErrorHandlers(),
		maxRetries:      maxRetries,
		logger:          logger,
	}
}

// Log returns every message processed during the bus's most recent
// dispatch run, in processing order, for tests and diagnostics.
func (b *MessageBus) Log() []domain.Message {
	return b.log
}

// RegisterCommandHandler overrides (or adds) the handler for cmd's concrete
// type. Callers typically use this to extend the bus with a handler for a
// caller-defined command, or to stub a default handler in tests.
func (b *MessageBus) RegisterCommandHandler(cmd domain.Command, handler CommandHandler) {
	b.commandHandlers[reflect.TypeOf(cmd)] = handler
}

// RegisterErrorHandler overrides (or adds) the trigger for err's concrete
// type.
func (b *MessageBus) RegisterErrorHandler(err domain.Error, handler ErrorHandler) {
	b.errorHandlers[reflect.TypeOf(err)] = handler
}

// RegisterEventHandler adds (or overrides) the handler for evt's concrete
// type. Events with no registered handler are absorbed.
func (b *MessageBus) RegisterEventHandler(evt domain.Event, handler func(ctx context.Context, evt domain.Event) error) {
	b.eventHandlers[reflect.TypeOf(evt)] = handler
}

type frame struct {
	queue []domain.Message
	dlq   []domain.Message
}

// Dispatch runs root, and everything it transitively produces, to
// completion. It returns apperrors.MaxRetriesExceeded if the retry budget
// is exhausted, or any other error an infrastructure call surfaced.
func (b *MessageBus) Dispatch(ctx context.Context, root domain.Message) error {
	runID := uuid.New().String()
	b.log = nil
	b.retryCount = 0

	frames := []frame{{queue: []domain.Message{root}}}
	for len(frames) > 0 {
		top := &frames[len(frames)-1]
		if len(top.queue) == 0 && len(top.dlq) == 0 {
			frames = frames[:len(frames)-1]
			continue
		}

		var msg domain.Message
		if len(top.dlq) > 0 {
			msg, top.dlq = top.dlq[len(top.dlq)-1], top.dlq[:len(top.dlq)-1]
		} else {
			msg, top.queue = top.queue[len(top.queue)-1], top.queue[:len(top.queue)-1]
		}

		b.log = append(b.log, msg)
		b.logger.Printf("dispatch[%s]: handling %T", runID, msg)

		result, err := b.handle(ctx, msg)
		if err != nil {
			return err
		}
		if result == nil {
			continue
		}

		if domainErr, ok := result.(domain.Error); ok {
			if b.retryCount >= b.maxRetries {
				return apperrors.NewMaxRetriesExceeded(
					fmt.Sprintf("dispatch[%s]: exceeded %d retries on %T", runID, b.maxRetries, domainErr))
			}
			b.retryCount++
			top.dlq = append(top.dlq, msg)
			frames = append(frames, frame{queue: []domain.Message{domainErr}})
			continue
		}

		if _, isCommand := result.(domain.Command); !isCommand {
			b.retryCount = 0
		}
		pushResult(result, &top.queue)
	}
	return nil
}

func pushResult(result domain.Message, queue *[]domain.Message) {
	if seq, ok := result.(domain.Sequence); ok {
		for i := len(seq) - 1; i >= 0; i-- {
			*queue = append(*queue, seq[i])
		}
		return
	}
	*queue = append(*queue, result)
}

func (b *MessageBus) handle(ctx context.Context, msg domain.Message) (domain.Message, error) {
	switch m := msg.(type) {
	case domain.Command:
		handler, ok := b.commandHandlers[reflect.TypeOf(m)]
		if !ok {
			return nil, fmt.Errorf("services: no handler registered for command %T", m)
		}
		return handler(ctx, m, b.repos)
	case domain.Error:
		trigger, ok := b.errorHandlers[reflect.TypeOf(m)]
		if !ok {
			return nil, fmt.Errorf("services: no trigger registered for error %T", m)
		}
		return trigger(m), nil
	case domain.Event:
		handler, ok := b.eventHandlers[reflect.TypeOf(m)]
		if !ok {
			return nil, nil
		}
		return nil, handler(ctx, m)
	default:
		return nil, fmt.Errorf("services: no handler exists for message of type %T", msg)
	}
}

func defaultCommandHandlers() map[reflect.Type]CommandHandler {
	return map[reflect.Type]CommandHandler{
		reflect.TypeOf(&domain.CheckTableState{}):               checkTableState,
		reflect.TypeOf(&domain.CheckTableExists{}):               checkTableExists,
		reflect.TypeOf(&domain.CheckForNewUpstreamDependencies{}): checkForNewUpstreamDependencies,
		reflect.TypeOf(&domain.CheckTableDefinition{}):           checkTableDefinition,
		reflect.TypeOf(&domain.CheckTablePartitionField{}):       checkTablePartitionField,
		reflect.TypeOf(&domain.CheckTableSchema{}):                checkTableSchema,
		reflect.TypeOf(&domain.CheckTablePartitionsAreNotEmpty{}): checkTablePartitionsAreNotEmpty,
		reflect.TypeOf(&domain.CheckTablePartitions{}):           checkTablePartitions,
		reflect.TypeOf(&domain.UpdateTablePartition{}):           updateTablePartition,
		reflect.TypeOf(&domain.CreateTable{}):                    createTable,
		reflect.TypeOf(&domain.CopyTable{}):                      copyTable,
		reflect.TypeOf(&domain.DeleteTable{}):                    deleteTable,
		reflect.TypeOf(&domain.PlanBackfill{}):                   planBackfill,
		reflect.TypeOf(&domain.PlanSideload{}):                   planSideload,
		reflect.TypeOf(&domain.AddQuery{}):                       addQuery,
		reflect.TypeOf(&domain.ReplaceTable{}):                   replaceTable,
		reflect.TypeOf(&domain.SyncPartitionedTable{}):           syncPartitionedTable,
		reflect.TypeOf(&domain.SyncUnpartitionedTable{}):         syncUnpartitionedTable,
	}
}

func defaultErrorHandlers() map[reflect.Type]ErrorHandler {
	return map[reflect.Type]ErrorHandler{
		reflect.TypeOf(&domain.TableDoesNotExist{}):                       triggerTableCreation,
		reflect.TypeOf(&domain.TableHasNoPartitions{}):                    triggerBackfillPlanFromNoPartitions,
		reflect.TypeOf(&domain.PartitionsDoNotMatchExpectation{}):         triggerBackfillPlanFromMissingPartitions,
		reflect.TypeOf(&domain.PartitionFieldDoesNotMatchExpectation{}):   triggerSideloadPlanFromPartitionField,
		reflect.TypeOf(&domain.SchemaDoesNotMatchExpectation{}):           triggerSideloadPlanFromSchema,
		reflect.TypeOf(&domain.DefinitionDoesNotMatchExpectation{}):       triggerSideloadPlanFromDefinition,
		reflect.TypeOf(&domain.ExistingPartitionsExceedExpectations{}):    triggerSideloadPlanFromExcessPartitions,
		reflect.TypeOf(&domain.NewUpstreamDependenciesSinceLastUpdate{}):  triggerSideloadPlanFromNewUpstream,
	}
}
