// Package apperrors holds the small set of error types the engine's
// infrastructure boundary raises: one concrete type per failure class,
// constructed with New* functions, inspected with errors.As-based
// predicates rather than string matching.
package apperrors

import (
	"errors"
	"fmt"
)

// NotFound reports that a named resource (a table, a query, a table config)
// was not present in its repository.
type NotFound struct {
	Resource string
	Name     string
}

func NewNotFound(resource, name string) *NotFound {
	return &NotFound{Resource: resource, Name: name}
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
}

func IsNotFound(err error) bool {
	var target *NotFound
	return errors.As(err, &target)
}

// TableNotFound is the table-repository-specific flavor of NotFound. It is
// distinguished from the generic NotFound because the bus and handlers
// treat a missing table as a recoverable domain condition (it becomes a
// domain.TableDoesNotExist error, not a terminal failure), whereas a missing
// query or table config is an operator mistake.
type TableNotFound struct {
	TableName string
}

func NewTableNotFound(tableName string) *TableNotFound {
	return &TableNotFound{TableName: tableName}
}

func (e *TableNotFound) Error() string {
	return fmt.Sprintf("table %q not found", e.TableName)
}

func IsTableNotFound(err error) bool {
	var target *TableNotFound
	return errors.As(err, &target)
}

// QueryReturnedNoData reports that a query executed against the warehouse
// produced zero rows where a partition write or full-table rewrite required
// at least one.
type QueryReturnedNoData struct {
	TableName string
}

func NewQueryReturnedNoData(tableName string) *QueryReturnedNoData {
	return &QueryReturnedNoData{TableName: tableName}
}

func (e *QueryReturnedNoData) Error() string {
	return fmt.Sprintf("query for table %q returned no data", e.TableName)
}

func IsQueryReturnedNoData(err error) bool {
	var target *QueryReturnedNoData
	return errors.As(err, &target)
}

// TemplateError reports a query template construction or rendering failure:
// a reserved-field collision, an undeclared variable with no provided
// field, or an explicit raise_template_exception call from template text.
type TemplateError struct {
	Message string
}

func NewTemplateError(message string) *TemplateError {
	return &TemplateError{Message: message}
}

func (e *TemplateError) Error() string {
	return e.Message
}

func IsTemplateError(err error) bool {
	var target *TemplateError
	return errors.As(err, &target)
}

// MaxRetriesExceeded reports that the message bus aborted a dispatch run
// because a handler kept returning an error past the configured retry
// budget.
type MaxRetriesExceeded struct {
	Message string
}

func NewMaxRetriesExceeded(message string) *MaxRetriesExceeded {
	return &MaxRetriesExceeded{Message: message}
}

func (e *MaxRetriesExceeded) Error() string {
	return e.Message
}

func IsMaxRetriesExceeded(err error) bool {
	var target *MaxRetriesExceeded
	return errors.As(err, &target)
}
