package ports

import "github.com/nexustables/managedtable/internal/domain"

// TableConfigRepository is the port for storing and retrieving a table's
// expected config, as distinct from its observed warehouse state.
type TableConfigRepository interface {
	// GetTableConfig returns the registered expected config for a table.
	GetTableConfig(tableName string) (domain.TableConfig, error)

	// AddTableConfig registers a table's expected config, overwriting any
	// existing registration for the same table name.
	AddTableConfig(config domain.TableConfig) error
}
