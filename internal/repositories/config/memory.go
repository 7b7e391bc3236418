// Package config provides an in-memory implementation of
// ports.TableConfigRepository, the registry a table's expected state is
// checked against. It is the core's default config store: nothing about it
// is specific to any warehouse.
package config

import (
	"log"
	"sync"

	"github.com/nexustables/managedtable/internal/apperrors"
	"github.com/nexustables/managedtable/internal/domain"
)

// Repository is a map-backed ports.TableConfigRepository. The zero value is
// not usable; construct with New.
type Repository struct {
	mu      sync.RWMutex
	configs map[string]domain.TableConfig
	logger  *log.Logger
}

// New returns an empty Repository. A nil logger defaults to log.Default().
func New(logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Default()
	}
	return &Repository{
		configs: make(map[string]domain.TableConfig),
		logger:  logger,
	}
}

func (r *Repository) GetTableConfig(tableName string) (domain.TableConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[tableName]
	if !ok {
		return domain.TableConfig{}, apperrors.NewNotFound("table config", tableName)
	}
	return cfg, nil
}

func (r *Repository) AddTableConfig(config domain.TableConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.configs[config.TableName]; exists {
		r.logger.Printf("config: overwriting existing config for table %q", config.TableName)
	}
	r.configs[config.TableName] = config
	return nil
}
