// Package sqlwarehouse implements ports.TableRepository against a generic
// SQL warehouse reachable through database/sql, using
// github.com/go-sql-driver/mysql as its driver. It is not imported by
// internal/... (the core never depends on a concrete warehouse); only
// cmd/reconcile wires it in.
//
// A managed table is tracked as one row in a `managed_tables` registry
// table (schema, partition field, definition fingerprint, created/updated,
// optional expiry) plus one physical table per logical table. Partitions
// are represented as daily child tables named `{table}_{YYYYMMDD}`; this
// adapter lists them from information_schema rather than tracking them
// separately, so the registry row never drifts from what physically
// exists.
package sqlwarehouse

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/nexustables/managedtable/internal/apperrors"
	"github.com/nexustables/managedtable/internal/domain"
)

const registryTable = "managed_tables"

// Repository is a database/sql-backed ports.TableRepository.
type Repository struct {
	db       *sql.DB
	database string
}

// Open opens a connection pool to dsn and ensures the registry table
// exists: bounded open/idle connections, a bounded connection lifetime,
// and a ping at connect time so misconfiguration fails fast instead of
// on first query.
func Open(ctx context.Context, dsn, database string) (*Repository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlwarehouse: opening connection: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqlwarehouse: pinging warehouse: %w", err)
	}

	repo := &Repository{db: db, database: database}
	if err := repo.ensureRegistry(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// NewWithDB wraps an already-open *sql.DB (a sqlmock connection in tests,
// or a pool an entry point wants to manage itself). It does not create the
// registry table; callers that need it should call EnsureRegistry.
func NewWithDB(db *sql.DB, database string) *Repository {
	return &Repository{db: db, database: database}
}

// EnsureRegistry creates the managed_tables registry table if it does not
// already exist.
func (r *Repository) EnsureRegistry(ctx context.Context) error {
	return r.ensureRegistry(ctx)
}

func (r *Repository) ensureRegistry(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+registryTable+` (
			table_name VARCHAR(255) NOT NULL PRIMARY KEY,
			schema_json TEXT NOT NULL,
			partition_field VARCHAR(255) NOT NULL,
			definition VARCHAR(63) NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			expires_at DATETIME NULL
		)`)
	if err != nil {
		return fmt.Errorf("sqlwarehouse: ensuring registry table: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// FormatDefinition computes a bounded, deterministic fingerprint of a
// definition string: the first 32 hex characters of its SHA-256 digest,
// comfortably inside the registry column's 63-character bound.
func (r *Repository) FormatDefinition(definition string) string {
	sum := sha256.Sum256([]byte(definition))
	return hex.EncodeToString(sum[:])[:32]
}

func (r *Repository) TableExists(ctx context.Context, tableName string) error {
	var dummy int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM `+registryTable+` WHERE table_name = ?`, tableName).Scan(&dummy)
	if err == sql.ErrNoRows {
		return apperrors.NewTableNotFound(tableName)
	}
	if err != nil {
		return fmt.Errorf("sqlwarehouse: checking table existence: %w", err)
	}
	return nil
}

func (r *Repository) GetTableMetadata(ctx context.Context, tableName string) (domain.TableMetadata, error) {
	var (
		schemaJSON     string
		partitionField string
		definition     string
		created        time.Time
		updated        time.Time
		expires        sql.NullTime
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT schema_json, partition_field, definition, created_at, updated_at, expires_at
		FROM `+registryTable+` WHERE table_name = ?`, tableName)
	if err := row.Scan(&schemaJSON, &partitionField, &definition, &created, &updated, &expires); err != nil {
		if err == sql.ErrNoRows {
			return domain.TableMetadata{}, apperrors.NewTableNotFound(tableName)
		}
		return domain.TableMetadata{}, fmt.Errorf("sqlwarehouse: reading table metadata: %w", err)
	}

	var schema []domain.SchemaField
	if err := json.Unmarshal([]byte(schemaJSON), &schema); err != nil {
		return domain.TableMetadata{}, fmt.Errorf("sqlwarehouse: decoding schema for %q: %w", tableName, err)
	}

	partitions, err := r.listPartitions(ctx, tableName)
	if err != nil {
		return domain.TableMetadata{}, err
	}

	meta := domain.TableMetadata{
		TableConfig: domain.TableConfig{
			TableName:      tableName,
			Schema:         schema,
			PartitionField: partitionField,
			Partitions:     partitions,
			Definition:     definition,
		},
		Created: created,
		Updated: updated,
	}
	if expires.Valid {
		meta.Expires = &expires.Time
	}
	return meta, nil
}

// listPartitions lists tableName's daily child tables from
// information_schema and returns their partition dates in ascending
// (chronological, since YYYY-MM-DD sorts lexicographically) order.
func (r *Repository) listPartitions(ctx context.Context, tableName string) ([]string, error) {
	prefix := tableName + "_"
	rows, err := r.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_name LIKE ?
		ORDER BY table_name ASC`, r.database, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("sqlwarehouse: listing partitions for %q: %w", tableName, err)
	}
	defer rows.Close()

	var partitions []string
	for rows.Next() {
		var childTable string
		if err := rows.Scan(&childTable); err != nil {
			return nil, fmt.Errorf("sqlwarehouse: scanning partition table name: %w", err)
		}
		suffix := strings.TrimPrefix(childTable, prefix)
		if partition, ok := partitionDateFromSuffix(suffix); ok {
			partitions = append(partitions, partition)
		}
	}
	return partitions, rows.Err()
}

func partitionTableName(tableName, partition string) string {
	return tableName + "_" + strings.ReplaceAll(partition, "-", "")
}

func partitionDateFromSuffix(suffix string) (string, bool) {
	if len(suffix) != 8 {
		return "", false
	}
	return suffix[0:4] + "-" + suffix[4:6] + "-" + suffix[6:8], true
}

func (r *Repository) CreateTable(ctx context.Context, config domain.TableConfig) error {
	columns := make([]string, 0, len(config.Schema))
	for _, field := range config.Schema {
		columns = append(columns, fmt.Sprintf("`%s` %s", field.Name, sqlColumnType(field)))
	}
	if len(columns) == 0 {
		columns = append(columns, "`_placeholder` TINYINT")
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (%s)", config.TableName, strings.Join(columns, ", "))
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlwarehouse: creating table %q: %w", config.TableName, err)
	}

	schemaJSON, err := json.Marshal(config.Schema)
	if err != nil {
		return fmt.Errorf("sqlwarehouse: encoding schema for %q: %w", config.TableName, err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO `+registryTable+`
			(table_name, schema_json, partition_field, definition, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			schema_json = VALUES(schema_json),
			partition_field = VALUES(partition_field),
			definition = VALUES(definition),
			updated_at = VALUES(updated_at),
			expires_at = VALUES(expires_at)`,
		config.TableName, string(schemaJSON), config.PartitionField, r.FormatDefinition(config.Definition),
		now, now, nullTime(config.Expires))
	if err != nil {
		return fmt.Errorf("sqlwarehouse: registering table %q: %w", config.TableName, err)
	}
	return nil
}

func (r *Repository) CopyTable(ctx context.Context, sourceTableName, destinationTableName string, expires *time.Time) error {
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", destinationTableName)); err != nil {
		return fmt.Errorf("sqlwarehouse: clearing destination %q: %w", destinationTableName, err)
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE `%s` LIKE `%s`", destinationTableName, sourceTableName)); err != nil {
		return fmt.Errorf("sqlwarehouse: copying structure to %q: %w", destinationTableName, err)
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO `%s` SELECT * FROM `%s`", destinationTableName, sourceTableName)); err != nil {
		return fmt.Errorf("sqlwarehouse: copying rows to %q: %w", destinationTableName, err)
	}

	meta, err := r.GetTableMetadata(ctx, sourceTableName)
	if err != nil {
		return err
	}
	destConfig := meta.TableConfig
	destConfig.TableName = destinationTableName
	destConfig.Expires = expires
	if err := r.upsertRegistryRow(ctx, destConfig, meta.Created); err != nil {
		return err
	}

	for _, partition := range meta.Partitions {
		src := partitionTableName(sourceTableName, partition)
		dst := partitionTableName(destinationTableName, partition)
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE `%s` LIKE `%s`", dst, src)); err != nil {
			return fmt.Errorf("sqlwarehouse: copying partition structure %q: %w", dst, err)
		}
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO `%s` SELECT * FROM `%s`", dst, src)); err != nil {
			return fmt.Errorf("sqlwarehouse: copying partition rows %q: %w", dst, err)
		}
	}
	return nil
}

func (r *Repository) upsertRegistryRow(ctx context.Context, config domain.TableConfig, created time.Time) error {
	schemaJSON, err := json.Marshal(config.Schema)
	if err != nil {
		return fmt.Errorf("sqlwarehouse: encoding schema for %q: %w", config.TableName, err)
	}
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO `+registryTable+`
			(table_name, schema_json, partition_field, definition, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			schema_json = VALUES(schema_json),
			partition_field = VALUES(partition_field),
			definition = VALUES(definition),
			updated_at = VALUES(updated_at),
			expires_at = VALUES(expires_at)`,
		config.TableName, string(schemaJSON), config.PartitionField, config.Definition,
		created, now, nullTime(config.Expires))
	if err != nil {
		return fmt.Errorf("sqlwarehouse: registering table %q: %w", config.TableName, err)
	}
	return nil
}

func (r *Repository) DeleteTable(ctx context.Context, tableName string, notFoundOK bool) error {
	if err := r.TableExists(ctx, tableName); err != nil {
		if apperrors.IsTableNotFound(err) && notFoundOK {
			return nil
		}
		return err
	}

	partitions, err := r.listPartitions(ctx, tableName)
	if err != nil {
		return err
	}
	for _, partition := range partitions {
		child := partitionTableName(tableName, partition)
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", child)); err != nil {
			return fmt.Errorf("sqlwarehouse: dropping partition %q: %w", child, err)
		}
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", tableName)); err != nil {
		return fmt.Errorf("sqlwarehouse: dropping table %q: %w", tableName, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+registryTable+` WHERE table_name = ?`, tableName); err != nil {
		return fmt.Errorf("sqlwarehouse: deregistering table %q: %w", tableName, err)
	}
	return nil
}

func (r *Repository) WriteQueryResultsToTablePartition(ctx context.Context, tableName, query, partition string) error {
	child := partitionTableName(tableName, partition)
	if err := r.writeQueryResultsToTable(ctx, child, query); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE `+registryTable+` SET updated_at = ? WHERE table_name = ?`, time.Now().UTC(), tableName)
	if err != nil {
		return fmt.Errorf("sqlwarehouse: touching updated_at for %q: %w", tableName, err)
	}
	return nil
}

func (r *Repository) WriteQueryResultsToTable(ctx context.Context, tableName, query string) error {
	if err := r.writeQueryResultsToTable(ctx, tableName, query); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE `+registryTable+` SET updated_at = ? WHERE table_name = ?`, time.Now().UTC(), tableName)
	if err != nil {
		return fmt.Errorf("sqlwarehouse: touching updated_at for %q: %w", tableName, err)
	}
	return nil
}

func (r *Repository) writeQueryResultsToTable(ctx context.Context, tableName, query string) error {
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", tableName)); err != nil {
		return fmt.Errorf("sqlwarehouse: clearing %q before write: %w", tableName, err)
	}
	ddl := fmt.Sprintf("CREATE TABLE `%s` AS %s", tableName, query)
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlwarehouse: writing query results to %q: %w", tableName, err)
	}

	var rowCount int
	row := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM `%s`", tableName))
	if err := row.Scan(&rowCount); err != nil {
		return fmt.Errorf("sqlwarehouse: counting rows in %q: %w", tableName, err)
	}
	if rowCount == 0 {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", tableName)); err != nil {
			return fmt.Errorf("sqlwarehouse: dropping empty %q: %w", tableName, err)
		}
		return apperrors.NewQueryReturnedNoData(tableName)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func sqlColumnType(field domain.SchemaField) string {
	switch strings.ToUpper(field.Type) {
	case "INT", "INTEGER":
		return "BIGINT"
	case "FLOAT", "DOUBLE":
		return "DOUBLE"
	case "BOOL", "BOOLEAN":
		return "BOOLEAN"
	case "TIMESTAMP", "DATETIME":
		return "DATETIME"
	case "DATE":
		return "DATE"
	default:
		return "TEXT"
	}
}
