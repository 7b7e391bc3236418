// Command reconcile is a minimal CLI around the managedtable facade: it
// reads a JSON table-config document and a query-template file, wires the
// sqlwarehouse adapter from environment configuration, and reconciles one
// table. It is an illustrative entry point, not a general-purpose tool:
// batch/multi-table operation is left to whatever wraps this binary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/nexustables/managedtable/adapters/sqlwarehouse"
	"github.com/nexustables/managedtable/internal/config"
	"github.com/nexustables/managedtable/internal/domain"
	"github.com/nexustables/managedtable/pkg/querytemplate"

	"github.com/nexustables/managedtable"
)

type tableConfigDocument struct {
	TableName          string               `json:"table_name"`
	Schema             []domain.SchemaField `json:"schema"`
	PartitionField     string               `json:"partition_field"`
	Partitions         []string             `json:"partitions"`
	Definition         string               `json:"definition"`
	UpstreamTableNames []string             `json:"upstream_table_names"`
	UserFields         map[string]any       `json:"user_fields"`
}

func main() {
	configPath := flag.String("config", "", "path to a JSON table-config document")
	templatePath := flag.String("template", "", "path to the query template file")
	database := flag.String("database", "", "warehouse database/schema name")
	flag.Parse()

	if *configPath == "" || *templatePath == "" {
		log.Fatal("reconcile: -config and -template are required")
	}

	cfg := config.Load()
	if cfg.WarehouseDSN == "" {
		log.Fatal("reconcile: MANAGEDTABLE_WAREHOUSE_DSN is not set")
	}

	doc, err := readTableConfigDocument(*configPath)
	if err != nil {
		log.Fatalf("reconcile: %s", err)
	}
	templateText, err := os.ReadFile(*templatePath)
	if err != nil {
		log.Fatalf("reconcile: reading template: %s", err)
	}

	ctx := context.Background()
	tableRepo, err := sqlwarehouse.Open(ctx, cfg.WarehouseDSN, *database)
	if err != nil {
		log.Fatalf("reconcile: %s", err)
	}
	defer tableRepo.Close()

	facade := managedtable.NewFromConfig(cfg, tableRepo)

	tmpl, err := querytemplate.New(string(templateText), nil, doc.UserFields)
	if err != nil {
		log.Fatalf("reconcile: building query template: %s", err)
	}

	expected := domain.TableConfig{
		TableName:          doc.TableName,
		Schema:             doc.Schema,
		PartitionField:     doc.PartitionField,
		Partitions:         doc.Partitions,
		Definition:         doc.Definition,
		UpstreamTableNames: doc.UpstreamTableNames,
	}

	start := time.Now()
	if doc.PartitionField != "" {
		err = facade.SyncPartitionedTable(ctx, expected, tmpl.Render)
	} else {
		var query string
		query, err = tmpl.Render("", nil)
		if err == nil {
			err = facade.SyncUnpartitionedTable(ctx, doc.TableName, query)
		}
	}
	if err != nil {
		log.Fatalf("reconcile: %s", err)
	}
	log.Printf("reconcile: synchronized %q in %s", doc.TableName, time.Since(start))
}

func readTableConfigDocument(path string) (tableConfigDocument, error) {
	var doc tableConfigDocument
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, err
	}
	return doc, nil
}
