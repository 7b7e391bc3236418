// Package ports defines the interfaces external adapters must implement to
// plug into the reconciliation core: how a table's warehouse-side state is
// read and mutated, how a query's text is resolved, and how a table's
// expected config is stored and retrieved. The core depends only on these
// interfaces, never on a concrete adapter, following the hexagonal
// architecture pattern.
package ports
