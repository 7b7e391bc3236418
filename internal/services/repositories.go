// Package services implements the reconciliation engine's command and error
// handlers and the message bus that dispatches them, built around a
// pub-sub handler-dispatch shape generalized to the closed
// command/event/error vocabulary in internal/domain.
package services

import "github.com/nexustables/managedtable/internal/ports"

// Repositories bundles the three repository ports a handler may draw on.
// Handlers take the whole bundle and use only the fields they need, rather
// than injecting per-handler dependencies by reflection: with a closed,
// small handler set a plain struct is simpler and just as testable.
type Repositories struct {
	Table       ports.TableRepository
	Query       ports.QueryRepository
	TableConfig ports.TableConfigRepository
}
