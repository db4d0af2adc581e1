package sim

import (
	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

// EventKind identifies an outbound notification.
type EventKind string

const (
	EventEnergy  EventKind = "energy_update"
	EventLedger  EventKind = "ledger_update"
	EventHarvest EventKind = "harvest"
	EventDeposit EventKind = "deposit"
	EventBuilt   EventKind = "build_ok"
	EventError   EventKind = "error"
)

// Event is a notification addressed to one player. Only the fields relevant
// to Kind are set.
type Event struct {
	Player string
	Kind   EventKind

	Energy   int
	Ledger   gamemap.Ledger
	Resource gamemap.ResourceKind
	Amount   int
	Coord    hexgrid.Axial
	UnitID   string

	Code    string
	Message string
}

// Notifier receives engine events. Implementations must not block.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
