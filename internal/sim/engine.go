// Package sim drives one world: per-tick visibility and unit updates,
// energy regeneration, territory and player commands.
//
// An Engine is not safe for concurrent use. The owning room calls every
// method from one goroutine.
package sim

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/pathfind"
	"github.com/gravitas-games/hexfront/pkg/logger"
)

// Engine runs the simulation of a single world.
type Engine struct {
	world    *gamemap.World
	notify   Notifier
	log      *logrus.Entry
	seed     int64
	pathOpts []pathfind.Option
	ticks    int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed sets the seed used to place starter units.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithMaxExpansions caps the node expansions of every path search.
func WithMaxExpansions(n int) Option {
	return func(e *Engine) { e.pathOpts = append(e.pathOpts, pathfind.WithMaxExpansions(n)) }
}

// WithLogger replaces the engine log entry.
func WithLogger(entry *logrus.Entry) Option {
	return func(e *Engine) { e.log = entry }
}

// NewEngine creates an engine over w. A nil notifier drops events.
func NewEngine(w *gamemap.World, n Notifier, opts ...Option) *Engine {
	if n == nil {
		n = nopNotifier{}
	}
	e := &Engine{
		world:  w,
		notify: n,
		log:    logger.Component("sim").WithField("world", w.ID),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// World returns the simulated world.
func (e *Engine) World() *gamemap.World { return e.world }

// Ticks returns the number of completed ticks.
func (e *Engine) Ticks() int64 { return e.ticks }

// Tick runs one simulation step: visibility first, then units.
func (e *Engine) Tick() {
	UpdateVisibility(e.world)
	e.stepUnits()
	e.ticks++
}

// Regenerate refills energy of connected players by one regeneration step.
func (e *Engine) Regenerate() {
	rules := e.world.Rules()
	for _, p := range e.world.ConnectedPlayers() {
		if p.Energy >= rules.MaxEnergy {
			continue
		}
		p.Energy = math.Min(rules.MaxEnergy, p.Energy+rules.EnergyRegen)
		e.notifyEnergy(p)
	}
}

func (e *Engine) notifyEnergy(p *gamemap.Player) {
	e.notify.Notify(Event{Player: p.ID, Kind: EventEnergy, Energy: int(math.Floor(p.Energy))})
}

func (e *Engine) notifyLedger(player string) {
	if l, ok := e.world.Ledger(player); ok {
		e.notify.Notify(Event{Player: player, Kind: EventLedger, Ledger: l})
	}
}
