// Package gamemap holds the authoritative in-memory world of one game session:
// hex cells, units and per-player ledgers.
//
// A World is not safe for concurrent use. Each session owns one World and
// drives it from a single goroutine.
package gamemap

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

// World represents the game world of one room.
type World struct {
	ID    string
	rules Rules
	sink  Sink

	cells     map[hexgrid.Axial]*Cell
	cellOrder []hexgrid.Axial
	units     map[string]*Unit
	unitOrder []string
	players   map[string]*Player

	dirtyCells map[hexgrid.Axial]struct{}
	dirtyUnits map[string]struct{}
}

// New creates an empty world. A nil sink discards persistence requests.
func New(id string, rules Rules, sink Sink) *World {
	if sink == nil {
		sink = NopSink{}
	}
	return &World{
		ID:         id,
		rules:      rules,
		sink:       sink,
		cells:      make(map[hexgrid.Axial]*Cell),
		units:      make(map[string]*Unit),
		players:    make(map[string]*Player),
		dirtyCells: make(map[hexgrid.Axial]struct{}),
		dirtyUnits: make(map[string]struct{}),
	}
}

// Rules returns the world tunables.
func (w *World) Rules() Rules { return w.rules }

// SetSink replaces the persistence sink.
func (w *World) SetSink(s Sink) {
	if s == nil {
		s = NopSink{}
	}
	w.sink = s
}

// --- Cells ---

// Cell retrieves the cell at coord without creating it.
func (w *World) Cell(coord hexgrid.Axial) (*Cell, bool) {
	c, ok := w.cells[coord]
	return c, ok
}

// EnsureCell returns the cell at coord, creating a neutral plain cell on
// first reference.
func (w *World) EnsureCell(coord hexgrid.Axial) *Cell {
	if c, ok := w.cells[coord]; ok {
		return c
	}
	c := &Cell{Coord: coord, Owner: NeutralOwner, Terrain: TerrainPlain}
	w.insertCell(c)
	return c
}

// SetCell overwrites the cell at c.Coord after checking invariants.
// Visibility is carried over from the previous cell.
func (w *World) SetCell(c Cell) error {
	if err := c.validate(); err != nil {
		return err
	}
	if old, ok := w.cells[c.Coord]; ok {
		c.VisibleTo = old.VisibleTo
		*old = c
	} else {
		w.insertCell(&c)
	}
	w.MarkCellDirty(c.Coord)
	return nil
}

func (w *World) insertCell(c *Cell) {
	w.cells[c.Coord] = c
	w.cellOrder = append(w.cellOrder, c.Coord)
}

// CellCount returns the number of materialized cells.
func (w *World) CellCount() int { return len(w.cells) }

// RangeCells calls fn for every cell in creation order until fn returns false.
func (w *World) RangeCells(fn func(c *Cell) bool) {
	for _, coord := range w.cellOrder {
		if !fn(w.cells[coord]) {
			return
		}
	}
}

// --- Units ---

// Unit retrieves a unit by id.
func (w *World) Unit(id string) (*Unit, bool) {
	u, ok := w.units[id]
	return u, ok
}

// UpsertUnit inserts or replaces a unit.
func (w *World) UpsertUnit(u *Unit) {
	if _, exists := w.units[u.ID]; !exists {
		w.unitOrder = append(w.unitOrder, u.ID)
	}
	w.units[u.ID] = u
	w.MarkUnitDirty(u.ID)
}

// RemoveUnit deletes a unit.
func (w *World) RemoveUnit(id string) {
	if _, ok := w.units[id]; !ok {
		return
	}
	delete(w.units, id)
	delete(w.dirtyUnits, id)
	for i, uid := range w.unitOrder {
		if uid == id {
			w.unitOrder = append(w.unitOrder[:i], w.unitOrder[i+1:]...)
			break
		}
	}
}

// SpawnUnit creates a unit of kind for owner centered on at.
func (w *World) SpawnUnit(owner string, kind UnitKind, at hexgrid.Axial) *Unit {
	stats := w.rules.Stats(kind)
	x, y := hexgrid.ToPixel(at, w.rules.HexSize)
	u := &Unit{
		ID:           uuid.NewString(),
		Owner:        owner,
		Kind:         kind,
		X:            x,
		Y:            y,
		HP:           stats.MaxHP,
		MaxHP:        stats.MaxHP,
		MaxInventory: stats.MaxInventory,
		Action:       ActionIdle,
		LastArrived:  at,
	}
	w.UpsertUnit(u)
	return u
}

// UnitCount returns the number of units.
func (w *World) UnitCount() int { return len(w.units) }

// RangeUnits calls fn for every unit in insertion order until fn returns false.
func (w *World) RangeUnits(fn func(u *Unit) bool) {
	for _, id := range w.unitOrder {
		if !fn(w.units[id]) {
			return
		}
	}
}

// UnitsOwnedBy returns the units owned by player.
func (w *World) UnitsOwnedBy(player string) []*Unit {
	var out []*Unit
	w.RangeUnits(func(u *Unit) bool {
		if u.Owner == player {
			out = append(out, u)
		}
		return true
	})
	return out
}

// UnitHex resolves the hex a unit currently stands on.
func (w *World) UnitHex(u *Unit) hexgrid.Axial {
	return u.Hex(w.rules.HexSize)
}

// --- Players and ledgers ---

// Player retrieves a player by id.
func (w *World) Player(id string) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// AddPlayer registers a player record without connecting it.
func (w *World) AddPlayer(p *Player) {
	w.players[p.ID] = p
}

// Players returns every known player ordered by id.
func (w *World) Players() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConnectedPlayers returns connected players ordered by id.
func (w *World) ConnectedPlayers() []*Player {
	var out []*Player
	for _, p := range w.Players() {
		if p.Connected {
			out = append(out, p)
		}
	}
	return out
}

// Ledger returns the resource totals of player.
func (w *World) Ledger(player string) (Ledger, bool) {
	p, ok := w.players[player]
	if !ok {
		return Ledger{}, false
	}
	return p.Ledger, true
}

// AdjustLedger adds delta of kind to the player's ledger. Totals never go
// below zero.
func (w *World) AdjustLedger(player string, kind ResourceKind, delta int) error {
	p, ok := w.players[player]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, player)
	}
	next := p.Ledger.Add(kind, delta)
	if next.Get(kind) < 0 {
		return fmt.Errorf("%w: %s needs %d %s, has %d", ErrInsufficientResources, player, -delta, kind, p.Ledger.Get(kind))
	}
	p.Ledger = next
	return nil
}

// --- Dirty tracking ---

// MarkCellDirty flags a cell for the next sync.
func (w *World) MarkCellDirty(coord hexgrid.Axial) {
	w.dirtyCells[coord] = struct{}{}
}

// MarkUnitDirty flags a unit for the next sync.
func (w *World) MarkUnitDirty(id string) {
	w.dirtyUnits[id] = struct{}{}
}

// TakeDirty returns and clears the dirty cells and units, each in world order.
func (w *World) TakeDirty() (cells []*Cell, units []*Unit) {
	if len(w.dirtyCells) > 0 {
		for _, coord := range w.cellOrder {
			if _, ok := w.dirtyCells[coord]; ok {
				cells = append(cells, w.cells[coord])
			}
		}
		w.dirtyCells = make(map[hexgrid.Axial]struct{})
	}
	if len(w.dirtyUnits) > 0 {
		for _, id := range w.unitOrder {
			if _, ok := w.dirtyUnits[id]; ok {
				units = append(units, w.units[id])
			}
		}
		w.dirtyUnits = make(map[string]struct{})
	}
	return cells, units
}

// String returns a summary of the world.
func (w *World) String() string {
	return fmt.Sprintf("World(%s, cells=%d, units=%d, players=%d)", w.ID, len(w.cells), len(w.units), len(w.players))
}
