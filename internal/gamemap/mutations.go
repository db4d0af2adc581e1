package gamemap

import (
	"fmt"
	"slices"

	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

// ClaimHex assigns coord to player. A cell that is missing or owned by someone
// else is overwritten unconditionally; concurrent claims resolve by call
// order. Returns false when the player already owns the cell.
func (w *World) ClaimHex(coord hexgrid.Axial, player, color string) (bool, error) {
	p, ok := w.players[player]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPlayer, player)
	}
	c := w.EnsureCell(coord)
	if c.Owner == player {
		return false, nil
	}
	c.Owner = player
	c.Color = color
	p.TotalCaptures++
	w.MarkCellDirty(coord)
	w.persistCell(c)
	w.persistPlayer(p)
	return true, nil
}

// AssignTerritory gives a plain, structure-free cell to player. Other cells
// are left untouched. Returns true when ownership changed.
func (w *World) AssignTerritory(coord hexgrid.Axial, player, color string) bool {
	c := w.EnsureCell(coord)
	if c.Terrain != TerrainPlain || c.Structure != StructureNone {
		return false
	}
	if c.Owner == player && c.Color == color {
		return false
	}
	c.Owner = player
	c.Color = color
	w.MarkCellDirty(coord)
	w.persistCell(c)
	return true
}

// BuildStructure places a storage structure on coord for player, paying cost
// from the player's ledger. The target must be plain and empty.
func (w *World) BuildStructure(coord hexgrid.Axial, player string, cost Ledger) error {
	p, ok := w.players[player]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, player)
	}
	if c, exists := w.cells[coord]; exists {
		if c.Terrain != TerrainPlain || c.Structure != StructureNone {
			return fmt.Errorf("%w: %v is %s with structure %q", ErrInvalidTarget, coord, c.Terrain, c.Structure)
		}
	}
	if !p.Ledger.Covers(cost) {
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientResources, cost, p.Ledger)
	}

	p.Ledger = p.Ledger.Sub(cost)
	c := w.EnsureCell(coord)
	c.Structure = StructureStorage
	c.StructureHP = w.rules.StorageHP
	c.Owner = player
	c.Color = p.Color
	w.MarkCellDirty(coord)
	w.persistCell(c)
	return nil
}

// TakeResource removes up to max units of resource from coord. When the cell
// runs dry its terrain becomes plain and the change is persisted.
func (w *World) TakeResource(coord hexgrid.Axial, max int) (kind ResourceKind, taken int, depleted bool) {
	c, ok := w.cells[coord]
	if !ok || max <= 0 {
		return "", 0, false
	}
	kind, ok = c.Terrain.Resource()
	if !ok || c.ResourceAmount <= 0 {
		return "", 0, false
	}
	taken = min(max, c.ResourceAmount)
	c.ResourceAmount -= taken
	if c.ResourceAmount <= 0 {
		c.ResourceAmount = 0
		c.Terrain = TerrainPlain
		depleted = true
		w.persistCell(c)
	}
	w.MarkCellDirty(coord)
	return kind, taken, depleted
}

// JoinPlayer connects a player, registering it on first join. Energy is
// refilled on every join.
func (w *World) JoinPlayer(id, name, color string) *Player {
	p, ok := w.players[id]
	if !ok {
		p = &Player{ID: id, Name: name, Color: color}
		w.players[id] = p
	}
	if name != "" {
		p.Name = name
	}
	if color != "" {
		p.Color = color
	}
	p.Connected = true
	p.Energy = w.rules.MaxEnergy
	w.persistPlayer(p)
	return p
}

// LeavePlayer marks a player disconnected. Units and ledger are kept.
func (w *World) LeavePlayer(id string) {
	if p, ok := w.players[id]; ok {
		p.Connected = false
	}
}

// SetCellVisibility replaces the observer list of a cell and marks it dirty
// only when the list changed.
func (w *World) SetCellVisibility(c *Cell, visibleTo []string) bool {
	if slices.Equal(c.VisibleTo, visibleTo) {
		return false
	}
	c.VisibleTo = visibleTo
	w.MarkCellDirty(c.Coord)
	return true
}

// SetUnitVisibility replaces the observer list of a unit and marks it dirty
// only when the list changed.
func (w *World) SetUnitVisibility(u *Unit, visibleTo []string) bool {
	if slices.Equal(u.VisibleTo, visibleTo) {
		return false
	}
	u.VisibleTo = visibleTo
	w.MarkUnitDirty(u.ID)
	return true
}
