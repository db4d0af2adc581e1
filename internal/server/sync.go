package server

import (
	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/network"
	"github.com/gravitas-games/hexfront/internal/sim"
)

// projector turns world changes into per-player state deltas. It remembers
// which foreign units each player currently sees so that units leaving
// vision can be reported as hidden.
type projector struct {
	known map[string]map[string]struct{} // player -> foreign unit ids in view
}

func newProjector() *projector {
	return &projector{known: make(map[string]map[string]struct{})}
}

// forget drops the view state of a player.
func (p *projector) forget(player string) {
	delete(p.known, player)
}

// delta builds the state delta of player from the changed cells and units.
func (p *projector) delta(player string, tick int64, cells []*gamemap.Cell, units []*gamemap.Unit) network.StateDeltaPayload {
	out := network.StateDeltaPayload{Tick: tick}
	for _, c := range cells {
		if c.Owner == player || sim.CanSee(c.VisibleTo, player) {
			out.Cells = append(out.Cells, cellView(c))
		}
	}

	known := p.known[player]
	if known == nil {
		known = make(map[string]struct{})
		p.known[player] = known
	}
	for _, u := range units {
		switch {
		case u.Owner == player:
			out.Units = append(out.Units, unitView(u, true))
		case sim.CanSee(u.VisibleTo, player):
			known[u.ID] = struct{}{}
			out.Units = append(out.Units, unitView(u, false))
		default:
			if _, ok := known[u.ID]; ok {
				delete(known, u.ID)
				out.HiddenUnits = append(out.HiddenUnits, u.ID)
			}
		}
	}
	return out
}

// full builds the complete view of player, used right after joining.
func (p *projector) full(w *gamemap.World, player string, tick int64) network.StateDeltaPayload {
	p.forget(player)
	var cells []*gamemap.Cell
	w.RangeCells(func(c *gamemap.Cell) bool {
		cells = append(cells, c)
		return true
	})
	var units []*gamemap.Unit
	w.RangeUnits(func(u *gamemap.Unit) bool {
		units = append(units, u)
		return true
	})
	return p.delta(player, tick, cells, units)
}

func empty(d network.StateDeltaPayload) bool {
	return len(d.Cells) == 0 && len(d.Units) == 0 && len(d.HiddenUnits) == 0
}

func cellView(c *gamemap.Cell) network.CellView {
	return network.CellView{
		Q:              c.Coord.Q,
		R:              c.Coord.R,
		Owner:          c.Owner,
		Color:          c.Color,
		Terrain:        string(c.Terrain),
		ResourceAmount: c.ResourceAmount,
		Structure:      string(c.Structure),
		StructureHP:    c.StructureHP,
	}
}

// unitView projects a unit. Inventory, cargo, action and path are private to
// the owner.
func unitView(u *gamemap.Unit, owner bool) network.UnitView {
	v := network.UnitView{
		ID:    u.ID,
		Owner: u.Owner,
		Kind:  string(u.Kind),
		X:     u.X,
		Y:     u.Y,
		HP:    u.HP,
		MaxHP: u.MaxHP,
	}
	if !owner {
		return v
	}
	inv, maxInv := u.Inventory, u.MaxInventory
	v.Inventory = &inv
	v.MaxInventory = &maxInv
	v.Cargo = string(u.Cargo)
	v.Action = string(u.Action)
	for _, a := range u.Path {
		v.Path = append(v.Path, network.HexRef{Q: a.Q, R: a.R})
	}
	return v
}
