package sim

import (
	"math"

	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
	"github.com/gravitas-games/hexfront/internal/pathfind"
)

// stepUnits advances every unit by one tick. Precedence per unit: movement,
// harvest, deposit, idle.
func (e *Engine) stepUnits() {
	e.world.RangeUnits(func(u *gamemap.Unit) bool {
		switch {
		case len(u.Path) > 0:
			e.moveStep(u)
		case u.Action == gamemap.ActionHarvesting:
			e.harvestStep(u)
		case u.Action == gamemap.ActionReturning:
			e.depositStep(u)
		}
		return true
	})
}

func (e *Engine) moveStep(u *gamemap.Unit) {
	rules := e.world.Rules()
	next := u.Path[0]
	tx, ty := hexgrid.ToPixel(next, rules.HexSize)

	factor := gamemap.TerrainPlain.SpeedFactor()
	if c, ok := e.world.Cell(next); ok {
		factor = c.Terrain.SpeedFactor()
	}
	travel := rules.Stats(u.Kind).Speed * factor

	dx, dy := tx-u.X, ty-u.Y
	dist := math.Hypot(dx, dy)
	e.world.MarkUnitDirty(u.ID)
	if dist > travel {
		u.X += dx / dist * travel
		u.Y += dy / dist * travel
		return
	}

	u.X, u.Y = tx, ty
	u.Path = u.Path[1:]
	u.LastArrived = next
	if len(u.Path) == 0 {
		u.Path = nil
		e.arrive(u, next)
	}
}

// arrive decides what a unit does once its path ran out. A returning unit
// keeps its action so the deposit step runs on the next tick.
func (e *Engine) arrive(u *gamemap.Unit, at hexgrid.Axial) {
	e.world.MarkUnitDirty(u.ID)
	if u.Action == gamemap.ActionReturning {
		return
	}
	if e.canHarvest(u, at) {
		u.Action = gamemap.ActionHarvesting
		return
	}
	u.Action = gamemap.ActionIdle
}

func (e *Engine) canHarvest(u *gamemap.Unit, at hexgrid.Axial) bool {
	c, ok := e.world.Cell(at)
	if !ok || !c.HasResource() || u.SpareCapacity() == 0 {
		return false
	}
	kind, _ := c.Terrain.Resource()
	return u.Inventory == 0 || u.Cargo == "" || u.Cargo == kind
}

func (e *Engine) harvestStep(u *gamemap.Unit) {
	at := u.LastArrived
	rate := e.world.Rules().Stats(u.Kind).HarvestRate

	kind, taken, depleted := e.world.TakeResource(at, min(rate, u.SpareCapacity()))
	if taken > 0 {
		u.Inventory += taken
		u.Cargo = kind
		e.world.MarkUnitDirty(u.ID)
		e.notify.Notify(Event{
			Player:   u.Owner,
			Kind:     EventHarvest,
			UnitID:   u.ID,
			Resource: kind,
			Amount:   taken,
			Coord:    at,
		})
	}

	if taken > 0 && !depleted && u.SpareCapacity() > 0 {
		return
	}
	if u.Inventory == 0 {
		e.setIdle(u)
		return
	}
	e.returnToStorage(u)
}

// returnToStorage plans a path to the nearest owned storage and switches the
// unit to returning. Without a reachable storage the unit idles with its
// cargo.
func (e *Engine) returnToStorage(u *gamemap.Unit) {
	from := e.world.UnitHex(u)
	target, ok := e.nearestStorage(u.Owner, from)
	if !ok {
		e.setIdle(u)
		return
	}
	path, ok := pathfind.FindPath(from, target, MoveCost(e.world, u.Owner), e.pathOpts...)
	if !ok {
		e.setIdle(u)
		return
	}
	u.Path = trimStart(path, from)
	u.Action = gamemap.ActionReturning
	e.world.MarkUnitDirty(u.ID)
}

// nearestStorage finds the closest storage owned by player. Ties go to the
// cell created first.
func (e *Engine) nearestStorage(player string, from hexgrid.Axial) (hexgrid.Axial, bool) {
	var best hexgrid.Axial
	bestDist := -1
	e.world.RangeCells(func(c *gamemap.Cell) bool {
		if c.Structure != gamemap.StructureStorage || c.Owner != player {
			return true
		}
		if d := hexgrid.Distance(from, c.Coord); bestDist < 0 || d < bestDist {
			best, bestDist = c.Coord, d
		}
		return true
	})
	return best, bestDist >= 0
}

func (e *Engine) depositStep(u *gamemap.Unit) {
	at := e.world.UnitHex(u)
	c, ok := e.world.Cell(at)
	if !ok || c.Structure != gamemap.StructureStorage || c.Owner != u.Owner {
		e.setIdle(u)
		return
	}

	if u.Inventory > 0 && u.Cargo != "" {
		if err := e.world.AdjustLedger(u.Owner, u.Cargo, u.Inventory); err != nil {
			e.log.WithError(err).WithField("unit", u.ID).Warn("deposit rejected")
			e.setIdle(u)
			return
		}
		e.notify.Notify(Event{
			Player:   u.Owner,
			Kind:     EventDeposit,
			UnitID:   u.ID,
			Resource: u.Cargo,
			Amount:   u.Inventory,
			Coord:    at,
		})
		e.notifyLedger(u.Owner)
	}
	u.Inventory = 0
	u.Cargo = ""
	e.setIdle(u)
}

func (e *Engine) setIdle(u *gamemap.Unit) {
	u.Path = nil
	u.Action = gamemap.ActionIdle
	e.world.MarkUnitDirty(u.ID)
}

// trimStart drops the leading waypoint when it is the hex the unit already
// stands on.
func trimStart(path []hexgrid.Axial, current hexgrid.Axial) []hexgrid.Axial {
	if len(path) > 0 && path[0] == current {
		path = path[1:]
	}
	if len(path) == 0 {
		return nil
	}
	return path
}
