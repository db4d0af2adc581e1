package gamemap

import (
	"fmt"

	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

// NeutralOwner is the reserved owner id of generated, unclaimed cells.
const NeutralOwner = "server"

// Terrain types for hex cells.
type Terrain string

const (
	TerrainPlain    Terrain = "plain"
	TerrainForest   Terrain = "forest"
	TerrainMountain Terrain = "mountain"
	TerrainRuins    Terrain = "ruins"
)

// SpeedFactor scales unit movement while heading into this terrain.
func (t Terrain) SpeedFactor() float64 {
	switch t {
	case TerrainForest:
		return 0.8
	case TerrainMountain, TerrainRuins:
		return 0.5
	default:
		return 1.0
	}
}

// MoveCost is the path-finding edge weight: the reciprocal of SpeedFactor.
func (t Terrain) MoveCost() float64 {
	return 1 / t.SpeedFactor()
}

// Resource returns the resource harvested from this terrain, if any.
func (t Terrain) Resource() (ResourceKind, bool) {
	switch t {
	case TerrainForest:
		return ResourceWood, true
	case TerrainMountain:
		return ResourceStone, true
	case TerrainRuins:
		return ResourceScrap, true
	}
	return "", false
}

// Valid reports whether t is a known terrain.
func (t Terrain) Valid() bool {
	switch t {
	case TerrainPlain, TerrainForest, TerrainMountain, TerrainRuins:
		return true
	}
	return false
}

// ResourceKind names a harvestable resource.
type ResourceKind string

const (
	ResourceWood  ResourceKind = "wood"
	ResourceStone ResourceKind = "stone"
	ResourceScrap ResourceKind = "scrap"
)

// Structure is the building placed on a cell.
type Structure string

const (
	StructureNone    Structure = ""
	StructureStorage Structure = "storage"
)

// UnitKind determines speed, harvest rate and carrying capacity.
type UnitKind string

const (
	UnitFounder UnitKind = "founder"
	UnitFarmer  UnitKind = "farmer"
	UnitFighter UnitKind = "fighter"
)

// Action is the state of the per-unit action machine.
type Action string

const (
	ActionIdle       Action = "idle"
	ActionMoving     Action = "moving"
	ActionHarvesting Action = "harvesting"
	ActionReturning  Action = "returning"
)

// Cell represents a single hex cell in the world.
type Cell struct {
	Coord          hexgrid.Axial `json:"coord"`
	Owner          string        `json:"owner"`
	Color          string        `json:"color"`
	Terrain        Terrain       `json:"terrain"`
	ResourceAmount int           `json:"resourceAmount"`
	Structure      Structure     `json:"structure,omitempty"`
	StructureHP    int           `json:"structureHp,omitempty"`

	// VisibleTo is recomputed every tick and never persisted.
	VisibleTo []string `json:"-"`
}

// HasResource reports whether the cell still holds a depletable resource.
func (c *Cell) HasResource() bool {
	_, ok := c.Terrain.Resource()
	return ok && c.ResourceAmount > 0
}

// validate checks the cell invariants.
func (c *Cell) validate() error {
	if !c.Terrain.Valid() {
		return fmt.Errorf("%w: unknown terrain %q", ErrInvariant, c.Terrain)
	}
	if c.ResourceAmount < 0 {
		return fmt.Errorf("%w: negative resource amount at %v", ErrInvariant, c.Coord)
	}
	if c.Terrain == TerrainPlain && c.ResourceAmount != 0 {
		return fmt.Errorf("%w: plain cell %v carries resources", ErrInvariant, c.Coord)
	}
	if c.Structure != StructureNone && c.ResourceAmount != 0 {
		return fmt.Errorf("%w: structure on resource cell %v", ErrInvariant, c.Coord)
	}
	return nil
}

// Unit is a player-controlled actor. Position is the single source of truth;
// the hex a unit stands on is always derived from it.
type Unit struct {
	ID           string          `json:"id"`
	Owner        string          `json:"owner"`
	Kind         UnitKind        `json:"kind"`
	X            float64         `json:"x"`
	Y            float64         `json:"y"`
	HP           int             `json:"hp"`
	MaxHP        int             `json:"maxHp"`
	Inventory    int             `json:"inventory"`
	MaxInventory int             `json:"maxInventory"`
	Cargo        ResourceKind    `json:"cargo,omitempty"`
	Path         []hexgrid.Axial `json:"path,omitempty"`
	Action       Action          `json:"action"`
	LastArrived  hexgrid.Axial   `json:"lastArrivedHex"`

	VisibleTo []string `json:"-"`
}

// Hex resolves the unit's continuous position to a hex.
func (u *Unit) Hex(hexSize float64) hexgrid.Axial {
	return hexgrid.FromPixel(u.X, u.Y, hexSize)
}

// SpareCapacity returns how much more the unit can carry.
func (u *Unit) SpareCapacity() int {
	if u.Inventory >= u.MaxInventory {
		return 0
	}
	return u.MaxInventory - u.Inventory
}

// Ledger holds a player's resource totals.
type Ledger struct {
	Wood  int `json:"wood" yaml:"wood"`
	Stone int `json:"stone" yaml:"stone"`
	Scrap int `json:"scrap" yaml:"scrap"`
}

// Get returns the amount held of kind.
func (l Ledger) Get(kind ResourceKind) int {
	switch kind {
	case ResourceWood:
		return l.Wood
	case ResourceStone:
		return l.Stone
	case ResourceScrap:
		return l.Scrap
	}
	return 0
}

// Add returns a copy of l with delta applied to kind.
func (l Ledger) Add(kind ResourceKind, delta int) Ledger {
	switch kind {
	case ResourceWood:
		l.Wood += delta
	case ResourceStone:
		l.Stone += delta
	case ResourceScrap:
		l.Scrap += delta
	}
	return l
}

// Covers reports whether l holds at least cost of every resource.
func (l Ledger) Covers(cost Ledger) bool {
	return l.Wood >= cost.Wood && l.Stone >= cost.Stone && l.Scrap >= cost.Scrap
}

// Sub returns l minus cost.
func (l Ledger) Sub(cost Ledger) Ledger {
	return Ledger{Wood: l.Wood - cost.Wood, Stone: l.Stone - cost.Stone, Scrap: l.Scrap - cost.Scrap}
}

func (l Ledger) String() string {
	return fmt.Sprintf("wood=%d stone=%d scrap=%d", l.Wood, l.Stone, l.Scrap)
}

// Player is the per-session record of a participant.
type Player struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Color         string  `json:"color"`
	TotalCaptures int     `json:"totalCaptures"`
	Energy        float64 `json:"energy"`
	Ledger        Ledger  `json:"ledger"`
	Connected     bool    `json:"-"`
}

// UnitStats are the per-kind tunables of units.
type UnitStats struct {
	Speed        float64 `yaml:"speed"` // pixels per tick on plain terrain
	HarvestRate  int     `yaml:"harvest_rate"`
	MaxInventory int     `yaml:"max_inventory"`
	MaxHP        int     `yaml:"max_hp"`
}
