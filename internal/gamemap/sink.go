package gamemap

import "github.com/gravitas-games/hexfront/internal/hexgrid"

// HexRecord is the persisted projection of a cell.
type HexRecord struct {
	ID             string `db:"id" json:"id"`
	Owner          string `db:"owner" json:"owner"`
	Color          string `db:"color" json:"color"`
	Terrain        string `db:"terrain" json:"terrain"`
	ResourceAmount int    `db:"resource_amount" json:"resourceAmount"`
	Structure      string `db:"structure" json:"structure"`
	StructureHP    int    `db:"structure_hp" json:"structureHp"`
}

// PlayerRecord is the persisted projection of a player.
type PlayerRecord struct {
	ID            string `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	Color         string `db:"color" json:"color"`
	TotalCaptures int    `db:"total_captures" json:"totalCaptures"`
}

// Sink receives upsert requests whenever persisted state changes.
// Implementations must not block: requests are fire-and-forget and are
// expected to be idempotent.
type Sink interface {
	UpsertHex(rec HexRecord)
	UpsertPlayer(rec PlayerRecord)
}

// NopSink discards every request.
type NopSink struct{}

func (NopSink) UpsertHex(HexRecord)       {}
func (NopSink) UpsertPlayer(PlayerRecord) {}

// Record projects a cell into its persisted form.
func (c *Cell) Record() HexRecord {
	return HexRecord{
		ID:             c.Coord.Key(),
		Owner:          c.Owner,
		Color:          c.Color,
		Terrain:        string(c.Terrain),
		ResourceAmount: c.ResourceAmount,
		Structure:      string(c.Structure),
		StructureHP:    c.StructureHP,
	}
}

// CellFromRecord rebuilds a cell from its persisted form.
func CellFromRecord(rec HexRecord) (Cell, error) {
	coord, err := hexgrid.ParseKey(rec.ID)
	if err != nil {
		return Cell{}, err
	}
	terrain := Terrain(rec.Terrain)
	if terrain == "" {
		terrain = TerrainPlain
	}
	return Cell{
		Coord:          coord,
		Owner:          rec.Owner,
		Color:          rec.Color,
		Terrain:        terrain,
		ResourceAmount: rec.ResourceAmount,
		Structure:      Structure(rec.Structure),
		StructureHP:    rec.StructureHP,
	}, nil
}

// Record projects a player into its persisted form.
func (p *Player) Record() PlayerRecord {
	return PlayerRecord{ID: p.ID, Name: p.Name, Color: p.Color, TotalCaptures: p.TotalCaptures}
}

func (w *World) persistCell(c *Cell) {
	w.sink.UpsertHex(c.Record())
}

func (w *World) persistPlayer(p *Player) {
	w.sink.UpsertPlayer(p.Record())
}
