package sim

import (
	"os"
	"testing"

	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
	"github.com/gravitas-games/hexfront/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

type recorder struct {
	events []Event
}

func (r *recorder) Notify(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) of(kind EventKind) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() { r.events = nil }

// newTestEngine returns an engine over an empty world with alice and bob
// connected and no units.
func newTestEngine(t *testing.T, rules gamemap.Rules) (*Engine, *recorder) {
	t.Helper()
	w := gamemap.New("test", rules, nil)
	w.JoinPlayer("alice", "Alice", "#e94560")
	w.JoinPlayer("bob", "Bob", "#533483")
	rec := &recorder{}
	return NewEngine(w, rec, WithSeed(7)), rec
}

func mustSetCell(t *testing.T, w *gamemap.World, c gamemap.Cell) {
	t.Helper()
	if c.Owner == "" {
		c.Owner = gamemap.NeutralOwner
	}
	if err := w.SetCell(c); err != nil {
		t.Fatalf("SetCell(%v): %v", c.Coord, err)
	}
}

func storageAt(t *testing.T, w *gamemap.World, at hexgrid.Axial, owner string) {
	t.Helper()
	mustSetCell(t, w, gamemap.Cell{
		Coord:       at,
		Owner:       owner,
		Terrain:     gamemap.TerrainPlain,
		Structure:   gamemap.StructureStorage,
		StructureHP: 500,
	})
}

// checkUnitInvariants verifies the action machine invariants of every unit.
func checkUnitInvariants(t *testing.T, w *gamemap.World) {
	t.Helper()
	w.RangeUnits(func(u *gamemap.Unit) bool {
		if len(u.Path) > 0 && u.Action != gamemap.ActionMoving && u.Action != gamemap.ActionReturning {
			t.Fatalf("unit %s has path %v while %s", u.ID, u.Path, u.Action)
		}
		if u.Action == gamemap.ActionMoving && len(u.Path) == 0 {
			t.Fatalf("unit %s moving without a path", u.ID)
		}
		if u.Action == gamemap.ActionHarvesting {
			c, ok := w.Cell(u.LastArrived)
			if !ok || c.ResourceAmount <= 0 || u.SpareCapacity() == 0 {
				t.Fatalf("unit %s harvesting an empty cell or while full", u.ID)
			}
		}
		if u.Inventory < 0 || u.Inventory > u.MaxInventory {
			t.Fatalf("unit %s inventory %d out of range", u.ID, u.Inventory)
		}
		return true
	})
}
