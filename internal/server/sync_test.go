package server

import (
	"testing"

	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
	"github.com/gravitas-games/hexfront/internal/sim"
)

func TestProjectorDelta(t *testing.T) {
	w := gamemap.New("test", gamemap.DefaultRules(), nil)
	for _, a := range hexgrid.Disk(hexgrid.Axial{}, 6) {
		w.EnsureCell(a)
	}
	w.JoinPlayer("alice", "Alice", "#e94560")
	w.JoinPlayer("bob", "Bob", "#533483")
	mine := w.SpawnUnit("alice", gamemap.UnitFounder, hexgrid.Axial{})
	theirs := w.SpawnUnit("bob", gamemap.UnitFounder, hexgrid.Axial{Q: 2})
	sim.UpdateVisibility(w)
	cells, units := w.TakeDirty()

	p := newProjector()
	d := p.delta("alice", 1, cells, units)
	if len(d.Cells) != 19 {
		t.Fatalf("alice should see 19 cells, got %d", len(d.Cells))
	}
	views := make(map[string]bool)
	for _, v := range d.Units {
		views[v.ID] = v.Inventory != nil
	}
	if private, ok := views[mine.ID]; !ok || !private {
		t.Fatalf("own unit missing or without private fields: %+v", d.Units)
	}
	if private, ok := views[theirs.ID]; !ok || private {
		t.Fatalf("foreign unit missing or leaking private fields: %+v", d.Units)
	}

	theirs.X, theirs.Y = hexgrid.ToPixel(hexgrid.Axial{Q: 6}, w.Rules().HexSize)
	w.MarkUnitDirty(theirs.ID)
	sim.UpdateVisibility(w)
	cells, units = w.TakeDirty()

	d = p.delta("alice", 2, cells, units)
	if len(d.HiddenUnits) != 1 || d.HiddenUnits[0] != theirs.ID {
		t.Fatalf("expected %s hidden, got %v", theirs.ID, d.HiddenUnits)
	}
	for _, v := range d.Units {
		if v.ID == theirs.ID {
			t.Fatalf("hidden unit still projected")
		}
	}
	if d = p.delta("alice", 3, cells, units); len(d.HiddenUnits) != 0 {
		t.Fatalf("unit hidden twice: %v", d.HiddenUnits)
	}
}

func TestProjectorFull(t *testing.T) {
	w := gamemap.New("test", gamemap.DefaultRules(), nil)
	w.JoinPlayer("bob", "Bob", "#533483")
	u := w.SpawnUnit("bob", gamemap.UnitFarmer, hexgrid.Axial{Q: 30, R: -4})
	if _, err := w.ClaimHex(hexgrid.Axial{Q: -9, R: 9}, "bob", "#533483"); err != nil {
		t.Fatal(err)
	}

	p := newProjector()
	d := p.full(w, "bob", 7)
	if d.Tick != 7 || len(d.Units) != 1 || d.Units[0].ID != u.ID {
		t.Fatalf("unexpected full view %+v", d)
	}
	if len(d.Cells) != 1 || d.Cells[0].Owner != "bob" {
		t.Fatalf("owned cell missing from full view: %+v", d.Cells)
	}
	if empty(p.full(w, "carol", 7)) != true {
		t.Fatalf("a player with nothing in view should get an empty delta")
	}
}
