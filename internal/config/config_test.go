package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gravitas-games/hexfront/internal/gamemap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.TickRate != 10 || cfg.Server.RegenRate != 1 {
		t.Errorf("rates = %d/%d", cfg.Server.TickRate, cfg.Server.RegenRate)
	}
	if cfg.Session.DefaultRoom != "hex_game" || cfg.Session.MapRadius != 60 {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Session.MaxRooms != 8 || cfg.Session.RoomIdleSeconds != 600 {
		t.Errorf("room limits = %d/%d", cfg.Session.MaxRooms, cfg.Session.RoomIdleSeconds)
	}
	if cfg.Game.StorageCost != (gamemap.Ledger{Wood: 200}) {
		t.Errorf("storage cost = %s", cfg.Game.StorageCost)
	}
	if len(cfg.Game.Units) != 3 {
		t.Errorf("units = %v", cfg.Game.Units)
	}
}

func TestLoadOverridesUnitStats(t *testing.T) {
	body := `
game:
  claim_cost: 2
  units:
    fighter: { speed: 1.5, harvest_rate: 4, max_inventory: 40, max_hp: 200 }
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatal(err)
	}
	rules := cfg.Rules()
	if rules.ClaimCost != 2 {
		t.Errorf("claim cost = %g", rules.ClaimCost)
	}
	if got := rules.Stats(gamemap.UnitFighter); got.Speed != 1.5 || got.MaxHP != 200 {
		t.Errorf("fighter = %+v", got)
	}
	if got := rules.Stats(gamemap.UnitFarmer); got.HarvestRate != 20 {
		t.Errorf("farmer default lost: %+v", got)
	}
}

func TestDefaultMatchesRules(t *testing.T) {
	rules := Default().Rules()
	def := gamemap.DefaultRules()
	if rules.HexSize != def.HexSize || rules.UnitVision != 2 || rules.StructureVision != 3 || rules.TerritoryRadius != 3 {
		t.Fatalf("rules = %+v", rules)
	}
	if rules.MaxEnergy != 10 || rules.EnergyRegen != 0.2 || rules.StarterKind != gamemap.UnitFounder {
		t.Fatalf("energy rules = %+v", rules)
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "server.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Snapshot.EverySeconds != 300 || cfg.JWT.PublicKeyURL != "" {
		t.Fatalf("unexpected shipped config: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
