package gamemap

// Rules are the gameplay tunables of one world.
type Rules struct {
	HexSize         float64
	UnitVision      int
	StructureVision int
	TerritoryRadius int

	MaxEnergy   float64
	EnergyRegen float64 // per regeneration step
	ClaimCost   float64

	StorageCost Ledger
	StorageHP   int

	SpawnRadius int
	StarterKind UnitKind

	Units map[UnitKind]UnitStats
}

// DefaultRules returns the reference tunables.
func DefaultRules() Rules {
	return Rules{
		HexSize:         30,
		UnitVision:      2,
		StructureVision: 3,
		TerritoryRadius: 3,
		MaxEnergy:       10,
		EnergyRegen:     0.2,
		ClaimCost:       1,
		StorageCost:     Ledger{Wood: 200},
		StorageHP:       500,
		SpawnRadius:     40,
		StarterKind:     UnitFounder,
		Units: map[UnitKind]UnitStats{
			UnitFounder: {Speed: 3, HarvestRate: 10, MaxInventory: 100, MaxHP: 100},
			UnitFarmer:  {Speed: 3, HarvestRate: 20, MaxInventory: 500, MaxHP: 60},
			UnitFighter: {Speed: 2, HarvestRate: 5, MaxInventory: 50, MaxHP: 150},
		},
	}
}

// Stats returns the stats of kind, falling back to the founder defaults.
func (r Rules) Stats(kind UnitKind) UnitStats {
	if s, ok := r.Units[kind]; ok {
		return s
	}
	return DefaultRules().Units[UnitFounder]
}
