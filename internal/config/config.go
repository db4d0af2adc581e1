package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/hexfront/internal/gamemap"
)

// Config holds all server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Chat     ChatConfig     `yaml:"chat"`
	Database DatabaseConfig `yaml:"database"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Game     GameConfig     `yaml:"game"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TickRate  int    `yaml:"tick_rate"`  // Hz, movement and actions
	RegenRate int    `yaml:"regen_rate"` // Hz, energy regeneration
}

// JWTConfig holds JWT authentication settings. An empty PublicKeyURL
// disables token checks and takes the player name from the query string.
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings. An empty address disables the
// token blacklist.
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
}

// SessionConfig holds game session settings
type SessionConfig struct {
	MaxPlayers      int    `yaml:"max_players"` // per room
	DefaultRoom     string `yaml:"default_room"`
	MaxRooms        int    `yaml:"max_rooms"`         // live rooms, default room included
	RoomIdleSeconds int    `yaml:"room_idle_seconds"` // empty rooms are stopped after this
	MapRadius       int    `yaml:"map_radius"`        // generated hexes around the origin
	Seed            int64  `yaml:"seed"`
}

// ChatConfig holds chat system settings
type ChatConfig struct {
	MaxMessageLength int `yaml:"max_message_length"`
	RateLimit        int `yaml:"rate_limit"` // messages per minute
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path            string `yaml:"path"`
	FlushIntervalMs int    `yaml:"flush_interval_ms"`
}

// SnapshotConfig controls periodic world snapshots. Zero EverySeconds only
// writes a snapshot when a room stops.
type SnapshotConfig struct {
	Dir          string `yaml:"dir"`
	EverySeconds int    `yaml:"every_seconds"`
}

// GameConfig holds gameplay tunables
type GameConfig struct {
	HexSize         float64                                `yaml:"hex_size"`
	UnitVision      int                                    `yaml:"unit_vision"`
	StructureVision int                                    `yaml:"structure_vision"`
	TerritoryRadius int                                    `yaml:"territory_radius"`
	MaxEnergy       float64                                `yaml:"max_energy"`
	EnergyRegen     float64                                `yaml:"energy_regen"`
	ClaimCost       float64                                `yaml:"claim_cost"`
	StorageCost     gamemap.Ledger                         `yaml:"storage_cost"`
	StorageHP       int                                    `yaml:"storage_hp"`
	SpawnRadius     int                                    `yaml:"spawn_radius"`
	Units           map[gamemap.UnitKind]gamemap.UnitStats `yaml:"units"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills every zero field.
func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 2567
	}
	if cfg.Server.TickRate == 0 {
		cfg.Server.TickRate = 10
	}
	if cfg.Server.RegenRate == 0 {
		cfg.Server.RegenRate = 1
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.BlacklistPrefix == "" {
		cfg.Redis.BlacklistPrefix = "jwt:blacklist:"
	}
	if cfg.Chat.MaxMessageLength == 0 {
		cfg.Chat.MaxMessageLength = 500
	}
	if cfg.Chat.RateLimit == 0 {
		cfg.Chat.RateLimit = 10
	}
	if cfg.Session.MaxPlayers == 0 {
		cfg.Session.MaxPlayers = 100
	}
	if cfg.Session.DefaultRoom == "" {
		cfg.Session.DefaultRoom = "hex_game"
	}
	if cfg.Session.MaxRooms == 0 {
		cfg.Session.MaxRooms = 8
	}
	if cfg.Session.RoomIdleSeconds == 0 {
		cfg.Session.RoomIdleSeconds = 600
	}
	if cfg.Session.MapRadius == 0 {
		cfg.Session.MapRadius = gamemap.DefaultGenConfig().Radius
	}
	if cfg.Session.Seed == 0 {
		cfg.Session.Seed = gamemap.DefaultGenConfig().Seed
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/game.db"
	}
	if cfg.Database.FlushIntervalMs == 0 {
		cfg.Database.FlushIntervalMs = 1000
	}
	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = "./data/snapshots"
	}

	def := gamemap.DefaultRules()
	g := &cfg.Game
	if g.HexSize == 0 {
		g.HexSize = def.HexSize
	}
	if g.UnitVision == 0 {
		g.UnitVision = def.UnitVision
	}
	if g.StructureVision == 0 {
		g.StructureVision = def.StructureVision
	}
	if g.TerritoryRadius == 0 {
		g.TerritoryRadius = def.TerritoryRadius
	}
	if g.MaxEnergy == 0 {
		g.MaxEnergy = def.MaxEnergy
	}
	if g.EnergyRegen == 0 {
		g.EnergyRegen = def.EnergyRegen
	}
	if g.ClaimCost == 0 {
		g.ClaimCost = def.ClaimCost
	}
	if g.StorageCost == (gamemap.Ledger{}) {
		g.StorageCost = def.StorageCost
	}
	if g.StorageHP == 0 {
		g.StorageHP = def.StorageHP
	}
	if g.SpawnRadius == 0 {
		g.SpawnRadius = def.SpawnRadius
	}
	if g.Units == nil {
		g.Units = make(map[gamemap.UnitKind]gamemap.UnitStats)
	}
	for kind, stats := range def.Units {
		if _, ok := g.Units[kind]; !ok {
			g.Units[kind] = stats
		}
	}
}

// Rules converts the game section into world rules.
func (cfg *Config) Rules() gamemap.Rules {
	g := cfg.Game
	units := make(map[gamemap.UnitKind]gamemap.UnitStats, len(g.Units))
	for kind, stats := range g.Units {
		units[kind] = stats
	}
	return gamemap.Rules{
		HexSize:         g.HexSize,
		UnitVision:      g.UnitVision,
		StructureVision: g.StructureVision,
		TerritoryRadius: g.TerritoryRadius,
		MaxEnergy:       g.MaxEnergy,
		EnergyRegen:     g.EnergyRegen,
		ClaimCost:       g.ClaimCost,
		StorageCost:     g.StorageCost,
		StorageHP:       g.StorageHP,
		SpawnRadius:     g.SpawnRadius,
		StarterKind:     gamemap.UnitFounder,
		Units:           units,
	}
}

// GenConfig returns the map generation parameters.
func (cfg *Config) GenConfig() gamemap.GenConfig {
	gen := gamemap.DefaultGenConfig()
	gen.Radius = cfg.Session.MapRadius
	gen.Seed = cfg.Session.Seed
	return gen
}
