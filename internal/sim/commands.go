package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
	"github.com/gravitas-games/hexfront/internal/pathfind"
)

// CommandKind names a player command.
type CommandKind string

const (
	CmdClaimHex       CommandKind = "claim_hex"
	CmdMoveUnit       CommandKind = "move_unit"
	CmdBuildStructure CommandKind = "build_structure"
)

// Command is a player request as received from the session layer.
// Coordinates are raw client numbers and are validated on dispatch.
type Command struct {
	Kind   CommandKind
	Player string
	UnitID string
	Q, R   float64
}

// Dispatch executes cmd. Invalid input is dropped; every other failure is
// reported to the issuing player as an error event. The error is returned
// either way.
func (e *Engine) Dispatch(cmd Command) error {
	var err error
	switch cmd.Kind {
	case CmdClaimHex:
		err = e.ClaimHex(cmd.Player, cmd.Q, cmd.R)
	case CmdMoveUnit:
		err = e.MoveUnit(cmd.Player, cmd.UnitID, cmd.Q, cmd.R)
	case CmdBuildStructure:
		err = e.BuildStructure(cmd.Player, cmd.UnitID, cmd.Q, cmd.R)
	default:
		err = fmt.Errorf("%w: unknown command %q", gamemap.ErrInvalidInput, cmd.Kind)
	}
	if err != nil {
		e.reject(cmd, err)
	}
	return err
}

func (e *Engine) reject(cmd Command, err error) {
	e.log.WithFields(logrus.Fields{
		"player":  cmd.Player,
		"command": cmd.Kind,
	}).WithError(err).Debug("command rejected")
	if errors.Is(err, gamemap.ErrInvalidInput) {
		return
	}
	e.notify.Notify(Event{
		Player:  cmd.Player,
		Kind:    EventError,
		Code:    gamemap.ReasonCode(err),
		Message: err.Error(),
	})
}

// ParseCoord validates raw client coordinates and rounds them to a hex.
func ParseCoord(q, r float64) (hexgrid.Axial, error) {
	if math.IsNaN(q) || math.IsNaN(r) || math.IsInf(q, 0) || math.IsInf(r, 0) {
		return hexgrid.Axial{}, fmt.Errorf("%w: non-finite coordinate", gamemap.ErrInvalidInput)
	}
	if math.Abs(q) > pathfind.SearchLimit || math.Abs(r) > pathfind.SearchLimit {
		return hexgrid.Axial{}, fmt.Errorf("%w: (%g,%g) out of range", gamemap.ErrInvalidInput, q, r)
	}
	return hexgrid.Axial{Q: roundHalfUp(q), R: roundHalfUp(r)}, nil
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ClaimHex spends energy to take ownership of a hex.
func (e *Engine) ClaimHex(player string, q, r float64) error {
	at, err := ParseCoord(q, r)
	if err != nil {
		return err
	}
	p, ok := e.world.Player(player)
	if !ok {
		return fmt.Errorf("%w: %s", gamemap.ErrUnknownPlayer, player)
	}
	cost := e.world.Rules().ClaimCost
	if p.Energy < cost {
		return fmt.Errorf("%w: not enough energy (have %d, need %g)", gamemap.ErrInsufficientResources, int(p.Energy), cost)
	}
	changed, err := e.world.ClaimHex(at, player, p.Color)
	if err != nil || !changed {
		return err
	}
	p.Energy -= cost
	e.notifyEnergy(p)
	return nil
}

// MoveUnit replaces the path of a unit with a fresh route to the target hex.
// Progress toward any previous target is discarded.
func (e *Engine) MoveUnit(player, unitID string, q, r float64) error {
	goal, err := ParseCoord(q, r)
	if err != nil {
		return err
	}
	u, err := e.ownedUnit(player, unitID)
	if err != nil {
		return err
	}
	from := e.world.UnitHex(u)
	path, ok := pathfind.FindPath(from, goal, MoveCost(e.world, player), e.pathOpts...)
	if !ok {
		return fmt.Errorf("%w: %v to %v", gamemap.ErrPathNotFound, from, goal)
	}

	u.Path = trimStart(path, from)
	u.Action = gamemap.ActionMoving
	if len(u.Path) == 0 {
		// Already on the target: settle on its center before deciding.
		u.X, u.Y = hexgrid.ToPixel(from, e.world.Rules().HexSize)
		u.LastArrived = from
		u.Action = gamemap.ActionIdle
		e.arrive(u, from)
		return nil
	}
	e.world.MarkUnitDirty(u.ID)
	return nil
}

// BuildStructure places a storage structure on behalf of one of the
// player's units and then recomputes territory.
func (e *Engine) BuildStructure(player, unitID string, q, r float64) error {
	at, err := ParseCoord(q, r)
	if err != nil {
		return err
	}
	if _, err := e.ownedUnit(player, unitID); err != nil {
		return err
	}
	if err := e.world.BuildStructure(at, player, e.world.Rules().StorageCost); err != nil {
		return err
	}
	claimed := ApplyTerritory(e.world)
	e.log.WithFields(logrus.Fields{
		"player":    player,
		"at":        at,
		"territory": claimed,
	}).Info("structure built")

	e.notify.Notify(Event{Player: player, Kind: EventBuilt, Coord: at, UnitID: unitID})
	e.notifyLedger(player)
	return nil
}

func (e *Engine) ownedUnit(player, unitID string) (*gamemap.Unit, error) {
	u, ok := e.world.Unit(unitID)
	if !ok || u.Owner != player {
		return nil, fmt.Errorf("%w: unit %q", gamemap.ErrNotOwned, unitID)
	}
	return u, nil
}

// Join connects a player and seeds a starter unit when the player owns
// none. The player's energy and ledger are sent right away.
func (e *Engine) Join(id, name, color string) *gamemap.Player {
	p := e.world.JoinPlayer(id, name, color)
	if len(e.world.UnitsOwnedBy(id)) == 0 {
		rules := e.world.Rules()
		at := e.spawnHex(id)
		u := e.world.SpawnUnit(id, rules.StarterKind, at)
		e.log.WithFields(logrus.Fields{"player": id, "unit": u.ID, "at": at}).Info("starter unit spawned")
	}
	e.notifyEnergy(p)
	e.notifyLedger(id)
	return p
}

// Leave disconnects a player. Units and ledger stay in the world.
func (e *Engine) Leave(id string) {
	e.world.LeavePlayer(id)
}

// spawnHex picks a stable ring position for player and walks outward to the
// nearest plain cell without a structure.
func (e *Engine) spawnHex(player string) hexgrid.Axial {
	radius := e.world.Rules().SpawnRadius
	origin := hexgrid.PickOnRing(hexgrid.Axial{}, radius, e.seed, player)
	for k := 0; k <= radius; k++ {
		for _, a := range hexgrid.Ring(origin, k) {
			c, ok := e.world.Cell(a)
			if !ok || (c.Terrain == gamemap.TerrainPlain && c.Structure == gamemap.StructureNone) {
				return a
			}
		}
	}
	return origin
}
