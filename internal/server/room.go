package server

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexfront/internal/config"
	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/network"
	"github.com/gravitas-games/hexfront/internal/persistence"
	"github.com/gravitas-games/hexfront/internal/sim"
	"github.com/gravitas-games/hexfront/pkg/logger"
)

// Room is one independent game world. All world access happens on the
// room goroutine; connections hand work over through Submit.
type Room struct {
	ID        string
	CreatedAt time.Time

	cfg    *config.Config
	log    *logrus.Entry
	world  *gamemap.World
	engine *sim.Engine
	writer *persistence.Writer
	view   *projector
	rng    *rand.Rand

	// Owned by the room goroutine.
	conns       map[string]*Connection // playerID -> Connection
	pendingFull map[string]bool

	cmds   chan func()
	done   chan struct{}
	cancel context.CancelFunc

	playerCount atomic.Int32
	serverTick  atomic.Int64
	snapshotMu  sync.Mutex
}

// NewRoom restores or generates the world of room id and starts its loop.
// store may be nil, in which case nothing is persisted to SQLite.
func NewRoom(ctx context.Context, id string, cfg *config.Config, store *persistence.Store) (*Room, error) {
	log := logger.Component("room").WithField("room", id)

	world, err := loadWorld(ctx, id, cfg, store, log)
	if err != nil {
		return nil, err
	}

	r := &Room{
		ID:          id,
		CreatedAt:   time.Now(),
		cfg:         cfg,
		log:         log,
		world:       world,
		view:        newProjector(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		conns:       make(map[string]*Connection),
		pendingFull: make(map[string]bool),
		cmds:        make(chan func(), 256),
		done:        make(chan struct{}),
	}
	if store != nil {
		r.writer = persistence.NewWriter(store, id, time.Duration(cfg.Database.FlushIntervalMs)*time.Millisecond)
		world.SetSink(r.writer)
	}
	r.engine = sim.NewEngine(world, r,
		sim.WithSeed(cfg.Session.Seed),
		sim.WithLogger(logger.Component("sim").WithField("room", id)))

	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)

	log.WithFields(logrus.Fields{"cells": world.CellCount(), "units": world.UnitCount()}).Info("room started")
	return r, nil
}

// loadWorld prefers the room snapshot. Without one the map is generated
// from the seed and stored records are applied on top.
func loadWorld(ctx context.Context, id string, cfg *config.Config, store *persistence.Store, log *logrus.Entry) (*gamemap.World, error) {
	rules := cfg.Rules()
	if cfg.Snapshot.Dir != "" {
		path := persistence.SnapshotPath(cfg.Snapshot.Dir, id)
		snap, err := persistence.ReadSnapshot(path)
		switch {
		case err == nil:
			w, err := snap.Restore(rules, nil)
			if err == nil {
				log.WithField("path", path).Info("restored from snapshot")
				return w, nil
			}
			log.WithError(err).Warn("snapshot unusable, regenerating")
		case !errors.Is(err, os.ErrNotExist):
			log.WithError(err).Warn("failed to read snapshot, regenerating")
		}
	}

	w := gamemap.New(id, rules, nil)
	gamemap.Generate(w, cfg.GenConfig())
	if store == nil {
		return w, nil
	}
	hexes, err := store.LoadHexes(ctx, id)
	if err != nil {
		return nil, err
	}
	players, err := store.LoadPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := persistence.ApplyRecords(w, hexes, players); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *Room) run(ctx context.Context) {
	defer close(r.done)

	tick := time.NewTicker(time.Second / time.Duration(r.cfg.Server.TickRate))
	defer tick.Stop()
	regen := time.NewTicker(time.Second / time.Duration(r.cfg.Server.RegenRate))
	defer regen.Stop()

	var snapC <-chan time.Time
	if r.cfg.Snapshot.EverySeconds > 0 && r.cfg.Snapshot.Dir != "" {
		t := time.NewTicker(time.Duration(r.cfg.Snapshot.EverySeconds) * time.Second)
		defer t.Stop()
		snapC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case fn := <-r.cmds:
			fn()
		case <-tick.C:
			r.engine.Tick()
			r.broadcastDelta()
		case <-regen.C:
			r.engine.Regenerate()
		case <-snapC:
			snap := persistence.Capture(r.world, r.engine.Ticks())
			go r.writeSnapshot(snap)
		}
	}
}

func (r *Room) shutdown() {
	for _, c := range r.conns {
		c.Close()
	}
	r.writeSnapshot(persistence.Capture(r.world, r.engine.Ticks()))
	if r.writer != nil {
		r.writer.Close()
	}
	r.log.Info("room stopped")
}

func (r *Room) writeSnapshot(snap persistence.Snapshot) {
	if r.cfg.Snapshot.Dir == "" {
		return
	}
	r.snapshotMu.Lock()
	defer r.snapshotMu.Unlock()
	path := persistence.SnapshotPath(r.cfg.Snapshot.Dir, r.ID)
	if err := persistence.WriteSnapshot(path, snap); err != nil {
		r.log.WithError(err).Error("failed to write snapshot")
		return
	}
	r.log.WithField("path", path).Debug("snapshot written")
}

// Submit queues fn to run on the room goroutine. It returns false once the
// room has stopped.
func (r *Room) Submit(fn func()) bool {
	select {
	case r.cmds <- fn:
		return true
	case <-r.done:
		return false
	}
}

// Stop ends the room loop, writes the final snapshot and flushes pending
// records.
func (r *Room) Stop() {
	r.cancel()
	<-r.done
}

// Done is closed once the room has stopped.
func (r *Room) Done() <-chan struct{} { return r.done }

// Status returns the current room status
func (r *Room) Status() network.SessionStatus {
	state := "waiting"
	if r.playerCount.Load() > 0 {
		state = "running"
	}
	return network.SessionStatus{
		State:       state,
		PlayerCount: int(r.playerCount.Load()),
		MaxPlayers:  r.cfg.Session.MaxPlayers,
		ServerTick:  r.serverTick.Load(),
		Uptime:      int64(time.Since(r.CreatedAt).Seconds()),
	}
}

// --- Room goroutine only ---

func (r *Room) join(c *Connection, displayName string) {
	id := c.player.ID
	if old, ok := r.conns[id]; ok && old != c {
		old.SendError("replaced", "Connected from another location")
		old.Close()
	} else if !ok && len(r.conns) >= r.cfg.Session.MaxPlayers {
		c.SendError("room_full", "Room is full")
		return
	}
	r.conns[id] = c
	r.playerCount.Store(int32(len(r.conns)))

	color := gamemap.RandomColor(r.rng)
	if p, ok := r.world.Player(id); ok && p.Color != "" {
		color = p.Color
	}
	name := c.player.Username
	if displayName != "" {
		name = displayName
	}

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			PlayerID:      id,
			Username:      name,
			Color:         color,
			RoomID:        r.ID,
			HexSize:       r.world.Rules().HexSize,
			SessionStatus: r.Status(),
		},
	})
	p := r.engine.Join(id, name, color)
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypePlayerInfo,
		Payload: network.PlayerInfoPayload{
			Name:          p.Name,
			Color:         p.Color,
			TotalCaptures: p.TotalCaptures,
		},
	})
	r.pendingFull[id] = true

	r.broadcastExcept(c, &network.ServerMessage{
		Type:    network.MsgTypePlayerJoined,
		Payload: network.PlayerJoinedPayload{PlayerID: id, Username: p.Name, Color: p.Color},
	})
	r.log.WithFields(logrus.Fields{"player": id, "name": p.Name}).Info("player joined")
}

func (r *Room) leave(c *Connection) {
	id := c.player.ID
	if r.conns[id] != c {
		return
	}
	delete(r.conns, id)
	delete(r.pendingFull, id)
	r.playerCount.Store(int32(len(r.conns)))
	r.engine.Leave(id)
	r.view.forget(id)

	r.broadcast(&network.ServerMessage{
		Type:    network.MsgTypePlayerLeft,
		Payload: network.PlayerLeftPayload{PlayerID: id, Username: c.player.Username},
	})
	r.log.WithField("player", id).Info("player left")
}

// joined reports whether c is the live connection of its player.
func (r *Room) joined(c *Connection) bool {
	return r.conns[c.player.ID] == c
}

func (r *Room) dispatch(c *Connection, cmd sim.Command) {
	if !r.joined(c) {
		c.SendError("not_joined", "Join the room first")
		return
	}
	cmd.Player = c.player.ID
	r.engine.Dispatch(cmd)
}

func (r *Room) chat(c *Connection, message string) {
	if !r.joined(c) {
		return
	}
	name := c.player.Username
	if p, ok := r.world.Player(c.player.ID); ok {
		name = p.Name
	}
	r.broadcast(&network.ServerMessage{
		Type: network.MsgTypeChatBroadcast,
		Payload: network.ChatBroadcastPayload{
			PlayerID:  c.player.ID,
			Username:  name,
			Message:   message,
			Timestamp: time.Now().Unix(),
		},
	})
}

// broadcastDelta sends every connected player the changes visible to them.
func (r *Room) broadcastDelta() {
	cells, units := r.world.TakeDirty()
	tick := r.engine.Ticks()
	r.serverTick.Store(tick)

	for id, c := range r.conns {
		var d network.StateDeltaPayload
		if r.pendingFull[id] {
			delete(r.pendingFull, id)
			d = r.view.full(r.world, id, tick)
		} else {
			d = r.view.delta(id, tick, cells, units)
		}
		if empty(d) {
			continue
		}
		c.SendMessage(&network.ServerMessage{Type: network.MsgTypeStateDelta, Payload: d})
	}
}

func (r *Room) broadcast(msg *network.ServerMessage) {
	for _, c := range r.conns {
		c.SendMessage(msg)
	}
}

func (r *Room) broadcastExcept(exclude *Connection, msg *network.ServerMessage) {
	for _, c := range r.conns {
		if c != exclude {
			c.SendMessage(msg)
		}
	}
}

// Notify delivers engine events to the addressed player. It runs on the room
// goroutine as part of a tick or command.
func (r *Room) Notify(ev sim.Event) {
	c, ok := r.conns[ev.Player]
	if !ok {
		return
	}
	msg := &network.ServerMessage{}
	switch ev.Kind {
	case sim.EventEnergy:
		msg.Type = network.MsgTypeEnergyUpdate
		msg.Payload = network.EnergyPayload{Energy: ev.Energy}
	case sim.EventLedger:
		msg.Type = network.MsgTypeLedgerUpdate
		msg.Payload = network.LedgerPayload{Wood: ev.Ledger.Wood, Stone: ev.Ledger.Stone, Scrap: ev.Ledger.Scrap}
	case sim.EventHarvest, sim.EventDeposit:
		msg.Type = network.MsgTypeHarvest
		if ev.Kind == sim.EventDeposit {
			msg.Type = network.MsgTypeDeposit
		}
		msg.Payload = network.FeedbackPayload{
			UnitID:   ev.UnitID,
			Q:        ev.Coord.Q,
			R:        ev.Coord.R,
			Resource: string(ev.Resource),
			Amount:   ev.Amount,
		}
	case sim.EventBuilt:
		msg.Type = network.MsgTypeBuildOK
		msg.Payload = network.BuildOKPayload{UnitID: ev.UnitID, Q: ev.Coord.Q, R: ev.Coord.R}
	case sim.EventError:
		msg.Type = network.MsgTypeError
		msg.Payload = network.ErrorPayload{Code: ev.Code, Message: ev.Message}
	default:
		r.log.WithField("kind", ev.Kind).Warn("unhandled event")
		return
	}
	c.SendMessage(msg)
}
