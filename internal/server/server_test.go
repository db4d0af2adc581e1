package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/hexfront/internal/config"
	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
	"github.com/gravitas-games/hexfront/internal/network"
	"github.com/gravitas-games/hexfront/internal/persistence"
)

func newTestServer(t *testing.T, tweaks ...func(*config.Config)) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "game.db")
	cfg.Database.FlushIntervalMs = 50
	cfg.Snapshot.Dir = filepath.Join(dir, "snapshots")
	cfg.Session.MapRadius = 10
	cfg.Game.SpawnRadius = 5
	for _, tweak := range tweaks {
		tweak(cfg)
	}

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, typ string, payload interface{}) {
	t.Helper()
	if err := ws.WriteJSON(map[string]interface{}{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// await reads until a message of type typ arrives.
func await(t *testing.T, ws *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m sentMessage
		if err := ws.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if m.Type == typ {
			return m.Payload
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts, "name=Alice")
	send(t, ws, network.MsgTypeJoin, map[string]string{})

	var welcome network.WelcomePayload
	json.Unmarshal(await(t, ws, network.MsgTypeWelcome), &welcome)
	if welcome.PlayerID != "guest:alice" || welcome.Username != "Alice" || welcome.RoomID != "hex_game" {
		t.Fatalf("unexpected welcome %+v", welcome)
	}

	var delta network.StateDeltaPayload
	json.Unmarshal(await(t, ws, network.MsgTypeStateDelta), &delta)
	if len(delta.Units) != 1 || delta.Units[0].Owner != welcome.PlayerID {
		t.Fatalf("expected the starter unit in the first delta, got %+v", delta.Units)
	}

	send(t, ws, network.MsgTypeClaimHex, map[string]interface{}{"q": "x", "r": 0})
	var e network.ErrorPayload
	json.Unmarshal(await(t, ws, network.MsgTypeError), &e)
	if e.Code != "invalid_payload" {
		t.Fatalf("expected invalid_payload, got %+v", e)
	}

	send(t, ws, network.MsgTypeClaimHex, map[string]interface{}{"q": 0, "r": 0})
	var energy network.EnergyPayload
	json.Unmarshal(await(t, ws, network.MsgTypeEnergyUpdate), &energy)
	if energy.Energy != 9 {
		t.Fatalf("claim left energy at %d", energy.Energy)
	}

	send(t, ws, network.MsgTypeChat, map[string]string{"message": "hello"})
	var chat network.ChatBroadcastPayload
	json.Unmarshal(await(t, ws, network.MsgTypeChatBroadcast), &chat)
	if chat.Message != "hello" || chat.Username != "Alice" {
		t.Fatalf("unexpected chat %+v", chat)
	}
}

func TestRoomsAreIsolated(t *testing.T) {
	srv, ts := newTestServer(t)
	a := dial(t, ts, "name=Alice&room=north")
	send(t, a, network.MsgTypeJoin, nil)
	var welcome network.WelcomePayload
	json.Unmarshal(await(t, a, network.MsgTypeWelcome), &welcome)
	if welcome.RoomID != "north" {
		t.Fatalf("joined room %q", welcome.RoomID)
	}

	b := dial(t, ts, "name=Bob&room=..%2Fescape")
	send(t, b, network.MsgTypeJoin, nil)
	json.Unmarshal(await(t, b, network.MsgTypeWelcome), &welcome)
	if welcome.RoomID != "hex_game" {
		t.Fatalf("unsafe room name not replaced: %q", welcome.RoomID)
	}

	north, err := srv.Room("north")
	if err != nil {
		t.Fatal(err)
	}
	def, _ := srv.Room("hex_game")
	if north == def {
		t.Fatalf("rooms share state")
	}
}

func TestHealthAndLeaderboard(t *testing.T) {
	srv, ts := newTestServer(t)
	ctx := context.Background()
	hexes := []gamemap.HexRecord{
		{ID: "0,0", Owner: "a", Color: "#e94560", Terrain: "plain"},
		{ID: "1,0", Owner: "a", Color: "#e94560", Terrain: "plain"},
		{ID: "2,0", Owner: "b", Color: "#533483", Terrain: "plain"},
	}
	players := []gamemap.PlayerRecord{
		{ID: "a", Name: "Alice", Color: "#e94560", TotalCaptures: 5},
		{ID: "b", Name: "Bob", Color: "#533483", TotalCaptures: 9},
	}
	if err := srv.store.Apply(ctx, "arena", hexes, players); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health healthResponse
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health.Status != "ok" || health.Hexes != 3 || health.Players != 2 || health.Rooms != 1 {
		t.Fatalf("unexpected health %+v", health)
	}

	resp, err = http.Get(ts.URL + "/leaderboard?room=arena")
	if err != nil {
		t.Fatal(err)
	}
	var board []persistence.LeaderboardEntry
	json.NewDecoder(resp.Body).Decode(&board)
	resp.Body.Close()
	if len(board) != 2 || board[0].Name != "Alice" || board[0].HexCount != 2 || board[1].Name != "Bob" {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	resp, err = http.Get(ts.URL + "/leaderboard?room=empty")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	board = nil
	json.NewDecoder(resp.Body).Decode(&board)
	if board == nil || len(board) != 0 {
		t.Fatalf("expected an empty list, got %+v", board)
	}
}

func TestShutdownWritesSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	room, _ := srv.Room(srv.config.Session.DefaultRoom)
	done := make(chan struct{})
	room.Submit(func() {
		room.world.JoinPlayer("alice", "Alice", "#e94560")
		room.world.ClaimHex(hexgrid.Axial{}, "alice", "#e94560")
		close(done)
	})
	<-done
	room.Stop()

	snap, err := persistence.ReadSnapshot(persistence.SnapshotPath(srv.config.Snapshot.Dir, room.ID))
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap.Players) != 1 || snap.Players[0].Name != "Alice" {
		t.Fatalf("snapshot players %+v", snap.Players)
	}

	hexes, err := srv.store.LoadHexes(context.Background(), room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hexes) != 1 || hexes[0].Owner != "alice" {
		t.Fatalf("claim not flushed on stop: %+v", hexes)
	}
}

func TestRoomLimitAndIdleReaping(t *testing.T) {
	srv, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Session.MaxRooms = 2
		cfg.Session.RoomIdleSeconds = 60
	})
	def, _ := srv.Room("hex_game")

	ws := dial(t, ts, "name=Alice&room=north")
	send(t, ws, network.MsgTypeJoin, nil)
	await(t, ws, network.MsgTypeWelcome)

	resp, err := http.Get(ts.URL + "/ws?name=Bob&room=south")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("room beyond the limit got status %d", resp.StatusCode)
	}

	later := time.Now().Add(time.Hour)
	if n := srv.reapIdle(later); n != 0 {
		t.Fatalf("reaped %d rooms with a connected player", n)
	}

	ws.Close()
	deadline := time.Now().Add(5 * time.Second)
	for srv.reapIdle(later) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("north never became idle")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if _, err := persistence.ReadSnapshot(persistence.SnapshotPath(srv.config.Snapshot.Dir, "north")); err != nil {
		t.Fatalf("reaped room left no snapshot: %v", err)
	}
	if again, _ := srv.Room("hex_game"); again != def {
		t.Fatalf("default room was replaced")
	}

	south := dial(t, ts, "name=Bob&room=south")
	send(t, south, network.MsgTypeJoin, nil)
	var welcome network.WelcomePayload
	json.Unmarshal(await(t, south, network.MsgTypeWelcome), &welcome)
	if welcome.RoomID != "south" {
		t.Fatalf("joined %q after a slot was freed", welcome.RoomID)
	}
}
