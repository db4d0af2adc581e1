package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

// SnapshotVersion is the current snapshot format.
const SnapshotVersion = 1

// Snapshot is the full state of one room world.
type Snapshot struct {
	Version int                 `json:"version"`
	Room    string              `json:"room"`
	SavedAt time.Time           `json:"savedAt"`
	Ticks   int64               `json:"ticks"`
	Cells   []gamemap.HexRecord `json:"cells"`
	Units   []gamemap.Unit      `json:"units"`
	Players []gamemap.Player    `json:"players"`
}

// Capture copies the state of w into a snapshot.
func Capture(w *gamemap.World, ticks int64) Snapshot {
	snap := Snapshot{
		Version: SnapshotVersion,
		Room:    w.ID,
		SavedAt: time.Now().UTC(),
		Ticks:   ticks,
	}
	w.RangeCells(func(c *gamemap.Cell) bool {
		snap.Cells = append(snap.Cells, c.Record())
		return true
	})
	w.RangeUnits(func(u *gamemap.Unit) bool {
		cp := *u
		cp.Path = append([]hexgrid.Axial(nil), u.Path...)
		cp.VisibleTo = nil
		snap.Units = append(snap.Units, cp)
		return true
	})
	for _, p := range w.Players() {
		cp := *p
		cp.Connected = false
		snap.Players = append(snap.Players, cp)
	}
	return snap
}

// Restore builds a world from the snapshot. Every player starts
// disconnected.
func (s Snapshot) Restore(rules gamemap.Rules, sink gamemap.Sink) (*gamemap.World, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	w := gamemap.New(s.Room, rules, sink)
	for _, rec := range s.Cells {
		c, err := gamemap.CellFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("cell %s: %w", rec.ID, err)
		}
		if err := w.SetCell(c); err != nil {
			return nil, fmt.Errorf("cell %s: %w", rec.ID, err)
		}
	}
	for i := range s.Players {
		p := s.Players[i]
		p.Connected = false
		w.AddPlayer(&p)
	}
	for i := range s.Units {
		u := s.Units[i]
		w.UpsertUnit(&u)
	}
	w.TakeDirty()
	return w, nil
}

// SnapshotPath returns the snapshot file of room inside dir.
func SnapshotPath(dir, room string) string {
	return filepath.Join(dir, room+".snap.zst")
}

// WriteSnapshot stores snap at path as zstd-compressed JSON. The file is
// replaced atomically.
func WriteSnapshot(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeSnapshotFile(tmp, snap); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeSnapshotFile(path string, snap Snapshot) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	if err := json.NewDecoder(bufio.NewReaderSize(dec, 256*1024)).Decode(&snap); err != nil {
		return snap, fmt.Errorf("json decode: %w", err)
	}
	return snap, nil
}

// ApplyRecords overlays stored records onto a freshly generated world.
// Players are registered disconnected.
func ApplyRecords(w *gamemap.World, hexes []gamemap.HexRecord, players []gamemap.PlayerRecord) error {
	for _, rec := range hexes {
		c, err := gamemap.CellFromRecord(rec)
		if err != nil {
			return fmt.Errorf("hex %s: %w", rec.ID, err)
		}
		if err := w.SetCell(c); err != nil {
			return fmt.Errorf("hex %s: %w", rec.ID, err)
		}
	}
	for _, rec := range players {
		if _, ok := w.Player(rec.ID); ok {
			continue
		}
		w.AddPlayer(&gamemap.Player{
			ID:            rec.ID,
			Name:          rec.Name,
			Color:         rec.Color,
			TotalCaptures: rec.TotalCaptures,
		})
	}
	w.TakeDirty()
	return nil
}
