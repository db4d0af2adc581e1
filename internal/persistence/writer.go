package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/pkg/logger"
)

const (
	writerQueueSize = 8192
	writerRetries   = 3
)

// ErrWriterClosed is returned by Flush after Close.
var ErrWriterClosed = errors.New("writer closed")

// Writer is an asynchronous gamemap.Sink for one room. Upserts are queued
// without blocking, coalesced by record id and committed in one transaction
// every flush interval.
type Writer struct {
	store *Store
	room  string
	every time.Duration
	log   *logrus.Entry

	ch     chan writeReq
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool

	dropped atomic.Int64
}

type writeReq struct {
	hex    *gamemap.HexRecord
	player *gamemap.PlayerRecord
	flush  chan error
}

// NewWriter starts a writer for room. A non-positive interval defaults to
// one second.
func NewWriter(store *Store, room string, every time.Duration) *Writer {
	if every <= 0 {
		every = time.Second
	}
	w := &Writer{
		store: store,
		room:  room,
		every: every,
		log:   logger.Component("persistence").WithField("room", room),
		ch:    make(chan writeReq, writerQueueSize),
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	return w
}

// UpsertHex queues a hex record. The record is dropped when the queue is full.
func (w *Writer) UpsertHex(rec gamemap.HexRecord) {
	w.enqueue(writeReq{hex: &rec})
}

// UpsertPlayer queues a player record. The record is dropped when the queue
// is full.
func (w *Writer) UpsertPlayer(rec gamemap.PlayerRecord) {
	w.enqueue(writeReq{player: &rec})
}

func (w *Writer) enqueue(r writeReq) {
	if w.closed.Load() {
		return
	}
	select {
	case w.ch <- r:
	default:
		w.dropped.Add(1)
	}
}

// Dropped returns how many records were lost to a full queue.
func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Flush commits everything queued so far and waits for the result.
func (w *Writer) Flush(ctx context.Context) error {
	if w.closed.Load() {
		return ErrWriterClosed
	}
	done := make(chan error, 1)
	select {
	case w.ch <- writeReq{flush: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close commits pending records and stops the writer. It must not race with
// UpsertHex, UpsertPlayer or Flush.
func (w *Writer) Close() error {
	w.once.Do(func() {
		w.closed.Store(true)
		close(w.ch)
		w.wg.Wait()
	})
	return nil
}

func (w *Writer) loop() {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	hexes := make(map[string]gamemap.HexRecord)
	players := make(map[string]gamemap.PlayerRecord)
	var hexOrder, playerOrder []string

	commit := func() error {
		if len(hexOrder) == 0 && len(playerOrder) == 0 {
			return nil
		}
		hs := make([]gamemap.HexRecord, 0, len(hexOrder))
		for _, id := range hexOrder {
			hs = append(hs, hexes[id])
		}
		ps := make([]gamemap.PlayerRecord, 0, len(playerOrder))
		for _, id := range playerOrder {
			ps = append(ps, players[id])
		}
		clear(hexes)
		clear(players)
		hexOrder, playerOrder = hexOrder[:0], playerOrder[:0]
		return w.apply(hs, ps)
	}

	for {
		select {
		case r, ok := <-w.ch:
			if !ok {
				if err := commit(); err != nil {
					w.log.WithError(err).Error("final flush failed")
				}
				return
			}
			switch {
			case r.hex != nil:
				if _, seen := hexes[r.hex.ID]; !seen {
					hexOrder = append(hexOrder, r.hex.ID)
				}
				hexes[r.hex.ID] = *r.hex
			case r.player != nil:
				if _, seen := players[r.player.ID]; !seen {
					playerOrder = append(playerOrder, r.player.ID)
				}
				players[r.player.ID] = *r.player
			case r.flush != nil:
				r.flush <- commit()
			}
		case <-ticker.C:
			if err := commit(); err != nil {
				w.log.WithError(err).Error("flush failed")
			}
		}
	}
}

// apply writes one batch, retrying a bounded number of times. A batch that
// still fails is dropped.
func (w *Writer) apply(hexes []gamemap.HexRecord, players []gamemap.PlayerRecord) error {
	var err error
	for attempt := 1; attempt <= writerRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = w.store.Apply(ctx, w.room, hexes, players)
		cancel()
		if err == nil {
			w.log.WithFields(logrus.Fields{"hexes": len(hexes), "players": len(players)}).Debug("batch committed")
			return nil
		}
		w.log.WithError(err).WithField("attempt", attempt).Warn("batch commit failed")
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return err
}
