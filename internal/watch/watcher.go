// Copyright (C) 2016, Heiko Koehler

// Package watch polls the reported state of things, confirms pending
// commands and notifies subscribers about changes.
package watch

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hkoehler/ledenik/internal/sense"
)

// Source of reported states
type Source interface {
	Reported(ctx context.Context, thing string) (*sense.Reported, error)
}

// Update is sent to subscribers when a thing changed.
type Update struct {
	Thing     string    `json:"thing"`
	Timestamp time.Time `json:"timestamp_utc"`
	Pending   []string  `json:"pending"`
	Confirmed []string  `json:"confirmed,omitempty"`
}

// Watcher keeps the latest reported state of every watched thing.
type Watcher struct {
	src      Source
	pending  *Pending
	interval time.Duration

	mu     sync.RWMutex
	latest map[string]*sense.Reported
	errs   map[string]error

	subsMu sync.Mutex
	subs   map[chan Update]struct{}

	wg sync.WaitGroup
}

func New(src Source, pending *Pending, interval time.Duration) *Watcher {
	if pending == nil {
		pending = NewPending()
	}
	return &Watcher{
		src:      src,
		pending:  pending,
		interval: interval,
		latest:   make(map[string]*sense.Reported),
		errs:     make(map[string]error),
		subs:     make(map[chan Update]struct{}),
	}
}

func (w *Watcher) Pending() *Pending {
	return w.pending
}

// Start polls every thing on its own ticker until ctx is done.
func (w *Watcher) Start(ctx context.Context, things []string) {
	if w.interval <= 0 {
		return
	}
	for _, thing := range things {
		log.WithField("thing", thing).Infof("start watching every %v", w.interval)
		ticker := time.NewTicker(w.interval)
		thing := thing
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer ticker.Stop()
			w.Poll(ctx, thing)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					w.Poll(ctx, thing)
				}
			}
		}()
	}
}

// Wait blocks until all pollers stopped.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// Poll fetches the reported state of thing once. Subscribers are notified
// when the timestamp moved or a pending command was confirmed.
func (w *Watcher) Poll(ctx context.Context, thing string) (Update, bool, error) {
	rep, err := w.src.Reported(ctx, thing)
	if err != nil {
		log.WithFields(log.Fields{"thing": thing, "op": "poll"}).Warnf("poll failed: %v", err)
		w.mu.Lock()
		w.errs[thing] = err
		w.mu.Unlock()
		return Update{}, false, err
	}

	w.mu.Lock()
	prev := w.latest[thing]
	w.latest[thing] = rep
	delete(w.errs, thing)
	w.mu.Unlock()

	confirmed := w.pending.Confirm(thing, rep)
	u := Update{
		Thing:     thing,
		Timestamp: rep.Time(),
		Pending:   w.pending.IDs(thing),
		Confirmed: confirmed,
	}
	changed := prev == nil || !prev.Time().Equal(rep.Time()) || len(confirmed) > 0
	if changed {
		log.WithField("thing", thing).Debugf("reported %v, confirmed %v", u.Timestamp, confirmed)
		w.notify(u)
	}
	return u, changed, nil
}

// Latest returns the last polled state and the error of the last poll.
func (w *Watcher) Latest(thing string) (*sense.Reported, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest[thing], w.errs[thing]
}

// Subscribe returns a channel of updates and a function to cancel it.
// Updates are dropped for a subscriber that does not keep up.
func (w *Watcher) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 16)
	w.subsMu.Lock()
	w.subs[ch] = struct{}{}
	w.subsMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.subsMu.Lock()
			delete(w.subs, ch)
			w.subsMu.Unlock()
			close(ch)
		})
	}
}

func (w *Watcher) notify(u Update) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for ch := range w.subs {
		select {
		case ch <- u:
		default:
			log.WithField("thing", u.Thing).Warn("subscriber too slow, update dropped")
		}
	}
}
