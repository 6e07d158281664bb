// Copyright (C) 2016, Heiko Koehler

package watch

import (
	"sort"
	"sync"
	"time"

	"github.com/hkoehler/ledenik/internal/sense"
)

// Entry is a command issued but not yet seen in a reported state.
type Entry struct {
	Thing  string
	ID     string
	Mode   sense.Mode
	Issued time.Time
}

// Pending tracks issued commands per thing and switch. A newer command for
// the same switch replaces the older one.
type Pending struct {
	mu      sync.Mutex
	entries map[string]map[string]Entry
	now     func() time.Time
}

func NewPending() *Pending {
	return &Pending{entries: make(map[string]map[string]Entry), now: time.Now}
}

// Expect records a command.
func (p *Pending) Expect(thing, id string, m sense.Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	byID, ok := p.entries[thing]
	if !ok {
		byID = make(map[string]Entry)
		p.entries[thing] = byID
	}
	byID[id] = Entry{Thing: thing, ID: id, Mode: m, Issued: p.now()}
}

// For returns the unconfirmed modes of a thing.
func (p *Pending) For(thing string) map[string]sense.Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	modes := make(map[string]sense.Mode, len(p.entries[thing]))
	for id, e := range p.entries[thing] {
		modes[id] = e.Mode
	}
	return modes
}

// IDs of unconfirmed switches of a thing, in order
func (p *Pending) IDs(thing string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.entries[thing]))
	for id := range p.entries[thing] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Confirm drops every entry of thing the reported state satisfies: auto
// requests, and switches whose actual value matches the requested mode.
// It returns the confirmed ids in order.
func (p *Pending) Confirm(thing string, rep *sense.Reported) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var confirmed []string
	for id, e := range p.entries[thing] {
		actual, ok := rep.Actual(id)
		if e.Mode == sense.ModeAuto || (ok && e.Mode.Matches(actual)) {
			delete(p.entries[thing], id)
			confirmed = append(confirmed, id)
		}
	}
	if len(p.entries[thing]) == 0 {
		delete(p.entries, thing)
	}
	sort.Strings(confirmed)
	return confirmed
}

// Expire drops entries issued before now minus maxAge and returns how many.
func (p *Pending) Expire(maxAge time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-maxAge)
	n := 0
	for thing, byID := range p.entries {
		for id, e := range byID {
			if e.Issued.Before(cutoff) {
				delete(byID, id)
				n++
			}
		}
		if len(byID) == 0 {
			delete(p.entries, thing)
		}
	}
	return n
}
