// Copyright (C) 2016, Heiko Koehler

// Package status decides whether a thing's reported state is fresh.
package status

import (
	"time"

	"bitbucket.org/tebeka/strftime"
	"github.com/dustin/go-humanize"

	"github.com/hkoehler/ledenik/internal/sense"
)

const (
	DefaultStale      = 60 * time.Second
	DefaultStatus     = 300 * time.Second
	DefaultTimeFormat = "%Y-%m-%d %H:%M"
)

// Clock formats times for display.
type Clock struct {
	Location *time.Location
	// Format is a strftime pattern
	Format string
}

var DefaultClock = Clock{Location: time.UTC, Format: DefaultTimeFormat}

func (c Clock) Show(t time.Time) string {
	loc, format := c.Location, c.Format
	if loc == nil {
		loc = time.UTC
	}
	if format == "" {
		format = DefaultTimeFormat
	}
	s, err := strftime.Format(format, t.In(loc))
	if err != nil {
		return t.In(loc).Format(time.RFC3339)
	}
	return s
}

// Stale reports whether a report taken at reported is older than
// threshold at now. A missing timestamp is never stale.
func Stale(reported, now time.Time, threshold time.Duration) bool {
	if reported.IsZero() {
		return false
	}
	return now.Sub(reported) > threshold
}

// Banner is the connection problem warning of a thing page.
type Banner struct {
	Stale bool
	Since string
	Age   string
}

func NewBanner(reported, now time.Time, threshold time.Duration, c Clock) Banner {
	if !Stale(reported, now, threshold) {
		return Banner{}
	}
	return Banner{
		Stale: true,
		Since: c.Show(reported),
		Age:   humanize.RelTime(reported, now, "ago", "from now"),
	}
}

// State of a thing as shown on the herd page
type State int

const (
	Error State = iota
	Up
	Down
)

func (s State) String() string {
	switch s {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "error"
}

// ThingStatus summarizes a thing's last report.
type ThingStatus struct {
	State State
	// Since is the boot time when up and the last report when down
	Since     time.Time
	SinceText string
}

// Of classifies a report: no timestamp is an error, a report older than
// threshold is down, a recent report with a boot time is up.
func Of(rep *sense.Reported, now time.Time, threshold time.Duration, c Clock) ThingStatus {
	st := ThingStatus{State: Error, SinceText: "unknown"}
	ts := rep.Time()
	switch {
	case ts.IsZero():
	case now.Sub(ts) > threshold:
		st.State, st.Since = Down, ts
	case rep.State.Boot != nil && !rep.State.Boot.IsZero():
		st.State, st.Since = Up, rep.State.Boot.Time
	}
	if !st.Since.IsZero() {
		st.SinceText = c.Show(st.Since)
	}
	return st
}
