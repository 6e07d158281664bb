// Copyright (C) 2016, Heiko Koehler

// Package overlay places live readings and switches on a thing's plot image
// and implements the interaction with them: selection, commands and moving
// markers around.
package overlay

import (
	"fmt"

	"github.com/hkoehler/ledenik/internal/sense"
)

// Kind of marker
type Kind int

const (
	SenseMarker Kind = iota
	SwitchMarker
)

func (k Kind) String() string {
	if k == SwitchMarker {
		return "switch"
	}
	return "sense"
}

// Marker is one annotation on the plot image.
type Marker struct {
	ID       string
	Kind     Kind
	Alias    string
	Color    string
	Type     string
	Position sense.Position
	// Placed is false when the configuration has no valid position
	Placed bool
	Active bool

	// sense markers
	Text  string
	Wrong bool

	// switch markers, Control is set for the switch type only
	Control   bool
	Desired   sense.Mode
	Actual    float64
	HasActual bool
	// Toggle shows the on/off switch, otherwise the pending spinner
	Toggle  bool
	Checked bool
	Auto    bool
	Pending bool
}

// Place builds the markers of all plotted senses followed by all plotted
// switches, each group in id order. pending holds commands not yet
// confirmed by a reported state. Desired entries not typed as switch show
// their actual value as text instead of a toggle.
func Place(rep *sense.Reported, des *sense.Desired, disp *sense.Displayables, pending map[string]sense.Mode) []Marker {
	var markers []Marker
	for _, id := range rep.SenseIDs() {
		if !disp.Plotted(id) {
			continue
		}
		m := newMarker(id, SenseMarker, disp)
		s := rep.State.Senses[id]
		m.Text = senseText(s, m.Type)
		m.Wrong = s.Wrong()
		markers = append(markers, m)
	}
	if des == nil {
		return markers
	}
	for _, id := range des.IDs() {
		if !disp.Plotted(id) {
			continue
		}
		m := newMarker(id, SwitchMarker, disp)
		m.Desired = des.Mode[id]
		m.Actual, m.HasActual = rep.Actual(id)
		if m.Type != sense.TypeSwitch {
			m.Text = "unknown"
			if m.HasActual {
				m.Text = fmt.Sprintf("%.1f", m.Actual)
			}
			markers = append(markers, m)
			continue
		}
		m.Control = true
		_, inFlight := pending[id]
		switchState(&m, inFlight)
		markers = append(markers, m)
	}
	return markers
}

func newMarker(id string, kind Kind, disp *sense.Displayables) Marker {
	item, _ := disp.Get(id)
	m := Marker{
		ID:    id,
		Kind:  kind,
		Alias: disp.Alias(id),
		Color: disp.Color(id),
		Type:  item.Type,
	}
	m.Position, m.Placed = disp.Position(id)
	return m
}

func senseText(s sense.Sense, typ string) string {
	v, ok := s.Value()
	if !ok {
		return s.String()
	}
	text := fmt.Sprintf("%.1f", v)
	switch typ {
	case sense.TypePercent:
		text += "%"
	case sense.TypeTemp:
		text += "°"
	}
	return text
}

// switchState applies the display rule: auto always shows the toggle with a
// badge, a confirmed mode shows the toggle, anything else is in flight.
func switchState(m *Marker, inFlight bool) {
	m.Checked = m.HasActual && m.Actual == 1
	switch {
	case m.Desired == sense.ModeAuto:
		m.Toggle, m.Auto = true, true
	case !inFlight && m.HasActual && m.Desired.Matches(m.Actual):
		m.Toggle = true
	default:
		m.Pending = true
	}
}

// Find returns the marker with the given id.
func Find(markers []Marker, id string) (Marker, bool) {
	for _, m := range markers {
		if m.ID == id {
			return m, true
		}
	}
	return Marker{}, false
}
