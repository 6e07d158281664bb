// Copyright (C) 2016, Heiko Koehler

package overlay

import (
	"net/url"
	"strconv"

	"github.com/hkoehler/ledenik/internal/sense"
)

// Command is a button of the switch detail panel.
type Command struct {
	Label string
	Mode  sense.Mode
}

// Commands offered for every switch
var Commands = []Command{
	{Label: "on", Mode: sense.ModeOn},
	{Label: "off", Mode: sense.ModeOff},
	{Label: "auto", Mode: sense.ModeAuto},
}

// Detail is the panel content for the active marker.
type Detail struct {
	ID    string
	Kind  Kind
	Title string
	Text  string
	Link  string

	Actual   string
	Desired  string
	Auto     bool
	Pending  bool
	Commands []Command
}

// DetailOf describes a marker of the given thing.
func DetailOf(thing string, m Marker) Detail {
	d := Detail{
		ID:    m.ID,
		Kind:  m.Kind,
		Title: m.Alias,
		Link:  "/t/" + url.PathEscape(thing),
	}
	if m.Kind == SenseMarker {
		d.Text = m.Alias + ": " + m.Text
		return d
	}
	d.Actual = "unknown"
	if m.HasActual {
		d.Actual = strconv.FormatFloat(m.Actual, 'f', -1, 64)
	}
	d.Desired = m.Desired.String()
	d.Auto = m.Desired == sense.ModeAuto
	d.Pending = m.Pending
	d.Text = m.Alias + ": actual " + d.Actual + ", desired " + d.Desired
	if d.Auto {
		d.Text += " (auto)"
	}
	d.Commands = Commands
	return d
}
