// Copyright (C) 2016, Heiko Koehler

package sense

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Reported is the state last reported by a thing.
type Reported struct {
	Timestamp Timestamp `json:"timestamp_utc"`
	State     State     `json:"state"`
}

type State struct {
	Senses map[string]Sense `json:"senses"`
	Write  map[string]Sense `json:"write"`
	Boot   *Timestamp       `json:"boot_utc,omitempty"`
}

// ParseReported decodes a reported document, an empty body is an empty state.
func ParseReported(b []byte) (*Reported, error) {
	rep := &Reported{}
	if len(bytes.TrimSpace(b)) == 0 {
		return rep, nil
	}
	if err := json.Unmarshal(b, rep); err != nil {
		return nil, fmt.Errorf("decode reported state: %w", err)
	}
	return rep, nil
}

// Time of the report, zero if the document carried none
func (r *Reported) Time() time.Time {
	if r == nil {
		return time.Time{}
	}
	return r.Timestamp.Time
}

// Actual returns the reported value of a write channel.
func (r *Reported) Actual(id string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	w, ok := r.State.Write[id]
	if !ok {
		return 0, false
	}
	return w.Value()
}

// SenseIDs returns sense ids in order, skipping the embedded time key.
func (r *Reported) SenseIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.State.Senses))
	for id := range r.State.Senses {
		if id == "time" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Desired holds the user requested modes. Everything besides the modes is
// kept as received so a single mode change round-trips the rest.
type Desired struct {
	Mode  map[string]Mode
	doc   map[string]json.RawMessage
	modes map[string]json.RawMessage
}

// ParseDesired decodes a desired document, an empty body yields no modes.
func ParseDesired(b []byte) (*Desired, error) {
	d := &Desired{
		Mode:  make(map[string]Mode),
		doc:   make(map[string]json.RawMessage),
		modes: make(map[string]json.RawMessage),
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(b, &d.doc); err != nil {
		return nil, fmt.Errorf("decode desired state: %w", err)
	}
	// a null document or null modes decode to nil maps
	if d.doc == nil {
		d.doc = make(map[string]json.RawMessage)
	}
	if raw, ok := d.doc["mode"]; ok {
		if err := json.Unmarshal(raw, &d.modes); err != nil {
			return nil, fmt.Errorf("decode desired modes: %w", err)
		}
		if d.modes == nil {
			d.modes = make(map[string]json.RawMessage)
		}
	}
	for id, raw := range d.modes {
		var m Mode
		// undecodable modes stay in the document but are not offered
		if err := json.Unmarshal(raw, &m); err == nil {
			d.Mode[id] = m
		}
	}
	return d, nil
}

// IDs of all switches with a desired mode, in order
func (d *Desired) IDs() []string {
	ids := make([]string, 0, len(d.Mode))
	for id := range d.Mode {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetMode changes a single mode and leaves the rest of the document alone.
func (d *Desired) SetMode(id string, m Mode) {
	raw, _ := m.MarshalJSON()
	d.Mode[id] = m
	d.modes[id] = raw
}

// Bytes serializes the document the way the backend stores it.
func (d *Desired) Bytes() ([]byte, error) {
	modes, err := json.Marshal(d.modes)
	if err != nil {
		return nil, err
	}
	d.doc["mode"] = modes
	return json.MarshalIndent(d.doc, "", "    ")
}

// Position of a marker on the plot image in pixels
type Position struct {
	Top  float64
	Left float64
}

// ParsePosition parses the "top,left" notation.
func ParsePosition(s string) (Position, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Position{}, false
	}
	top, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[0]), "px"), 64)
	if err != nil {
		return Position{}, false
	}
	left, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[1]), "px"), 64)
	if err != nil {
		return Position{}, false
	}
	return Position{Top: top, Left: left}, true
}

func (p Position) String() string {
	return strconv.FormatFloat(p.Top, 'f', -1, 64) + "," + strconv.FormatFloat(p.Left, 'f', -1, 64)
}

// Displayable types
const (
	TypeNumber  = "number"
	TypePercent = "percent"
	TypeSwitch  = "switch"
	TypeTemp    = "temp"
)

// Displayable is the display configuration of a sense or write.
type Displayable struct {
	Position string `json:"position,omitempty"`
	Alias    string `json:"alias,omitempty"`
	Color    string `json:"color,omitempty"`
	Type     string `json:"type,omitempty"`
	Plot     string `json:"plot,omitempty"`
	Graph    string `json:"graph,omitempty"`
}

// Displayables maps ids to their configuration. Unknown fields survive a
// position update.
type Displayables struct {
	Items map[string]Displayable
	doc   map[string]json.RawMessage
}

func ParseDisplayables(b []byte) (*Displayables, error) {
	d := &Displayables{Items: make(map[string]Displayable), doc: make(map[string]json.RawMessage)}
	if len(bytes.TrimSpace(b)) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(b, &d.doc); err != nil {
		return nil, fmt.Errorf("decode displayables: %w", err)
	}
	if d.doc == nil {
		d.doc = make(map[string]json.RawMessage)
	}
	for id, raw := range d.doc {
		var item Displayable
		if err := json.Unmarshal(raw, &item); err == nil {
			d.Items[id] = item
		}
	}
	return d, nil
}

func (d *Displayables) Get(id string) (Displayable, bool) {
	if d == nil {
		return Displayable{}, false
	}
	item, ok := d.Items[id]
	return item, ok
}

// Alias falls back to the id itself.
func (d *Displayables) Alias(id string) string {
	if item, ok := d.Get(id); ok && item.Alias != "" {
		return item.Alias
	}
	return id
}

// Color falls back to black.
func (d *Displayables) Color(id string) string {
	if item, ok := d.Get(id); ok && item.Color != "" {
		return item.Color
	}
	return "black"
}

func (d *Displayables) Plotted(id string) bool {
	item, ok := d.Get(id)
	return ok && item.Plot == "yes"
}

func (d *Displayables) Graphed(id string) bool {
	item, ok := d.Get(id)
	return ok && item.Graph == "yes"
}

func (d *Displayables) Position(id string) (Position, bool) {
	item, ok := d.Get(id)
	if !ok {
		return Position{}, false
	}
	return ParsePosition(item.Position)
}

// SetPosition rewrites the position of a configured id.
// Ids without configuration are ignored.
func (d *Displayables) SetPosition(id string, p Position) bool {
	item, ok := d.Items[id]
	if !ok {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(d.doc[id], &fields); err != nil || fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	pos, _ := json.Marshal(p.String())
	fields["position"] = pos
	raw, err := json.Marshal(fields)
	if err != nil {
		return false
	}
	item.Position = p.String()
	d.Items[id] = item
	d.doc[id] = raw
	return true
}

func (d *Displayables) Bytes() ([]byte, error) {
	return json.MarshalIndent(d.doc, "", "    ")
}
