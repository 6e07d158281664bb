// Copyright (C) 2016, Heiko Koehler

package overlay

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/hkoehler/ledenik/internal/sense"
)

var (
	ErrNoActive  = errors.New("no active marker")
	ErrWrongMode = errors.New("not allowed in this mode")
)

// Mode of interaction with the plot
type Mode int

const (
	Viewing Mode = iota
	Moving
)

func (m Mode) String() string {
	if m == Moving {
		return "move"
	}
	return "view"
}

// Size of a marker in pixels, used to center it on a click
type Size struct {
	Width, Height float64
}

var DefaultMarkerSize = Size{Width: 40, Height: 20}

// Session is the interaction state of one page. It travels in the page URL
// and is handed to every handler explicitly.
type Session struct {
	Thing  string
	Mode   Mode
	Active string
	// Moved holds positions changed since StartMove
	Moved map[string]sense.Position
}

func NewSession(thing string) *Session {
	return &Session{Thing: thing, Moved: make(map[string]sense.Position)}
}

// ParseSession restores a session from query parameters. Unknown modes
// and malformed positions are ignored.
func ParseSession(thing string, q url.Values) *Session {
	s := NewSession(thing)
	if q.Get("mode") == Moving.String() {
		s.Mode = Moving
	}
	s.Active = q.Get("active")
	for _, v := range q["pos"] {
		id, pos, ok := strings.Cut(v, ":")
		if !ok || id == "" {
			continue
		}
		if p, ok := sense.ParsePosition(pos); ok {
			s.Moved[id] = p
		}
	}
	return s
}

// Values encodes the session, the inverse of ParseSession.
func (s *Session) Values() url.Values {
	q := url.Values{}
	if s.Mode == Moving {
		q.Set("mode", Moving.String())
	}
	if s.Active != "" {
		q.Set("active", s.Active)
	}
	ids := make([]string, 0, len(s.Moved))
	for id := range s.Moved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		q.Add("pos", id+":"+s.Moved[id].String())
	}
	return q
}

// URL of the thing page showing this session, extra parameters such as
// the history range are carried along.
func (s *Session) URL(extra url.Values) string {
	q := s.Values()
	for k, vs := range extra {
		q[k] = vs
	}
	u := "/t/" + url.PathEscape(s.Thing)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// Clone returns an independent copy, used to build links to the
// session after a transition.
func (s *Session) Clone() *Session {
	c := *s
	c.Moved = make(map[string]sense.Position, len(s.Moved))
	for id, p := range s.Moved {
		c.Moved[id] = p
	}
	return &c
}

// Select makes id the only active marker. Selecting the active marker
// again clears the selection.
func (s *Session) Select(id string) {
	if s.Active == id {
		s.Active = ""
		return
	}
	s.Active = id
}

func (s *Session) StartMove() error {
	if s.Mode != Viewing {
		return ErrWrongMode
	}
	s.Mode = Moving
	return nil
}

// MoveActive centers the active marker on the clicked point (x, y) of the
// plot image.
func (s *Session) MoveActive(x, y float64, size Size) error {
	if s.Mode != Moving {
		return ErrWrongMode
	}
	if s.Active == "" {
		return ErrNoActive
	}
	s.Moved[s.Active] = sense.Position{Top: y - size.Height/2, Left: x - size.Width/2}
	return nil
}

// SavePositions writes the moved positions into the displayables and
// returns to viewing. Ids without configuration are skipped.
func (s *Session) SavePositions(disp *sense.Displayables) error {
	if s.Mode != Moving {
		return ErrWrongMode
	}
	for id, p := range s.Moved {
		disp.SetPosition(id, p)
	}
	s.Mode = Viewing
	s.Moved = make(map[string]sense.Position)
	return nil
}

// Apply marks the active marker and shows moved markers at their new place.
func (s *Session) Apply(markers []Marker) {
	for i := range markers {
		m := &markers[i]
		m.Active = m.ID == s.Active
		if p, ok := s.Moved[m.ID]; ok {
			m.Position, m.Placed = p, true
		}
	}
}
