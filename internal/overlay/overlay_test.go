// Copyright (C) 2016, Heiko Koehler

package overlay

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/hkoehler/ledenik/internal/sense"
)

const testDisplayables = `{
	"t1": {"position": "10,20", "alias": "Inside", "type": "temp", "plot": "yes"},
	"h1": {"position": "30,40", "type": "percent", "plot": "yes", "color": "blue"},
	"raw": {"plot": "yes"},
	"hidden": {"plot": "no"},
	"pump": {"position": "50,60", "type": "switch", "plot": "yes"},
	"fan": {"type": "switch", "plot": "yes"},
	"heater": {"type": "switch", "plot": "yes"}
}`

func mustDocs(t *testing.T, reported, desired string) (*sense.Reported, *sense.Desired, *sense.Displayables) {
	t.Helper()
	rep, err := sense.ParseReported([]byte(reported))
	if err != nil {
		t.Fatal(err)
	}
	des, err := sense.ParseDesired([]byte(desired))
	if err != nil {
		t.Fatal(err)
	}
	disp, err := sense.ParseDisplayables([]byte(testDisplayables))
	if err != nil {
		t.Fatal(err)
	}
	return rep, des, disp
}

func TestPlaceSenses(t *testing.T) {
	rep, des, disp := mustDocs(t,
		`{"state": {"senses": {"t1": 21.46, "h1": {"value": 40}, "raw": "n/a", "hidden": 1, "time": "22:05"}}}`,
		``)
	markers := Place(rep, des, disp, nil)
	if len(markers) != 3 {
		t.Fatalf("got %d markers: %+v", len(markers), markers)
	}
	want := []struct{ id, text string }{{"h1", "40.0%"}, {"raw", "n/a"}, {"t1", "21.5°"}}
	for i, w := range want {
		if markers[i].ID != w.id || markers[i].Text != w.text {
			t.Errorf("marker %d = %s %q, want %s %q", i, markers[i].ID, markers[i].Text, w.id, w.text)
		}
	}
	if m := markers[2]; m.Alias != "Inside" || m.Position != (sense.Position{Top: 10, Left: 20}) || !m.Placed {
		t.Fatalf("t1 marker %+v", m)
	}
	if markers[1].Placed || markers[1].Color != "black" {
		t.Fatalf("raw marker %+v", markers[1])
	}
}

func TestSwitchRules(t *testing.T) {
	tests := []struct {
		name     string
		desired  string
		actual   string
		pending  bool
		toggle   bool
		checked  bool
		auto     bool
		inFlight bool
	}{
		{"on confirmed", `1`, `1`, false, true, true, false, false},
		{"off confirmed", `0`, `0`, false, true, false, false, false},
		{"mismatch", `1`, `0`, false, false, false, false, true},
		{"auto on", `"a"`, `1`, false, true, true, true, false},
		{"auto off", `"a"`, `0`, false, true, false, true, false},
		{"auto unreported", `"a"`, ``, false, true, false, true, false},
		{"unreported", `1`, ``, false, false, false, false, true},
		{"pending", `1`, `1`, true, false, true, false, true},
	}
	for _, test := range tests {
		reported := `{"state": {"write": {}}}`
		if test.actual != "" {
			reported = `{"state": {"write": {"pump": ` + test.actual + `}}}`
		}
		rep, des, disp := mustDocs(t, reported, `{"mode": {"pump": `+test.desired+`}}`)
		var pending map[string]sense.Mode
		if test.pending {
			pending = map[string]sense.Mode{"pump": sense.ModeOn}
		}
		markers := Place(rep, des, disp, pending)
		if len(markers) != 1 {
			t.Fatalf("%s: got %d markers", test.name, len(markers))
		}
		m := markers[0]
		if m.Kind != SwitchMarker {
			t.Fatalf("%s: kind %v", test.name, m.Kind)
		}
		if m.Toggle != test.toggle || m.Checked != test.checked || m.Auto != test.auto || m.Pending != test.inFlight {
			t.Errorf("%s: toggle=%v checked=%v auto=%v pending=%v", test.name, m.Toggle, m.Checked, m.Auto, m.Pending)
		}
	}
}

func TestUntypedDesired(t *testing.T) {
	rep, des, disp := mustDocs(t, `{"state": {"write": {"raw": 0}}}`, `{"mode": {"raw": 1, "pump": 1}}`)
	markers := Place(rep, des, disp, map[string]sense.Mode{"raw": sense.ModeOn})
	raw, ok := Find(markers, "raw")
	if !ok {
		t.Fatal("raw marker missing")
	}
	if raw.Control || raw.Toggle || raw.Pending || raw.Text != "0.0" {
		t.Fatalf("untyped entry rendered as switch: %+v", raw)
	}
	if pump, _ := Find(markers, "pump"); !pump.Control || !pump.Pending {
		t.Fatalf("pump %+v", pump)
	}
}

func TestSelectExclusive(t *testing.T) {
	s := NewSession("herd1")
	s.Select("a")
	s.Select("b")
	if s.Active != "b" {
		t.Fatalf("active %q", s.Active)
	}
	markers := []Marker{{ID: "a"}, {ID: "b"}}
	s.Apply(markers)
	if markers[0].Active || !markers[1].Active {
		t.Fatalf("markers %+v", markers)
	}
	s.Select("b")
	if s.Active != "" {
		t.Fatalf("selecting the active marker must clear, got %q", s.Active)
	}
}

func TestMoveMode(t *testing.T) {
	s := NewSession("herd1")
	if err := s.MoveActive(10, 10, DefaultMarkerSize); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("move while viewing: %v", err)
	}
	if err := s.StartMove(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartMove(); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("second start: %v", err)
	}
	if err := s.MoveActive(10, 10, DefaultMarkerSize); !errors.Is(err, ErrNoActive) {
		t.Fatalf("move without active: %v", err)
	}
	s.Select("t1")
	if err := s.MoveActive(100, 50, Size{Width: 40, Height: 20}); err != nil {
		t.Fatal(err)
	}
	if p := s.Moved["t1"]; p != (sense.Position{Top: 40, Left: 80}) {
		t.Fatalf("moved to %+v", p)
	}

	disp, _ := sense.ParseDisplayables([]byte(testDisplayables))
	if err := s.SavePositions(disp); err != nil {
		t.Fatal(err)
	}
	if s.Mode != Viewing || len(s.Moved) != 0 {
		t.Fatalf("session after save %+v", s)
	}
	if p, _ := disp.Position("t1"); p != (sense.Position{Top: 40, Left: 80}) {
		t.Fatalf("saved position %+v", p)
	}
	if err := s.SavePositions(disp); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("save while viewing: %v", err)
	}
}

func TestSessionURL(t *testing.T) {
	s := NewSession("herd 1")
	s.StartMove()
	s.Select("t1")
	s.Moved["t1"] = sense.Position{Top: 1.5, Left: 2}
	s.Moved["h1"] = sense.Position{Top: 3, Left: 4}

	u, err := url.Parse(s.URL(url.Values{"since_days": {"7"}}))
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/t/herd 1" {
		t.Fatalf("path %q", u.Path)
	}
	if u.Query().Get("since_days") != "7" {
		t.Fatalf("extra parameters lost: %s", u)
	}
	back := ParseSession("herd 1", u.Query())
	if back.Mode != Moving || back.Active != "t1" || len(back.Moved) != 2 || back.Moved["t1"] != s.Moved["t1"] {
		t.Fatalf("round trip %+v", back)
	}

	c := s.Clone()
	c.Select("h1")
	c.Moved["h1"] = sense.Position{}
	if s.Active != "t1" || s.Moved["h1"] != (sense.Position{Top: 3, Left: 4}) {
		t.Fatal("clone shares state")
	}

	if NewSession("x").URL(nil) != "/t/x" {
		t.Fatal("viewing session without state has a bare url")
	}
}

func TestDetail(t *testing.T) {
	d := DetailOf("herd1", Marker{ID: "t1", Alias: "Inside", Text: "21.5°"})
	if d.Text != "Inside: 21.5°" || d.Link != "/t/herd1" || len(d.Commands) != 0 {
		t.Fatalf("sense detail %+v", d)
	}
	d = DetailOf("herd1", Marker{ID: "pump", Kind: SwitchMarker, Alias: "pump", Desired: sense.ModeAuto, Actual: 1, HasActual: true})
	if d.Actual != "1" || d.Desired != "a" || !d.Auto || len(d.Commands) != 3 {
		t.Fatalf("switch detail %+v", d)
	}
}

type fakeStore struct {
	desired      string
	displayables string
	posted       []byte
	fail         error
}

func (f *fakeStore) Desired(ctx context.Context, thing string) (*sense.Desired, error) {
	return sense.ParseDesired([]byte(f.desired))
}

func (f *fakeStore) PostDesired(ctx context.Context, thing string, d *sense.Desired) error {
	if f.fail != nil {
		return f.fail
	}
	b, err := d.Bytes()
	f.posted = b
	return err
}

func (f *fakeStore) Displayables(ctx context.Context, thing string) (*sense.Displayables, error) {
	return sense.ParseDisplayables([]byte(f.displayables))
}

func (f *fakeStore) PostDisplayables(ctx context.Context, thing string, d *sense.Displayables) error {
	if f.fail != nil {
		return f.fail
	}
	b, err := d.Bytes()
	f.posted = b
	return err
}

type expectations map[string]sense.Mode

func (e expectations) Expect(thing, id string, m sense.Mode) {
	e[thing+"/"+id] = m
}

func TestSendCommand(t *testing.T) {
	store := &fakeStore{desired: `{"mode": {"pump": 1, "fan": 0}}`}
	exp := expectations{}
	if err := SendCommand(context.Background(), store, exp, "herd1", "fan", sense.ModeAuto); err != nil {
		t.Fatal(err)
	}
	des, err := sense.ParseDesired(store.posted)
	if err != nil {
		t.Fatal(err)
	}
	if des.Mode["fan"] != sense.ModeAuto || des.Mode["pump"] != sense.ModeOn {
		t.Fatalf("posted %s", store.posted)
	}
	if exp["herd1/fan"] != sense.ModeAuto {
		t.Fatalf("pending %v", exp)
	}

	store.fail = errors.New("boom")
	exp = expectations{}
	if err := SendCommand(context.Background(), store, exp, "herd1", "fan", sense.ModeOn); !errors.Is(err, store.fail) {
		t.Fatalf("error %v", err)
	}
	if len(exp) != 0 {
		t.Fatal("failed command must not be pending")
	}
}

func TestSubmitPositions(t *testing.T) {
	store := &fakeStore{displayables: testDisplayables, fail: errors.New("boom")}
	s := NewSession("herd1")
	s.StartMove()
	s.Select("pump")
	s.MoveActive(20, 10, Size{})

	if err := SubmitPositions(context.Background(), store, s); err == nil {
		t.Fatal("expected error")
	}
	if s.Mode != Moving || len(s.Moved) != 1 {
		t.Fatal("failed submit must keep move mode")
	}

	store.fail = nil
	if err := SubmitPositions(context.Background(), store, s); err != nil {
		t.Fatal(err)
	}
	disp, err := sense.ParseDisplayables(store.posted)
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := disp.Position("pump"); p != (sense.Position{Top: 10, Left: 20}) {
		t.Fatalf("posted position %+v", p)
	}
	if s.Mode != Viewing {
		t.Fatal("session must return to viewing")
	}
}
