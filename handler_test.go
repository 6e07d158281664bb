// Copyright (C) 2016, Heiko Koehler

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hkoehler/ledenik/internal/backend"
	"github.com/hkoehler/ledenik/internal/chart"
	"github.com/hkoehler/ledenik/internal/history"
	"github.com/hkoehler/ledenik/internal/sense"
)

const (
	testConfig = `{"Things": [{"Name": "herd1", "Title": "Barn", "Image": "/img/barn.png"}, {"Name": "herd2"}]}`

	testDisplayables = `{
		"t1": {"position": "10,20", "alias": "Inside", "type": "temp", "plot": "yes", "graph": "yes"},
		"pump": {"position": "50,60", "type": "switch", "plot": "yes"}
	}`

	testHistory = "timestamp_utc,sense(t1),write(pump)\r\n" +
		"2017-11-30 22:05:50,20.5,0\r\n" +
		"2017-11-30 22:06:50,21.5,1\r\n" +
		"2017-11-30 22:07:50,21,1\r\n"
)

func testReported() string {
	now := time.Now().UTC()
	return `{"timestamp_utc": "` + now.Format("2006-01-02 15:04:05") + `",
		"state": {"senses": {"t1": 21.46}, "write": {"pump": 0},
		"boot_utc": "` + now.Add(-time.Hour).Format("2006-01-02 15:04:05") + `"}}`
}

// in-memory backend
type fakeBackend struct {
	reported     string
	desired      string
	displayables string
	history      string
	ranges       map[history.Query]string
	fail         error

	postedDesired      *sense.Desired
	postedDisplayables *sense.Displayables
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		reported:     testReported(),
		desired:      `{"mode": {"pump": 0}}`,
		displayables: testDisplayables,
		history:      testHistory,
	}
}

func (f *fakeBackend) Reported(ctx context.Context, thing string) (*sense.Reported, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return sense.ParseReported([]byte(f.reported))
}

func (f *fakeBackend) Desired(ctx context.Context, thing string) (*sense.Desired, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return sense.ParseDesired([]byte(f.desired))
}

func (f *fakeBackend) Displayables(ctx context.Context, thing string) (*sense.Displayables, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return sense.ParseDisplayables([]byte(f.displayables))
}

func (f *fakeBackend) History(ctx context.Context, thing string, q history.Query) (*history.Table, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if csv, ok := f.ranges[q]; ok {
		return history.Parse(strings.NewReader(csv))
	}
	return history.Parse(strings.NewReader(f.history))
}

func (f *fakeBackend) PostDesired(ctx context.Context, thing string, d *sense.Desired) error {
	if f.fail != nil {
		return f.fail
	}
	f.postedDesired = d
	return nil
}

func (f *fakeBackend) PostDisplayables(ctx context.Context, thing string, d *sense.Displayables) error {
	if f.fail != nil {
		return f.fail
	}
	f.postedDisplayables = d
	return nil
}

func newTestDaemon(t *testing.T, b Backend) *Daemon {
	t.Helper()
	conf, err := LoadConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatal(err)
	}
	return NewDaemon(conf, b)
}

func get(d *Daemon, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func post(d *Daemon, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	return rec
}

// location parses the redirect target of a response.
func location(t *testing.T, rec *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d, want redirect: %s", rec.Code, rec.Body)
	}
	u, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestThingPage(t *testing.T) {
	d := newTestDaemon(t, newFakeBackend())
	rec := get(d, "/t/herd1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Barn", `id="t1"`, "21.5°", `id="pump"`, "/img/barn.png", "<svg", `class="number"`, "Move markers"} {
		if !strings.Contains(body, want) {
			t.Errorf("page lacks %q", want)
		}
	}
	if strings.Contains(body, `class="banner"`) {
		t.Error("fresh report must not show the banner")
	}
	if d.things["herd1"].rangeScene(history.DefaultQuery).scene.Drawn().IsZero() {
		t.Error("page must draw the chart")
	}
}

func TestThingPageActive(t *testing.T) {
	d := newTestDaemon(t, newFakeBackend())
	body := get(d, "/t/herd1?active=pump").Body.String()
	if !strings.Contains(body, `action="/t/herd1/command"`) || !strings.Contains(body, `value="a"`) {
		t.Fatalf("switch detail lacks commands:\n%s", body)
	}
	if !strings.Contains(body, "displayable switch active") {
		t.Error("active marker not highlighted")
	}
}

func TestThingPageBackendDown(t *testing.T) {
	b := newFakeBackend()
	b.fail = errors.New("connection refused")
	d := newTestDaemon(t, b)
	rec := get(d, "/t/herd1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"reported state unavailable", "history unavailable"} {
		if !strings.Contains(body, want) {
			t.Errorf("page lacks notice %q", want)
		}
	}
}

func TestUnknownThing(t *testing.T) {
	d := newTestDaemon(t, newFakeBackend())
	for _, target := range []string{"/t/nope", "/t/nope/chart.svg", "/t/nope/crosshair?x=1"} {
		if rec := get(d, target); rec.Code != http.StatusNotFound {
			t.Errorf("%s: status %d", target, rec.Code)
		}
	}
}

func TestCommand(t *testing.T) {
	b := newFakeBackend()
	d := newTestDaemon(t, b)
	u := location(t, post(d, "/t/herd1/command", url.Values{"id": {"pump"}, "set": {"1"}, "active": {"pump"}, "since_days": {"7"}}))
	if u.Path != "/t/herd1" || u.Query().Get("active") != "pump" || u.Query().Get("since_days") != "7" {
		t.Fatalf("redirect %s", u)
	}
	if u.Query().Get("notice") != "" {
		t.Fatalf("notice %q", u.Query().Get("notice"))
	}
	if b.postedDesired == nil || b.postedDesired.Mode["pump"] != sense.ModeOn {
		t.Fatalf("posted %+v", b.postedDesired)
	}
	if m, ok := d.Watcher.Pending().For("herd1")["pump"]; !ok || m != sense.ModeOn {
		t.Fatal("command must be pending")
	}

	// reported pump is still off, so the marker spins
	body := get(d, "/t/herd1").Body.String()
	if !strings.Contains(body, `id="pump-loading"`) {
		t.Error("pending switch must show the spinner")
	}

	b.fail = errors.New("boom")
	u = location(t, post(d, "/t/herd1/command", url.Values{"id": {"pump"}, "set": {"0"}}))
	if u.Query().Get("notice") != "command failed" {
		t.Fatalf("redirect %s", u)
	}

	u = location(t, post(d, "/t/herd1/command", url.Values{"id": {"pump"}, "set": {"x"}}))
	if u.Query().Get("notice") != "invalid command" {
		t.Fatalf("redirect %s", u)
	}
}

func TestMoveAndSave(t *testing.T) {
	b := newFakeBackend()
	d := newTestDaemon(t, b)

	u := location(t, get(d, "/t/herd1/move?mode=move&active=t1&at.x=100&at.y=50"))
	q := u.Query()
	if q.Get("mode") != "move" || len(q["pos"]) != 1 || q["pos"][0] != "t1:40,80" {
		t.Fatalf("redirect %s", u)
	}

	u = location(t, get(d, "/t/herd1/move?active=t1&at.x=100&at.y=50"))
	if u.Query().Get("notice") == "" {
		t.Fatal("moving while viewing must fail")
	}

	u = location(t, post(d, "/t/herd1/positions", q))
	if u.Query().Get("mode") != "" || len(u.Query()["pos"]) != 0 {
		t.Fatalf("redirect %s", u)
	}
	if b.postedDisplayables == nil {
		t.Fatal("nothing posted")
	}
	if p, _ := b.postedDisplayables.Position("t1"); p != (sense.Position{Top: 40, Left: 80}) {
		t.Fatalf("saved position %+v", p)
	}
}

func TestCrosshair(t *testing.T) {
	d := newTestDaemon(t, newFakeBackend())
	if rec := get(d, "/t/herd1/crosshair?x=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	rec := get(d, "/t/herd1/crosshair?x=400")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var ch chart.Crosshair
	if err := json.Unmarshal(rec.Body.Bytes(), &ch); err != nil {
		t.Fatal(err)
	}
	if !ch.Visible || len(ch.Readings) != 1 || ch.Readings[0].ID != "t1" {
		t.Fatalf("crosshair %+v", ch)
	}
}

func TestChartAndGraph(t *testing.T) {
	b := newFakeBackend()
	d := newTestDaemon(t, b)
	for _, target := range []string{"/t/herd1/chart.svg?since_days=7", "/t/herd1/graph.svg"} {
		rec := get(d, target)
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/svg+xml" {
			t.Fatalf("%s: status %d type %q", target, rec.Code, rec.Header().Get("Content-Type"))
		}
		if !strings.Contains(rec.Body.String(), "<svg") {
			t.Fatalf("%s: no svg", target)
		}
	}
	if d.things["herd1"].rangeScene(history.Query{SinceDays: 7}).scene.Drawn().IsZero() {
		t.Fatal("chart of the requested range not drawn")
	}

	b.fail = errors.New("boom")
	if rec := get(d, "/t/herd1/graph.svg"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "no data") {
		t.Fatalf("graph fallback %d %s", rec.Code, rec.Body)
	}
}

func TestExport(t *testing.T) {
	b := newFakeBackend()
	d := newTestDaemon(t, b)
	rec := get(d, "/t/herd1/history.xlsx")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatal("export is not a zip archive")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "herd1-history.xlsx") {
		t.Fatalf("disposition %q", cd)
	}

	b.fail = errors.New("boom")
	if rec := get(d, "/t/herd1/history.xlsx"); rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHerdPage(t *testing.T) {
	d := newTestDaemon(t, newFakeBackend())
	rec := get(d, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	barn, herd2 := strings.Index(body, "Barn"), strings.Index(body, "herd2")
	if barn < 0 || herd2 < 0 || barn > herd2 {
		t.Fatalf("herd not listed in name order:\n%s", body)
	}
	if !strings.Contains(body, `class="up"`) {
		t.Error("freshly booted thing must be up")
	}
}

func TestExecuteKeepsChartOnError(t *testing.T) {
	b := newFakeBackend()
	d := newTestDaemon(t, b)
	h := d.things["herd1"]
	h.Execute(context.Background())
	scene := h.rangeScene(history.DefaultQuery).scene
	drawn := scene.Drawn()
	if drawn.IsZero() {
		t.Fatal("not drawn")
	}
	b.fail = errors.New("boom")
	h.Execute(context.Background())
	if !scene.Drawn().Equal(drawn) || len(scene.Keys()) == 0 {
		t.Fatal("failed refresh must keep the last drawing")
	}
}

func TestRangesIsolated(t *testing.T) {
	week, hour := history.Query{SinceDays: 7}, history.Query{SinceHours: 1}
	b := newFakeBackend()
	b.ranges = map[history.Query]string{
		week: "timestamp_utc,sense(t1)\n2017-11-23 22:00:00,100\n2017-11-27 22:00:00,110\n2017-11-30 22:00:00,120\n",
		hour: "timestamp_utc,sense(t1)\n2017-11-30 21:00:00,5\n2017-11-30 21:30:00,6\n2017-11-30 22:00:00,7\n",
	}
	d := newTestDaemon(t, b)
	get(d, "/t/herd1?since_days=7")
	get(d, "/t/herd1?since_hours=1")

	for _, test := range []struct {
		target string
		lo, hi float64
	}{
		{"/t/herd1/crosshair?x=400&since_days=7", 100, 120},
		{"/t/herd1/crosshair?x=400&since_hours=1", 5, 7},
	} {
		var ch chart.Crosshair
		if err := json.Unmarshal(get(d, test.target).Body.Bytes(), &ch); err != nil {
			t.Fatal(err)
		}
		if len(ch.Readings) != 1 {
			t.Fatalf("%s: readings %+v", test.target, ch.Readings)
		}
		if r := ch.Readings[0]; r.Sample < test.lo || r.Sample > test.hi {
			t.Errorf("%s: sample %v from another range", test.target, r.Sample)
		}
	}

	// the scheduler keeps every viewed range current
	b.ranges[week] = "timestamp_utc,sense(t1)\n2017-11-23 22:00:00,200\n2017-11-30 22:00:00,220\n"
	d.things["herd1"].Execute(context.Background())
	g, _ := d.things["herd1"].rangeScene(week).scene.Group(chart.Key{Category: chart.Number, ID: "t1"})
	if last := g.Series.Data[len(g.Series.Data)-1]; last.Value.Float64 != 220 {
		t.Fatalf("week range not refreshed: %+v", last)
	}
	if g, _ := d.things["herd1"].rangeScene(hour).scene.Group(chart.Key{Category: chart.Number, ID: "t1"}); len(g.Series.Data) != 3 {
		t.Fatalf("hour range changed: %+v", g.Series.Data)
	}
}

func TestRangeEviction(t *testing.T) {
	d := newTestDaemon(t, newFakeBackend())
	h := d.things["herd1"]
	for i := 1; i <= maxScenes+3; i++ {
		h.rangeScene(history.Query{SinceDays: i})
	}
	ranges := h.Ranges()
	if len(ranges) != maxScenes {
		t.Fatalf("%d ranges retained", len(ranges))
	}
	found := false
	for _, q := range ranges {
		found = found || q == history.DefaultQuery
	}
	if !found {
		t.Fatal("default range evicted")
	}
}

// full round trip through the HTTP backend client
func TestBackendClient(t *testing.T) {
	var posted url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/db/herd1/reported":
			w.Write([]byte(testReported()))
		case "/db/herd1/desired":
			if r.Method == http.MethodPost {
				r.ParseForm()
				posted = r.PostForm
				return
			}
			w.Write([]byte(`{"mode": {"pump": 0}}`))
		case "/db/herd1/displayables":
			w.Write([]byte(testDisplayables))
		case "/db/herd1/history":
			w.Write([]byte(testHistory))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := backend.New(srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	d := newTestDaemon(t, c)
	if rec := get(d, "/t/herd1"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "21.5°") {
		t.Fatalf("page %d", rec.Code)
	}
	location(t, post(d, "/t/herd1/command", url.Values{"id": {"pump"}, "set": {"a"}}))
	des, err := sense.ParseDesired([]byte(posted.Get("value")))
	if err != nil {
		t.Fatal(err)
	}
	if des.Mode["pump"] != sense.ModeAuto {
		t.Fatalf("posted %v", posted)
	}
}
