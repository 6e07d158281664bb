// Copyright (C) 2016, Heiko Koehler
// define the HTTP request handlers of the dashboard
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/hkoehler/ledenik/internal/chart"
	"github.com/hkoehler/ledenik/internal/history"
	"github.com/hkoehler/ledenik/internal/overlay"
	"github.com/hkoehler/ledenik/internal/sense"
	"github.com/hkoehler/ledenik/internal/status"
	"github.com/hkoehler/ledenik/internal/watch"
)

var (
	masterTempl *template.Template
	thingTempl  *template.Template
	herdTempl   *template.Template
)

// Registry entry is a page of the dashboard
type Handler interface {
	// refresh cached state, called by the scheduler
	Execute(ctx context.Context)
	Path() string
	Name() string
	PollInterval() time.Duration
}

// Common implementation of registry entries
type HandlerImpl struct {
	path         string
	name         string
	pollInterval time.Duration
}

func (entry HandlerImpl) Path() string {
	return entry.path
}

func (entry HandlerImpl) Name() string {
	return entry.name
}

func (entry HandlerImpl) PollInterval() time.Duration {
	return entry.pollInterval
}

// Backend stores the documents and history of all things.
type Backend interface {
	Reported(ctx context.Context, thing string) (*sense.Reported, error)
	Desired(ctx context.Context, thing string) (*sense.Desired, error)
	Displayables(ctx context.Context, thing string) (*sense.Displayables, error)
	History(ctx context.Context, thing string, q history.Query) (*history.Table, error)
	PostDesired(ctx context.Context, thing string, d *sense.Desired) error
	PostDisplayables(ctx context.Context, thing string, d *sense.Displayables) error
}

// Daemon wires the handlers of all configured things.
type Daemon struct {
	Config   *Config
	Backend  Backend
	Watcher  *watch.Watcher
	Hub      *watch.Hub
	Registry map[string]Handler
	Router   *mux.Router

	things  map[string]*ThingHandler
	handler http.Handler
}

func NewDaemon(conf *Config, b Backend) *Daemon {
	d := &Daemon{
		Config:   conf,
		Backend:  b,
		Watcher:  watch.New(b, watch.NewPending(), conf.poll),
		Hub:      watch.NewHub(),
		Registry: make(map[string]Handler),
		Router:   mux.NewRouter(),
		things:   make(map[string]*ThingHandler),
	}
	for _, thing := range conf.Things {
		h := NewThingHandler(d, thing)
		d.things[thing.Name] = h
		d.RegisterHandler(h)
	}
	d.RegisterHandler(NewRootHandler(d))
	d.routes()
	return d
}

// register handler
func (d *Daemon) RegisterHandler(entry Handler) {
	d.Registry[entry.Path()] = entry
}

func (d *Daemon) routes() {
	r := d.Router
	r.Use(logRequests)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/", d.Registry["/"].(*RootHandler)).Methods(http.MethodGet)

	for _, route := range []struct {
		path   string
		method string
		fn     func(*ThingHandler, http.ResponseWriter, *http.Request)
	}{
		{"", http.MethodGet, (*ThingHandler).ServePage},
		{"/chart.svg", http.MethodGet, (*ThingHandler).ServeChart},
		{"/crosshair", http.MethodGet, (*ThingHandler).ServeCrosshair},
		{"/graph.svg", http.MethodGet, (*ThingHandler).ServeGraph},
		{"/history.xlsx", http.MethodGet, (*ThingHandler).ServeExport},
		{"/move", http.MethodGet, (*ThingHandler).ServeMove},
		{"/command", http.MethodPost, (*ThingHandler).ServeCommand},
		{"/positions", http.MethodPost, (*ThingHandler).ServePositions},
		{"/live", http.MethodGet, (*ThingHandler).ServeLive},
	} {
		r.HandleFunc("/t/{thing}"+route.path, d.thing(route.fn)).Methods(route.method)
	}
	d.handler = instrument(r)
}

func (d *Daemon) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	d.handler.ServeHTTP(w, req)
}

// thing resolves the thing of a route to its handler.
func (d *Daemon) thing(fn func(*ThingHandler, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		name := mux.Vars(req)["thing"]
		h, ok := d.things[name]
		if !ok {
			http.Error(w, fmt.Sprintf("%v: %s", ErrUnknownThing, name), http.StatusNotFound)
			return
		}
		fn(h, w, req)
	}
}

// Things returns the thing handlers in name order.
func (d *Daemon) Things() []*ThingHandler {
	things := make([]*ThingHandler, 0, len(d.things))
	for _, h := range d.things {
		things = append(things, h)
	}
	sort.Slice(things, func(i, j int) bool { return things[i].thing.Name < things[j].thing.Name })
	return things
}

// HTTP handlers of a single thing
type ThingHandler struct {
	HandlerImpl
	d     *Daemon
	thing *ThingConfig

	mu     sync.Mutex
	scenes map[history.Query]*rangeScene
}

// maximum number of history ranges with a retained scene
const maxScenes = 8

// rangeScene is the retained chart of one history range. mu serializes
// fetch, redraw and render so a viewer sees the drawing of its own request.
type rangeScene struct {
	mu    sync.Mutex
	scene *chart.Scene
	used  time.Time
}

func NewThingHandler(d *Daemon, thing *ThingConfig) *ThingHandler {
	h := &ThingHandler{
		HandlerImpl: HandlerImpl{"/t/" + url.PathEscape(thing.Name), thing.DisplayName(), d.Config.refresh},
		d:           d,
		thing:       thing,
		scenes:      make(map[history.Query]*rangeScene),
	}
	h.rangeScene(history.DefaultQuery)
	return h
}

func (h *ThingHandler) logger(op string) *log.Entry {
	return log.WithFields(log.Fields{"thing": h.thing.Name, "op": op})
}

// rangeScene returns the scene of q, the least recently used range is
// dropped when too many are retained. The default range is always kept.
func (h *ThingHandler) rangeScene(q history.Query) *rangeScene {
	h.mu.Lock()
	defer h.mu.Unlock()
	rs, ok := h.scenes[q]
	if !ok {
		if len(h.scenes) >= maxScenes {
			var oldest history.Query
			var first time.Time
			for k, v := range h.scenes {
				if k != history.DefaultQuery && (first.IsZero() || v.used.Before(first)) {
					oldest, first = k, v.used
				}
			}
			delete(h.scenes, oldest)
		}
		rs = &rangeScene{scene: chart.NewScene(chart.DefaultLayout)}
		h.scenes[q] = rs
	}
	rs.used = time.Now()
	return rs
}

// Ranges returns the history ranges with a retained scene.
func (h *ThingHandler) Ranges() []history.Query {
	h.mu.Lock()
	defer h.mu.Unlock()
	qs := make([]history.Query, 0, len(h.scenes))
	for q := range h.scenes {
		qs = append(qs, q)
	}
	return qs
}

// redraw all retained ranges
func (h *ThingHandler) Execute(ctx context.Context) {
	for _, q := range h.Ranges() {
		rs := h.rangeScene(q)
		rs.mu.Lock()
		h.refresh(ctx, rs.scene, q)
		rs.mu.Unlock()
	}
}

// refresh fetches the history of q and redraws scene. On failure the
// previous drawing stays. The caller holds the range lock.
func (h *ThingHandler) refresh(ctx context.Context, scene *chart.Scene, q history.Query) error {
	tbl, err := h.d.Backend.History(ctx, h.thing.Name, q)
	if err != nil {
		h.logger("history").Warnf("fetch history: %v", err)
		fetchErrors.WithLabelValues(h.thing.Name, "history").Inc()
		return err
	}
	disp := h.displayables(ctx)
	diff := scene.Redraw(chart.BuildSeries(tbl, disp))
	countRedraw(diff)
	h.logger("redraw").Debugf("%v: %d entered, %d updated, %d exited", q.Duration(), len(diff.Entered), len(diff.Updated), len(diff.Exited))
	return nil
}

// displayables of the thing, empty when the backend fails
func (h *ThingHandler) displayables(ctx context.Context) *sense.Displayables {
	disp, err := h.d.Backend.Displayables(ctx, h.thing.Name)
	if err != nil {
		h.logger("displayables").Warnf("fetch displayables: %v", err)
		fetchErrors.WithLabelValues(h.thing.Name, "displayables").Inc()
		disp, _ = sense.ParseDisplayables(nil)
	}
	return disp
}

// drawChart redraws the scene of q and renders it in one go.
func (h *ThingHandler) drawChart(ctx context.Context, q history.Query, failNotice string) template.HTML {
	rs := h.rangeScene(q)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	notice := ""
	if err := h.refresh(ctx, rs.scene, q); err != nil {
		notice = failNotice
	}
	var buf bytes.Buffer
	opts := chart.RenderOptions{
		Location:  h.d.Config.location,
		HoverStep: h.d.Config.HoverStep,
		Notice:    notice,
		Morph:     true,
	}
	if err := rs.scene.Render(&buf, opts); err != nil {
		h.logger("render").Errorf("render chart: %v", err)
		return ""
	}
	return template.HTML(buf.String())
}

type markerView struct {
	overlay.Marker
	Switch bool
	Href   string
	Style  template.CSS
}

type hiddenField struct {
	Name, Value string
}

type rangeLink struct {
	Label   string
	Href    string
	Current bool
}

type thingPage struct {
	Title         string
	Image         string
	Moving        bool
	Banner        status.Banner
	Reported      string
	Notices       []string
	Markers       []markerView
	Detail        *overlay.Detail
	Hidden        []hiddenField
	Ranges        []rangeLink
	Chart         template.HTML
	StartMoveHref string
	ViewHref      string
	Base          string
	LivePath      string
	RefreshMillis int64
}

var ranges = []struct {
	label string
	query history.Query
}{
	{"1 hour", history.Query{SinceHours: 1}},
	{"6 hours", history.Query{SinceHours: 6}},
	{"1 day", history.Query{SinceDays: 1}},
	{"7 days", history.Query{SinceDays: 7}},
	{"30 days", history.Query{SinceDays: 30}},
}

var cssColor = regexp.MustCompile(`^#?[0-9A-Za-z]+$`)

func markerStyle(m overlay.Marker) template.CSS {
	color := m.Color
	if !cssColor.MatchString(color) {
		color = "black"
	}
	return template.CSS(fmt.Sprintf("top:%spx;left:%spx;border-color:%s",
		strconv.FormatFloat(m.Position.Top, 'f', -1, 64),
		strconv.FormatFloat(m.Position.Left, 'f', -1, 64), color))
}

func hiddenFields(values url.Values) []hiddenField {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var fields []hiddenField
	for _, k := range keys {
		for _, v := range values[k] {
			fields = append(fields, hiddenField{k, v})
		}
	}
	return fields
}

// ServePage renders the thing page: plot overlay, detail panel and chart.
// Backend failures show up as notices on an otherwise partial page.
func (h *ThingHandler) ServePage(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	name := h.thing.Name
	params := req.URL.Query()
	conf := h.d.Config

	page := thingPage{
		Title:         h.thing.DisplayName(),
		Image:         h.thing.Image,
		Base:          h.Path(),
		LivePath:      h.Path() + "/live",
		RefreshMillis: conf.refresh.Milliseconds(),
	}
	if n := params.Get("notice"); n != "" {
		page.Notices = append(page.Notices, n)
	}
	q, err := history.ParseQuery(params)
	if err != nil {
		page.Notices = append(page.Notices, err.Error())
	}
	sess := overlay.ParseSession(name, params)
	extra := q.Values()

	rep, err := h.d.Backend.Reported(ctx, name)
	if err != nil {
		h.logger("reported").Warnf("fetch reported state: %v", err)
		fetchErrors.WithLabelValues(name, "reported").Inc()
		page.Notices = append(page.Notices, "reported state unavailable")
		if rep, _ = h.d.Watcher.Latest(name); rep == nil {
			rep = &sense.Reported{}
		}
	}
	des, err := h.d.Backend.Desired(ctx, name)
	if err != nil {
		h.logger("desired").Warnf("fetch desired state: %v", err)
		fetchErrors.WithLabelValues(name, "desired").Inc()
		page.Notices = append(page.Notices, "desired state unavailable")
		des, _ = sense.ParseDesired(nil)
	}
	disp := h.displayables(ctx)

	markers := overlay.Place(rep, des, disp, h.d.Watcher.Pending().For(name))
	sess.Apply(markers)
	for _, m := range markers {
		next := sess.Clone()
		next.Select(m.ID)
		page.Markers = append(page.Markers, markerView{
			Marker: m,
			Switch: m.Control,
			Href:   next.URL(extra),
			Style:  markerStyle(m),
		})
	}
	if m, ok := overlay.Find(markers, sess.Active); ok {
		detail := overlay.DetailOf(name, m)
		page.Detail = &detail
	}

	now := time.Now()
	page.Banner = status.NewBanner(rep.Time(), now, conf.stale, conf.Clock())
	if !rep.Time().IsZero() {
		page.Reported = conf.Clock().Show(rep.Time())
	}

	page.Moving = sess.Mode == overlay.Moving
	if !page.Moving {
		next := sess.Clone()
		next.StartMove()
		page.StartMoveHref = next.URL(extra)
	} else {
		next := overlay.NewSession(name)
		page.ViewHref = next.URL(extra)
	}
	hidden := sess.Values()
	for k, v := range extra {
		hidden[k] = v
	}
	page.Hidden = hiddenFields(hidden)

	for _, r := range ranges {
		page.Ranges = append(page.Ranges, rangeLink{
			Label:   r.label,
			Href:    sess.URL(r.query.Values()),
			Current: r.query == q,
		})
	}

	page.Chart = h.drawChart(ctx, q, "history unavailable, showing the last drawing")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := thingTempl.Execute(w, page); err != nil {
		h.logger("page").Errorf("execute template: %v", err)
	}
}

// ServeChart redraws the chart for the requested range and returns it
// as SVG.
func (h *ThingHandler) ServeChart(w http.ResponseWriter, req *http.Request) {
	q, _ := history.ParseQuery(req.URL.Query())
	out := h.drawChart(req.Context(), q, "history unavailable")
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(out))
}

// ServeCrosshair returns the readings under pixel column x of the
// requested history range as JSON.
func (h *ThingHandler) ServeCrosshair(w http.ResponseWriter, req *http.Request) {
	x, err := strconv.ParseFloat(req.URL.Query().Get("x"), 64)
	if err != nil {
		http.Error(w, "invalid x", http.StatusBadRequest)
		return
	}
	q, _ := history.ParseQuery(req.URL.Query())
	rs := h.rangeScene(q)
	rs.mu.Lock()
	if rs.scene.Drawn().IsZero() {
		h.refresh(req.Context(), rs.scene, q)
	}
	ch := rs.scene.Hover(x)
	rs.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ch); err != nil {
		h.logger("crosshair").Errorf("encode crosshair: %v", err)
	}
}

const emptySVG = `<svg xmlns="http://www.w3.org/2000/svg" width="1024" height="400"><text x="512" y="200" text-anchor="middle">no data</text></svg>`

// ServeGraph renders the static history graph.
func (h *ThingHandler) ServeGraph(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	w.Header().Set("Content-Type", "image/svg+xml")
	q, _ := history.ParseQuery(req.URL.Query())
	kernel, _ := strconv.Atoi(req.URL.Query().Get("median"))

	tbl, err := h.d.Backend.History(ctx, h.thing.Name, q)
	if err != nil {
		h.logger("history").Warnf("fetch history: %v", err)
		fetchErrors.WithLabelValues(h.thing.Name, "history").Inc()
		w.Write([]byte(emptySVG))
		return
	}
	var buf bytes.Buffer
	opts := GraphOptions{Location: h.d.Config.location, MedianKernel: kernel}
	if err := PlotHistory(&buf, tbl, h.displayables(ctx), opts); err != nil {
		if !errors.Is(err, ErrNothingToPlot) {
			h.logger("graph").Errorf("plot history: %v", err)
		}
		w.Write([]byte(emptySVG))
		return
	}
	w.Write(buf.Bytes())
}

// ServeExport sends the history of the requested range as a workbook.
func (h *ThingHandler) ServeExport(w http.ResponseWriter, req *http.Request) {
	q, _ := history.ParseQuery(req.URL.Query())
	tbl, err := h.d.Backend.History(req.Context(), h.thing.Name, q)
	if err != nil {
		h.logger("history").Warnf("fetch history: %v", err)
		fetchErrors.WithLabelValues(h.thing.Name, "history").Inc()
		http.Error(w, "history unavailable", http.StatusBadGateway)
		return
	}
	var buf bytes.Buffer
	if err := history.WriteXLSX(&buf, tbl, h.d.Config.location); err != nil {
		h.logger("export").Errorf("write workbook: %v", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.thing.Name+"-history.xlsx"))
	w.Write(buf.Bytes())
}

// redirect back to the page of sess, optionally with a notice
func (h *ThingHandler) redirect(w http.ResponseWriter, req *http.Request, sess *overlay.Session, q history.Query, notice string) {
	extra := q.Values()
	if notice != "" {
		extra.Set("notice", notice)
	}
	http.Redirect(w, req, sess.URL(extra), http.StatusSeeOther)
}

// ServeMove places the active marker on the clicked point of the plot.
func (h *ThingHandler) ServeMove(w http.ResponseWriter, req *http.Request) {
	params := req.URL.Query()
	sess := overlay.ParseSession(h.thing.Name, params)
	q, _ := history.ParseQuery(params)
	x, errX := strconv.ParseFloat(params.Get("at.x"), 64)
	y, errY := strconv.ParseFloat(params.Get("at.y"), 64)
	if errX != nil || errY != nil {
		h.redirect(w, req, sess, q, "invalid position")
		return
	}
	notice := ""
	if err := sess.MoveActive(x, y, h.d.Config.MarkerSize()); err != nil {
		notice = err.Error()
	}
	h.redirect(w, req, sess, q, notice)
}

// ServeCommand sets the desired mode of one switch.
func (h *ThingHandler) ServeCommand(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess := overlay.ParseSession(h.thing.Name, req.PostForm)
	q, _ := history.ParseQuery(req.PostForm)
	id := req.PostForm.Get("id")
	mode, err := sense.ParseMode(req.PostForm.Get("set"))
	if id == "" || err != nil {
		h.redirect(w, req, sess, q, "invalid command")
		return
	}
	notice := ""
	if err := overlay.SendCommand(req.Context(), h.d.Backend, h.d.Watcher.Pending(), h.thing.Name, id, mode); err != nil {
		h.logger("command").Errorf("set %s to %v: %v", id, mode, err)
		notice = "command failed"
	} else {
		h.logger("command").Infof("set %s to %v", id, mode)
	}
	h.redirect(w, req, sess, q, notice)
}

// ServePositions stores the moved marker positions and ends move mode.
func (h *ThingHandler) ServePositions(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess := overlay.ParseSession(h.thing.Name, req.PostForm)
	q, _ := history.ParseQuery(req.PostForm)
	notice := ""
	if err := overlay.SubmitPositions(req.Context(), h.d.Backend, sess); err != nil {
		h.logger("positions").Errorf("save positions: %v", err)
		notice = "saving positions failed"
	}
	h.redirect(w, req, sess, q, notice)
}

// ServeLive streams updates of the thing over a websocket.
func (h *ThingHandler) ServeLive(w http.ResponseWriter, req *http.Request) {
	name := h.thing.Name
	rep, _ := h.d.Watcher.Latest(name)
	initial := watch.Update{Thing: name, Timestamp: rep.Time(), Pending: h.d.Watcher.Pending().IDs(name)}
	h.d.Hub.ServeThing(w, req, name, initial)
}

// root handler listing the herd
type RootHandler struct {
	HandlerImpl
	d *Daemon
}

func NewRootHandler(d *Daemon) *RootHandler {
	return &RootHandler{HandlerImpl: HandlerImpl{"/", "Herd", 0}, d: d}
}

func (handler *RootHandler) Execute(ctx context.Context) {
}

type Entry struct {
	Path, Name string
	Status     status.ThingStatus
}

// implement sort interface on []Entry
type ByName []Entry

func (a ByName) Len() int           { return len(a) }
func (a ByName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByName) Less(i, j int) bool { return a[i].Name < a[j].Name }

func (handler *RootHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conf := handler.d.Config
	now := time.Now()
	entries := make([]Entry, 0, len(handler.d.things))
	for _, h := range handler.d.things {
		rep, _ := handler.d.Watcher.Latest(h.thing.Name)
		if rep == nil {
			var err error
			if rep, err = handler.d.Backend.Reported(req.Context(), h.thing.Name); err != nil {
				h.logger("reported").Warnf("fetch reported state: %v", err)
			}
		}
		entries = append(entries, Entry{
			Path:   h.Path(),
			Name:   h.Name(),
			Status: status.Of(rep, now, conf.status, conf.Clock()),
		})
	}
	sort.Sort(ByName(entries))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := herdTempl.Execute(w, entries); err != nil {
		log.WithField("op", "herd").Errorf("execute template: %v", err)
	}
}

func init() {
	const headerStr = `
		<div style="background-color:powderblue; font-size:20px;border:20px solid powderblue">
		<a href="/" style="padding: 21px 50px 21px 20px;"> Ledenik </a>
		<a href="/metrics" style="float: right; padding-left: 50px"> Metrics </a>
		</div>
		<br>
	`

	const styleStr = `
		<style>
		body 	{background-color: white;}
		.banner {background-color: #c00; color: white; padding: 10px; text-align: center;}
		.notice {background-color: #fe9; padding: 5px;}
		.plot {position: relative; display: inline-block;}
		.plot-image {display: block; user-select: none;}
		.displayable {position: absolute; border: 2px solid black; background: white; padding: 2px; min-width: 30px; text-align: center; text-decoration: none; color: black;}
		.displayable.active {box-shadow: 0 0 6px 3px orange;}
		.displayable.wrong {color: #c00;}
		.switch-auto-text {font-weight: bold; margin-left: 3px;}
		.animate-spin {display: inline-block; animation: spin 1s infinite linear;}
		@keyframes spin {from {transform: rotate(0deg);} to {transform: rotate(359deg);}}
		.up {color: green;} .down {color: gray;} .error {color: #c00;}
		</style>
	`

	const markerStr = `{{if .Switch}}{{if .Toggle}}<span class="onoffswitch{{if .Checked}} checked{{end}}">{{if .Checked}}on{{else}}off{{end}}</span>{{if .Auto}}<span class="switch-auto-text">A</span>{{end}}{{else}}<i id="{{.ID}}-loading" class="icon-spin animate-spin">&#8635;</i>{{end}}{{else}}{{.Text}}{{end}}`

	const thingStr = `
		<!DOCTYPE html>
		<html>
			<head>
			{{template "style"}}
			<title> {{.Title}} </title>
			</head>
			<body>
				{{template "header"}}
				{{if .Banner.Stale}}<div class="banner"> Connection problem, last report {{.Banner.Since}} ({{.Banner.Age}}) </div>{{end}}
				{{range .Notices}}<div class="notice"> {{.}} </div>{{end}}
				<h1 style="text-align:center"> {{.Title}} </h1>
				<p> {{if .Reported}}Reported {{.Reported}}{{end}}
				<label><input type="checkbox" id="autoreload" checked> auto reload </label> </p>
				{{if .Image}}
				<div id="plot" class="plot">
					{{if .Moving}}
					<form method="get" action="{{.Base}}/move">
						{{range .Hidden}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">{{end}}
						<input type="image" name="at" class="plot-image" src="{{.Image}}" alt="plot">
					</form>
					{{else}}
					<img class="plot-image" src="{{.Image}}" alt="plot" draggable="false">
					{{end}}
					{{range .Markers}}{{if .Placed}}<a href="{{.Href}}" id="{{.ID}}" title="{{.Alias}}" class="displayable{{if .Switch}} switch{{end}}{{if .Active}} active{{end}}{{if .Wrong}} wrong{{end}}" style="{{.Style}}">{{template "marker" .}}</a>{{end}}
					{{end}}
				</div>
				{{if .Moving}}
				<form method="post" action="{{.Base}}/positions">
					{{range .Hidden}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">{{end}}
					<button type="submit" id="change-plot-positions"> Save positions </button>
					<a href="{{.ViewHref}}"> Cancel </a>
				</form>
				{{else}}
				<a href="{{.StartMoveHref}}" id="change-plot-positions"> Move markers </a>
				{{end}}
				{{end}}
				<ul class="readings">
				{{range .Markers}}{{if or (not $.Image) (not .Placed)}}<li><a href="{{.Href}}" class="{{if .Active}}active{{end}}">{{.Alias}}</a>: {{template "marker" .}}</li>{{end}}
				{{end}}
				</ul>
				{{with .Detail}}
				<div id="active-info">
					<a href="{{.Link}}">{{.Title}}</a> {{.Text}} {{if .Pending}}(pending){{end}}
					{{if .Commands}}
					<form method="post" action="{{$.Base}}/command">
						{{range $.Hidden}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">{{end}}
						<input type="hidden" name="id" value="{{.ID}}">
						{{range .Commands}}<button type="submit" name="set" value="{{.Mode}}"> {{.Label}} </button>{{end}}
					</form>
					{{end}}
				</div>
				{{end}}
				<p> {{range .Ranges}}{{if .Current}}<b>{{.Label}}</b>{{else}}<a href="{{.Href}}">{{.Label}}</a>{{end}} {{end}} </p>
				<div class="chart"> {{.Chart}} </div>
				<p> <a href="{{.Base}}/graph.svg"> Static graph </a> <a href="{{.Base}}/history.xlsx"> Export </a> </p>
				<script>
				(function() {
					var box = document.getElementById('autoreload');
					var off = function() { return window.location.hash === '#noautoreload'; };
					box.checked = !off();
					box.addEventListener('change', function() {
						window.location.hash = box.checked ? '' : '#noautoreload';
					});
					{{if .RefreshMillis}}
					setInterval(function() { if (!off()) { window.location.reload(); } }, {{.RefreshMillis}});
					{{end}}
					if (window.WebSocket) {
						var proto = window.location.protocol === 'https:' ? 'wss://' : 'ws://';
						var ws = new WebSocket(proto + window.location.host + {{.LivePath}});
						var first = true;
						ws.onmessage = function() {
							if (first) { first = false; return; }
							if (!off()) { window.location.reload(); }
						};
					}
				})();
				</script>
			</body>
		</html>
	`

	const herdStr = `
		<!DOCTYPE html>
		<html>
			<head>
			{{template "style"}}
			<title> Herd </title>
			</head>
			<body>
				{{template "header"}}
				<h1 style="text-align:center"> Herd </h1>
				<table style="width:100%;border:1px solid black">
					<tr> <th> Thing </th> <th> Status </th> <th> Since </th> </tr>
					{{range .}}<tr> <td> <a href="{{.Path}}"> {{.Name}} </a> </td> <td class="{{.Status.State}}"> {{.Status.State}} </td> <td> {{.Status.SinceText}} </td> </tr>
					{{end}}
				</table>
			</body>
		</html>
	`

	masterTempl = template.Must(template.New("header").Parse(headerStr))
	template.Must(masterTempl.New("style").Parse(styleStr))
	template.Must(masterTempl.New("marker").Parse(markerStr))
	thingTempl = template.Must(template.Must(masterTempl.Clone()).New("thing").Parse(thingStr))
	herdTempl = template.Must(template.Must(masterTempl.Clone()).New("herd").Parse(herdStr))
}
