// Copyright (C) 2016, Heiko Koehler

package watch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hkoehler/ledenik/internal/sense"
)

type fakeSource struct {
	mu   sync.Mutex
	docs []string
	err  error
	hits int
}

func (f *fakeSource) Reported(ctx context.Context, thing string) (*sense.Reported, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits++
	if f.err != nil {
		return nil, f.err
	}
	doc := f.docs[0]
	if len(f.docs) > 1 {
		f.docs = f.docs[1:]
	}
	return sense.ParseReported([]byte(doc))
}

func reported(ts string, pump int) string {
	return `{"timestamp_utc": "` + ts + `", "state": {"write": {"pump": ` + string(rune('0'+pump)) + `}}}`
}

func TestPendingConfirm(t *testing.T) {
	p := NewPending()
	p.Expect("herd1", "pump", sense.ModeOn)
	p.Expect("herd1", "fan", sense.ModeAuto)
	p.Expect("herd2", "pump", sense.ModeOff)

	rep, _ := sense.ParseReported([]byte(reported("2017-11-30 22:05:50", 0)))
	if got := p.Confirm("herd1", rep); strings.Join(got, ",") != "fan" {
		t.Fatalf("confirmed %v", got)
	}
	if ids := p.IDs("herd1"); strings.Join(ids, ",") != "pump" {
		t.Fatalf("still pending %v", ids)
	}

	rep, _ = sense.ParseReported([]byte(reported("2017-11-30 22:05:55", 1)))
	if got := p.Confirm("herd1", rep); strings.Join(got, ",") != "pump" {
		t.Fatalf("confirmed %v", got)
	}
	if len(p.For("herd1")) != 0 || len(p.For("herd2")) != 1 {
		t.Fatal("confirmation must stay within the thing")
	}
}

func TestPendingReplaceAndExpire(t *testing.T) {
	p := NewPending()
	now := time.Date(2017, 11, 30, 22, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	p.Expect("herd1", "pump", sense.ModeOn)
	p.Expect("herd1", "pump", sense.ModeOff)
	if m := p.For("herd1")["pump"]; m != sense.ModeOff {
		t.Fatalf("newer command must win, got %v", m)
	}
	now = now.Add(10 * time.Minute)
	if n := p.Expire(5 * time.Minute); n != 1 {
		t.Fatalf("expired %d", n)
	}
	if len(p.IDs("herd1")) != 0 {
		t.Fatal("entry not expired")
	}
}

func TestPollNotifies(t *testing.T) {
	src := &fakeSource{docs: []string{
		reported("2017-11-30 22:05:50", 0),
		reported("2017-11-30 22:05:50", 0),
		reported("2017-11-30 22:05:50", 1),
		reported("2017-11-30 22:05:55", 1),
	}}
	w := New(src, nil, 0)
	updates, cancel := w.Subscribe()
	defer cancel()
	ctx := context.Background()

	if _, changed, err := w.Poll(ctx, "herd1"); err != nil || !changed {
		t.Fatalf("first poll changed=%v err=%v", changed, err)
	}
	w.Pending().Expect("herd1", "pump", sense.ModeOn)
	if u, changed, _ := w.Poll(ctx, "herd1"); changed || len(u.Pending) != 1 {
		t.Fatalf("same timestamp must not notify: %+v", u)
	}
	u, changed, _ := w.Poll(ctx, "herd1")
	if !changed || strings.Join(u.Confirmed, ",") != "pump" || len(u.Pending) != 0 {
		t.Fatalf("confirmation must notify: %+v", u)
	}
	if _, changed, _ := w.Poll(ctx, "herd1"); !changed {
		t.Fatal("new timestamp must notify")
	}

	if n := len(updates); n != 3 {
		t.Fatalf("got %d updates", n)
	}
	first := <-updates
	if first.Thing != "herd1" || first.Timestamp.IsZero() {
		t.Fatalf("update %+v", first)
	}

	src.err = errors.New("backend down")
	if _, _, err := w.Poll(ctx, "herd1"); err == nil {
		t.Fatal("expected error")
	}
	rep, err := w.Latest("herd1")
	if rep == nil || err == nil {
		t.Fatal("latest must keep the last state and report the error")
	}
}

func TestStartStops(t *testing.T) {
	src := &fakeSource{docs: []string{reported("2017-11-30 22:05:50", 0)}}
	w := New(src, nil, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx, []string{"herd1", "herd2"})
	time.Sleep(30 * time.Millisecond)
	cancel()
	w.Wait()

	src.mu.Lock()
	hits := src.hits
	src.mu.Unlock()
	if hits < 2 {
		t.Fatalf("polled %d times", hits)
	}
	if rep, _ := w.Latest("herd2"); rep == nil {
		t.Fatal("herd2 not polled")
	}
}

func TestHub(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		thing := r.URL.Query().Get("thing")
		hub.ServeThing(w, r, thing, Update{Thing: thing})
	}))
	defer srv.Close()

	updates := make(chan Update)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, updates)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?thing=herd1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var u Update
	if err := conn.ReadJSON(&u); err != nil || u.Thing != "herd1" {
		t.Fatalf("initial update %+v, %v", u, err)
	}

	updates <- Update{Thing: "herd2"}
	updates <- Update{Thing: "herd1", Pending: []string{"pump"}}
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatal(err)
	}
	if u.Thing != "herd1" || len(u.Pending) != 1 {
		t.Fatalf("updates of other things must not arrive: %+v", u)
	}
}
