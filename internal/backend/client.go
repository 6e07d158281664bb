// Copyright (C) 2016, Heiko Koehler

// Package backend talks to the service storing the things' documents and
// history.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/hkoehler/ledenik/internal/history"
	"github.com/hkoehler/ledenik/internal/sense"
)

var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx answer of the backend.
type StatusError struct {
	Op   string
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Op, e.URL, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is matches ErrNotFound for 404 answers.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

var (
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledenik_backend_requests_total",
			Help: "Backend requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)
	latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledenik_backend_request_duration_seconds",
			Help:    "Backend request latency by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Register adds the client metrics to r.
func Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{requests, latency} {
		if err := r.Register(c); err != nil {
			var dup prometheus.AlreadyRegisteredError
			if !errors.As(err, &dup) {
				return err
			}
		}
	}
	return nil
}

// maximum size of an error body kept in StatusError
const errorBodyLimit = 512

// Client of the backend at a base URL
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for base. A nil http client uses a default with a
// ten second timeout.
func New(base string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q needs scheme and host", base)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, http: hc}, nil
}

func (c *Client) url(thing, doc string, q url.Values) string {
	u := c.base.JoinPath("db", thing, doc)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do runs one request and returns the body of a 2xx answer.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		requests.WithLabelValues(op, outcome).Inc()
		latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = strconv.Itoa(resp.StatusCode)
		if len(body) > errorBodyLimit {
			body = body[:errorBodyLimit]
		}
		return nil, &StatusError{Op: op, URL: req.URL.String(), Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	outcome = "ok"
	log.WithFields(log.Fields{"op": op, "url": req.URL.String()}).Debugf("backend answered in %v", time.Since(start))
	return body, nil
}

func (c *Client) get(ctx context.Context, op, thing, doc string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(thing, doc, q), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.do(req, op)
}

// post submits a document as the form field value.
func (c *Client) post(ctx context.Context, op, thing, doc string, value []byte) error {
	form := url.Values{"value": {string(value)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(thing, doc, nil), bytes.NewBufferString(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err = c.do(req, op)
	return err
}

func (c *Client) Reported(ctx context.Context, thing string) (*sense.Reported, error) {
	b, err := c.get(ctx, "reported", thing, "reported", nil)
	if err != nil {
		return nil, err
	}
	return sense.ParseReported(b)
}

func (c *Client) Desired(ctx context.Context, thing string) (*sense.Desired, error) {
	b, err := c.get(ctx, "desired", thing, "desired", nil)
	if err != nil {
		return nil, err
	}
	return sense.ParseDesired(b)
}

func (c *Client) Displayables(ctx context.Context, thing string) (*sense.Displayables, error) {
	b, err := c.get(ctx, "displayables", thing, "displayables", nil)
	if err != nil {
		return nil, err
	}
	return sense.ParseDisplayables(b)
}

// History fetches the table of the given time range.
func (c *Client) History(ctx context.Context, thing string, q history.Query) (*history.Table, error) {
	b, err := c.get(ctx, "history", thing, "history", q.Values())
	if err != nil {
		return nil, err
	}
	return history.Parse(bytes.NewReader(b))
}

func (c *Client) PostDesired(ctx context.Context, thing string, d *sense.Desired) error {
	b, err := d.Bytes()
	if err != nil {
		return fmt.Errorf("encode desired state: %w", err)
	}
	return c.post(ctx, "post_desired", thing, "desired", b)
}

func (c *Client) PostDisplayables(ctx context.Context, thing string, d *sense.Displayables) error {
	b, err := d.Bytes()
	if err != nil {
		return fmt.Errorf("encode displayables: %w", err)
	}
	return c.post(ctx, "post_displayables", thing, "displayables", b)
}
