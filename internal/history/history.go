// Copyright (C) 2016, Heiko Koehler

// Package history parses the tabular history served by the backend.
//
// Format:
//
//	timestamp_utc,sense(sense1),...,sense(senseN),write(write1),...,write(writeN)
//	2017-11-30 22:05:50,30.3,...,20.2,0,...,1
package history

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hkoehler/ledenik/internal/sense"
	"github.com/volatiletech/null/v8"
)

// ErrNoTimestamp is returned for a header without any column.
var ErrNoTimestamp = errors.New("history has no timestamp column")

// ParseError locates a malformed cell.
type ParseError struct {
	Row    int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("history row %d column %q: %v", e.Row, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ColumnKind tells sense columns from write columns.
type ColumnKind int

const (
	Other ColumnKind = iota
	Sense
	Write
)

// Column of a history table, Name is the raw header.
type Column struct {
	Name string
	Kind ColumnKind
	ID   string
}

// ParseColumn unwraps "sense(id)" and "write(id)" headers.
func ParseColumn(name string) Column {
	col := Column{Name: name, ID: name}
	open := strings.Index(name, "(")
	if open < 0 || !strings.HasSuffix(name, ")") {
		return col
	}
	switch name[:open] {
	case "sense":
		col.Kind = Sense
	case "write":
		col.Kind = Write
	default:
		return col
	}
	col.ID = name[open+1 : len(name)-1]
	return col
}

// Sample is one row: a time and one nullable value per column.
type Sample struct {
	Time   time.Time
	Values []null.Float64
}

// Table holds a whole fetched history. It is replaced, never appended to.
type Table struct {
	Columns []Column
	Samples []Sample
}

func (t *Table) Empty() bool {
	return t == nil || len(t.Samples) == 0
}

// Index of the column with the given kind and id, -1 if absent
func (t *Table) Index(kind ColumnKind, id string) int {
	for i, col := range t.Columns {
		if col.Kind == kind && col.ID == id {
			return i
		}
	}
	return -1
}

// ColumnsOf returns the columns of a kind in header order.
func (t *Table) ColumnsOf(kind ColumnKind) []Column {
	var cols []Column
	for _, col := range t.Columns {
		if col.Kind == kind {
			cols = append(cols, col)
		}
	}
	return cols
}

// Parse reads CSV history. The first column is the timestamp in UTC, all
// other cells are numbers and everything non-numeric becomes null.
func Parse(r io.Reader) (*Table, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	// the backend answers a bare CRLF when there is no history
	if len(bytes.TrimSpace(body)) == 0 {
		return &Table{}, nil
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &ParseError{Row: 0, Err: err}
	}
	if len(header) == 0 {
		return nil, ErrNoTimestamp
	}
	tbl := &Table{Columns: make([]Column, 0, len(header)-1)}
	for _, name := range header[1:] {
		tbl.Columns = append(tbl.Columns, ParseColumn(strings.TrimSpace(name)))
	}

	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &ParseError{Row: row, Err: err}
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		ts, err := sense.ParseTimestamp(record[0])
		if err != nil {
			return nil, &ParseError{Row: row, Column: header[0], Err: err}
		}
		sample := Sample{Time: ts, Values: make([]null.Float64, len(tbl.Columns))}
		for i := range tbl.Columns {
			if i+1 < len(record) {
				sample.Values[i] = coerce(record[i+1])
			}
		}
		tbl.Samples = append(tbl.Samples, sample)
	}

	sort.SliceStable(tbl.Samples, func(i, j int) bool {
		return tbl.Samples[i].Time.Before(tbl.Samples[j].Time)
	})
	return tbl, nil
}

func coerce(cell string) null.Float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	// nan and inf parse but are no readings
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float64{}
	}
	return null.Float64From(v)
}

// Query selects a relative time window.
type Query struct {
	SinceDays  int
	SinceHours int
}

// DefaultQuery is the window shown before the user picks one.
var DefaultQuery = Query{SinceHours: 1}

// ParseQuery reads since_days or since_hours, falling back to the default.
func ParseQuery(values url.Values) (Query, error) {
	if s := values.Get("since_days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return DefaultQuery, fmt.Errorf("invalid since_days %q", s)
		}
		return Query{SinceDays: n}, nil
	}
	if s := values.Get("since_hours"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return DefaultQuery, fmt.Errorf("invalid since_hours %q", s)
		}
		return Query{SinceHours: n}, nil
	}
	return DefaultQuery, nil
}

// Values encodes the query for the backend.
func (q Query) Values() url.Values {
	values := url.Values{}
	if q.SinceDays > 0 {
		values.Set("since_days", strconv.Itoa(q.SinceDays))
	} else {
		hours := q.SinceHours
		if hours <= 0 {
			hours = DefaultQuery.SinceHours
		}
		values.Set("since_hours", strconv.Itoa(hours))
	}
	return values
}

func (q Query) String() string {
	return q.Values().Encode()
}

// Duration covered by the query
func (q Query) Duration() time.Duration {
	if q.SinceDays > 0 {
		return time.Duration(q.SinceDays) * 24 * time.Hour
	}
	if q.SinceHours > 0 {
		return time.Duration(q.SinceHours) * time.Hour
	}
	return time.Duration(DefaultQuery.SinceHours) * time.Hour
}
