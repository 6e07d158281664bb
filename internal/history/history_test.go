// Copyright (C) 2016, Heiko Koehler

package history

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

const testCSV = "timestamp_utc,sense(t1),sense(h1),write(pump),other\r\n" +
	"2017-11-30 22:06:50,21.5,40,1,x\r\n" +
	"2017-11-30 22:05:50,21.0,n/a,0,y\r\n"

func TestParse(t *testing.T) {
	tbl, err := Parse(strings.NewReader(testCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Columns) != 4 || len(tbl.Samples) != 2 {
		t.Fatalf("got %d columns and %d samples", len(tbl.Columns), len(tbl.Samples))
	}
	if c := tbl.Columns[0]; c.Kind != Sense || c.ID != "t1" {
		t.Fatalf("unexpected column %+v", c)
	}
	if c := tbl.Columns[2]; c.Kind != Write || c.ID != "pump" {
		t.Fatalf("unexpected column %+v", c)
	}
	if c := tbl.Columns[3]; c.Kind != Other {
		t.Fatalf("unexpected column %+v", c)
	}
	// rows come back in time order
	first := tbl.Samples[0]
	if first.Time != time.Date(2017, 11, 30, 22, 5, 50, 0, time.UTC) {
		t.Fatalf("samples not sorted: %v", first.Time)
	}
	if !first.Values[0].Valid || first.Values[0].Float64 != 21.0 {
		t.Fatalf("t1 = %+v", first.Values[0])
	}
	if first.Values[1].Valid {
		t.Fatal("non-numeric cell must be null")
	}
	if tbl.Samples[1].Values[3].Valid {
		t.Fatal("non-numeric other column must be null")
	}
	if tbl.Index(Write, "pump") != 2 || tbl.Index(Sense, "pump") != -1 {
		t.Fatal("index lookup")
	}
	if len(tbl.ColumnsOf(Sense)) != 2 {
		t.Fatal("sense columns")
	}
}

func TestParseEmpty(t *testing.T) {
	tbl, err := Parse(strings.NewReader("\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !tbl.Empty() {
		t.Fatal("expected empty table")
	}
}

func TestParseBadTimestamp(t *testing.T) {
	_, err := Parse(strings.NewReader("timestamp_utc,sense(t1)\nnot a time,1\n"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Row != 1 || perr.Column != "timestamp_utc" {
		t.Fatalf("unexpected location %+v", perr)
	}
}

func TestShortRows(t *testing.T) {
	tbl, err := Parse(strings.NewReader("timestamp_utc,sense(a),sense(b)\n2017-11-30 22:05:50,1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Samples[0].Values[1].Valid {
		t.Fatal("missing trailing cell must be null")
	}
}

func TestParseNonFinite(t *testing.T) {
	tbl, err := Parse(strings.NewReader("timestamp_utc,sense(t1),sense(t2)\n" +
		"2017-11-30 22:05:50,2,inf\n" +
		"2017-11-30 22:06:50,nan,-Infinity\n" +
		"2017-11-30 22:07:50,NaN,3\n"))
	if err != nil {
		t.Fatal(err)
	}
	valid := [][]bool{{true, false}, {false, false}, {false, true}}
	for i, s := range tbl.Samples {
		for j, v := range s.Values {
			if v.Valid != valid[i][j] {
				t.Errorf("row %d column %d = %+v", i, j, v)
			}
		}
	}
}

func TestQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{"since_days": {"3"}})
	if err != nil || q.SinceDays != 3 || q.String() != "since_days=3" {
		t.Fatalf("got %+v %v", q, err)
	}
	q, err = ParseQuery(url.Values{"since_hours": {"6"}})
	if err != nil || q.String() != "since_hours=6" || q.Duration() != 6*time.Hour {
		t.Fatalf("got %+v %v", q, err)
	}
	q, err = ParseQuery(url.Values{})
	if err != nil || q != DefaultQuery || q.String() != "since_hours=1" {
		t.Fatalf("got %+v %v", q, err)
	}
	if _, err := ParseQuery(url.Values{"since_days": {"-1"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestMedian(t *testing.T) {
	out := Median([]float64{1, 9, 1, 1, 5, 5, 5}, 3)
	exp := []float64{5, 1, 1, 1, 5, 5, 5}
	for i := range exp {
		if out[i] != exp[i] {
			t.Fatalf("median %v, expected %v", out, exp)
		}
	}
	if len(Median(nil, 3)) != 0 {
		t.Fatal("empty input")
	}
	if out := Median([]float64{3, 1}, 1); out[0] != 3 || out[1] != 1 {
		t.Fatal("kernel 1 must be identity")
	}
}

func TestWriteXLSX(t *testing.T) {
	tbl, err := Parse(strings.NewReader(testCSV))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, tbl, time.UTC); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and two rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "timestamp_utc,sense(t1),sense(h1),write(pump),other" {
		t.Fatalf("header %v", rows[0])
	}
	if rows[1][1] != "21" || rows[1][2] != "" || rows[2][2] != "40" {
		t.Fatalf("values %v %v", rows[1], rows[2])
	}
}
