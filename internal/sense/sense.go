// Copyright (C) 2016, Heiko Koehler

// Package sense decodes the documents exchanged with the backend: reported
// state, desired modes and displayable configuration.
package sense

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"
)

// Kind tags the variant held by a Sense.
type Kind int

const (
	Scalar Kind = iota
	Structured
	Raw
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Structured:
		return "structured"
	}
	return "raw"
}

// Fields of a structured sense reading
type Fields struct {
	Value      null.Float64
	Expected   null.Float64
	Normalized null.Float64
	Wrong      bool
	Alias      string
}

// Sense is a single reading: a plain number, a structured record or,
// when neither could be decoded, the raw text.
type Sense struct {
	Kind   Kind
	Scalar float64
	Fields Fields
	text   string
	raw    json.RawMessage
}

// NewScalar returns a scalar reading.
func NewScalar(v float64) Sense {
	raw, _ := json.Marshal(v)
	return Sense{Kind: Scalar, Scalar: v, raw: raw}
}

// NewRaw returns a reading which could not be interpreted as a number.
func NewRaw(text string) Sense {
	raw, _ := json.Marshal(text)
	return Sense{Kind: Raw, text: text, raw: raw}
}

func (s *Sense) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*s = Sense{raw: append(json.RawMessage(nil), b...)}

	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		s.Kind = Raw
	case b[0] == '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		s.Kind = Structured
		var wrong bool
		s.Fields.Value, wrong = parseNumber(obj["value"])
		s.Fields.Wrong = wrong
		s.Fields.Expected, _ = parseNumber(obj["expected"])
		s.Fields.Normalized, _ = parseNumber(obj["normalized"])
		if w, ok := obj["wrong"]; ok && truthy(w) {
			s.Fields.Wrong = true
		}
		if a, ok := obj["alias"]; ok {
			json.Unmarshal(a, &s.Fields.Alias)
		}
	case b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			s.Kind = Scalar
			s.Scalar = v
		} else {
			s.Kind = Raw
			s.text = str
		}
	default:
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			s.Kind = Raw
			s.text = string(b)
			return nil
		}
		s.Kind = Scalar
		s.Scalar = v
	}
	return nil
}

func (s Sense) MarshalJSON() ([]byte, error) {
	if len(s.raw) == 0 {
		return []byte("null"), nil
	}
	return s.raw, nil
}

// Value extracts the number to display: the scalar itself or, for a
// structured reading, normalized, then value, then expected.
func (s Sense) Value() (float64, bool) {
	switch s.Kind {
	case Scalar:
		return s.Scalar, true
	case Structured:
		for _, f := range []null.Float64{s.Fields.Normalized, s.Fields.Value, s.Fields.Expected} {
			if f.Valid {
				return f.Float64, true
			}
		}
	}
	return 0, false
}

// Wrong reports readings flagged as wrong by the backend.
func (s Sense) Wrong() bool {
	if s.Kind == Raw {
		return strings.HasPrefix(s.text, "w")
	}
	return s.Kind == Structured && s.Fields.Wrong
}

// String falls back to the raw text when there is no value.
func (s Sense) String() string {
	if v, ok := s.Value(); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if s.Kind == Raw && s.text != "" {
		return s.text
	}
	return string(s.raw)
}

// parse a number or numeric string, strings starting with "w" mark wrong readings
func parseNumber(raw json.RawMessage) (null.Float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return null.Float64{}, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return null.Float64From(v), false
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return null.Float64{}, true
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
		return null.Float64From(v), false
	}
	return null.Float64{}, true
}

func truthy(raw json.RawMessage) bool {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && strings.ToLower(t) != "false"
	}
	return false
}
