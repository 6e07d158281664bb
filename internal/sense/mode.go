// Copyright (C) 2016, Heiko Koehler

package sense

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Mode is the desired state of a write channel.
type Mode int

const (
	ModeOff Mode = iota
	ModeOn
	ModeAuto
)

// ParseMode accepts "0", "1" and "a" as sent by the command buttons.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "off", "false":
		return ModeOff, nil
	case "1", "on", "true":
		return ModeOn, nil
	case "a", "auto":
		return ModeAuto, nil
	}
	return ModeOff, fmt.Errorf("invalid mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case ModeOn:
		return "1"
	case ModeAuto:
		return "a"
	}
	return "0"
}

// Matches reports whether an actual write value satisfies the mode.
// Auto is satisfied by anything.
func (m Mode) Matches(actual float64) bool {
	switch m {
	case ModeAuto:
		return true
	case ModeOn:
		return actual == 1
	}
	return actual == 0
}

func (m Mode) MarshalJSON() ([]byte, error) {
	if m == ModeAuto {
		return []byte(`"a"`), nil
	}
	return []byte(strconv.Itoa(int(m))), nil
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		if t != 0 && t != 1 {
			return fmt.Errorf("invalid mode %v", t)
		}
		*m = Mode(t)
		return nil
	case bool:
		*m = ModeOff
		if t {
			*m = ModeOn
		}
		return nil
	case string:
		mode, err := ParseMode(t)
		if err != nil {
			return err
		}
		*m = mode
		return nil
	}
	return fmt.Errorf("invalid mode %s", b)
}
