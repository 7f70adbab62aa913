package infofile

import (
	"bufio"
	"fmt"
	"strings"
)

// GTIDMode selects how a replica positions itself on the primary.
type GTIDMode int8

const (
	GTIDNo GTIDMode = iota
	GTIDCurrentPos
	GTIDSlavePos

	// GTIDDefault defers to the process option, then to the cached
	// capability of the primary.
	GTIDDefault GTIDMode = -1
)

var gtidModeNames = [...]string{"No", "Current_Pos", "Slave_Pos"}

func (m GTIDMode) String() string {
	if m.Valid() {
		return gtidModeNames[m]
	}
	if m == GTIDDefault {
		return "DEFAULT"
	}
	return fmt.Sprintf("GTIDMode(%d)", int8(m))
}

// Valid reports whether m is a concrete, non-DEFAULT mode.
func (m GTIDMode) Valid() bool {
	return m >= GTIDNo && m <= GTIDSlavePos
}

// ParseGTIDMode accepts the mode names case-insensitively, plus "default".
func ParseGTIDMode(s string) (GTIDMode, error) {
	if strings.EqualFold(s, "default") {
		return GTIDDefault, nil
	}
	for i, name := range gtidModeNames {
		if strings.EqualFold(s, name) {
			return GTIDMode(i), nil
		}
	}
	return GTIDDefault, fmt.Errorf("unknown gtid mode %q", s)
}

// GTIDModeField is the ranged enum behind using_gtid.
type GTIDModeField struct {
	mode     GTIDMode
	fallback func() GTIDMode

	// GTIDSupported caches whether the primary was found to support GTIDs.
	// It picks the effective mode when both the field and the process
	// option are DEFAULT, and survives SetDefault so a reset does not flip
	// an old primary back to Slave_Pos.
	GTIDSupported bool
}

// NewGTIDModeField returns a DEFAULT field that assumes GTID support.
func NewGTIDModeField(fallback func() GTIDMode) GTIDModeField {
	return GTIDModeField{mode: GTIDDefault, fallback: fallback, GTIDSupported: true}
}

// Get returns the effective mode, never GTIDDefault.
func (f *GTIDModeField) Get() GTIDMode {
	if f.mode != GTIDDefault {
		return f.mode
	}
	if f.fallback != nil {
		if m := f.fallback(); m.Valid() {
			return m
		}
	}
	if f.GTIDSupported {
		return GTIDSlavePos
	}
	return GTIDNo
}

// Set assigns a concrete mode. GTIDDefault or an out-of-range mode resets
// the field to DEFAULT.
func (f *GTIDModeField) Set(m GTIDMode) {
	if !m.Valid() {
		m = GTIDDefault
	}
	f.mode = m
}

func (f *GTIDModeField) IsDefault() bool { return f.mode == GTIDDefault }

func (f *GTIDModeField) SetDefault() error {
	f.mode = GTIDDefault
	return nil
}

func (f *GTIDModeField) LoadFrom(r *bufio.Reader) error {
	line, err := ReadLine(r, 0)
	if err != nil {
		return err
	}
	if len(line) != 1 || line[0] < '0'+byte(GTIDNo) || line[0] > '0'+byte(GTIDSlavePos) {
		return malformed("gtid mode %q", line)
	}
	f.mode = GTIDMode(line[0] - '0')
	return nil
}

func (f *GTIDModeField) SaveTo(w *bufio.Writer) {
	w.WriteByte('0' + byte(f.Get()))
}

func (*GTIDModeField) optional() {}
