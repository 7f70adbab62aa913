package infofile

import (
	"bufio"
	"math"
	"strconv"
	"strings"
)

// MaxHeartbeatMillis is the largest period a heartbeat field can hold,
// 4294967.295 seconds.
const MaxHeartbeatMillis = math.MaxUint32

// digits in the whole-seconds part of MaxHeartbeatMillis
const maxWholeSecondDigits = 7

// ParseSeconds converts a fixed-point decimal number of seconds into
// milliseconds. Digits past the third decimal place are dropped, never
// rounded. Signs, exponents and values above MaxHeartbeatMillis fail.
func ParseSeconds(s string) (uint32, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, malformed("empty duration %q", s)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, malformed("duration %q", s)
	}

	whole = strings.TrimLeft(whole, "0")
	if len(whole) > maxWholeSecondDigits {
		return 0, malformed("duration %q is out of range", s)
	}
	var secs uint64
	if whole != "" {
		secs, _ = strconv.ParseUint(whole, 10, 64)
	}

	var millis uint64
	for i := 0; i < 3; i++ {
		millis *= 10
		if i < len(frac) {
			millis += uint64(frac[i] - '0')
		}
	}

	total := secs*1000 + millis
	if total > MaxHeartbeatMillis {
		return 0, malformed("duration %q is out of range", s)
	}
	return uint32(total), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// AppendSeconds appends ms as seconds with exactly three decimals.
func AppendSeconds(dst []byte, ms uint32) []byte {
	var buf [10]byte
	digits := strconv.AppendUint(buf[:0], uint64(ms), 10)
	if len(digits) > 3 {
		dst = append(dst, digits[:len(digits)-3]...)
		dst = append(dst, '.')
		return append(dst, digits[len(digits)-3:]...)
	}
	dst = append(dst, '0', '.')
	for pad := len(digits); pad < 3; pad++ {
		dst = append(dst, '0')
	}
	return append(dst, digits...)
}

// FormatSeconds renders ms as seconds with exactly three decimals.
func FormatSeconds(ms uint32) string {
	return string(AppendSeconds(nil, ms))
}

// HeartbeatField is a millisecond period persisted as DECIMAL(10,3) seconds.
type HeartbeatField struct {
	millis   uint32
	set      bool
	fallback func() uint32
}

// NewHeartbeatField returns a DEFAULT field; fallback yields milliseconds.
func NewHeartbeatField(fallback func() uint32) HeartbeatField {
	return HeartbeatField{fallback: fallback}
}

// Millis returns the effective period in milliseconds.
func (f *HeartbeatField) Millis() uint32 {
	if f.set {
		return f.millis
	}
	if f.fallback == nil {
		return 0
	}
	return f.fallback()
}

func (f *HeartbeatField) SetMillis(ms uint32) {
	f.millis = ms
	f.set = true
}

func (f *HeartbeatField) IsDefault() bool { return !f.set }

func (f *HeartbeatField) SetDefault() error {
	f.millis = 0
	f.set = false
	return nil
}

func (f *HeartbeatField) LoadFrom(r *bufio.Reader) error {
	line, err := ReadLine(r, 0)
	if err != nil {
		return err
	}
	ms, err := ParseSeconds(line)
	if err != nil {
		return err
	}
	f.SetMillis(ms)
	return nil
}

func (f *HeartbeatField) SaveTo(w *bufio.Writer) {
	var buf [16]byte
	w.Write(AppendSeconds(buf[:0], f.Millis()))
}

func (*HeartbeatField) optional() {}
