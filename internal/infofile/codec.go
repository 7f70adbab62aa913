package infofile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Field buffer capacities in bytes, terminator included.
const (
	HostCapacity     = 255*3 + 1
	UserCapacity     = 128*3 + 1
	PasswordCapacity = 32*3 + 1
	PathCapacity     = 512
)

// Integer is any integer type a field can persist.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func isSigned[I Integer]() bool {
	var zero I
	return zero-1 < zero
}

// ReadLine reads one newline-terminated line and returns it without the
// newline. A last line without a newline is accepted. With capacity > 0 the
// line plus its terminator must fit in capacity bytes.
func ReadLine(r *bufio.Reader, capacity int) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read line: %w", err)
		}
		if line == "" {
			return "", ErrTruncated
		}
	} else {
		line = line[:len(line)-1]
	}
	if capacity > 0 && len(line)+1 > capacity {
		return "", fmt.Errorf("%w: %d bytes, capacity %d", ErrCapacityExceeded, len(line), capacity)
	}
	return line, nil
}

// ParseInt parses a whole token as a decimal integer of I's width.
func ParseInt[I Integer](s string) (I, error) {
	if s == "" {
		return 0, malformed("empty integer")
	}
	if s[0] == '+' {
		return 0, malformed("unexpected sign in %q", s)
	}
	if isSigned[I]() {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, malformed("%q is not an integer", s)
		}
		i := I(v)
		if int64(i) != v {
			return 0, malformed("%q is out of range", s)
		}
		return i, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, malformed("%q is not an unsigned integer", s)
	}
	i := I(v)
	if uint64(i) != v {
		return 0, malformed("%q is out of range", s)
	}
	return i, nil
}

// AppendInt appends the minimal decimal form of v.
func AppendInt[I Integer](dst []byte, v I) []byte {
	if isSigned[I]() {
		return strconv.AppendInt(dst, int64(v), 10)
	}
	return strconv.AppendUint(dst, uint64(v), 10)
}

// ReadInt reads one line holding a single integer.
func ReadInt[I Integer](r *bufio.Reader) (I, error) {
	line, err := ReadLine(r, 0)
	if err != nil {
		return 0, err
	}
	return ParseInt[I](line)
}

// WriteInt writes v in minimal decimal form, without a terminator.
func WriteInt[I Integer](w *bufio.Writer, v I) {
	var buf [24]byte
	w.Write(AppendInt(buf[:0], v))
}

// ReadString reads one line into a field of the given capacity.
func ReadString(r *bufio.Reader, capacity int) (string, error) {
	return ReadLine(r, capacity)
}

// WriteString writes s exactly, without a terminator.
func WriteString(w *bufio.Writer, s string) {
	w.WriteString(s)
}
