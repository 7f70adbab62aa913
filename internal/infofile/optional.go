package infofile

import "bufio"

// OptionalIntField is an integer that defers to a process-wide option while
// DEFAULT. The fallback is consulted on every read, never copied, so a
// changed option applies to records loaded before the change.
type OptionalIntField[I Integer] struct {
	value    I
	set      bool
	fallback func() I
}

// NewOptionalIntField returns a DEFAULT field backed by fallback.
func NewOptionalIntField[I Integer](fallback func() I) OptionalIntField[I] {
	return OptionalIntField[I]{fallback: fallback}
}

// Get returns the effective value.
func (f *OptionalIntField[I]) Get() I {
	if f.set {
		return f.value
	}
	if f.fallback == nil {
		return 0
	}
	return f.fallback()
}

func (f *OptionalIntField[I]) Set(v I) {
	f.value = v
	f.set = true
}

func (f *OptionalIntField[I]) IsDefault() bool { return !f.set }

func (f *OptionalIntField[I]) SetDefault() error {
	f.value = 0
	f.set = false
	return nil
}

func (f *OptionalIntField[I]) LoadFrom(r *bufio.Reader) error {
	v, err := ReadInt[I](r)
	if err != nil {
		return err
	}
	f.Set(v)
	return nil
}

func (f *OptionalIntField[I]) SaveTo(w *bufio.Writer) {
	WriteInt(w, f.Get())
}

func (*OptionalIntField[I]) optional() {}

type trilean int8

const (
	triNo      trilean = 0
	triYes     trilean = 1
	triDefault trilean = -1
)

// BoolField is a trilean: No, Yes, or DEFAULT. Its line form is a single
// '0' or '1', narrower than the general integer form.
type BoolField struct {
	value    trilean
	fallback func() bool
}

// NewBoolField returns a DEFAULT field backed by fallback.
func NewBoolField(fallback func() bool) BoolField {
	return BoolField{value: triDefault, fallback: fallback}
}

// Get returns the effective value.
func (f *BoolField) Get() bool {
	if f.value == triDefault {
		return f.fallback != nil && f.fallback()
	}
	return f.value == triYes
}

func (f *BoolField) Set(v bool) {
	if v {
		f.value = triYes
	} else {
		f.value = triNo
	}
}

func (f *BoolField) IsDefault() bool { return f.value == triDefault }

func (f *BoolField) SetDefault() error {
	f.value = triDefault
	return nil
}

func (f *BoolField) LoadFrom(r *bufio.Reader) error {
	line, err := ReadLine(r, 0)
	if err != nil {
		return err
	}
	if len(line) != 1 {
		return malformed("boolean %q", line)
	}
	switch line[0] {
	case '0':
		f.value = triNo
	case '1':
		f.value = triYes
	default:
		return malformed("boolean %q", line)
	}
	return nil
}

func (f *BoolField) SaveTo(w *bufio.Writer) {
	if f.Get() {
		w.WriteByte('1')
	} else {
		w.WriteByte('0')
	}
}

func (*BoolField) optional() {}

// PathField is a bounded string (usually a file path) with a DEFAULT that
// is distinct from the empty string.
type PathField struct {
	capacity  int
	value     string
	isDefault bool
	fallback  func() string
}

// NewPathField returns a DEFAULT path field of the given capacity.
func NewPathField(capacity int, fallback func() string) PathField {
	return PathField{capacity: capacity, isDefault: true, fallback: fallback}
}

// Get returns the effective value. A DEFAULT field's fallback is cut to the
// field capacity like an assigned value.
func (f *PathField) Get() string {
	if f.isDefault {
		if f.fallback == nil {
			return ""
		}
		return truncate(f.fallback(), f.capacity)
	}
	return f.value
}

func (f *PathField) String() string { return f.Get() }

// Set stores path, cutting it to the field capacity. The empty string is a
// valid, non-DEFAULT value.
func (f *PathField) Set(path string) {
	f.value = truncate(path, f.capacity)
	f.isDefault = false
}

// Assign is Set for an optional source: a nil path leaves the field alone.
func (f *PathField) Assign(path *string) {
	if path != nil {
		f.Set(*path)
	}
}

func (f *PathField) IsDefault() bool { return f.isDefault }

func (f *PathField) SetDefault() error {
	f.value = ""
	f.isDefault = true
	return nil
}

func (f *PathField) LoadFrom(r *bufio.Reader) error {
	s, err := ReadString(r, f.capacity)
	if err != nil {
		return err
	}
	f.value = s
	f.isDefault = false
	return nil
}

func (f *PathField) SaveTo(w *bufio.Writer) {
	WriteString(w, f.Get())
}

func (*PathField) optional() {}
