package infofile

import "bufio"

// Field is the smallest persistable unit of a record.
type Field interface {
	// IsDefault reports whether the field currently defers to its fallback.
	IsDefault() bool
	// SetDefault puts the field back into the DEFAULT state. Mandatory
	// fields return ErrNoDefault.
	SetDefault() error
	// LoadFrom sets the value from one line of r and consumes the newline.
	// After a successful load IsDefault is false.
	LoadFrom(r *bufio.Reader) error
	// SaveTo writes the effective value without a trailing newline.
	SaveTo(w *bufio.Writer)
}

// optionalField is implemented by every field kind that has a DEFAULT state.
type optionalField interface {
	Field
	optional()
}

// IsOptional reports whether f can represent DEFAULT.
func IsOptional(f Field) bool {
	_, ok := f.(optionalField)
	return ok
}

// mandatory provides the Field methods of kinds without a DEFAULT.
type mandatory struct{}

func (mandatory) IsDefault() bool   { return false }
func (mandatory) SetDefault() error { return ErrNoDefault }

// IntField is a mandatory integer, used where no sensible default exists
// (ports, log positions).
type IntField[I Integer] struct {
	mandatory
	Value I
}

func (f *IntField[I]) Get() I  { return f.Value }
func (f *IntField[I]) Set(v I) { f.Value = v }

func (f *IntField[I]) LoadFrom(r *bufio.Reader) error {
	v, err := ReadInt[I](r)
	if err != nil {
		return err
	}
	f.Value = v
	return nil
}

func (f *IntField[I]) SaveTo(w *bufio.Writer) {
	WriteInt(w, f.Value)
}

// StringField is a mandatory string bounded by a fixed capacity.
type StringField struct {
	mandatory
	capacity int
	value    string
}

// NewStringField returns an empty string field holding at most capacity-1 bytes.
func NewStringField(capacity int) StringField {
	return StringField{capacity: capacity}
}

func (f *StringField) String() string { return f.value }

// Set stores s, cutting it to the field capacity.
func (f *StringField) Set(s string) {
	f.value = truncate(s, f.capacity)
}

func (f *StringField) LoadFrom(r *bufio.Reader) error {
	s, err := ReadString(r, f.capacity)
	if err != nil {
		return err
	}
	f.value = s
	return nil
}

func (f *StringField) SaveTo(w *bufio.Writer) {
	WriteString(w, f.value)
}

func truncate(s string, capacity int) string {
	if capacity > 0 && len(s) >= capacity {
		return s[:capacity-1]
	}
	return s
}

// Placeholder occupies a retired positional slot. It discards one line on
// load and renders as an empty line.
var Placeholder Field = placeholder{}

type placeholder struct{ mandatory }

func (placeholder) LoadFrom(r *bufio.Reader) error {
	_, err := ReadLine(r, 0)
	return err
}

func (placeholder) SaveTo(*bufio.Writer) {}
