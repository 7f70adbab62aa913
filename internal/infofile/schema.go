package infofile

import "fmt"

// Ref resolves one field of a record instance. Refs live in package-level
// registries and are only ever applied to the record being loaded or saved.
type Ref[R any] func(rec *R) Field

// Entry is one slot of a positional layout.
type Entry[R any] struct {
	Name string
	Ref  Ref[R]
}

// Slot declares a positional entry.
func Slot[R any](name string, ref Ref[R]) Entry[R] {
	return Entry[R]{Name: name, Ref: ref}
}

// Retired declares a slot whose field was dropped; it keeps the following
// lines aligned for files written by older versions.
func Retired[R any](name string) Entry[R] {
	return Entry[R]{Name: name, Ref: func(*R) Field { return Placeholder }}
}

// Layout is the fixed line order of a record's positional section.
type Layout[R any] []Entry[R]

// Ref returns the accessor of the named slot, so extension keys can share
// it. It panics if the layout has no such slot.
func (l Layout[R]) Ref(name string) Ref[R] {
	for _, e := range l {
		if e.Name == name {
			return e.Ref
		}
	}
	panic(fmt.Sprintf("infofile: no slot %q in layout", name))
}

// Key is one entry of an extension block.
type Key[R any] struct {
	Name string
	Ref  Ref[R]
	// Inline keys carry their value ("key=value") when SET because the
	// field has no positional slot. Other keys only mark DEFAULT.
	Inline bool
}

// DefaultKey declares a key that only records the DEFAULT state of a field
// that also has a positional slot.
func DefaultKey[R any](name string, ref Ref[R]) Key[R] {
	return Key[R]{Name: name, Ref: ref}
}

// ValueKey declares a key for a field that lives only in the extension block.
func ValueKey[R any](name string, ref Ref[R]) Key[R] {
	return Key[R]{Name: name, Ref: ref, Inline: true}
}

// Extension is the name-indexed registry of an extension block.
type Extension[R any] struct {
	keys   []Key[R]
	index  map[string]int
	maxLen int
}

// NewExtension builds the registry in save order. It panics on duplicate
// or reserved key names, which are programming errors.
func NewExtension[R any](keys ...Key[R]) *Extension[R] {
	x := &Extension[R]{
		keys:   keys,
		index:  make(map[string]int, len(keys)),
		maxLen: len(EndMarker),
	}
	for i, k := range keys {
		if k.Name == EndMarker || k.Name == "" {
			panic(fmt.Sprintf("infofile: reserved extension key %q", k.Name))
		}
		if _, dup := x.index[k.Name]; dup {
			panic(fmt.Sprintf("infofile: duplicate extension key %q", k.Name))
		}
		x.index[k.Name] = i
		if len(k.Name) > x.maxLen {
			x.maxLen = len(k.Name)
		}
	}
	return x
}

// Lookup finds a key by name.
func (x *Extension[R]) Lookup(name string) (Key[R], bool) {
	i, ok := x.index[name]
	if !ok {
		return Key[R]{}, false
	}
	return x.keys[i], true
}

// Keys returns the keys in save order.
func (x *Extension[R]) Keys() []Key[R] { return x.keys }

// MaxKeyLen is the length of the longest key, END_MARKER included. Longer
// keys in a file are skipped without lookup.
func (x *Extension[R]) MaxKeyLen() int { return x.maxLen }

// VerifyRegistry checks that layout and ext agree for rec: every optional
// positional field must have an extension key, every key must resolve, and
// a key without a positional slot must carry its value.
func VerifyRegistry[R any](rec *R, layout Layout[R], ext *Extension[R]) error {
	positional := make(map[Field]string, len(layout))
	for _, e := range layout {
		if e.Ref == nil {
			return fmt.Errorf("%w: slot %s has no accessor", ErrRegistryMismatch, e.Name)
		}
		positional[e.Ref(rec)] = e.Name
	}

	keyed := make(map[Field]string, len(ext.keys))
	for _, k := range ext.keys {
		if k.Ref == nil {
			return fmt.Errorf("%w: key %s has no accessor", ErrRegistryMismatch, k.Name)
		}
		f := k.Ref(rec)
		if f == nil {
			return fmt.Errorf("%w: key %s resolves to nil", ErrRegistryMismatch, k.Name)
		}
		keyed[f] = k.Name
		if _, ok := positional[f]; !ok && !k.Inline {
			return fmt.Errorf("%w: key %s has no positional slot and no value", ErrRegistryMismatch, k.Name)
		}
	}

	for _, e := range layout {
		f := e.Ref(rec)
		if f == Placeholder || !IsOptional(f) {
			continue
		}
		if _, ok := keyed[f]; !ok {
			return fmt.Errorf("%w: optional slot %s has no extension key", ErrRegistryMismatch, e.Name)
		}
	}
	return nil
}
