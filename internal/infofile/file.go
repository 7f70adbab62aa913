package infofile

import (
	"bufio"
	"errors"
	"strings"
)

// EndMarker terminates an extension block. Anything after it is left over
// from a longer earlier write and is never read.
const EndMarker = "END_MARKER"

// LoadPositional reads every slot of layout in order. The first failure
// fails the whole record; rec is then indeterminate.
func LoadPositional[R any](r *bufio.Reader, rec *R, layout Layout[R]) error {
	for _, e := range layout {
		if err := e.Ref(rec).LoadFrom(r); err != nil {
			return fieldError(e.Name, err)
		}
	}
	return nil
}

// SavePositional writes every slot of layout, one per line.
func SavePositional[R any](w *bufio.Writer, rec *R, layout Layout[R]) {
	for _, e := range layout {
		e.Ref(rec).SaveTo(w)
		w.WriteByte('\n')
	}
}

// ExtensionReport counts what LoadExtension did with each line.
type ExtensionReport struct {
	Loaded    int // key=value applied
	Defaulted int // bare key applied
	Unknown   int // key not in the registry
	Duplicate int // key already seen in this block
	Overlong  int // key longer than any known key
}

// Skipped is the number of lines that were ignored.
func (r ExtensionReport) Skipped() int {
	return r.Unknown + r.Duplicate + r.Overlong
}

// LoadExtension reads "key" and "key=value" lines until END_MARKER.
//
// Unknown keys come from newer versions and are skipped so downgrades work.
// Repeated keys are skipped too: older versions could leave stale lines
// behind when the file shrank, and only the first occurrence is current.
func LoadExtension[R any](r *bufio.Reader, rec *R, ext *Extension[R]) (ExtensionReport, error) {
	var report ExtensionReport
	seen := make(map[string]bool, len(ext.keys))
	for {
		line, err := ReadLine(r, 0)
		if err != nil {
			if errors.Is(err, ErrTruncated) {
				return report, ErrMissingSentinel
			}
			return report, err
		}

		name, value, hasValue := strings.Cut(line, "=")
		if len(name) > ext.maxLen {
			report.Overlong++
			continue
		}
		if name == EndMarker {
			return report, nil
		}
		key, ok := ext.Lookup(name)
		if !ok {
			report.Unknown++
			continue
		}
		if seen[name] {
			report.Duplicate++
			continue
		}
		seen[name] = true

		field := key.Ref(rec)
		if hasValue {
			err = field.LoadFrom(bufio.NewReader(strings.NewReader(value + "\n")))
			report.Loaded++
		} else {
			err = field.SetDefault()
			report.Defaulted++
		}
		if err != nil {
			return report, fieldError(name, err)
		}
	}
}

// SaveExtension writes a bare key for every DEFAULT field, "key=value" for
// SET fields that have no positional slot, and the END_MARKER line.
func SaveExtension[R any](w *bufio.Writer, rec *R, ext *Extension[R]) {
	for _, k := range ext.keys {
		field := k.Ref(rec)
		switch {
		case field.IsDefault():
			w.WriteString(k.Name)
			w.WriteByte('\n')
		case k.Inline:
			w.WriteString(k.Name)
			w.WriteByte('=')
			field.SaveTo(w)
			w.WriteByte('\n')
		}
	}
	w.WriteString(EndMarker)
	w.WriteByte('\n')
}
