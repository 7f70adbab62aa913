package infofile

import (
	"bufio"
	"strings"
)

// IDListField persists a list of server or domain IDs as "count id id ...".
// The slice is borrowed: it belongs to the replication channel, which must
// outlive the record, and is only ever replaced as a whole.
type IDListField struct {
	mandatory
	ids *[]uint32
}

// NewIDListField binds the field to ids. A nil ids gets a private slice.
func NewIDListField(ids *[]uint32) IDListField {
	if ids == nil {
		ids = new([]uint32)
	}
	return IDListField{ids: ids}
}

// IDs returns the borrowed slice.
func (f *IDListField) IDs() []uint32 { return *f.ids }

// Set replaces the borrowed slice contents with a copy of ids.
func (f *IDListField) Set(ids []uint32) {
	*f.ids = append([]uint32(nil), ids...)
}

// LoadFrom parses the whole line before touching the borrowed slice, so a
// bad line leaves the previous IDs in place.
func (f *IDListField) LoadFrom(r *bufio.Reader) error {
	line, err := ReadLine(r, 0)
	if err != nil {
		return err
	}
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return malformed("empty id list")
	}
	n, err := ParseInt[int](tokens[0])
	if err != nil {
		return err
	}
	if n < 0 || n != len(tokens)-1 {
		return malformed("id list announces %s ids, has %d", tokens[0], len(tokens)-1)
	}

	ids := make([]uint32, 0, n)
	for _, tok := range tokens[1:] {
		id, err := ParseInt[uint32](tok)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	*f.ids = ids
	return nil
}

func (f *IDListField) SaveTo(w *bufio.Writer) {
	WriteInt(w, len(*f.ids))
	for _, id := range *f.ids {
		w.WriteByte(' ')
		WriteInt(w, id)
	}
}
