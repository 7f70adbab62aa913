package rplinfo

import (
	"bufio"
	"fmt"
	"io"

	"grimm.is/rplinfo/internal/infofile"
)

// RelayLogInfo is the position record of the SQL thread: how far it has
// read the local relay log and the matching source coordinates.
type RelayLogInfo struct {
	RelayLogFile  infofile.StringField
	RelayLogPos   infofile.IntField[uint64]
	MasterLogFile infofile.StringField
	MasterLogPos  infofile.IntField[uint64]
	// SQLDelay is MASTER_DELAY in seconds.
	SQLDelay infofile.IntField[uint32]
}

func NewRelayLogInfo() *RelayLogInfo {
	return &RelayLogInfo{
		RelayLogFile:  infofile.NewStringField(infofile.PathCapacity),
		MasterLogFile: infofile.NewStringField(infofile.PathCapacity),
	}
}

var relayLayout = infofile.Layout[RelayLogInfo]{
	infofile.Slot("relay_log_file", relayRef(func(ri *RelayLogInfo) infofile.Field { return &ri.RelayLogFile })),
	infofile.Slot("relay_log_pos", relayRef(func(ri *RelayLogInfo) infofile.Field { return &ri.RelayLogPos })),
	infofile.Slot("master_log_file", relayRef(func(ri *RelayLogInfo) infofile.Field { return &ri.MasterLogFile })),
	infofile.Slot("master_log_pos", relayRef(func(ri *RelayLogInfo) infofile.Field { return &ri.MasterLogPos })),
	infofile.Slot("sql_delay", relayRef(func(ri *RelayLogInfo) infofile.Field { return &ri.SQLDelay })),
}

func relayRef(f func(ri *RelayLogInfo) infofile.Field) infofile.Ref[RelayLogInfo] { return f }

// Load reads a relay log info file. The record has no extension block;
// anything after the last slot is ignored.
func (ri *RelayLogInfo) Load(r io.Reader) error {
	if err := infofile.LoadPositional(bufio.NewReader(r), ri, relayLayout); err != nil {
		return fmt.Errorf("relay log info: %w", err)
	}
	return nil
}

func (ri *RelayLogInfo) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	infofile.SavePositional(bw, ri, relayLayout)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("relay log info: %w", err)
	}
	return nil
}
