package rplinfo

import (
	"bufio"
	"fmt"
	"io"

	"grimm.is/rplinfo/internal/infofile"
)

// IDArrays are the ID lists a MasterInfo borrows from its channel. The
// channel owns the slices and must outlive the record.
type IDArrays struct {
	IgnoreServerIDs *[]uint32
	DoDomainIDs     *[]uint32
	IgnoreDomainIDs *[]uint32
}

// MasterInfo is the connection record: where the source is, how to talk to
// it, and the source binlog coordinates the I/O thread resumes from.
type MasterInfo struct {
	LogFile  infofile.StringField
	LogPos   infofile.IntField[uint64]
	Host     infofile.StringField
	User     infofile.StringField
	Password infofile.StringField
	Port     infofile.IntField[uint32]

	ConnectRetry        infofile.OptionalIntField[uint32]
	SSL                 infofile.BoolField
	SSLCA               infofile.PathField
	SSLCAPath           infofile.PathField
	SSLCert             infofile.PathField
	SSLCipher           infofile.PathField
	SSLKey              infofile.PathField
	SSLVerifyServerCert infofile.BoolField
	HeartbeatPeriod     infofile.HeartbeatField
	IgnoreServerIDs     infofile.IDListField
	RetryCount          infofile.OptionalIntField[uint64]
	SSLCRL              infofile.PathField
	SSLCRLPath          infofile.PathField

	UseGTID         infofile.GTIDModeField
	DoDomainIDs     infofile.IDListField
	IgnoreDomainIDs infofile.IDListField
}

// NewMasterInfo returns a record with every defaultable field in DEFAULT
// state, bound to opts. A nil entry in ids gives the record a private list.
func NewMasterInfo(opts *Options, ids IDArrays) *MasterInfo {
	if opts == nil {
		opts = NewOptions()
	}
	return &MasterInfo{
		LogFile:  infofile.NewStringField(infofile.PathCapacity),
		Host:     infofile.NewStringField(infofile.HostCapacity),
		User:     infofile.NewStringField(infofile.UserCapacity),
		Password: infofile.NewStringField(infofile.PasswordCapacity),

		ConnectRetry:        infofile.NewOptionalIntField(opts.ConnectRetry),
		SSL:                 infofile.NewBoolField(opts.SSL),
		SSLCA:               infofile.NewPathField(infofile.PathCapacity, opts.SSLCA),
		SSLCAPath:           infofile.NewPathField(infofile.PathCapacity, opts.SSLCAPath),
		SSLCert:             infofile.NewPathField(infofile.PathCapacity, opts.SSLCert),
		SSLCipher:           infofile.NewPathField(infofile.PathCapacity, opts.SSLCipher),
		SSLKey:              infofile.NewPathField(infofile.PathCapacity, opts.SSLKey),
		SSLVerifyServerCert: infofile.NewBoolField(opts.SSLVerifyServerCert),
		HeartbeatPeriod:     infofile.NewHeartbeatField(opts.HeartbeatPeriodMillis),
		IgnoreServerIDs:     infofile.NewIDListField(ids.IgnoreServerIDs),
		RetryCount:          infofile.NewOptionalIntField(opts.RetryCount),
		SSLCRL:              infofile.NewPathField(infofile.PathCapacity, opts.SSLCRL),
		SSLCRLPath:          infofile.NewPathField(infofile.PathCapacity, opts.SSLCRLPath),

		UseGTID:         infofile.NewGTIDModeField(opts.UseGTID),
		DoDomainIDs:     infofile.NewIDListField(ids.DoDomainIDs),
		IgnoreDomainIDs: infofile.NewIDListField(ids.IgnoreDomainIDs),
	}
}

func masterRef(f func(mi *MasterInfo) infofile.Field) infofile.Ref[MasterInfo] { return f }

// masterLayout is the line order of the positional section. Line 17 held
// MySQL's master_uuid, which is not used.
var masterLayout = infofile.Layout[MasterInfo]{
	infofile.Slot("master_log_file", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.LogFile })),
	infofile.Slot("master_log_pos", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.LogPos })),
	infofile.Slot("master_host", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.Host })),
	infofile.Slot("master_user", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.User })),
	infofile.Slot("master_password", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.Password })),
	infofile.Slot("master_port", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.Port })),
	infofile.Slot("connect_retry", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.ConnectRetry })),
	infofile.Slot("ssl", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.SSL })),
	infofile.Slot("ssl_ca", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.SSLCA })),
	infofile.Slot("ssl_capath", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.SSLCAPath })),
	infofile.Slot("ssl_cert", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.SSLCert })),
	infofile.Slot("ssl_cipher", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.SSLCipher })),
	infofile.Slot("ssl_key", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.SSLKey })),
	infofile.Slot("ssl_verify_server_cert", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.SSLVerifyServerCert })),
	infofile.Slot("heartbeat_period", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.HeartbeatPeriod })),
	infofile.Slot("ignore_server_ids", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.IgnoreServerIDs })),
	infofile.Retired[MasterInfo]("master_uuid"),
	infofile.Slot("retry_count", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.RetryCount })),
	infofile.Slot("ssl_crl", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.SSLCRL })),
	infofile.Slot("ssl_crlpath", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.SSLCRLPath })),
}

// masterExtension is the key=value block that follows the positional
// section. Keys match the old Master_info property names so files stay
// readable across versions.
var masterExtension = infofile.NewExtension(
	infofile.DefaultKey("connect_retry", masterLayout.Ref("connect_retry")),
	infofile.DefaultKey("ssl", masterLayout.Ref("ssl")),
	infofile.DefaultKey("ssl_ca", masterLayout.Ref("ssl_ca")),
	infofile.DefaultKey("ssl_capath", masterLayout.Ref("ssl_capath")),
	infofile.DefaultKey("ssl_cert", masterLayout.Ref("ssl_cert")),
	infofile.DefaultKey("ssl_cipher", masterLayout.Ref("ssl_cipher")),
	infofile.DefaultKey("ssl_key", masterLayout.Ref("ssl_key")),
	infofile.DefaultKey("ssl_crl", masterLayout.Ref("ssl_crl")),
	infofile.DefaultKey("ssl_crlpath", masterLayout.Ref("ssl_crlpath")),
	infofile.DefaultKey("ssl_verify_server_cert", masterLayout.Ref("ssl_verify_server_cert")),
	infofile.DefaultKey("heartbeat_period", masterLayout.Ref("heartbeat_period")),
	infofile.DefaultKey("retry_count", masterLayout.Ref("retry_count")),
	infofile.ValueKey("using_gtid", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.UseGTID })),
	infofile.ValueKey("do_domain_ids", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.DoDomainIDs })),
	infofile.ValueKey("ignore_domain_ids", masterRef(func(mi *MasterInfo) infofile.Field { return &mi.IgnoreDomainIDs })),
)

// Verify checks that the positional layout and the extension keys of
// MasterInfo agree.
func (mi *MasterInfo) Verify() error {
	return infofile.VerifyRegistry(mi, masterLayout, masterExtension)
}

// Load reads a master info file. On error the record is indeterminate and
// should be discarded. Fields the file does not mention keep their values.
func (mi *MasterInfo) Load(r io.Reader) (infofile.ExtensionReport, error) {
	br := bufio.NewReader(r)
	if err := infofile.LoadPositional(br, mi, masterLayout); err != nil {
		return infofile.ExtensionReport{}, fmt.Errorf("master info: %w", err)
	}
	report, err := infofile.LoadExtension(br, mi, masterExtension)
	if err != nil {
		return report, fmt.Errorf("master info: %w", err)
	}
	return report, nil
}

// Save writes the whole record to w.
func (mi *MasterInfo) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	infofile.SavePositional(bw, mi, masterLayout)
	infofile.SaveExtension(bw, mi, masterExtension)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("master info: %w", err)
	}
	return nil
}

// ResetToDefaults puts every defaultable field back to DEFAULT, as RESET
// SLAVE does. Coordinates, credentials, ID lists and the cached GTID
// capability are kept.
func (mi *MasterInfo) ResetToDefaults() {
	for _, k := range masterExtension.Keys() {
		f := k.Ref(mi)
		if infofile.IsOptional(f) {
			_ = f.SetDefault()
		}
	}
}

// DefaultKeys lists the extension keys whose fields are currently DEFAULT.
func (mi *MasterInfo) DefaultKeys() []string {
	var keys []string
	for _, k := range masterExtension.Keys() {
		if k.Ref(mi).IsDefault() {
			keys = append(keys, k.Name)
		}
	}
	return keys
}
