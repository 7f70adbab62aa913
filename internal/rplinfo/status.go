package rplinfo

import (
	"slices"

	"grimm.is/rplinfo/internal/infofile"
)

// Status is a snapshot of the effective values of both records, in the
// shape SHOW SLAVE STATUS reports them.
type Status struct {
	MasterHost          string   `json:"master_host" yaml:"master_host"`
	MasterUser          string   `json:"master_user" yaml:"master_user"`
	MasterPort          uint32   `json:"master_port" yaml:"master_port"`
	ConnectRetry        uint32   `json:"connect_retry" yaml:"connect_retry"`
	MasterLogFile       string   `json:"master_log_file" yaml:"master_log_file"`
	ReadMasterLogPos    uint64   `json:"read_master_log_pos" yaml:"read_master_log_pos"`
	RelayLogFile        string   `json:"relay_log_file,omitempty" yaml:"relay_log_file,omitempty"`
	RelayLogPos         uint64   `json:"relay_log_pos,omitempty" yaml:"relay_log_pos,omitempty"`
	RelayMasterLogFile  string   `json:"relay_master_log_file,omitempty" yaml:"relay_master_log_file,omitempty"`
	ExecMasterLogPos    uint64   `json:"exec_master_log_pos,omitempty" yaml:"exec_master_log_pos,omitempty"`
	SQLDelay            uint32   `json:"sql_delay" yaml:"sql_delay"`
	SSLAllowed          bool     `json:"master_ssl_allowed" yaml:"master_ssl_allowed"`
	SSLCAFile           string   `json:"master_ssl_ca_file" yaml:"master_ssl_ca_file"`
	SSLCAPath           string   `json:"master_ssl_ca_path" yaml:"master_ssl_ca_path"`
	SSLCert             string   `json:"master_ssl_cert" yaml:"master_ssl_cert"`
	SSLCipher           string   `json:"master_ssl_cipher" yaml:"master_ssl_cipher"`
	SSLKey              string   `json:"master_ssl_key" yaml:"master_ssl_key"`
	SSLVerifyServerCert bool     `json:"master_ssl_verify_server_cert" yaml:"master_ssl_verify_server_cert"`
	SSLCRL              string   `json:"master_ssl_crl" yaml:"master_ssl_crl"`
	SSLCRLPath          string   `json:"master_ssl_crlpath" yaml:"master_ssl_crlpath"`
	HeartbeatPeriod     string   `json:"slave_heartbeat_period" yaml:"slave_heartbeat_period"`
	RetryCount          uint64   `json:"master_retry_count" yaml:"master_retry_count"`
	UsingGTID           string   `json:"using_gtid" yaml:"using_gtid"`
	IgnoreServerIDs     []uint32 `json:"replicate_ignore_server_ids" yaml:"replicate_ignore_server_ids,flow"`
	DoDomainIDs         []uint32 `json:"replicate_do_domain_ids" yaml:"replicate_do_domain_ids,flow"`
	IgnoreDomainIDs     []uint32 `json:"replicate_ignore_domain_ids" yaml:"replicate_ignore_domain_ids,flow"`

	// Defaults lists the extension keys that follow the server options.
	Defaults []string `json:"defaults,omitempty" yaml:"defaults,omitempty,flow"`
}

// NewStatus builds a Status from mi and, when non-nil, ri.
func NewStatus(mi *MasterInfo, ri *RelayLogInfo) Status {
	s := Status{
		MasterHost:          mi.Host.String(),
		MasterUser:          mi.User.String(),
		MasterPort:          mi.Port.Get(),
		ConnectRetry:        mi.ConnectRetry.Get(),
		MasterLogFile:       mi.LogFile.String(),
		ReadMasterLogPos:    mi.LogPos.Get(),
		SSLAllowed:          mi.SSL.Get(),
		SSLCAFile:           mi.SSLCA.Get(),
		SSLCAPath:           mi.SSLCAPath.Get(),
		SSLCert:             mi.SSLCert.Get(),
		SSLCipher:           mi.SSLCipher.Get(),
		SSLKey:              mi.SSLKey.Get(),
		SSLVerifyServerCert: mi.SSLVerifyServerCert.Get(),
		SSLCRL:              mi.SSLCRL.Get(),
		SSLCRLPath:          mi.SSLCRLPath.Get(),
		HeartbeatPeriod:     infofile.FormatSeconds(mi.HeartbeatPeriod.Millis()),
		RetryCount:          mi.RetryCount.Get(),
		UsingGTID:           mi.UseGTID.Get().String(),
		IgnoreServerIDs:     slices.Clone(mi.IgnoreServerIDs.IDs()),
		DoDomainIDs:         slices.Clone(mi.DoDomainIDs.IDs()),
		IgnoreDomainIDs:     slices.Clone(mi.IgnoreDomainIDs.IDs()),
		Defaults:            mi.DefaultKeys(),
	}
	if ri != nil {
		s.RelayLogFile = ri.RelayLogFile.String()
		s.RelayLogPos = ri.RelayLogPos.Get()
		s.RelayMasterLogFile = ri.MasterLogFile.String()
		s.ExecMasterLogPos = ri.MasterLogPos.Get()
		s.SQLDelay = ri.SQLDelay.Get()
	}
	return s
}
