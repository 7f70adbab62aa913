// Package config loads the rplinfo HCL configuration: where the info
// records live, which backend stores them, and the server options that
// DEFAULT fields fall back to.
package config

import (
	"fmt"
	"path/filepath"

	"grimm.is/rplinfo/internal/brand"
	"grimm.is/rplinfo/internal/infofile"
	"grimm.is/rplinfo/internal/rplinfo"
)

// CurrentSchemaVersion is written by GenerateHCL.
const CurrentSchemaVersion = "1.0"

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the top-level configuration.
type Config struct {
	SchemaVersion string `hcl:"schema_version,optional" json:"schema_version,omitempty"`

	// StateDir holds the info files, or the database for the sqlite backend.
	StateDir         string `hcl:"state_dir,optional" json:"state_dir"`
	Backend          string `hcl:"backend,optional" json:"backend"`
	Database         string `hcl:"database,optional" json:"database,omitempty"`
	MasterInfoFile   string `hcl:"master_info_file,optional" json:"master_info_file"`
	RelayLogInfoFile string `hcl:"relay_log_info_file,optional" json:"relay_log_info_file"`

	Replication *ReplicationConfig `hcl:"replication,block" json:"replication,omitempty"`
	Logging     *LoggingConfig     `hcl:"logging,block" json:"logging,omitempty"`
	Metrics     *MetricsConfig     `hcl:"metrics,block" json:"metrics,omitempty"`
}

// ReplicationConfig mirrors the server options a DEFAULT master info field
// follows. Unset attributes keep the server defaults.
type ReplicationConfig struct {
	ConnectRetry *uint32 `hcl:"connect_retry,optional" json:"connect_retry,omitempty"`
	RetryCount   *uint64 `hcl:"retry_count,optional" json:"retry_count,omitempty"`
	NetTimeout   *uint32 `hcl:"net_timeout,optional" json:"net_timeout,omitempty"`
	// HeartbeatPeriod is in seconds with up to three decimals, e.g. "1.5".
	HeartbeatPeriod     string `hcl:"heartbeat_period,optional" json:"heartbeat_period,omitempty"`
	SSL                 *bool  `hcl:"ssl,optional" json:"ssl,omitempty"`
	SSLVerifyServerCert *bool  `hcl:"ssl_verify_server_cert,optional" json:"ssl_verify_server_cert,omitempty"`
	SSLCA               string `hcl:"ssl_ca,optional" json:"ssl_ca,omitempty"`
	SSLCAPath           string `hcl:"ssl_capath,optional" json:"ssl_capath,omitempty"`
	SSLCert             string `hcl:"ssl_cert,optional" json:"ssl_cert,omitempty"`
	SSLCipher           string `hcl:"ssl_cipher,optional" json:"ssl_cipher,omitempty"`
	SSLKey              string `hcl:"ssl_key,optional" json:"ssl_key,omitempty"`
	SSLCRL              string `hcl:"ssl_crl,optional" json:"ssl_crl,omitempty"`
	SSLCRLPath          string `hcl:"ssl_crlpath,optional" json:"ssl_crlpath,omitempty"`
	UseGTID             string `hcl:"use_gtid,optional" json:"use_gtid,omitempty"`
}

type LoggingConfig struct {
	Level string `hcl:"level,optional" json:"level,omitempty"`
	JSON  bool   `hcl:"json,optional" json:"json,omitempty"`
}

// MetricsConfig enables writing metrics for the node exporter textfile
// collector after every command.
type MetricsConfig struct {
	Textfile string `hcl:"textfile,optional" json:"textfile,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.SchemaVersion == "" {
		c.SchemaVersion = CurrentSchemaVersion
	}
	if c.StateDir == "" {
		c.StateDir = brand.GetStateDir()
	}
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Database == "" {
		c.Database = brand.DatabaseFile
	}
	if c.MasterInfoFile == "" {
		c.MasterInfoFile = brand.MasterInfoFile
	}
	if c.RelayLogInfoFile == "" {
		c.RelayLogInfoFile = brand.RelayLogInfoFile
	}
	if c.Replication == nil {
		c.Replication = &ReplicationConfig{}
	}
	if c.Logging == nil {
		c.Logging = &LoggingConfig{Level: "info"}
	}
	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}
}

// DatabasePath resolves Database against StateDir.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(c.StateDir, c.Database)
}

// Settings converts the replication block into option values.
func (c *Config) Settings() (rplinfo.Settings, error) {
	s := rplinfo.DefaultSettings()
	r := c.Replication
	if r == nil {
		return s, nil
	}

	if r.ConnectRetry != nil {
		s.ConnectRetry = *r.ConnectRetry
	}
	if r.RetryCount != nil {
		s.RetryCount = *r.RetryCount
	}
	if r.NetTimeout != nil {
		s.NetTimeout = *r.NetTimeout
	}
	if r.SSL != nil {
		s.SSL = *r.SSL
	}
	if r.SSLVerifyServerCert != nil {
		s.SSLVerifyServerCert = *r.SSLVerifyServerCert
	}
	s.SSLCA = r.SSLCA
	s.SSLCAPath = r.SSLCAPath
	s.SSLCert = r.SSLCert
	s.SSLCipher = r.SSLCipher
	s.SSLKey = r.SSLKey
	s.SSLCRL = r.SSLCRL
	s.SSLCRLPath = r.SSLCRLPath

	if r.HeartbeatPeriod != "" {
		ms, err := infofile.ParseSeconds(r.HeartbeatPeriod)
		if err != nil {
			return s, fmt.Errorf("heartbeat_period: %w", err)
		}
		s.HeartbeatPeriod = &ms
	}
	if r.UseGTID != "" {
		mode, err := infofile.ParseGTIDMode(r.UseGTID)
		if err != nil {
			return s, fmt.Errorf("use_gtid: %w", err)
		}
		s.UseGTID = mode
	}
	return s, nil
}
