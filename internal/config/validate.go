package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"grimm.is/rplinfo/internal/infofile"
	"grimm.is/rplinfo/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.SchemaVersion != CurrentSchemaVersion {
		add("schema_version", "unsupported version %q (supported: %s)", c.SchemaVersion, CurrentSchemaVersion)
	}
	if !filepath.IsAbs(c.StateDir) {
		add("state_dir", "must be an absolute path, got %q", c.StateDir)
	}
	switch c.Backend {
	case BackendFile, BackendSQLite:
	default:
		add("backend", "must be %q or %q, got %q", BackendFile, BackendSQLite, c.Backend)
	}
	for _, f := range []struct{ field, name string }{
		{"master_info_file", c.MasterInfoFile},
		{"relay_log_info_file", c.RelayLogInfoFile},
	} {
		if f.name != filepath.Base(f.name) || strings.HasPrefix(f.name, ".") {
			add(f.field, "must be a plain file name, got %q", f.name)
		}
	}
	if c.MasterInfoFile == c.RelayLogInfoFile {
		add("relay_log_info_file", "must differ from master_info_file")
	}

	if _, err := c.Settings(); err != nil {
		field, msg, _ := strings.Cut(err.Error(), ": ")
		add("replication."+field, "%s", msg)
	}
	if r := c.Replication; r != nil {
		for _, p := range []struct{ field, value string }{
			{"ssl_ca", r.SSLCA},
			{"ssl_capath", r.SSLCAPath},
			{"ssl_cert", r.SSLCert},
			{"ssl_cipher", r.SSLCipher},
			{"ssl_key", r.SSLKey},
			{"ssl_crl", r.SSLCRL},
			{"ssl_crlpath", r.SSLCRLPath},
		} {
			// DEFAULT fields save this value on their own line.
			switch {
			case strings.ContainsRune(p.value, '\n'):
				add("replication."+p.field, "must not contain a newline")
			case len(p.value) >= infofile.PathCapacity:
				add("replication."+p.field, "is %d bytes, the limit is %d", len(p.value), infofile.PathCapacity-1)
			}
		}
	}
	if c.Logging != nil {
		if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
			add("logging.level", "%v", err)
		}
	}
	if c.Metrics != nil && c.Metrics.Textfile != "" && filepath.Ext(c.Metrics.Textfile) != ".prom" {
		add("metrics.textfile", "the textfile collector only reads *.prom files")
	}
	return errs
}
