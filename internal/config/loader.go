package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// LoadFile reads, decodes and validates the config at path. A missing file
// yields Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadHCL(data, path)
}

// LoadHCL decodes HCL bytes. filename only appears in diagnostics, but it
// must end in .hcl.
func LoadHCL(data []byte, filename string) (*Config, error) {
	if filepath.Ext(filename) != ".hcl" {
		filename += ".hcl"
	}

	var cfg Config
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()

	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, errs
	}
	return &cfg, nil
}

// SaveHCL writes cfg to path, creating the parent directory.
func SaveHCL(cfg *Config, path string) error {
	data := GenerateHCL(cfg)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write HCL file: %w", err)
	}
	return nil
}

// GenerateHCL renders cfg. Optional settings that are unset are left out,
// so the output only pins what the operator chose.
func GenerateHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.SetAttributeValue("schema_version", cty.StringVal(cfg.SchemaVersion))
	body.SetAttributeValue("state_dir", cty.StringVal(cfg.StateDir))
	body.SetAttributeValue("backend", cty.StringVal(cfg.Backend))
	if cfg.Backend == BackendSQLite {
		body.SetAttributeValue("database", cty.StringVal(cfg.Database))
	}
	body.SetAttributeValue("master_info_file", cty.StringVal(cfg.MasterInfoFile))
	body.SetAttributeValue("relay_log_info_file", cty.StringVal(cfg.RelayLogInfoFile))

	if r := cfg.Replication; r != nil {
		body.AppendNewline()
		rb := body.AppendNewBlock("replication", nil).Body()
		if r.ConnectRetry != nil {
			rb.SetAttributeValue("connect_retry", cty.NumberUIntVal(uint64(*r.ConnectRetry)))
		}
		if r.RetryCount != nil {
			rb.SetAttributeValue("retry_count", cty.NumberUIntVal(*r.RetryCount))
		}
		if r.NetTimeout != nil {
			rb.SetAttributeValue("net_timeout", cty.NumberUIntVal(uint64(*r.NetTimeout)))
		}
		setString(rb, "heartbeat_period", r.HeartbeatPeriod)
		if r.SSL != nil {
			rb.SetAttributeValue("ssl", cty.BoolVal(*r.SSL))
		}
		if r.SSLVerifyServerCert != nil {
			rb.SetAttributeValue("ssl_verify_server_cert", cty.BoolVal(*r.SSLVerifyServerCert))
		}
		setString(rb, "ssl_ca", r.SSLCA)
		setString(rb, "ssl_capath", r.SSLCAPath)
		setString(rb, "ssl_cert", r.SSLCert)
		setString(rb, "ssl_cipher", r.SSLCipher)
		setString(rb, "ssl_key", r.SSLKey)
		setString(rb, "ssl_crl", r.SSLCRL)
		setString(rb, "ssl_crlpath", r.SSLCRLPath)
		setString(rb, "use_gtid", r.UseGTID)
	}

	if l := cfg.Logging; l != nil {
		body.AppendNewline()
		lb := body.AppendNewBlock("logging", nil).Body()
		setString(lb, "level", l.Level)
		lb.SetAttributeValue("json", cty.BoolVal(l.JSON))
	}

	if m := cfg.Metrics; m != nil && m.Textfile != "" {
		body.AppendNewline()
		mb := body.AppendNewBlock("metrics", nil).Body()
		mb.SetAttributeValue("textfile", cty.StringVal(m.Textfile))
	}

	return hclwrite.Format(f.Bytes())
}

func setString(body *hclwrite.Body, name, v string) {
	if v != "" {
		body.SetAttributeValue(name, cty.StringVal(v))
	}
}
