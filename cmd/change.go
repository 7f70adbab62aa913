package cmd

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"grimm.is/rplinfo/internal/i18n"
	"grimm.is/rplinfo/internal/infofile"
	"grimm.is/rplinfo/internal/rplinfo"
)

// changeOptions are the CHANGE MASTER options accepted by the change
// command, with their flag help. Options marked defaultable accept the
// value "default".
var changeOptions = []struct {
	name        string
	usage       string
	defaultable bool
}{
	{"host", "Source host name", false},
	{"user", "Replication user", false},
	{"password", "Replication password", false},
	{"port", "Source port", false},
	{"log-file", "Source binlog file name", false},
	{"log-pos", "Source binlog position", false},
	{"connect-retry", "Seconds between reconnect attempts", true},
	{"retry-count", "Reconnect attempts before giving up", true},
	{"ssl", "Use TLS (true/false)", true},
	{"ssl-verify-server-cert", "Verify the source certificate (true/false)", true},
	{"ssl-ca", "CA file", true},
	{"ssl-capath", "CA directory", true},
	{"ssl-cert", "Client certificate", true},
	{"ssl-cipher", "Cipher list", true},
	{"ssl-key", "Client key", true},
	{"ssl-crl", "CRL file", true},
	{"ssl-crlpath", "CRL directory", true},
	{"heartbeat-period", "Heartbeat period in seconds, e.g. 1.5", true},
	{"use-gtid", "no, current_pos or slave_pos", true},
	{"ignore-server-ids", "Comma separated server IDs; empty clears", false},
	{"do-domain-ids", "Comma separated GTID domain IDs; empty clears", false},
	{"ignore-domain-ids", "Comma separated GTID domain IDs; empty clears", false},
}

// RunChange applies CHANGE MASTER style options to a channel and saves its
// master info record. Only flags given on the command line are changed.
func RunChange(args []string) (err error) {
	fs := flag.NewFlagSet("change", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	name := fs.String("channel", "", "Channel (connection) name; empty for the default channel")
	for _, o := range changeOptions {
		usage := o.usage
		if o.defaultable {
			usage += ` ("default" follows the server option)`
		}
		fs.String(o.name, "", usage)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	given := make(map[string]string)
	fs.Visit(func(f *flag.Flag) { given[f.Name] = f.Value.String() })
	req, err := buildChangeRequest(given)
	if err != nil {
		return err
	}

	e, err := openEnv(g)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()

	c, err := e.manager.Open(*name)
	if err != nil {
		return err
	}
	if err := c.Change(req); err != nil {
		return err
	}
	Printer.Fprintf(Stdout, i18n.MsgSaved, "master_info", displayName(c.Name()))
	return nil
}

// buildChangeRequest turns flag values into a request. Flags that are not
// in given stay nil.
func buildChangeRequest(given map[string]string) (*rplinfo.ChangeRequest, error) {
	req := &rplinfo.ChangeRequest{}
	var err error
	for flagName, v := range given {
		v := v // per-iteration copy: the pointers taken below must not alias
		switch flagName {
		case "host":
			req.Host = &v
		case "user":
			req.User = &v
		case "password":
			req.Password = &v
		case "log-file":
			req.LogFile = &v
		case "port":
			req.Port, err = parsePtr[uint32](v)
		case "log-pos":
			req.LogPos, err = parsePtr[uint64](v)
		case "connect-retry":
			req.ConnectRetry, err = parseSetting(v, infofile.ParseInt[uint32])
		case "retry-count":
			req.RetryCount, err = parseSetting(v, infofile.ParseInt[uint64])
		case "ssl":
			req.SSL, err = parseSetting(v, strconv.ParseBool)
		case "ssl-verify-server-cert":
			req.SSLVerifyServerCert, err = parseSetting(v, strconv.ParseBool)
		case "ssl-ca":
			req.SSLCA = stringSetting(v)
		case "ssl-capath":
			req.SSLCAPath = stringSetting(v)
		case "ssl-cert":
			req.SSLCert = stringSetting(v)
		case "ssl-cipher":
			req.SSLCipher = stringSetting(v)
		case "ssl-key":
			req.SSLKey = stringSetting(v)
		case "ssl-crl":
			req.SSLCRL = stringSetting(v)
		case "ssl-crlpath":
			req.SSLCRLPath = stringSetting(v)
		case "heartbeat-period":
			req.HeartbeatPeriod, err = parseSetting(v, infofile.ParseSeconds)
		case "use-gtid":
			req.UseGTID, err = parseSetting(v, infofile.ParseGTIDMode)
		case "ignore-server-ids":
			req.IgnoreServerIDs, err = parseIDs(v)
		case "do-domain-ids":
			req.DoDomainIDs, err = parseIDs(v)
		case "ignore-domain-ids":
			req.IgnoreDomainIDs, err = parseIDs(v)
		}
		if err != nil {
			return nil, fmt.Errorf("-%s: %w", flagName, err)
		}
	}
	return req, req.Validate()
}

func parsePtr[I infofile.Integer](v string) (*I, error) {
	n, err := infofile.ParseInt[I](v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func isDefault(v string) bool {
	return strings.EqualFold(v, "default")
}

func parseSetting[T any](v string, parse func(string) (T, error)) (*rplinfo.Setting[T], error) {
	if isDefault(v) {
		return rplinfo.Default[T](), nil
	}
	x, err := parse(v)
	if err != nil {
		return nil, err
	}
	return rplinfo.To(x), nil
}

func stringSetting(v string) *rplinfo.Setting[string] {
	if isDefault(v) {
		return rplinfo.Default[string]()
	}
	return rplinfo.To(v)
}

func parseIDs(v string) (*[]uint32, error) {
	ids := []uint32{}
	for _, f := range strings.Split(v, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		id, err := infofile.ParseInt[uint32](f)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return &ids, nil
}
