package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v2"

	"grimm.is/rplinfo/internal/i18n"
	"grimm.is/rplinfo/internal/rplinfo"
)

// channelStatus is one entry of show -json / -yaml.
type channelStatus struct {
	Channel        string `json:"channel" yaml:"channel"`
	rplinfo.Status `yaml:",inline"`
}

// RunShow prints the effective values of one or all channels.
func RunShow(args []string) (err error) {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	name := fs.String("channel", "", "Channel (connection) name; empty for the default channel")
	all := fs.Bool("all", false, "Show every stored channel")
	fs.BoolVar(all, "a", false, "Show every stored channel (short)")
	asJSON := fs.Bool("json", false, "Print JSON")
	asYAML := fs.Bool("yaml", false, "Print YAML")
	if err := fs.Parse(args); err != nil {
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

	channels, loadErr := e.channels(*name, *all)
	if len(channels) == 0 {
		if loadErr != nil {
			return loadErr
		}
		Printer.Fprintf(Stdout, i18n.MsgNoChannels, e.cfg.StateDir)
		return nil
	}

	statuses := make([]channelStatus, 0, len(channels))
	for _, c := range channels {
		statuses = append(statuses, channelStatus{Channel: displayName(c.Name()), Status: c.Status()})
	}

	switch {
	case *asJSON:
		out, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(Stdout, "%s\n", out)
	case *asYAML:
		out, err := yaml.Marshal(statuses)
		if err != nil {
			return err
		}
		fmt.Fprintf(Stdout, "%s", out)
	default:
		for i, st := range statuses {
			if i > 0 {
				fmt.Fprintln(Stdout)
			}
			printStatus(st)
		}
	}

	// Records that failed to load are shown with defaults, but the command
	// still fails.
	return loadErr
}

func printStatus(st channelStatus) {
	defaults := make(map[string]bool, len(st.Defaults))
	for _, k := range st.Defaults {
		defaults[k] = true
	}
	mark := func(key string) string {
		if defaults[key] {
			return "\t(default)"
		}
		return ""
	}
	ids := func(v []uint32) string {
		s := make([]string, len(v))
		for i, id := range v {
			s[i] = fmt.Sprint(id)
		}
		return strings.Join(s, ",")
	}

	w := tabwriter.NewWriter(Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Connection_name:\t%s\n", st.Channel)
	fmt.Fprintf(w, "Master_Host:\t%s\n", st.MasterHost)
	fmt.Fprintf(w, "Master_User:\t%s\n", st.MasterUser)
	fmt.Fprintf(w, "Master_Port:\t%d\n", st.MasterPort)
	fmt.Fprintf(w, "Connect_Retry:\t%d%s\n", st.ConnectRetry, mark("connect_retry"))
	fmt.Fprintf(w, "Master_Log_File:\t%s\n", st.MasterLogFile)
	fmt.Fprintf(w, "Read_Master_Log_Pos:\t%d\n", st.ReadMasterLogPos)
	fmt.Fprintf(w, "Relay_Log_File:\t%s\n", st.RelayLogFile)
	fmt.Fprintf(w, "Relay_Log_Pos:\t%d\n", st.RelayLogPos)
	fmt.Fprintf(w, "Relay_Master_Log_File:\t%s\n", st.RelayMasterLogFile)
	fmt.Fprintf(w, "Exec_Master_Log_Pos:\t%d\n", st.ExecMasterLogPos)
	fmt.Fprintf(w, "Replicate_Ignore_Server_Ids:\t%s\n", ids(st.IgnoreServerIDs))
	fmt.Fprintf(w, "Master_SSL_Allowed:\t%s%s\n", yesNo(st.SSLAllowed), mark("ssl"))
	fmt.Fprintf(w, "Master_SSL_CA_File:\t%s%s\n", st.SSLCAFile, mark("ssl_ca"))
	fmt.Fprintf(w, "Master_SSL_CA_Path:\t%s%s\n", st.SSLCAPath, mark("ssl_capath"))
	fmt.Fprintf(w, "Master_SSL_Cert:\t%s%s\n", st.SSLCert, mark("ssl_cert"))
	fmt.Fprintf(w, "Master_SSL_Cipher:\t%s%s\n", st.SSLCipher, mark("ssl_cipher"))
	fmt.Fprintf(w, "Master_SSL_Key:\t%s%s\n", st.SSLKey, mark("ssl_key"))
	fmt.Fprintf(w, "Master_SSL_Verify_Server_Cert:\t%s%s\n", yesNo(st.SSLVerifyServerCert), mark("ssl_verify_server_cert"))
	fmt.Fprintf(w, "Master_SSL_Crl:\t%s%s\n", st.SSLCRL, mark("ssl_crl"))
	fmt.Fprintf(w, "Master_SSL_Crlpath:\t%s%s\n", st.SSLCRLPath, mark("ssl_crlpath"))
	fmt.Fprintf(w, "Using_Gtid:\t%s%s\n", st.UsingGTID, mark("using_gtid"))
	fmt.Fprintf(w, "Replicate_Do_Domain_Ids:\t%s\n", ids(st.DoDomainIDs))
	fmt.Fprintf(w, "Replicate_Ignore_Domain_Ids:\t%s\n", ids(st.IgnoreDomainIDs))
	fmt.Fprintf(w, "SQL_Delay:\t%d\n", st.SQLDelay)
	fmt.Fprintf(w, "Slave_Heartbeat_Period:\t%s%s\n", st.HeartbeatPeriod, mark("heartbeat_period"))
	fmt.Fprintf(w, "Master_Retry_Count:\t%d%s\n", st.RetryCount, mark("retry_count"))
	w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
