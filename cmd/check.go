package cmd

import (
	"bytes"
	"errors"
	"flag"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/rplinfo/internal/channel"
	"grimm.is/rplinfo/internal/i18n"
)

// ErrNotCanonical is returned by check when a record would be rewritten
// differently by the next save.
var ErrNotCanonical = errors.New("records are not in canonical form")

// RunCheck loads each record and compares the stored bytes with what a save
// would write. Unknown keys, duplicate keys and old layouts all show up as
// differences. With -fix the canonical form is written back.
func RunCheck(args []string) (err error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	name := fs.String("channel", "", "Channel (connection) name; empty for the default channel")
	all := fs.Bool("all", false, "Check every stored channel")
	fs.BoolVar(all, "a", false, "Check every stored channel (short)")
	fix := fs.Bool("fix", false, "Rewrite records in canonical form")
	quiet := fs.Bool("q", false, "Do not print diffs")
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

	names := []string{*name}
	if *all {
		if names, err = e.backend.List(); err != nil {
			return err
		}
	}

	var errs []error
	differs := 0
	for _, n := range names {
		c, err := e.manager.Open(n)
		if err != nil {
			// A record that does not parse must not be replaced by defaults.
			errs = append(errs, fmt.Errorf("channel %s: %w", displayName(n), err))
			continue
		}
		for _, kind := range []channel.Kind{channel.MasterInfo, channel.RelayLogInfo} {
			same, err := checkRecord(e, c, kind, *quiet)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if same {
				continue
			}
			differs++
			if *fix {
				if err := saveKind(c, kind); err != nil {
					errs = append(errs, err)
					continue
				}
				Printer.Fprintf(Stdout, i18n.MsgSaved, kind, displayName(c.Name()))
			}
		}
	}

	if differs > 0 && !*fix {
		errs = append(errs, fmt.Errorf("%w: %d differ", ErrNotCanonical, differs))
	}
	return errors.Join(errs...)
}

func checkRecord(e *env, c *channel.Channel, kind channel.Kind, quiet bool) (bool, error) {
	label := fmt.Sprintf("%s/%s", displayName(c.Name()), kind)

	stored, err := e.backend.Read(c.Name(), kind)
	if errors.Is(err, channel.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", label, err)
	}
	canonical, err := c.Marshal(kind)
	if err != nil {
		return false, fmt.Errorf("%s: %w", label, err)
	}

	if bytes.Equal(stored, canonical) {
		Printer.Fprintf(Stdout, i18n.MsgCheckOK, label)
		return true, nil
	}
	Printer.Fprintf(Stdout, i18n.MsgCheckDiffers, label)
	if !quiet {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(stored)),
			B:        difflib.SplitLines(string(canonical)),
			FromFile: label + " (stored)",
			ToFile:   label + " (canonical)",
			Context:  3,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		fmt.Fprint(Stdout, text)
	}
	return false, nil
}

func saveKind(c *channel.Channel, kind channel.Kind) error {
	if kind == channel.RelayLogInfo {
		return c.SaveRelay()
	}
	return c.SaveMaster()
}
