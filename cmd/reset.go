package cmd

import (
	"errors"
	"flag"
	"fmt"

	"grimm.is/rplinfo/internal/brand"
	"grimm.is/rplinfo/internal/i18n"
)

// RunReset puts every defaultable master info field of a channel back to
// DEFAULT, as RESET SLAVE does. Coordinates and credentials are kept.
// With -drop the channel's records are deleted instead.
func RunReset(args []string) (err error) {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	name := fs.String("channel", "", "Channel (connection) name; empty for the default channel")
	all := fs.Bool("all", false, "Reset every stored channel")
	drop := fs.Bool("drop", false, "Delete the channel's records")
	confirm := fs.Bool("confirm", false, "Confirm the reset")
	fs.BoolVar(confirm, "y", false, "Confirm the reset (short)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*confirm {
		return fmt.Errorf("reset rewrites replication records; rerun with --confirm.\nExample: %s reset -y -channel east", brand.BinaryName)
	}
	if *drop && *all {
		return errors.New("-drop takes a single channel")
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

	if *drop {
		return e.manager.Drop(*name)
	}

	channels, err := e.channels(*name, *all)
	if err != nil {
		// Resetting a record that failed to load would discard it.
		return err
	}
	var errs []error
	for _, c := range channels {
		before := len(c.Status().Defaults)
		if err := c.Reset(); err != nil {
			errs = append(errs, err)
			continue
		}
		Printer.Fprintf(Stdout, i18n.MsgReset, len(c.Status().Defaults)-before, displayName(c.Name()))
	}
	return errors.Join(errs...)
}
