package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"grimm.is/rplinfo/internal/channel"
	"grimm.is/rplinfo/internal/config"
	"grimm.is/rplinfo/internal/i18n"
	"grimm.is/rplinfo/internal/logging"
	"grimm.is/rplinfo/internal/state"
)

// RunExport copies every channel from the configured backend to another
// backend, or to a JSON snapshot with -json.
func RunExport(args []string) (err error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	to := fs.String("to", "", "Destination backend (file or sqlite)")
	dest := fs.String("dest", "", "Destination directory (file) or database (sqlite)")
	jsonOut := fs.String("json", "", "Write a JSON snapshot to this file instead")
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

	if *jsonOut != "" {
		return exportJSON(e, *jsonOut)
	}
	dst, store, err := otherBackend(e.cfg, *to, *dest)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	return copyInto(e, e.backend, dst, store, describe(*to, *dest))
}

// RunImport copies every channel from another backend, or from a JSON
// snapshot with -json, into the configured backend.
func RunImport(args []string) (err error) {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	from := fs.String("from", "", "Source backend (file or sqlite)")
	source := fs.String("source", "", "Source directory (file) or database (sqlite)")
	jsonIn := fs.String("json", "", "Read a JSON snapshot from this file instead")
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

	var src channel.Backend
	var srcStore *state.SQLiteStore
	if *jsonIn != "" {
		src, srcStore, err = snapshotBackend(*jsonIn)
	} else {
		src, srcStore, err = otherBackend(e.cfg, *from, *source)
	}
	if err != nil {
		return err
	}
	if srcStore != nil {
		defer srcStore.Close()
	}
	return copyInto(e, src, e.backend, e.store, describe(e.cfg.Backend, e.cfg.StateDir))
}

func describe(kind, path string) string {
	return fmt.Sprintf("%s:%s", kind, path)
}

// otherBackend opens a backend other than the configured one. An empty
// path falls back to the configured locations.
func otherBackend(cfg *config.Config, kind, path string) (channel.Backend, *state.SQLiteStore, error) {
	if kind == "" {
		return nil, nil, errors.New("missing backend (-to or -from)")
	}
	other := *cfg
	switch kind {
	case config.BackendFile:
		if path != "" {
			other.StateDir = path
		}
	case config.BackendSQLite:
		if path != "" {
			other.Database = path
		}
	}
	if kind == cfg.Backend && other.StateDir == cfg.StateDir && other.DatabasePath() == cfg.DatabasePath() {
		return nil, nil, errors.New("source and destination are the same")
	}
	return openBackend(kind, &other)
}

// copyInto normalizes every channel of src and writes it to dst. When dst
// lives in a state store the store is snapshotted first and rolled back if
// any channel fails, so an import is all or nothing.
func copyInto(e *env, src, dst channel.Backend, dstStore *state.SQLiteStore, label string) error {
	log := e.logger.WithComponent("migrate")

	var snap *state.Snapshot
	if dstStore != nil {
		var err error
		if snap, err = dstStore.CreateSnapshot(); err != nil {
			return fmt.Errorf("snapshot destination: %w", err)
		}
		log.Debug("destination snapshot taken", "id", snap.ID, "version", snap.Version)
	}

	n, err := copyChannels(e, src, dst, log)
	if err != nil {
		if snap != nil {
			if rerr := dstStore.RestoreSnapshot(snap); rerr != nil {
				return errors.Join(err, fmt.Errorf("roll back: %w", rerr))
			}
			log.Warn("import rolled back", "snapshot", snap.ID)
		}
		return err
	}
	Printer.Fprintf(Stdout, i18n.MsgCopied, n, label)
	return nil
}

func copyChannels(e *env, src, dst channel.Backend, log *logging.Logger) (int, error) {
	names, err := src.List()
	if err != nil {
		return 0, err
	}

	var errs []error
	copied := 0
	for _, name := range names {
		c, err := channel.New(name, channel.Deps{Backend: src, Options: e.opts, Logger: e.logger, Metrics: e.metrics})
		if err == nil {
			err = c.Load()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", displayName(name), err))
			continue
		}
		ok := true
		for _, kind := range []channel.Kind{channel.MasterInfo, channel.RelayLogInfo} {
			if _, err := src.Read(name, kind); errors.Is(err, channel.ErrNotExist) {
				continue
			}
			data, err := c.Marshal(kind)
			if err == nil {
				err = dst.Write(name, kind, data)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("channel %s %s: %w", displayName(name), kind, err))
				ok = false
			}
		}
		if ok {
			copied++
			log.Info("channel copied", "channel", displayName(name))
		}
	}
	return copied, errors.Join(errs...)
}

func exportJSON(e *env, path string) error {
	// Copy through an in-memory store so the snapshot always has the same
	// shape, whatever the configured backend.
	mem, err := state.NewSQLiteStore(state.DefaultOptions(":memory:"))
	if err != nil {
		return err
	}
	defer mem.Close()
	dst, err := channel.NewSQLiteBackend(mem)
	if err != nil {
		return err
	}
	if _, err := copyChannels(e, e.backend, dst, e.logger.WithComponent("migrate")); err != nil {
		return err
	}

	snap, err := mem.CreateSnapshot()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return err
	}
	Printer.Fprintf(Stdout, i18n.MsgCopied, len(snap.Buckets[channel.MasterInfo.String()]), path)
	return nil
}

// snapshotBackend restores a JSON snapshot into an in-memory store.
func snapshotBackend(path string) (channel.Backend, *state.SQLiteStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var snap state.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	mem, err := state.NewSQLiteStore(state.DefaultOptions(":memory:"))
	if err != nil {
		return nil, nil, err
	}
	if err := mem.RestoreSnapshot(&snap); err != nil {
		mem.Close()
		return nil, nil, err
	}
	b, err := channel.NewSQLiteBackend(mem)
	if err != nil {
		mem.Close()
		return nil, nil, err
	}
	return b, mem, nil
}
