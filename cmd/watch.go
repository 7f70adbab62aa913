package cmd

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"grimm.is/rplinfo/internal/channel"
	"grimm.is/rplinfo/internal/config"
	"grimm.is/rplinfo/internal/i18n"
	"grimm.is/rplinfo/internal/logging"
	"grimm.is/rplinfo/internal/metrics"
	"grimm.is/rplinfo/internal/rplinfo"
)

// RunWatch follows the configuration file and reports how the effective
// values of DEFAULT fields move when the server options change. Records are
// never written.
func RunWatch(args []string) (err error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watch(ctx, g, nil)
}

// watch runs until ctx is done. ready, if set, is called once the watcher
// is in place.
func watch(ctx context.Context, g *globalFlags, ready func()) (err error) {
	e, err := openEnv(g)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()

	channels, err := e.manager.Discover()
	if err != nil {
		e.logger.Warn("some channels failed to load", "error", err)
	}

	w, err := config.NewWatcher(g.config, config.DefaultDebounce)
	if err != nil {
		return err
	}
	log := e.logger.WithComponent("watch")
	log.Info("watching configuration", "path", g.config, "channels", len(channels))
	if ready != nil {
		ready()
	}

	return w.Run(ctx, func(cfg *config.Config, err error) {
		if err == nil {
			err = applyReload(e, cfg, channels)
		}
		e.metrics.ConfigReload.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			log.Error("reload failed, keeping previous options", "error", err)
			return
		}
		Printer.Fprintf(Stdout, i18n.MsgConfigReload, g.config)
		if path := e.cfg.Metrics.Textfile; path != "" {
			if err := e.metrics.WriteTextfile(path); err != nil {
				log.Warn("failed to write metrics", "error", err)
			}
		}
	})
}

func applyReload(e *env, cfg *config.Config, channels []*channel.Channel) error {
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	before := make([]rplinfo.Status, len(channels))
	for i, c := range channels {
		before[i] = c.Status()
	}

	e.opts.Apply(settings)
	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		e.logger.SetLevel(level)
	}

	for i, c := range channels {
		reportMoved(c.Name(), before[i], c.Status())
	}
	return nil
}

// reportMoved prints every field whose effective value changed.
func reportMoved(name string, before, after rplinfo.Status) {
	bv, av := reflect.ValueOf(before), reflect.ValueOf(after)
	t := bv.Type()
	for i := 0; i < t.NumField(); i++ {
		if reflect.DeepEqual(bv.Field(i).Interface(), av.Field(i).Interface()) {
			continue
		}
		key, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		Printer.Fprintf(Stdout, i18n.MsgDefaultsMoved, displayName(name), key, av.Field(i).Interface())
	}
}
