package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/smazurov/camctl/internal/api"
	"github.com/smazurov/camctl/internal/cache"
	"github.com/smazurov/camctl/internal/config"
	"github.com/smazurov/camctl/internal/controls"
	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/events"
	"github.com/smazurov/camctl/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API with OpenAPI docs at /docs, an SSE event stream and
Prometheus metrics at /metrics. The configuration file is watched and
logging levels, cache TTLs and the auto-adjust settle time are
re-applied when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&a.opts.ServerAddr, "addr", a.opts.ServerAddr, "listen address")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, err := a.controller()
	if err != nil {
		return err
	}

	history := deverr.NewHistory(
		deverr.WithLogger(logging.GetLogger("errors")),
		deverr.WithCallback(func(r deverr.Record) {
			a.bus.Publish(events.ErrorRecordedEvent{
				ID:        r.ID,
				Kind:      string(r.Kind),
				Message:   r.Message,
				Detail:    r.Detail,
				Timestamp: r.Time.UTC().Format(time.RFC3339),
			})
		}),
	)

	var seq atomic.Uint64
	logging.SetLogCallback(func(e logging.LogEntry) {
		a.bus.Publish(events.LogEntryEvent{
			Seq:        seq.Add(1),
			Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
			Level:      e.Level,
			Module:     e.Module,
			Message:    e.Message,
			Device:     e.Device,
			Control:    e.Control,
			Attributes: e.Attributes,
		})
	})
	defer logging.SetLogCallback(nil)

	devCache := cache.New(ctrl, a.opts.CacheConfig(), a.bus)
	defer devCache.Close()
	manager := controls.NewManager(ctrl,
		controls.WithEventBus(a.bus),
		controls.WithHistory(history),
		controls.WithSettleTime(a.opts.SettleTime),
	)

	server := api.NewServer(&api.Options{
		Controller:   ctrl,
		Cache:        devCache,
		Manager:      manager,
		History:      history,
		EventBus:     a.bus,
		AuthUsername: a.opts.AuthUsername,
		AuthPassword: a.opts.AuthPassword,
	})

	watcher := config.NewConfigWatcher(a.opts.Config, config.Load, logging.GetLogger("config"))
	watcher.OnReload(func(o config.Options) {
		a.reload(o, devCache, manager)
	})
	if err := watcher.Start(); err != nil {
		a.logger.Warn("Failed to start config watcher, hot-reload disabled", "error", err)
	} else {
		defer func() { _ = watcher.Stop() }()
	}

	go func() {
		err := devCache.WatchHotplug(ctx)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case deverr.KindOf(err) == deverr.KindPlatformNotSupported:
			a.logger.Debug("Hotplug monitoring unavailable", "error", err)
		default:
			a.logger.Warn("Hotplug monitoring stopped", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(a.opts.ServerAddr)
	}()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.logger.Debug("sd_notify failed", "error", err)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Stop(shutdownCtx)
}

// reload applies the settings that can change without a restart.
func (a *app) reload(o config.Options, c *cache.Cache, m *controls.Manager) {
	if err := logging.SetLevel(o.LoggingLevel); err != nil {
		a.logger.Warn("Ignoring logging level", "error", err)
	}
	for module, level := range o.LoggingModules {
		if err := logging.SetModuleLevel(module, level); err != nil {
			a.logger.Warn("Ignoring module logging level", "module", module, "error", err)
		}
	}
	c.Reconfigure(o.CacheConfig())
	m.SetSettleTime(o.SettleTime)
	a.logger.Info("Configuration reloaded", "config", o.Config)
}
