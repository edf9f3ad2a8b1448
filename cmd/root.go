// Package cmd implements the camctl command line: a v4l2-ctl style root
// command plus the serve, advanced, auto, auto-adjust and version
// subcommands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/camctl/internal/config"
	"github.com/smazurov/camctl/internal/devices"
	"github.com/smazurov/camctl/internal/events"
	"github.com/smazurov/camctl/internal/logging"
)

// app is the state shared by the root command and its subcommands.
type app struct {
	opts   config.Options
	bus    *events.Bus
	ctrl   *devices.Controller
	logger *slog.Logger
}

func newApp() *app {
	return &app{opts: config.DefaultOptions()}
}

// setup layers file, env and flags into opts and starts logging.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadConfig(&a.opts, cmd, config.EnvPrefix); err != nil {
		return err
	}
	logging.Initialize(a.opts.LoggingConfig())
	a.logger = logging.GetLogger("cli")
	a.bus = events.New()
	a.logger.Debug("Configuration loaded", "config", a.opts.Config, "backend", a.opts.Backend)
	return nil
}

// controller opens the device backend on first use.
func (a *app) controller() (*devices.Controller, error) {
	if a.ctrl != nil {
		return a.ctrl, nil
	}
	ctrl, err := devices.New(a.opts.DeviceOptions(), devices.WithEventBus(a.bus))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Device backend ready", "backend", ctrl.BackendName(), "mode", ctrl.Mode())
	a.ctrl = ctrl
	return ctrl, nil
}

func (a *app) close() {
	if a.ctrl == nil {
		return
	}
	if err := a.ctrl.Close(); err != nil {
		a.logger.Warn("Failed to close device backend", "error", err)
	}
	a.ctrl = nil
}

// NewRootCmd builds the camctl command tree.
func NewRootCmd() *cobra.Command {
	a := newApp()

	var (
		device       string
		listDevices  bool
		listFormats  bool
		listControls bool
		setCtrl      string
	)

	root := &cobra.Command{
		Use:   "camctl",
		Short: "Cross-platform webcam control",
		Long: `camctl lists video capture devices and reads and writes their controls
on Linux (V4L2), Windows (Media Foundation) and macOS (AVFoundation),
with the option names of v4l2-ctl.`,
		Example: `  camctl --list-devices
  camctl -d /dev/video0 --list-formats-ext
  camctl -d /dev/video0 -L
  camctl -d /dev/video0 -c brightness=50,contrast=40`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !listDevices && !listFormats && !listControls && setCtrl == "" {
				return cmd.Help()
			}

			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			index := ParseDevice(device)

			switch {
			case listDevices:
				list, err := ctrl.ListDevices(ctx)
				if err != nil {
					return err
				}
				PrintDevices(out, list)
			case listFormats:
				formats, err := ctrl.GetFormats(ctx, index)
				if err != nil {
					return err
				}
				PrintFormats(out, index, formats)
			case listControls:
				list, err := ctrl.GetControls(ctx, index)
				if err != nil {
					return err
				}
				PrintControls(out, index, list)
			default:
				SetControls(ctx, out, ctrl, index, setCtrl)
			}
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVarP(&device, "device", "d", "/dev/video0", "use device <dev>, a /dev/videoN path or an index")
	flags.BoolVar(&listDevices, "list-devices", false, "list all video devices")
	flags.BoolVar(&listFormats, "list-formats-ext", false, "list supported formats with frame sizes and rates")
	flags.BoolVarP(&listControls, "list-ctrls-menus", "L", false, "list all controls with their current values")
	flags.StringVarP(&setCtrl, "set-ctrl", "c", "", "set controls: <ctrl>=<val>[,<ctrl>=<val>...]")

	pflags := root.PersistentFlags()
	pflags.StringVar(&a.opts.Config, "config", a.opts.Config, "configuration file")
	pflags.StringVar(&a.opts.Backend, "backend", a.opts.Backend, "device backend: native, fallback or memory (default: auto)")
	pflags.BoolVar(&a.opts.ForceFallback, "force-fallback", a.opts.ForceFallback, "use the generic fallback backend")
	pflags.BoolVar(&a.opts.Quiet, "quiet", a.opts.Quiet, "silence the vision library")
	pflags.IntVar(&a.opts.MaxProbe, "max-probe", a.opts.MaxProbe, "indices the fallback backend probes")
	pflags.StringVar(&a.opts.LoggingLevel, "log-level", a.opts.LoggingLevel, "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newAdvancedCmd(a),
		newAutoCmd(a),
		newAutoAdjustCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and exits 1 on error.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}
