package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/camctl/internal/controls"
)

// deviceFlag adds -d/--device to a subcommand.
func deviceFlag(cmd *cobra.Command, device *string) {
	cmd.Flags().StringVarP(device, "device", "d", "/dev/video0", "use device <dev>, a /dev/videoN path or an index")
}

func (a *app) manager() (*controls.Manager, error) {
	ctrl, err := a.controller()
	if err != nil {
		return nil, err
	}
	return controls.NewManager(ctrl,
		controls.WithEventBus(a.bus),
		controls.WithSettleTime(a.opts.SettleTime),
	), nil
}

func newAdvancedCmd(a *app) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "advanced",
		Short: "List advanced controls with type, menu items and dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			index := ParseDevice(device)
			list, err := m.GetAvailableControls(cmd.Context(), index)
			if err != nil {
				return err
			}
			PrintAdvanced(cmd.OutOrStdout(), index, list)
			return nil
		},
	}
	deviceFlag(cmd, &device)
	return cmd
}

// PrintAdvanced writes one row per advanced control.
func PrintAdvanced(w io.Writer, index int, list []controls.AdvancedControlInfo) {
	if len(list) == 0 {
		fmt.Fprintf(w, "No advanced controls for /dev/video%d\n", index)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tRANGE\tVALUE\tAUTO\tSOURCE\tDEPENDS ON")
	for _, c := range list {
		auto := "-"
		if c.AutoSupported {
			auto = "off"
			if c.AutoEnabled {
				auto = "on"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d..%d/%d\t%d\t%s\t%s\t%s\n",
			c.Name, c.Type, c.Min, c.Max, c.Step, c.Current, auto, c.Source,
			strings.Join(c.Dependencies, ","))
	}
	_ = tw.Flush()

	for _, c := range list {
		if len(c.MenuItems) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s menu:\n", c.Name)
		for i, item := range c.MenuItems {
			fmt.Fprintf(w, "    %d: %s\n", i, item)
		}
	}
}

func newAutoCmd(a *app) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:       "auto <control> on|off",
		Short:     "Switch a control between automatic and manual",
		Example:   "  camctl auto exposure off -d 1",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			var enable bool
			switch strings.ToLower(args[1]) {
			case "on", "true", "1":
				enable = true
			case "off", "false", "0":
			default:
				return fmt.Errorf("auto mode must be on or off, got %q", args[1])
			}

			m, err := a.manager()
			if err != nil {
				return err
			}
			index := ParseDevice(device)
			if enable {
				err = m.EnableAutoMode(cmd.Context(), index, name)
			} else {
				err = m.DisableAutoMode(cmd.Context(), index, name)
			}
			if err != nil {
				return err
			}
			state := "off"
			if enable {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s auto mode %s\n", name, state)
			return nil
		},
	}
	deviceFlag(cmd, &device)
	return cmd
}

func newAutoAdjustCmd(a *app) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:       "auto-adjust exposure|white-balance",
		Short:     "Enable automatic exposure or white balance and wait for it to settle",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"exposure", "white-balance"},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			index := ParseDevice(device)
			switch args[0] {
			case "exposure":
				err = m.AutoAdjustExposure(cmd.Context(), index)
			case "white-balance":
				err = m.AutoAdjustWhiteBalance(cmd.Context(), index)
			default:
				return fmt.Errorf("unknown target %q, want exposure or white-balance", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s settled\n", args[0])
			return nil
		},
	}
	deviceFlag(cmd, &device)
	cmd.Flags().DurationVar(&a.opts.SettleTime, "settle", a.opts.SettleTime, "how long to wait for the camera to settle")
	return cmd
}
