package cmd

import (
	"os"
	"os/signal"
	"strings"

	"github.com/samjwillis97/GoModal/pkg/channel"
	"github.com/samjwillis97/GoModal/pkg/cli"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/session"
	"github.com/samjwillis97/GoModal/pkg/tdms"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var (
	axisChannel   string
	peakWindows   []string
	manualCells   []string
	targetIndices []int
	runGlobal     bool
	saveWorkspace string
)

func init() {
	rootCmd.AddCommand(modalCmd)
	modalCmd.Flags().StringVar(&axisChannel, "axis", "w", "channel holding the frequency axis")
	modalCmd.Flags().StringArrayVar(&peakWindows, "peak", nil, "peak window LO:HI, repeatable")
	modalCmd.Flags().StringArrayVar(&manualCells, "set", nil, "manual value PEAK:CHANNEL:PARAM=VALUE, repeatable")
	modalCmd.Flags().IntSliceVar(&targetIndices, "channels", nil, "channel indices to fit, default all")
	modalCmd.Flags().BoolVar(&runGlobal, "global", false, "run the global fit seeded from the peaks")
	modalCmd.Flags().StringVar(&saveWorkspace, "save-workspace", "", "write the settings used to this workspace file")
	modalCmd.Flags().Float64("max-tan", 1e6, "largest tangent used by the damping estimate")
	modalCmd.Flags().Int("edge-margin", 3, "minimum samples between a peak and its window edge")
	modalCmd.Flags().Int("max-iter", 200, "global fit iteration cap")
	modalCmd.Flags().Float64("tol", 1e-8, "global fit tolerance relative to max|H|")

	bindFlag(modalCmd.Flags(), "max-tan", "tema.max_tan")
	bindFlag(modalCmd.Flags(), "edge-margin", "tema.edge_margin")
	bindFlag(modalCmd.Flags(), "max-iter", "rfp.max_iter")
	bindFlag(modalCmd.Flags(), "tol", "rfp.tol")
}

var modalCmd = &cobra.Command{
	Use:   "modal [file] [group]",
	Short: "Extracts modal parameters from the FRF channels of a group",
	Long: `Loads every complex channel of a group as a frequency response, with the
axis channel as frequency, fits each --peak window on every channel and
optionally runs a global fit seeded from the peak summaries.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := groupArg(args, 1)
		if err != nil {
			return err
		}
		windows, err := parseWindows(peakWindows)
		if err != nil {
			return err
		}
		file, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer file.Close()

		set := channel.NewSet()
		if _, err := tdms.LoadGroup(set, file, group, tdms.LoadOptions{Axis: axisChannel}); err != nil {
			return err
		}

		opts := session.DefaultOptions()
		opts.TEMA = cfg.TEMAOptions()
		opts.RFP = cfg.RFPOptions()
		opts.Targets = targetIndices
		m := session.NewManager(set, opts)
		cancel := m.Subscribe(func(e session.Event) {
			entry := log.WithFields(log.Fields{"event": e.Type, "peak": e.PeakID})
			if e.Type == session.FitProgress {
				entry.WithFields(log.Fields{
					"channel":   e.Channel,
					"iteration": e.Iteration,
				}).Tracef("Residual %g", e.Residual)
				return
			}
			entry.Debug("Session changed")
		})
		defer cancel()

		for _, w := range windows {
			id, err := m.AddPeak(w[0], w[1])
			if err != nil {
				return err
			}
			if err := m.Errors(id); err != nil {
				log.WithField("peak", id).Warnf("Some channels failed: %v", err)
			}
		}
		for _, arg := range manualCells {
			if err := applyManual(m, arg); err != nil {
				return err
			}
		}

		var global []session.GlobalFit
		if runGlobal {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if global, err = m.FitGlobal(ctx); err != nil {
				return err
			}
		}

		if saveWorkspace != "" {
			if err := writeWorkspace(saveWorkspace, group); err != nil {
				return err
			}
		}

		names := channelNames(set)
		report := cli.NewReport(m.Peaks(), global, func(i int) string { return names[i] })
		return cli.WriteReport(cmd.OutOrStdout(), cfg.OutputFormat, report)
	},
}

// parseWindows reads LO:HI pairs.
func parseWindows(args []string) ([][2]float64, error) {
	const op = "peak"
	out := make([][2]float64, 0, len(args))
	for _, arg := range args {
		lo, hi, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, failure.New(failure.InputShape, op, "%q is not LO:HI", arg)
		}
		l, err := cast.ToFloat64E(strings.TrimSpace(lo))
		if err != nil {
			return nil, failure.Wrap(failure.WrongType, op, err)
		}
		h, err := cast.ToFloat64E(strings.TrimSpace(hi))
		if err != nil {
			return nil, failure.Wrap(failure.WrongType, op, err)
		}
		out = append(out, [2]float64{l, h})
	}
	return out, nil
}

// applyManual sets one PEAK:CHANNEL:PARAM=VALUE cell.
func applyManual(m *session.Manager, arg string) error {
	const op = "set"
	cell, value, ok := strings.Cut(arg, "=")
	parts := strings.Split(cell, ":")
	if !ok || len(parts) != 3 {
		return failure.New(failure.InputShape, op, "%q is not PEAK:CHANNEL:PARAM=VALUE", arg)
	}
	id, err := cast.ToIntE(parts[0])
	if err != nil {
		return failure.Wrap(failure.WrongType, op, err)
	}
	ch, err := cast.ToIntE(parts[1])
	if err != nil {
		return failure.Wrap(failure.WrongType, op, err)
	}
	param, err := session.ParseParam(parts[2])
	if err != nil {
		return err
	}
	x, err := cast.ToFloat64E(value)
	if err != nil {
		return failure.Wrap(failure.WrongType, op, err)
	}
	return m.SetManual(id, ch, param, x)
}

// channelNames maps each channel index to its name metadata.
func channelNames(set *channel.Set) map[int]string {
	names := make(map[int]string, set.Len())
	meta, err := set.GetMetadata([]string{channel.KeyName})
	if err != nil {
		log.Debugf("Channel names: %v", err)
	}
	for i, row := range meta {
		names[i] = cast.ToString(row[channel.KeyName])
	}
	return names
}

// writeWorkspace captures the settings in use, with the group and the
// working path, into a workspace file.
func writeWorkspace(path, group string) error {
	if err := ws.Capture(v); err != nil {
		return err
	}
	if err := ws.Set("default_group", group); err != nil {
		return err
	}
	if ws.String("workpath") == "" {
		if wd, err := os.Getwd(); err == nil {
			if err := ws.Set("workpath", wd); err != nil {
				return err
			}
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return failure.Wrap(failure.IO, "workspace", err)
	}
	if err := ws.Encode(out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return failure.Wrap(failure.IO, "workspace", err)
	}
	log.WithField("file", path).Info("Saved workspace")
	return nil
}
