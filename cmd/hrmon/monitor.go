package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/hrmon/internal/heartrate"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <address>",
	Short: "Show the live heart rate of a sensor",
	Long: `Connect to a heart-rate sensor and print its heart rate once per second.

With --rest and --age (or --birth) the reading is colored by the Karvonen
target zone: cyan below, green within, red above.`,
	Example: `  hrmon monitor AA:BB:CC:DD:EE:FF
  hrmon monitor AA:BB:CC:DD:EE:FF --rest 62 --birth 1994-03-08`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().Int("age", 0, "Participant age in years")
	monitorCmd.Flags().String("birth", "", "Participant birth date (YYYY-MM-DD), instead of --age")
	monitorCmd.Flags().Float64("rest", 0, "Resting heart rate in bpm")
	monitorCmd.Flags().DurationP("duration", "d", 0, "Stop after this long (0 runs until Ctrl+C)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	age, _ := cmd.Flags().GetInt("age")
	birth, _ := cmd.Flags().GetString("birth")
	rest, _ := cmd.Flags().GetFloat64("rest")
	duration, _ := cmd.Flags().GetDuration("duration")

	zone, err := resolveZone(age, birth, rest, time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd, commandContext(cmd), "monitor")
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Connecting to %s...\n", args[0])
	m, err := connectMonitor(ctx, cfg, logger, args[0])
	if err != nil {
		return err
	}
	defer m.Close()

	if zone != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Target zone: %s\n", zone)
	}

	printer := newLinePrinter(cmd.OutOrStdout())
	defer printer.Done()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		st, _ := m.Status()
		printer.Print(formatReading(st, zone))
		if st.State == heartrate.StateFailed {
			return st.Err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
