package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/hrmon/internal/trial"
)

// restingCmd represents the resting command
var restingCmd = &cobra.Command{
	Use:   "resting <address>",
	Short: "Measure resting heart rate",
	Long: `Sample the sensor once per second while the participant sits calmly
(3 minutes by default) and print the mean heart rate.`,
	Args: cobra.ExactArgs(1),
	RunE: runResting,
}

func init() {
	restingCmd.Flags().DurationP("duration", "d", 0, "Measurement length (default from config, 3m)")
	restingCmd.Flags().Int("age", 0, "Participant age; prints the target zone when set")
	restingCmd.Flags().String("birth", "", "Participant birth date (YYYY-MM-DD), instead of --age")
}

func runResting(cmd *cobra.Command, args []string) error {
	age, _ := cmd.Flags().GetInt("age")
	birth, _ := cmd.Flags().GetString("birth")
	duration, _ := cmd.Flags().GetDuration("duration")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}
	if duration <= 0 {
		duration = cfg.RestingDuration
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd, commandContext(cmd), "measurement")
	defer cancel()

	fmt.Fprintf(cmd.ErrOrStderr(), "Connecting to %s...\n", args[0])
	m, err := connectMonitor(ctx, cfg, logger, args[0])
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "Please sit calmly for %s.\n", duration)
	progress := NewCountdownPrinter(cmd.ErrOrStderr(), "Measuring resting HR", duration)
	progress.Start()
	mean, err := trial.MeasureResting(ctx, m, duration, cfg.SampleInterval)
	progress.Stop()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Resting HR: %.2f bpm\n", mean)

	if age > 0 || birth != "" {
		zone, err := resolveZone(age, birth, mean, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Target zone: %s\n", zone)
	}
	return nil
}
