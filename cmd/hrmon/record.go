package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/hrmon/internal/heartrate"
	"github.com/srg/hrmon/internal/trial"
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record <address>",
	Short: "Record a timed trial",
	Long: `Sample the sensor once per second into the participant's series file
(hr_data_<participant>.csv) until --duration elapses or Ctrl+C is pressed.
The trial time and mean heart rate are appended to the trial log.

A participant can record each protocol once. If the sensor connection is
lost mid-trial the samples taken so far stay in the series file but the
trial is not logged.`,
	Example: `  hrmon record AA:BB:CC:DD:EE:FF --participant "Ana Maria" --protocol HIGH --rpe 15
  hrmon record AA:BB:CC:DD:EE:FF -p "Ana Maria" --protocol HIGH --rest 62 --birth 1994-03-08`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRecord,
}

func init() {
	recordCmd.Flags().StringP("participant", "p", "", "Participant name (required)")
	recordCmd.Flags().String("protocol", "", "Protocol label, e.g. HIGH or LOW (required)")
	recordCmd.Flags().DurationP("duration", "d", 0, "Stop after this long (0 runs until Ctrl+C)")
	recordCmd.Flags().String("dir", "", "Data directory (default from config, data)")
	recordCmd.Flags().Int("rpe", 0, "Rating of perceived exertion, Borg 6-20")
	recordCmd.Flags().Int("age", 0, "Participant age in years")
	recordCmd.Flags().String("birth", "", "Participant birth date (YYYY-MM-DD), instead of --age")
	recordCmd.Flags().Float64("rest", 0, "Resting heart rate in bpm; shows the target zone")
}

func runRecord(cmd *cobra.Command, args []string) error {
	participant, _ := cmd.Flags().GetString("participant")
	protocol, _ := cmd.Flags().GetString("protocol")
	duration, _ := cmd.Flags().GetDuration("duration")
	dir, _ := cmd.Flags().GetString("dir")
	rpe, _ := cmd.Flags().GetInt("rpe")
	age, _ := cmd.Flags().GetInt("age")
	birth, _ := cmd.Flags().GetString("birth")
	rest, _ := cmd.Flags().GetFloat64("rest")

	participant = strings.TrimSpace(participant)
	protocol = strings.TrimSpace(protocol)
	if participant == "" {
		return fmt.Errorf("--participant is required")
	}
	if protocol == "" {
		return fmt.Errorf("--protocol is required")
	}
	if !trial.ValidRPE(rpe) {
		return fmt.Errorf("--rpe %d is outside the Borg 6-20 scale", rpe)
	}
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
	if dir == "" {
		dir = cfg.DataDir
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	if err := trial.CheckNotRecorded(dir, participant, protocol); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd, commandContext(cmd), "trial")
	defer cancel()

	fmt.Fprintf(cmd.ErrOrStderr(), "Connecting to %s...\n", args[0])
	m, err := connectMonitor(ctx, cfg, logger, args[0])
	if err != nil {
		return err
	}
	defer m.Close()
	session := m.Current()

	if zone != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Target zone: %s\n", zone)
	}

	sink, err := trial.OpenCSVSink(dir, participant, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	recorder := trial.NewRecorder(m, protocol,
		trial.WithSink(sink),
		trial.WithInterval(cfg.SampleInterval),
		trial.WithFlushInterval(cfg.FlushInterval),
		trial.WithRecorderLogger(logger),
	)
	if err := recorder.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Recording %s trial for %s (Ctrl+C to stop)\n", protocol, participant)

	var wait <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		wait = timer.C
	}

	// session.Done closes only when the link fails
	select {
	case <-ctx.Done():
	case <-wait:
	case <-session.Done():
	}

	summary, sinkErr := recorder.Stop()
	if err := sink.Close(); err != nil && sinkErr == nil {
		sinkErr = err
	}
	if sinkErr != nil {
		return fmt.Errorf("trial samples were not fully saved to %s: %w", sink.Path(), sinkErr)
	}

	// stale readings after a lost link must not be logged as a trial
	if session.State() == heartrate.StateFailed {
		return fmt.Errorf("trial aborted after %.2f s, %d samples kept in %s: %w",
			summary.Duration.Seconds(), len(summary.Samples), sink.Path(), session.Err())
	}

	// the trial ended early because the parent went away, not the user
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	entry := trial.Entry{
		Participant: participant,
		Protocol:    protocol,
		Elapsed:     summary.Duration,
		RPE:         rpe,
		MeanHR:      summary.MeanHR,
	}
	if err := trial.AppendEntry(dir, entry); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Time: %.2f s\nSamples: %d\nMean HR: %.2f bpm\nSaved to %s\n",
		summary.Duration.Seconds(), len(summary.Samples), summary.MeanHR, sink.Path())
	return nil
}
