package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/srg/hrmon/internal/trial"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded trials",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().String("dir", "", "Data directory (default from config, data)")
	historyCmd.Flags().StringP("participant", "p", "", "Only show this participant")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	participant, _ := cmd.Flags().GetString("participant")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.DataDir
	}
	cmd.SilenceUsage = true

	entries, err := trial.ReadEntries(dir)
	if err != nil {
		return err
	}

	participant = strings.TrimSpace(participant)
	shown := entries[:0]
	for _, e := range entries {
		if participant == "" || strings.EqualFold(e.Participant, participant) {
			shown = append(shown, e)
		}
	}
	if len(shown) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No trials recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARTICIPANT\tPROTOCOL\tTIME (S)\tRPE\tMEAN HR")
	for _, e := range shown {
		rpe := "-"
		if e.RPE > 0 {
			rpe = strconv.Itoa(e.RPE)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%.2f\n", e.Participant, e.Protocol, e.Elapsed.Seconds(), rpe, e.MeanHR)
	}
	return w.Flush()
}
