package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/srg/hrmon/internal/heartrate"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for heart-rate sensors",
	Long: `Scan for Bluetooth Low Energy devices advertising the Heart Rate service
and list them in discovery order with name, address and signal strength.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationP("duration", "d", 0, "Scan duration (default from config, 5s)")
	scanCmd.Flags().StringP("format", "f", "table", "Output format (table, json)")
}

func runScan(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	duration, _ := cmd.Flags().GetDuration("duration")
	if duration <= 0 {
		duration = cfg.ScanTimeout
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	radio, err := newRadio(logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd, commandContext(cmd), "scan")
	defer cancel()

	progress := NewCountdownPrinter(cmd.ErrOrStderr(), "Scanning for heart-rate sensors", duration)
	progress.Start()
	devices, err := heartrate.NewDiscoverer(radio, logger).Discover(ctx, duration)
	progress.Stop()

	// Ctrl+C still shows what was found
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if format == "json" {
		return displayDevicesJSON(cmd.OutOrStdout(), devices)
	}
	return displayDevicesTable(cmd.OutOrStdout(), devices)
}

func displayDevicesTable(out io.Writer, devices []heartrate.DeviceDescriptor) error {
	if len(devices) == 0 {
		fmt.Fprintln(out, "No heart-rate sensors discovered")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tADDRESS\tRSSI")
	for i, d := range devices {
		name := d.DisplayName()
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d dBm\n", i+1, name, d.Address, d.RSSI)
	}
	return w.Flush()
}

func displayDevicesJSON(out io.Writer, devices []heartrate.DeviceDescriptor) error {
	if devices == nil {
		devices = []heartrate.DeviceDescriptor{}
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(devices)
}
