package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/hrmon/internal/heartrate"
	"github.com/srg/hrmon/internal/heartrate/goble"
	"github.com/srg/hrmon/pkg/config"
)

// newRadio opens the platform Bluetooth adapter (can be overridden in tests)
var newRadio = func(logger *logrus.Logger) (heartrate.Radio, error) {
	return goble.NewRadio(logger)
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext(cmd *cobra.Command, parent context.Context, what string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			fmt.Fprintf(cmd.ErrOrStderr(), "\nCtrl+C pressed, stopping %s...\n", what)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// commandContext returns the command's context or Background
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// connectMonitor starts a session for address and waits until it streams
func connectMonitor(ctx context.Context, cfg *config.Config, logger *logrus.Logger, address string) (*heartrate.Monitor, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("device address is required")
	}

	decoder, err := heartrate.DecoderByName(cfg.Decoder)
	if err != nil {
		return nil, err
	}
	radio, err := newRadio(logger)
	if err != nil {
		return nil, err
	}

	m := heartrate.NewMonitor(radio, logger,
		heartrate.WithDecoder(decoder),
		heartrate.WithConnectTimeout(cfg.ConnectTimeout),
		heartrate.WithPollInterval(cfg.PollInterval),
	)
	session, err := m.Switch(address)
	if err != nil {
		m.Close()
		return nil, err
	}
	if err := waitForStreaming(ctx, session); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// waitForStreaming blocks until the session streams, fails or ctx ends
func waitForStreaming(ctx context.Context, session *heartrate.Session) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		switch session.State() {
		case heartrate.StateStreaming:
			return nil
		case heartrate.StateFailed, heartrate.StateStopped:
			if err := session.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w: session ended before streaming", heartrate.ErrConnectionFailed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-session.Done():
		case <-ticker.C:
		}
	}
}
