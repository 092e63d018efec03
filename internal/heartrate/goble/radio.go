package goble

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/hrmon/internal/heartrate"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking as goble.DeviceFactory
var DeviceFactory = func() (ble.Device, error) {
	return defaultDevice()
}

var (
	serviceUUID     = ble.MustParse(heartrate.ServiceUUID)
	measurementUUID = ble.MustParse(heartrate.MeasurementUUID)
)

// Radio implements heartrate.Radio on top of a go-ble device
type Radio struct {
	dev    ble.Device
	logger *logrus.Logger
}

// NewRadio opens the platform Bluetooth device
func NewRadio(logger *logrus.Logger) (*Radio, error) {
	if logger == nil {
		logger = logrus.New()
	}
	dev, err := DeviceFactory()
	if err != nil {
		logger.WithField("error", err).Error("Failed to create BLE device")
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	return &Radio{dev: dev, logger: logger}, nil
}

// Scan wraps ble.Device.Scan to convert ble.Advertisement to heartrate.Advertisement
func (r *Radio) Scan(ctx context.Context, handler func(heartrate.Advertisement)) error {
	bleHandler := func(adv ble.Advertisement) {
		handler(NewAdvertisement(adv))
	}
	err := r.dev.Scan(ctx, false, bleHandler)
	if err != nil {
		return NormalizeError(err)
	}
	return nil
}

// Dial connects to address and resolves the Heart Rate Measurement
// characteristic together with its CCCD.
func (r *Radio) Dial(ctx context.Context, address string) (heartrate.Link, error) {
	log := r.logger.WithField("address", address)

	log.Debug("Dialing BLE device...")
	client, err := r.dev.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		log.WithError(err).Error("Failed to dial BLE device")
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	l := newLink(client, r.logger)

	var char *ble.Characteristic
	err = runBounded(ctx, l.abort, func() error {
		var discoverErr error
		char, discoverErr = discoverMeasurement(client)
		return discoverErr
	})
	if err != nil {
		log.WithError(err).Error("Failed to discover heart rate measurement characteristic")
		if cancelErr := l.Close(); cancelErr != nil {
			log.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection after discovery failure")
		}
		return nil, err
	}
	l.bind(char)

	log.WithField("properties", fmt.Sprintf("0x%02x", char.Property)).Debug("Heart rate measurement characteristic resolved")
	return l, nil
}

// discoverMeasurement walks service → characteristic → descriptors
func discoverMeasurement(client ble.Client) (*ble.Characteristic, error) {
	services, err := client.DiscoverServices([]ble.UUID{serviceUUID})
	if err != nil {
		return nil, fmt.Errorf("failed to discover services: %w", NormalizeError(err))
	}

	for _, svc := range services {
		if !svc.UUID.Equal(serviceUUID) {
			continue
		}
		chars, err := client.DiscoverCharacteristics([]ble.UUID{measurementUUID}, svc)
		if err != nil {
			return nil, fmt.Errorf("failed to discover characteristics: %w", NormalizeError(err))
		}
		for _, c := range chars {
			if !c.UUID.Equal(measurementUUID) {
				continue
			}
			// Subscribing requires the CCCD to be known
			if _, err := client.DiscoverDescriptors(nil, c); err != nil {
				return nil, fmt.Errorf("failed to discover descriptors: %w", NormalizeError(err))
			}
			if c.Property&(ble.CharNotify|ble.CharIndicate) == 0 {
				return nil, fmt.Errorf("characteristic %s does not support notifications", heartrate.MeasurementUUID)
			}
			return c, nil
		}
		return nil, fmt.Errorf("characteristic %q not found in service %q", heartrate.MeasurementUUID, heartrate.ServiceUUID)
	}
	return nil, fmt.Errorf("service %q not found", heartrate.ServiceUUID)
}

// runBounded runs a blocking GATT exchange and gives up when ctx ends.
// go-ble discovery calls take no context; abort cancels the connection,
// which is what unblocks them.
func runBounded(ctx context.Context, abort func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		abort()
		return ctx.Err()
	}
}
