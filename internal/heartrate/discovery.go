package heartrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/hrmon/internal/groutine"
)

// DefaultDiscoveryTimeout is the scan window used when the caller has no preference
const DefaultDiscoveryTimeout = 5 * time.Second

// DeviceDescriptor identifies a candidate sensor found during discovery.
// Name may be empty when the sensor does not advertise one.
type DeviceDescriptor struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	RSSI    int    `json:"rssi"`
}

// DisplayName returns the advertised name or "Unknown"
func (d DeviceDescriptor) DisplayName() string {
	if d.Name == "" {
		return "Unknown"
	}
	return d.Name
}

// DiscoveryResult is the completion event posted by DiscoverAsync
type DiscoveryResult struct {
	Devices []DeviceDescriptor
	Err     error
}

// Discoverer finds sensors advertising the Heart Rate service
type Discoverer struct {
	radio  Radio
	logger *logrus.Logger
}

// NewDiscoverer creates a discoverer bound to radio. A nil radio makes every
// discovery fail with ErrHardwareUnavailable.
func NewDiscoverer(radio Radio, logger *logrus.Logger) *Discoverer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Discoverer{radio: radio, logger: logger}
}

// discoveredDevice is shared between concurrent advertisement callbacks
type discoveredDevice struct {
	address string
	name    string
	rssi    int
}

// collector accumulates advertisements for one scan window
type collector struct {
	seen   *hashmap.Map[string, *discoveredDevice]
	mu     sync.Mutex
	order  *orderedmap.OrderedMap[string, *discoveredDevice]
	logger *logrus.Logger
}

func newCollector(logger *logrus.Logger) *collector {
	return &collector{
		seen:   hashmap.New[string, *discoveredDevice](),
		order:  orderedmap.New[string, *discoveredDevice](),
		logger: logger,
	}
}

// handle records a first-seen Heart Rate sensor or refreshes a known one
func (c *collector) handle(adv Advertisement) {
	addr := adv.Addr()
	if addr == "" {
		return
	}

	if dev, ok := c.seen.Get(addr); ok {
		c.refresh(dev, adv)
		return
	}

	if !HasService(adv.Services(), ServiceUUID) {
		return
	}

	dev, loaded := c.seen.GetOrInsert(addr, &discoveredDevice{
		address: addr,
		name:    adv.LocalName(),
		rssi:    adv.RSSI(),
	})
	if loaded {
		c.refresh(dev, adv)
		return
	}

	c.mu.Lock()
	c.order.Set(addr, dev)
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"device":  adv.LocalName(),
		"address": addr,
		"rssi":    adv.RSSI(),
	}).Info("Discovered heart rate sensor")
}

// refresh fills in a missing name (scan responses often carry it) and the latest RSSI
func (c *collector) refresh(dev *discoveredDevice, adv Advertisement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dev.name == "" {
		dev.name = adv.LocalName()
	}
	dev.rssi = adv.RSSI()
}

// snapshot returns descriptors in first-seen order
func (c *collector) snapshot() []DeviceDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	devices := make([]DeviceDescriptor, 0, c.order.Len())
	for pair := c.order.Oldest(); pair != nil; pair = pair.Next() {
		devices = append(devices, DeviceDescriptor{
			Name:    pair.Value.name,
			Address: pair.Value.address,
			RSSI:    pair.Value.rssi,
		})
	}
	return devices
}

// Discover scans for timeout and returns the Heart Rate sensors seen, in
// discovery order. A non-positive timeout returns an empty list without
// using the radio. Cancelling ctx ends the scan early and returns what was
// collected together with ctx.Err().
func (d *Discoverer) Discover(ctx context.Context, timeout time.Duration) ([]DeviceDescriptor, error) {
	if timeout <= 0 {
		return []DeviceDescriptor{}, nil
	}
	if d.radio == nil {
		return nil, fmt.Errorf("%w: no radio", ErrHardwareUnavailable)
	}

	d.logger.WithField("duration", timeout).Info("Starting heart rate sensor scan...")

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := newCollector(d.logger)
	err := d.scan(scanCtx, c.handle)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		d.logger.WithError(err).Error("Heart rate sensor scan failed")
		if !errors.Is(err, ErrHardwareUnavailable) && IsHardwareMessage(err.Error()) {
			err = fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		}
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	devices := c.snapshot()
	d.logger.WithField("device_count", len(devices)).Info("Heart rate sensor scan completed")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return devices, ctxErr
	}
	return devices, nil
}

// scan shields the caller from panics raised by platform radio stacks
func (d *Discoverer) scan(ctx context.Context, handler func(Advertisement)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: radio panic: %v", ErrHardwareUnavailable, r)
		}
	}()
	return d.radio.Scan(ctx, handler)
}

// DiscoverAsync runs Discover on its own goroutine and posts exactly one
// result on the returned channel, which is then closed.
func (d *Discoverer) DiscoverAsync(ctx context.Context, timeout time.Duration) <-chan DiscoveryResult {
	results := make(chan DiscoveryResult, 1)
	groutine.Go(ctx, "hr-discovery", func(ctx context.Context) {
		defer close(results)
		devices, err := d.Discover(ctx, timeout)
		results <- DiscoveryResult{Devices: devices, Err: err}
	})
	return results
}
