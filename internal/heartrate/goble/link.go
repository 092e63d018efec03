package goble

import (
	"context"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// link is one live go-ble connection to a heart-rate sensor
type link struct {
	client   ble.Client
	char     *ble.Characteristic
	indicate bool
	logger   *logrus.Logger

	closeOnce sync.Once
	closeErr  error
}

// newLink wraps a dialed client; bind attaches the measurement characteristic
// once it is resolved
func newLink(client ble.Client, logger *logrus.Logger) *link {
	return &link{
		client: client,
		logger: logger,
	}
}

func (l *link) bind(char *ble.Characteristic) {
	l.char = char
	// Prefer notifications; fall back to indications when that is all the sensor offers
	l.indicate = char.Property&ble.CharNotify == 0
}

// abort closes the link when a bounded GATT exchange times out
func (l *link) abort() {
	if err := l.Close(); err != nil {
		l.logger.WithError(err).Debug("Cancel connection after timeout failed")
	}
}

// Subscribe enables measurement notifications
func (l *link) Subscribe(ctx context.Context, handler func(payload []byte)) error {
	err := runBounded(ctx, l.abort, func() error {
		return l.client.Subscribe(l.char, l.indicate, func(data []byte) {
			handler(data)
		})
	})
	if err != nil {
		l.logger.WithFields(logrus.Fields{
			"charUUID": l.char.UUID.String(),
			"error":    err,
		}).Error("Failed to subscribe to characteristic notifications")
		return NormalizeError(err)
	}

	l.logger.WithField("charUUID", l.char.UUID.String()).Debug("Successfully subscribed to characteristic notifications")
	return nil
}

// Unsubscribe disables measurement notifications
func (l *link) Unsubscribe() error {
	return NormalizeError(l.client.Unsubscribe(l.char, l.indicate))
}

// Close cancels the connection once; later calls return the first result
func (l *link) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = NormalizeError(l.client.CancelConnection())
	})
	return l.closeErr
}

// Disconnected is closed by go-ble when the peripheral drops the connection
func (l *link) Disconnected() <-chan struct{} {
	return l.client.Disconnected()
}
