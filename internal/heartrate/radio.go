package heartrate

import "context"

// Advertisement is the subset of a BLE advertisement discovery needs
type Advertisement interface {
	LocalName() string
	Addr() string
	RSSI() int
	Services() []string
}

// Radio is the local Bluetooth adapter.
type Radio interface {
	// Scan delivers advertisements to handler until ctx is done.
	// Returning because ctx ended is not an error.
	Scan(ctx context.Context, handler func(Advertisement)) error

	// Dial connects to the peripheral and resolves its Heart Rate
	// Measurement characteristic. ctx bounds the whole attempt.
	Dial(ctx context.Context, address string) (Link, error)
}

// Link is one live connection to a heart-rate sensor. It is owned by a
// single session goroutine and never shared.
type Link interface {
	// Subscribe enables measurement notifications; handler runs on the
	// transport's goroutine.
	Subscribe(ctx context.Context, handler func(payload []byte)) error
	Unsubscribe() error
	Close() error

	// Disconnected is closed when the peripheral drops the connection.
	// May return nil when the transport cannot report it.
	Disconnected() <-chan struct{}
}

