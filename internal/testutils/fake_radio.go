package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/srg/hrmon/internal/heartrate"
)

// FakeRadio implements heartrate.Radio in memory. It records every link it
// opens and closes so tests can assert on the number of live connections.
type FakeRadio struct {
	// Advertisements are delivered in order at the start of every Scan.
	Advertisements []heartrate.Advertisement
	// ScanErr is returned by Scan right after delivering advertisements.
	ScanErr error
	// DialErr is returned by Dial instead of opening a link.
	DialErr error
	// BlockDial makes Dial wait for its context to end.
	BlockDial bool
	// SubscribeErr is returned by every link's Subscribe.
	SubscribeErr error
	// InitialPayload, when set, is delivered as soon as a link subscribes.
	InitialPayload []byte

	mu      sync.Mutex
	scans   int
	dials   []string
	links   []*FakeLink
	opened  int
	closed  int
	maxLive int
	linkCh  chan *FakeLink
}

// NewFakeRadio creates a radio that delivers advs on Scan
func NewFakeRadio(advs ...heartrate.Advertisement) *FakeRadio {
	return &FakeRadio{
		Advertisements: advs,
		linkCh:         make(chan *FakeLink, 16),
	}
}

// Scan delivers Advertisements then blocks until ctx ends, like a real radio
func (r *FakeRadio) Scan(ctx context.Context, handler func(heartrate.Advertisement)) error {
	r.mu.Lock()
	r.scans++
	advs := append([]heartrate.Advertisement(nil), r.Advertisements...)
	scanErr := r.ScanErr
	r.mu.Unlock()

	for _, adv := range advs {
		handler(adv)
	}
	if scanErr != nil {
		return scanErr
	}
	<-ctx.Done()
	return ctx.Err()
}

// Dial opens a FakeLink unless DialErr or BlockDial say otherwise
func (r *FakeRadio) Dial(ctx context.Context, address string) (heartrate.Link, error) {
	r.mu.Lock()
	r.dials = append(r.dials, address)
	dialErr, block := r.DialErr, r.BlockDial
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if dialErr != nil {
		return nil, dialErr
	}

	l := &FakeLink{
		radio:        r,
		Address:      address,
		disconnected: make(chan struct{}),
	}

	r.mu.Lock()
	l.subscribeErr = r.SubscribeErr
	l.initial = r.InitialPayload
	r.links = append(r.links, l)
	r.opened++
	if live := r.opened - r.closed; live > r.maxLive {
		r.maxLive = live
	}
	r.mu.Unlock()

	select {
	case r.linkCh <- l:
	default:
	}
	return l, nil
}

// Scans returns how many times Scan was called
func (r *FakeRadio) Scans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scans
}

// Dials returns the addresses dialed so far
func (r *FakeRadio) Dials() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dials...)
}

// Live returns opened minus closed links
func (r *FakeRadio) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened - r.closed
}

// MaxLive returns the highest number of simultaneously open links observed
func (r *FakeRadio) MaxLive() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxLive
}

// Links returns every link opened so far
func (r *FakeRadio) Links() []*FakeLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*FakeLink(nil), r.links...)
}

// WaitForSubscribedLink waits until the next opened link has a subscriber
func (r *FakeRadio) WaitForSubscribedLink(timeout time.Duration) (*FakeLink, error) {
	deadline := time.After(timeout)
	var l *FakeLink
	select {
	case l = <-r.linkCh:
	case <-deadline:
		return nil, errors.New("no link opened")
	}
	for {
		if l.Subscribed() {
			return l, nil
		}
		select {
		case <-deadline:
			return nil, errors.New("link never subscribed")
		case <-time.After(time.Millisecond):
		}
	}
}

func (r *FakeRadio) linkClosed() {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
}

// FakeLink implements heartrate.Link and lets tests push notifications
type FakeLink struct {
	Address string

	radio        *FakeRadio
	subscribeErr error
	initial      []byte
	disconnected chan struct{}
	dropOnce     sync.Once

	mu           sync.Mutex
	handler      func([]byte)
	unsubscribes int
	closed       bool
}

// Subscribe stores the notification handler
func (l *FakeLink) Subscribe(_ context.Context, handler func(payload []byte)) error {
	if l.subscribeErr != nil {
		return l.subscribeErr
	}
	l.mu.Lock()
	l.handler = handler
	l.mu.Unlock()
	if l.initial != nil {
		handler(l.initial)
	}
	return nil
}

// Unsubscribe drops the handler
func (l *FakeLink) Unsubscribe() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = nil
	l.unsubscribes++
	return nil
}

// Close marks the link closed; the radio counts the first call only
func (l *FakeLink) Close() error {
	l.mu.Lock()
	already := l.closed
	l.closed = true
	l.mu.Unlock()
	if !already {
		l.radio.linkClosed()
	}
	return nil
}

// Disconnected is closed by Drop
func (l *FakeLink) Disconnected() <-chan struct{} {
	return l.disconnected
}

// Notify pushes a payload to the subscriber, if any
func (l *FakeLink) Notify(payload []byte) {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h(payload)
	}
}

// Drop simulates the peripheral going out of range
func (l *FakeLink) Drop() {
	l.dropOnce.Do(func() { close(l.disconnected) })
}

// Subscribed reports whether a handler is installed
func (l *FakeLink) Subscribed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handler != nil
}

// Closed reports whether Close was called
func (l *FakeLink) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Unsubscribes returns how many times Unsubscribe was called
func (l *FakeLink) Unsubscribes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unsubscribes
}

// ValueSource is a settable heart-rate source for sampling tests
type ValueSource struct {
	mu    sync.Mutex
	value int
}

// Set changes the value returned by CurrentValue
func (v *ValueSource) Set(bpm int) {
	v.mu.Lock()
	v.value = bpm
	v.mu.Unlock()
}

// CurrentValue returns the last value set
func (v *ValueSource) CurrentValue() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}
