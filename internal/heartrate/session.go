package heartrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/hrmon/internal/groutine"
)

const (
	// DefaultConnectTimeout bounds dial plus subscribe
	DefaultConnectTimeout = 10 * time.Second

	// DefaultPollInterval is the cadence at which the session goroutine
	// re-checks the running flag while streaming
	DefaultPollInterval = time.Second
)

// Session streams heart-rate measurements from one sensor.
//
// Start spawns a goroutine that owns the connection; CurrentValue may be
// called from any goroutine; Stop blocks until the connection is closed.
// A session is single-use: once stopped it cannot be started again.
type Session struct {
	address        string
	radio          Radio
	logger         *logrus.Logger
	decoder        Decoder
	connectTimeout time.Duration
	pollInterval   time.Duration

	value      atomic.Int64
	lastSample atomic.Int64 // unix nanoseconds, 0 = none
	running    atomic.Bool

	mu         sync.Mutex
	state      State
	err        error
	stopCancel context.CancelFunc
	done       <-chan struct{}
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDecoder replaces the default DecodeLegacy decoder
func WithDecoder(d Decoder) Option {
	return func(s *Session) {
		if d != nil {
			s.decoder = d
		}
	}
}

// WithConnectTimeout bounds the dial and subscribe phase
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithPollInterval sets how often the streaming loop re-checks the running flag
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewSession creates an idle session for address
func NewSession(radio Radio, address string, opts ...Option) *Session {
	s := &Session{
		address:        address,
		radio:          radio,
		logger:         logrus.New(),
		decoder:        DecodeLegacy,
		connectTimeout: DefaultConnectTimeout,
		pollInterval:   DefaultPollInterval,
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address returns the sensor address this session targets
func (s *Session) Address() string {
	return s.address
}

// CurrentValue returns the last decoded bpm, or 0 when none was received.
// Never blocks.
func (s *Session) CurrentValue() int {
	return int(s.value.Load())
}

// LastSampleAt returns when the last measurement arrived; zero if none
func (s *Session) LastSampleAt() time.Time {
	ns := s.lastSample.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// IsRunning reports whether Start was called and Stop has not been
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure reason once the session has failed
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Status returns a snapshot of the session
func (s *Session) Status() Status {
	s.mu.Lock()
	state, err := s.state, s.err
	s.mu.Unlock()

	return Status{
		Address:      s.address,
		State:        state,
		Err:          err,
		Value:        s.CurrentValue(),
		LastSampleAt: s.LastSampleAt(),
	}
}

// Done returns a channel closed when the session goroutine has exited.
// For a session that was never started the channel is already closed.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Start spawns the session goroutine and returns immediately.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
	case StateStopped:
		return ErrSessionClosed
	default:
		return ErrSessionStarted
	}

	if s.radio == nil {
		s.state = StateFailed
		s.err = fmt.Errorf("%w: %w", ErrConnectionFailed, ErrHardwareUnavailable)
		s.running.Store(true)
		done := make(chan struct{})
		close(done)
		s.done = done
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopCancel = cancel
	s.state = StateConnecting
	s.running.Store(true)

	s.logger.WithField("address", s.address).Info("Starting heart rate session")
	s.done = groutine.Go(ctx, "hr-session "+s.address, s.run)
	return nil
}

// Stop ends the session and waits for its goroutine to exit, which
// guarantees the link is closed on return. Safe to call repeatedly and on
// sessions that were never started.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.running.Store(false)
	cancel := s.stopCancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-done

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.logger.WithField("address", s.address).Info("Heart rate session stopped")
}

// run is the session goroutine: dial, subscribe, wait, tear down
func (s *Session) run(ctx context.Context) {
	log := s.logger.WithField("address", s.address)

	defer func() {
		if r := recover(); r != nil {
			s.fail(fmt.Errorf("%w: panic: %v", ErrConnectionFailed, r))
		}
	}()

	connCtx, cancelConn := context.WithTimeout(ctx, s.connectTimeout)
	log.WithField("timeout", s.connectTimeout).Debug("Dialing heart rate sensor...")
	link, err := s.radio.Dial(connCtx, s.address)
	if err != nil {
		cancelConn()
		s.connectFailed(err)
		return
	}

	if err := link.Subscribe(connCtx, s.handleNotification); err != nil {
		cancelConn()
		if closeErr := link.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close link after subscribe failure")
		}
		s.connectFailed(err)
		return
	}
	cancelConn()

	defer s.teardown(link)

	s.mu.Lock()
	if s.state == StateConnecting {
		s.state = StateStreaming
	}
	s.mu.Unlock()
	log.Info("Subscribed to heart rate measurements")

	s.wait(ctx, link)
}

// wait blocks until Stop, link loss, or the running flag clears
func (s *Session) wait(ctx context.Context, link Link) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	lost := link.Disconnected()
	for s.running.Load() {
		select {
		case <-ctx.Done():
			return
		case <-lost:
			s.fail(fmt.Errorf("%w: %s", ErrConnectionLost, s.address))
			return
		case <-ticker.C:
		}
	}
}

// teardown unsubscribes and closes the link; errors are logged only
func (s *Session) teardown(link Link) {
	log := s.logger.WithField("address", s.address)

	if err := link.Unsubscribe(); err != nil {
		log.WithError(err).Debug("Unsubscribe failed during teardown")
	}
	if err := link.Close(); err != nil {
		log.WithError(err).Warn("Heart rate sensor disconnected with errors")
		return
	}
	log.Info("Heart rate sensor disconnected")
}

// connectFailed records a dial/subscribe failure unless Stop caused it
func (s *Session) connectFailed(err error) {
	if !s.running.Load() && errors.Is(err, context.Canceled) {
		s.logger.WithField("address", s.address).Debug("Connection attempt aborted by stop")
		return
	}
	if errors.Is(err, ErrConnectionFailed) {
		s.fail(err)
		return
	}
	s.fail(fmt.Errorf("%w: %s: %w", ErrConnectionFailed, s.address, err))
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = StateFailed
	s.err = err
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"address": s.address,
		"error":   err,
	}).Error("Heart rate session failed")
}

// handleNotification runs on the transport goroutine
func (s *Session) handleNotification(payload []byte) {
	if !s.running.Load() {
		return
	}
	bpm, ok := s.decoder(payload)
	if !ok {
		s.logger.WithField("bytes", len(payload)).Debug("Ignoring heart rate payload without a value")
		return
	}
	s.value.Store(int64(bpm))
	s.lastSample.Store(time.Now().UnixNano())
}
