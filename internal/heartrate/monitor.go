package heartrate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Monitor owns at most one started Session. Switching to a new sensor
// fully stops the previous session before the new one starts, so the
// application never holds two live connections.
type Monitor struct {
	radio  Radio
	logger *logrus.Logger
	opts   []Option

	mu      sync.Mutex
	current *Session
}

// NewMonitor creates a monitor; opts are applied to every session it starts
func NewMonitor(radio Radio, logger *logrus.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Monitor{
		radio:  radio,
		logger: logger,
		opts:   append([]Option{WithLogger(logger)}, opts...),
	}
}

// Switch stops the active session, if any, then starts a session for address.
// Holding the lock across stop and start serializes concurrent switches.
func (m *Monitor) Switch(address string) (*Session, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("device address is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev := m.current; prev != nil {
		m.logger.WithFields(logrus.Fields{
			"from": prev.Address(),
			"to":   address,
		}).Info("Switching heart rate sensor")
		prev.Stop()
		m.current = nil
	}

	s := NewSession(m.radio, address, m.opts...)
	if err := s.Start(); err != nil {
		return nil, err
	}
	m.current = s
	return s, nil
}

// Current returns the active session or nil
func (m *Monitor) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentValue returns the active session's value, 0 without a session
func (m *Monitor) CurrentValue() int {
	if s := m.Current(); s != nil {
		return s.CurrentValue()
	}
	return 0
}

// Status returns the active session snapshot; ok is false without a session
func (m *Monitor) Status() (Status, bool) {
	s := m.Current()
	if s == nil {
		return Status{}, false
	}
	return s.Status(), true
}

// Close stops the active session. Safe to call repeatedly.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Stop()
		m.current = nil
	}
}
