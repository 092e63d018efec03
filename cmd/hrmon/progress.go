package main

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// CountdownPrinter shows the time left in a fixed-length phase.
//
// Usage:
//
//	p := NewCountdownPrinter(w, "Scanning for heart-rate sensors", 5*time.Second)
//	p.Start()
//	defer p.Stop()
//
// A CountdownPrinter is single-use.
type CountdownPrinter struct {
	w        io.Writer
	prefix   string
	duration time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewCountdownPrinter creates a printer counting down from duration
func NewCountdownPrinter(w io.Writer, prefix string, duration time.Duration) *CountdownPrinter {
	return &CountdownPrinter{
		w:        w,
		prefix:   prefix,
		duration: duration,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins displaying the countdown in a background goroutine.
// Panics if called more than once.
func (p *CountdownPrinter) Start() {
	if !p.started.CompareAndSwap(false, true) {
		panic("CountdownPrinter.Start called more than once")
	}

	start := time.Now()
	p.print(p.remaining(0))

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(progressUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.print(p.remaining(time.Since(start)))
			}
		}
	}()
}

// remaining rounds the time left to the nearest second, never below 0
func (p *CountdownPrinter) remaining(elapsed time.Duration) int {
	left := p.duration - elapsed
	if left <= 0 {
		return 0
	}
	return int(left.Seconds() + 0.5)
}

func (p *CountdownPrinter) print(seconds int) {
	fmt.Fprintf(p.w, "\r%s (%ds left)   ", p.prefix, seconds)
}

// Stop ends the countdown and clears the line. Safe to call repeatedly.
func (p *CountdownPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		if p.started.Load() {
			<-p.done
			fmt.Fprint(p.w, clearLineSequence)
		}
	})
}
