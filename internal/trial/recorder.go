package trial

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
	// DefaultSampleInterval is the trial sampling cadence
	DefaultSampleInterval = time.Second

	// DefaultFlushInterval is how often queued samples are handed to the sink's Flush
	DefaultFlushInterval = 5 * time.Second
)

var (
	ErrRecorderRunning = errors.New("recorder is already running")
	ErrRecorderIdle    = errors.New("recorder is not running")
)

// ValueSource is anything exposing the latest heart-rate reading in bpm,
// 0 meaning no reading.
type ValueSource interface {
	CurrentValue() int
}

// Sink receives samples as they are taken
type Sink interface {
	Write(Sample) error
	Flush() error
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithSink streams every sample to sink
func WithSink(sink Sink) RecorderOption {
	return func(r *Recorder) { r.sink = sink }
}

// WithInterval sets the sampling cadence
func WithInterval(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithFlushInterval sets how often the sink is flushed while recording.
// Stop always flushes whatever is left.
func WithFlushInterval(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

// WithRecorderLogger sets the logger
func WithRecorderLogger(logger *logrus.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Recorder polls a ValueSource into a trial series. The first sample is
// taken at start; each later one after a further interval.
//
// Sampling only calls Sink.Write; a separate flusher goroutine calls
// Sink.Flush, so a slow disk never delays the sampling cadence.
type Recorder struct {
	src           ValueSource
	protocol      string
	sink          Sink
	interval      time.Duration
	flushInterval time.Duration
	logger        *logrus.Logger

	running atomic.Bool

	mu      sync.Mutex
	samples []Sample
	started time.Time
	stopped time.Time
	sinkErr error
	cancel  context.CancelFunc
	done    <-chan struct{}
}

// NewRecorder creates a recorder labelling its samples with protocol
func NewRecorder(src ValueSource, protocol string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		src:           src,
		protocol:      protocol,
		interval:      DefaultSampleInterval,
		flushInterval: DefaultFlushInterval,
		logger:        logrus.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins sampling until Stop is called or ctx ends
func (r *Recorder) Start(ctx context.Context) error {
	if r.src == nil {
		return errors.New("recorder has no value source")
	}
	if !r.running.CompareAndSwap(false, true) {
		return ErrRecorderRunning
	}

	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.samples = nil
	r.sinkErr = nil
	r.started = time.Now()
	r.stopped = time.Time{}
	r.cancel = cancel
	r.done = groutine.Go(ctx, "trial-recorder", r.loop)
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"protocol": r.protocol,
		"interval": r.interval,
	}).Debug("Trial recording started")
	return nil
}

// Done is closed when the sampling goroutine has exited
func (r *Recorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return r.done
}

// Stop ends sampling, flushes the sink and summarizes the series.
// The error reports the first sink failure, if any.
func (r *Recorder) Stop() (Summary, error) {
	if !r.running.CompareAndSwap(true, false) {
		return Summary{}, ErrRecorderIdle
	}

	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	stopped := time.Now()

	if r.sink != nil {
		if err := r.sink.Flush(); err != nil {
			r.recordSinkErr(fmt.Errorf("failed to flush samples: %w", err))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = stopped
	samples := make([]Sample, len(r.samples))
	copy(samples, r.samples)
	summary := Summary{
		Samples:  samples,
		Duration: r.stopped.Sub(r.started),
		MeanHR:   MeanBPM(samples),
	}

	r.logger.WithFields(logrus.Fields{
		"protocol": r.protocol,
		"samples":  len(samples),
		"mean_hr":  summary.MeanHR,
	}).Info("Trial recording stopped")
	return summary, r.sinkErr
}

// Samples returns a copy of the series so far
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	samples := make([]Sample, len(r.samples))
	copy(samples, r.samples)
	return samples
}

// IsRunning reports whether the recorder is sampling
func (r *Recorder) IsRunning() bool {
	return r.running.Load()
}

// loop samples until ctx ends; with a sink it also runs the flusher and
// returns only after the flusher has exited
func (r *Recorder) loop(ctx context.Context) {
	var flusherDone <-chan struct{}
	if r.sink != nil {
		flusherDone = groutine.Go(ctx, "trial-flusher", r.flushLoop)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sample()
	for {
		select {
		case <-ctx.Done():
			if flusherDone != nil {
				<-flusherDone
			}
			return
		case <-ticker.C:
			r.sample()
		}
	}
}

func (r *Recorder) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.sink.Flush(); err != nil {
				r.logger.WithError(err).Warn("Failed to flush trial samples")
				r.recordSinkErr(fmt.Errorf("failed to flush samples: %w", err))
			}
		}
	}
}

func (r *Recorder) sample() {
	r.mu.Lock()
	s := Sample{
		Protocol: r.protocol,
		Elapsed:  time.Since(r.started),
		BPM:      r.src.CurrentValue(),
	}
	r.samples = append(r.samples, s)
	r.mu.Unlock()

	if r.sink == nil {
		return
	}
	if err := r.sink.Write(s); err != nil {
		r.logger.WithError(err).Warn("Failed to queue trial sample")
		r.recordSinkErr(err)
	}
}

// recordSinkErr keeps the first sink failure
func (r *Recorder) recordSinkErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sinkErr == nil {
		r.sinkErr = err
	}
}
