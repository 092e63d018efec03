package trial

import (
	"fmt"
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
)

const (
	// DefaultQueueSize bounds samples waiting to be written
	DefaultQueueSize uint32 = 256

	// MaxQueueSize guards against accidental misconfiguration
	MaxQueueSize uint32 = 64 * 1024
)

// QueueMetrics counts queue traffic
type QueueMetrics struct {
	Queued      int64
	Written     int64
	Overwritten int64 // samples dropped because the writer fell behind
}

// sampleQueue buffers samples between the sampler and a slow writer.
// When full the oldest sample is overwritten.
type sampleQueue struct {
	buffer      mpmc.RichOverlappedRingBuffer[Sample]
	queued      atomic.Int64
	written     atomic.Int64
	overwritten atomic.Int64
}

func newSampleQueue(size uint32) (*sampleQueue, error) {
	if size == 0 {
		return nil, fmt.Errorf("queue size must be > 0")
	}
	if size > MaxQueueSize {
		return nil, fmt.Errorf("queue size %d exceeds maximum %d", size, MaxQueueSize)
	}
	return &sampleQueue{
		buffer: mpmc.NewOverlappedRingBuffer[Sample](size),
	}, nil
}

func (q *sampleQueue) push(s Sample) error {
	overwrites, err := q.buffer.EnqueueM(s)
	if err != nil {
		return fmt.Errorf("unexpected buffer.Enqueue error: %w", err)
	}
	q.overwritten.Add(int64(overwrites))
	q.queued.Add(1)
	return nil
}

// drain hands queued samples to fn in order. A sample fn rejects is lost.
func (q *sampleQueue) drain(fn func(Sample) error) error {
	for !q.buffer.IsEmpty() {
		s, err := q.buffer.Dequeue()
		if err != nil {
			return fmt.Errorf("buffer dequeue error: %w", err)
		}
		if err := fn(s); err != nil {
			return err
		}
		q.written.Add(1)
	}
	return nil
}

func (q *sampleQueue) metrics() QueueMetrics {
	return QueueMetrics{
		Queued:      q.queued.Load(),
		Written:     q.written.Load(),
		Overwritten: q.overwritten.Load(),
	}
}
