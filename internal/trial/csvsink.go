package trial

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// csvDelimiter matches the files produced by earlier data collection
const csvDelimiter = ';'

var sampleHeader = []string{"Protocol", "Elapsed Time (s)", "HR (bpm)"}

// SampleFileName returns the per-participant series file name
func SampleFileName(participant string) string {
	return fmt.Sprintf("hr_data_%s.csv", strings.ReplaceAll(strings.TrimSpace(participant), " ", "_"))
}

// CSVSink appends samples to a participant's series file. Write only
// queues; Flush writes queued rows to disk.
type CSVSink struct {
	path   string
	logger *logrus.Logger
	queue  *sampleQueue

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// CSVSinkOption configures a CSVSink
type CSVSinkOption func(*csvSinkOptions)

type csvSinkOptions struct {
	queueSize uint32
}

// WithQueueSize bounds how many samples wait between flushes; older ones
// are overwritten when the writer falls behind.
func WithQueueSize(size uint32) CSVSinkOption {
	return func(o *csvSinkOptions) { o.queueSize = size }
}

// OpenCSVSink opens (or creates) the series file for participant in dir.
// The header is written only when the file is new or empty.
func OpenCSVSink(dir, participant string, logger *logrus.Logger, opts ...CSVSinkOption) (*CSVSink, error) {
	if strings.TrimSpace(participant) == "" {
		return nil, fmt.Errorf("participant name is required")
	}
	options := csvSinkOptions{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&options)
	}
	queue, err := newSampleQueue(options.queueSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", dir, err)
	}

	path := filepath.Join(dir, SampleFileName(participant))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	writer := csv.NewWriter(file)
	writer.Comma = csvDelimiter
	if info.Size() == 0 {
		if err := writer.Write(sampleHeader); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to write header to %q: %w", path, err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to write header to %q: %w", path, err)
		}
	}

	logger.WithField("path", path).Debug("Sample file opened")
	return &CSVSink{
		path:   path,
		logger: logger,
		queue:  queue,
		file:   file,
		writer: writer,
	}, nil
}

// Path returns the series file path
func (c *CSVSink) Path() string {
	return c.path
}

// Write queues a sample
func (c *CSVSink) Write(s Sample) error {
	return c.queue.push(s)
}

// Flush writes every queued sample to the file
func (c *CSVSink) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *CSVSink) flushLocked() error {
	if c.file == nil {
		return fmt.Errorf("sample file %q is closed", c.path)
	}

	err := c.queue.drain(func(s Sample) error {
		return c.writer.Write([]string{
			s.Protocol,
			strconv.FormatFloat(s.ElapsedSeconds(), 'f', -1, 64),
			strconv.Itoa(s.BPM),
		})
	})
	c.writer.Flush()
	if err != nil {
		return err
	}
	return c.writer.Error()
}

// Metrics returns the queue counters
func (c *CSVSink) Metrics() QueueMetrics {
	return c.queue.metrics()
}

// Close flushes pending samples and closes the file; later calls are no-ops
func (c *CSVSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}

	flushErr := c.flushLocked()
	closeErr := c.file.Close()
	c.file = nil

	if m := c.queue.metrics(); m.Overwritten > 0 {
		c.logger.WithField("overwritten", m.Overwritten).Warn("Samples were dropped before reaching the file")
	}
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
