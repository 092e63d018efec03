package trial

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/hrmon/internal/testutils"
)

func TestSampleFileName(t *testing.T) {
	assert.Equal(t, "hr_data_Ana_Maria_Silva.csv", SampleFileName("Ana Maria Silva"))
	assert.Equal(t, "hr_data_P01.csv", SampleFileName(" P01 "))
}

func TestCSVSink_WritesHeaderOnceAndAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	logger := testutils.NewTestHelper(t).Logger

	sink, err := OpenCSVSink(dir, "Ana Maria", logger)
	require.NoError(t, err)
	require.NoError(t, sink.Write(Sample{Protocol: "HIGH", Elapsed: 0, BPM: 71}))
	require.NoError(t, sink.Write(Sample{Protocol: "HIGH", Elapsed: 1234 * time.Millisecond, BPM: 72}))
	require.NoError(t, sink.Flush())
	require.NoError(t, sink.Close())

	sink, err = OpenCSVSink(dir, "Ana Maria", logger)
	require.NoError(t, err)
	require.NoError(t, sink.Write(Sample{Protocol: "LOW", Elapsed: 2 * time.Second, BPM: 0}))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(filepath.Join(dir, "hr_data_Ana_Maria.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Protocol;Elapsed Time (s);HR (bpm)\n"+
		"HIGH;0;71\n"+
		"HIGH;1.23;72\n"+
		"LOW;2;0\n", string(data))
}

func TestCSVSink_WriteOnlyQueues(t *testing.T) {
	sink, err := OpenCSVSink(t.TempDir(), "P01", nil)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(Sample{Protocol: "HIGH", BPM: 90}))

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	assert.Equal(t, "Protocol;Elapsed Time (s);HR (bpm)\n", string(data))
	assert.Equal(t, int64(1), sink.Metrics().Queued)
	assert.Equal(t, int64(0), sink.Metrics().Written)

	require.NoError(t, sink.Flush())
	assert.Equal(t, int64(1), sink.Metrics().Written)
}

func TestCSVSink_CloseIsIdempotent(t *testing.T) {
	sink, err := OpenCSVSink(t.TempDir(), "P01", nil)
	require.NoError(t, err)

	assert.NoError(t, sink.Close())
	assert.NoError(t, sink.Close())
	assert.Error(t, sink.Flush(), "flushing a closed sink MUST fail")
}

func TestCSVSink_RequiresParticipant(t *testing.T) {
	_, err := OpenCSVSink(t.TempDir(), "  ", nil)
	assert.Error(t, err)
}

func TestSampleQueue_OverwritesOldestWhenFull(t *testing.T) {
	q, err := newSampleQueue(4)
	require.NoError(t, err)

	for i := 1; i <= 20; i++ {
		require.NoError(t, q.push(Sample{BPM: i}))
	}

	var drained []int
	require.NoError(t, q.drain(func(s Sample) error {
		drained = append(drained, s.BPM)
		return nil
	}))

	m := q.metrics()
	assert.Equal(t, int64(20), m.Queued)
	assert.Greater(t, m.Overwritten, int64(0))
	assert.Less(t, len(drained), 20)
	require.NotEmpty(t, drained)
	assert.Equal(t, 20, drained[len(drained)-1], "newest sample MUST survive")
}

func TestSampleQueue_Size(t *testing.T) {
	_, err := newSampleQueue(0)
	assert.Error(t, err)

	_, err = newSampleQueue(MaxQueueSize + 1)
	assert.Error(t, err)
}
