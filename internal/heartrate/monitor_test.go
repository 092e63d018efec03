package heartrate_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/srg/hrmon/internal/heartrate"
	"github.com/srg/hrmon/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(t *testing.T) (*heartrate.Monitor, *testutils.FakeRadio) {
	radio := testutils.NewFakeRadio()
	m := heartrate.NewMonitor(radio, testutils.NewTestHelper(t).Logger, heartrate.WithPollInterval(10*time.Millisecond))
	t.Cleanup(m.Close)
	return m, radio
}

func TestMonitor_SwitchKeepsOneLiveConnection(t *testing.T) {
	m, radio := newTestMonitor(t)

	first, err := m.Switch("AA:BB:CC:DD:EE:01")
	require.NoError(t, err)
	firstLink, err := radio.WaitForSubscribedLink(waitTimeout)
	require.NoError(t, err)
	firstLink.Notify([]byte{0x00, 0x40})

	second, err := m.Switch("AA:BB:CC:DD:EE:02")
	require.NoError(t, err)
	_, err = radio.WaitForSubscribedLink(waitTimeout)
	require.NoError(t, err)

	assert.Equal(t, 1, radio.Live(), "exactly one link MUST be open after switching")
	assert.Equal(t, 1, radio.MaxLive(), "two links MUST never be open at once")
	assert.True(t, firstLink.Closed())
	assert.Equal(t, heartrate.StateStopped, first.State())
	assert.Same(t, second, m.Current())
	assert.Equal(t, "AA:BB:CC:DD:EE:02", m.Current().Address())
	assert.Equal(t, 0, m.CurrentValue(), "new session MUST NOT inherit the old value")
}

func TestMonitor_RepeatedSwitches(t *testing.T) {
	m, radio := newTestMonitor(t)

	for i := 0; i < 10; i++ {
		_, err := m.Switch(fmt.Sprintf("AA:BB:CC:DD:EE:%02X", i))
		require.NoError(t, err)
		assert.LessOrEqual(t, radio.Live(), 1)
	}

	m.Close()
	assert.Equal(t, 0, radio.Live())
	assert.LessOrEqual(t, radio.MaxLive(), 1)
}

func TestMonitor_ConcurrentSwitches(t *testing.T) {
	m, radio := newTestMonitor(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Switch(fmt.Sprintf("AA:BB:CC:DD:EE:%02X", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, radio.MaxLive(), 1)
	assert.NotNil(t, m.Current())
}

func TestMonitor_NoSession(t *testing.T) {
	m, _ := newTestMonitor(t)

	assert.Nil(t, m.Current())
	assert.Equal(t, 0, m.CurrentValue())
	_, ok := m.Status()
	assert.False(t, ok)
	assert.NotPanics(t, m.Close)
}

func TestMonitor_StatusReflectsSession(t *testing.T) {
	m, radio := newTestMonitor(t)
	_, err := m.Switch(testAddress)
	require.NoError(t, err)
	link, err := radio.WaitForSubscribedLink(waitTimeout)
	require.NoError(t, err)

	link.Notify([]byte{0x00, 0x47})

	st, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, 71, st.Value)
	assert.Equal(t, testAddress, st.Address)
	assert.Equal(t, 71, m.CurrentValue())
}

func TestMonitor_CloseIsIdempotent(t *testing.T) {
	m, radio := newTestMonitor(t)
	_, err := m.Switch(testAddress)
	require.NoError(t, err)

	m.Close()
	m.Close()

	assert.Nil(t, m.Current())
	assert.Equal(t, 0, radio.Live())
}

func TestMonitor_RejectsEmptyAddress(t *testing.T) {
	m, radio := newTestMonitor(t)

	_, err := m.Switch("  ")

	assert.Error(t, err)
	assert.Empty(t, radio.Dials())
}
