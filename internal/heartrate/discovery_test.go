package heartrate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/srg/hrmon/internal/heartrate"
	"github.com/srg/hrmon/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testScanWindow = 50 * time.Millisecond

type DiscoveryTestSuite struct {
	suite.Suite
	helper *testutils.TestHelper
}

func (suite *DiscoveryTestSuite) SetupTest() {
	suite.helper = testutils.NewTestHelper(suite.T())
}

func (suite *DiscoveryTestSuite) TestZeroTimeoutReturnsEmptyWithoutScanning() {
	radio := testutils.NewFakeRadio(testutils.CreateHeartRateAdvertisement("Polar H10", "AA:BB:CC:DD:EE:01"))
	d := heartrate.NewDiscoverer(radio, suite.helper.Logger)

	start := time.Now()
	devices, err := d.Discover(context.Background(), 0)

	suite.NoError(err)
	suite.NotNil(devices, "zero-timeout discovery MUST return an empty list, not nil")
	suite.Empty(devices)
	suite.Less(time.Since(start), 50*time.Millisecond, "zero-timeout discovery MUST NOT block")
	suite.Equal(0, radio.Scans(), "zero-timeout discovery MUST NOT touch the radio")
}

func (suite *DiscoveryTestSuite) TestKeepsOnlyHeartRateSensorsInDiscoveryOrder() {
	radio := testutils.NewFakeRadio(
		testutils.CreateHeartRateAdvertisement("Polar H10", "AA:BB:CC:DD:EE:02"),
		testutils.CreateMockAdvertisement("Thermometer", "AA:BB:CC:DD:EE:03", -50).WithServices("1809").Build(),
		testutils.CreateMockAdvertisement("Wahoo TICKR", "AA:BB:CC:DD:EE:01", -70).WithServices(heartrate.ServiceUUID).Build(),
		testutils.CreateMockAdvertisement("", "AA:BB:CC:DD:EE:04", -80).Build(),
	)
	d := heartrate.NewDiscoverer(radio, suite.helper.Logger)

	devices, err := d.Discover(context.Background(), testScanWindow)

	suite.Require().NoError(err)
	suite.Require().Len(devices, 2)
	suite.Equal("AA:BB:CC:DD:EE:02", devices[0].Address)
	suite.Equal("Polar H10", devices[0].Name)
	suite.Equal("AA:BB:CC:DD:EE:01", devices[1].Address)
	suite.Equal("Wahoo TICKR", devices[1].Name)
	suite.Equal(-70, devices[1].RSSI)
}

func (suite *DiscoveryTestSuite) TestCollapsesDuplicatesAndFillsMissingName() {
	addr := "AA:BB:CC:DD:EE:05"
	radio := testutils.NewFakeRadio(
		testutils.CreateMockAdvertisement("", addr, -75).WithServices("180d").Build(),
		// scan response: carries the name but no service list
		testutils.CreateMockAdvertisement("HRM-Pro", addr, -65).Build(),
		testutils.CreateMockAdvertisement("Other", addr, -60).WithServices("180d").Build(),
	)
	d := heartrate.NewDiscoverer(radio, suite.helper.Logger)

	devices, err := d.Discover(context.Background(), testScanWindow)

	suite.Require().NoError(err)
	suite.Require().Len(devices, 1)
	suite.Equal("HRM-Pro", devices[0].Name, "first non-empty name MUST win")
	suite.Equal(-60, devices[0].RSSI, "RSSI MUST track the latest advertisement")
}

func (suite *DiscoveryTestSuite) TestEmptyWhenNothingAdvertises() {
	d := heartrate.NewDiscoverer(testutils.NewFakeRadio(), suite.helper.Logger)

	devices, err := d.Discover(context.Background(), testScanWindow)

	suite.NoError(err)
	suite.Empty(devices)
}

func (suite *DiscoveryTestSuite) TestHardwareErrors() {
	// GOAL: Verify radio failures surface as ErrHardwareUnavailable instead of crashing
	//
	// TEST SCENARIO: Scan fails with platform messages → error chain contains sentinel

	tests := []struct {
		name    string
		scanErr error
	}{
		{name: "bluetooth off", scanErr: errors.New("bluetooth is turned off")},
		{name: "darwin invalid state", scanErr: errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?")},
		{name: "linux permission", scanErr: errors.New("can't init hci: operation not permitted")},
		{name: "already wrapped", scanErr: heartrate.ErrHardwareUnavailable},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			radio := testutils.NewFakeRadio()
			radio.ScanErr = tt.scanErr
			d := heartrate.NewDiscoverer(radio, suite.helper.Logger)

			devices, err := d.Discover(context.Background(), testScanWindow)

			suite.Nil(devices)
			suite.ErrorIs(err, heartrate.ErrHardwareUnavailable)
		})
	}

	suite.Run("unknown errors pass through", func() {
		radio := testutils.NewFakeRadio()
		radio.ScanErr = errors.New("some other error")
		d := heartrate.NewDiscoverer(radio, suite.helper.Logger)

		_, err := d.Discover(context.Background(), testScanWindow)

		suite.Error(err)
		suite.Contains(err.Error(), "some other error")
		suite.NotErrorIs(err, heartrate.ErrHardwareUnavailable)
	})

	suite.Run("missing radio", func() {
		d := heartrate.NewDiscoverer(nil, suite.helper.Logger)

		_, err := d.Discover(context.Background(), testScanWindow)

		suite.ErrorIs(err, heartrate.ErrHardwareUnavailable)
	})
}

func (suite *DiscoveryTestSuite) TestRadioPanicIsContained() {
	d := heartrate.NewDiscoverer(panicRadio{}, suite.helper.Logger)

	suite.NotPanics(func() {
		_, err := d.Discover(context.Background(), testScanWindow)
		suite.ErrorIs(err, heartrate.ErrHardwareUnavailable)
	})
}

func (suite *DiscoveryTestSuite) TestCancelReturnsCollectedDevices() {
	radio := testutils.NewFakeRadio(testutils.CreateHeartRateAdvertisement("Polar H10", "AA:BB:CC:DD:EE:06"))
	d := heartrate.NewDiscoverer(radio, suite.helper.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	devices, err := d.Discover(ctx, 10*time.Second)

	suite.ErrorIs(err, context.Canceled)
	suite.Len(devices, 1)
	suite.Less(time.Since(start), 5*time.Second)
}

func (suite *DiscoveryTestSuite) TestDiscoverAsyncPostsOneResult() {
	radio := testutils.NewFakeRadio(testutils.CreateHeartRateAdvertisement("Polar H10", "AA:BB:CC:DD:EE:07"))
	d := heartrate.NewDiscoverer(radio, suite.helper.Logger)

	results := d.DiscoverAsync(context.Background(), testScanWindow)

	select {
	case res, ok := <-results:
		suite.Require().True(ok)
		suite.NoError(res.Err)
		suite.Len(res.Devices, 1)
	case <-time.After(2 * time.Second):
		suite.Fail("discovery result MUST be posted")
	}

	_, ok := <-results
	suite.False(ok, "result channel MUST be closed after the single result")
}

func TestDiscoveryTestSuite(t *testing.T) {
	suite.Run(t, new(DiscoveryTestSuite))
}

func TestDeviceDescriptor_DisplayName(t *testing.T) {
	assert.Equal(t, "Unknown", heartrate.DeviceDescriptor{Address: "x"}.DisplayName())
	assert.Equal(t, "Polar H10", heartrate.DeviceDescriptor{Name: "Polar H10"}.DisplayName())
}

func TestDiscover_ConcurrentAdvertisements(t *testing.T) {
	radio := concurrentRadio{count: 32}
	d := heartrate.NewDiscoverer(radio, testutils.NewTestHelper(t).Logger)

	devices, err := d.Discover(context.Background(), testScanWindow)

	require.NoError(t, err)
	assert.Len(t, devices, 1, "concurrent duplicates MUST collapse onto one entry")
}

type panicRadio struct{}

func (panicRadio) Scan(context.Context, func(heartrate.Advertisement)) error {
	panic("corebluetooth exploded")
}

func (panicRadio) Dial(context.Context, string) (heartrate.Link, error) {
	return nil, errors.New("unused")
}

// concurrentRadio delivers the same advertisement from many goroutines
type concurrentRadio struct {
	count int
}

func (r concurrentRadio) Scan(ctx context.Context, handler func(heartrate.Advertisement)) error {
	adv := testutils.CreateHeartRateAdvertisement("Polar H10", "AA:BB:CC:DD:EE:08")
	done := make(chan struct{}, r.count)
	for i := 0; i < r.count; i++ {
		go func() {
			handler(adv)
			done <- struct{}{}
		}()
	}
	for i := 0; i < r.count; i++ {
		<-done
	}
	<-ctx.Done()
	return ctx.Err()
}

func (concurrentRadio) Dial(context.Context, string) (heartrate.Link, error) {
	return nil, errors.New("unused")
}
