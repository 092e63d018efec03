package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/suite"

	"github.com/srg/hrmon/internal/heartrate"
	"github.com/srg/hrmon/internal/testutils"
)

const (
	testDeviceAddress = "AA:BB:CC:DD:EE:01"
	testWaitTimeout   = 2 * time.Second
)

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CommandTestSuite runs hrmon commands against a FakeRadio.
type CommandTestSuite struct {
	suite.Suite
	Radio      *testutils.FakeRadio
	DataDir    string
	ConfigPath string

	originalRadio func(*logrus.Logger) (heartrate.Radio, error)
}

func (s *CommandTestSuite) SetupSuite() {
	s.originalRadio = newRadio
}

func (s *CommandTestSuite) TearDownSuite() {
	newRadio = s.originalRadio
}

func (s *CommandTestSuite) SetupTest() {
	s.Radio = testutils.NewFakeRadio()
	newRadio = func(*logrus.Logger) (heartrate.Radio, error) {
		return s.Radio, nil
	}

	tmp := s.T().TempDir()
	s.DataDir = filepath.Join(tmp, "data")
	s.ConfigPath = filepath.Join(tmp, "hrmon.yaml")
	s.Require().NoError(os.WriteFile(s.ConfigPath, []byte(fmt.Sprintf(`
log_level: error
scan_timeout: 50ms
connect_timeout: 1s
poll_interval: 10ms
sample_interval: 10ms
resting_duration: 50ms
data_dir: %q
`, s.DataDir)), 0o600))

	resetFlags(rootCmd)
}

// resetFlags restores every flag to its default between executions
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// ExecuteCommand runs hrmon with args and the suite config, returning stdout and stderr.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, string, error) {
	out, errOut := &syncBuffer{}, &syncBuffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(append(args, "--config", s.ConfigPath))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// NotifyWhenSubscribed pushes payload once the command has subscribed
func (s *CommandTestSuite) NotifyWhenSubscribed(payload []byte) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		link, err := s.Radio.WaitForSubscribedLink(testWaitTimeout)
		if err == nil {
			link.Notify(payload)
		}
		errCh <- err
	}()
	return errCh
}
