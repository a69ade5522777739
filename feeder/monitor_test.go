package feeder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"

	"github.com/bizopsbank/feeder/pkg/netcool"
)

func TestMonitorQuietWhenFilesAreFresh(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fresh.txt")

	conf := NewConfig()
	conf.SourceDirs = []string{dir}

	alerter := new(MockAlerter)
	mon := NewDirectoryMonitor(conf, alerter, clockwork.NewRealClock())
	mon.checkOnce()

	alerter.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMonitorAlertsOnEmptyDirectory(t *testing.T) {
	conf := NewConfig()
	conf.SourceDirs = []string{t.TempDir()}

	alerter := new(MockAlerter)
	alerter.On("SendAlert", "FRS_0253", mock.Anything, mock.MatchedBy(func(msg string) bool {
		return len(msg) > 0
	}), netcool.SeverityCritical).Return(nil)

	mon := NewDirectoryMonitor(conf, alerter, clockwork.NewRealClock())
	mon.checkOnce()

	alerter.AssertExpectations(t)
}

func TestMonitorAlertsOnMissingDirectory(t *testing.T) {
	conf := NewConfig()
	conf.SourceDirs = []string{filepath.Join(t.TempDir(), "gone")}

	alerter := new(MockAlerter)
	alerter.On("SendAlert", "FRS_0253", mock.Anything, mock.Anything, netcool.SeverityCritical).Return(nil)

	mon := NewDirectoryMonitor(conf, alerter, clockwork.NewRealClock())
	mon.checkOnce()

	alerter.AssertExpectations(t)
}

func TestMonitorAlertsOnStaleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "old.txt")

	conf := NewConfig()
	conf.SourceDirs = []string{dir}

	// a clock two days ahead makes the just-written file look stale
	clk := clockwork.NewFakeClockAt(time.Now().Add(48 * time.Hour))

	alerter := new(MockAlerter)
	alerter.On("SendAlert", "FRS_0253", mock.Anything, mock.Anything, netcool.SeverityCritical).Return(nil)

	mon := NewDirectoryMonitor(conf, alerter, clk)
	mon.checkOnce()

	alerter.AssertExpectations(t)
}

func TestMonitorStartStopRestart(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fresh.txt")

	conf := NewConfig()
	conf.SourceDirs = []string{dir}

	mon := NewDirectoryMonitor(conf, new(MockAlerter), clockwork.NewFakeClock())

	// leadership can come and go; the monitor must survive the churn
	mon.Start()
	mon.Stop()
	mon.Start()
	mon.Start() // double start is a no-op
	mon.Stop()
	mon.Stop() // double stop too
}
