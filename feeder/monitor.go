package feeder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bizopsbank/feeder/pkg/netcool"
)

// DirectoryMonitor watches the source directories for staleness: if a
// directory is missing, empty, or its newest file is older than the
// configured threshold, a CRITICAL alert is raised. Intended to run on the
// cluster leader only, so the monitoring side sees one alert, not one per
// node; the election wiring in cmd takes care of that.
type DirectoryMonitor struct {
	conf    *Config
	alerter netcool.Alerter
	clock   clockwork.Clock

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

func NewDirectoryMonitor(conf *Config, alerter netcool.Alerter, clock clockwork.Clock) *DirectoryMonitor {
	return &DirectoryMonitor{
		conf:    conf,
		alerter: alerter,
		clock:   clock,
	}
}

// Start begins periodic staleness checks. Restartable: a monitor stopped on
// leadership loss starts again when leadership is reacquired.
func (m *DirectoryMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		logger.Warn("directory monitor is already running")
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh

	logger.Infof("starting directory monitor: %d directory(ies), every %s, stale threshold %s",
		len(m.conf.SourceDirs), m.conf.ScanInterval, m.conf.StaleThreshold)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := m.clock.NewTicker(m.conf.ScanInterval)
		defer ticker.Stop()

		m.checkOnce()
		for {
			select {
			case <-ticker.Chan():
				m.checkOnce()
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop halts the checks and waits for the in-flight one.
func (m *DirectoryMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	logger.Info("directory monitor stopped")
}

type dirStatus struct {
	path   string
	files  int
	newest time.Time
	err    error
}

func (d dirStatus) stale(now time.Time, threshold time.Duration) bool {
	if d.err != nil || d.newest.IsZero() {
		return true
	}
	return now.Sub(d.newest) >= threshold
}

// checkOnce scans every configured directory and raises a single aggregated
// alert if any of them looks dead.
func (m *DirectoryMonitor) checkOnce() {
	now := m.clock.Now()

	var statuses []dirStatus
	anyStale := false
	for _, dir := range m.conf.SourceDirs {
		st := m.inspectDir(dir)
		if st.stale(now, m.conf.StaleThreshold) {
			anyStale = true
		}
		statuses = append(statuses, st)
	}

	if !anyStale {
		logger.Debug("all source directories have recent files, no alert needed")
		return
	}

	msg := m.buildAlertMessage(now, statuses)
	logger.Warn(msg)
	if err := m.alerter.SendAlert("FRS_0253", "No Reports Found Alert", msg, netcool.SeverityCritical); err != nil {
		logger.Errorf("failed to send staleness alert: %v", err)
	}
}

func (m *DirectoryMonitor) inspectDir(dir string) dirStatus {
	st := dirStatus{path: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		st.err = err
		return st
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		st.files++
		info, err := entry.Info()
		if err != nil {
			logger.Warnf("error reading modification time of %s: %v", filepath.Join(dir, entry.Name()), err)
			continue
		}
		if info.ModTime().After(st.newest) {
			st.newest = info.ModTime()
		}
	}
	return st
}

func (m *DirectoryMonitor) buildAlertMessage(now time.Time, statuses []dirStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "No reports found for extended period of time. Threshold: %s. Details: ", m.conf.StaleThreshold)
	for _, st := range statuses {
		switch {
		case st.err != nil:
			fmt.Fprintf(&b, "[Directory: %s, Error: %v] ", st.path, st.err)
		case st.newest.IsZero():
			fmt.Fprintf(&b, "[Directory: %s, Status: No files found] ", st.path)
		default:
			fmt.Fprintf(&b, "[Directory: %s, Last file: %s ago] ", st.path, now.Sub(st.newest).Round(time.Minute))
		}
	}
	return strings.TrimSpace(b.String())
}
