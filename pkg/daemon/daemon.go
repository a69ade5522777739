package daemon

import (
	"os"

	"github.com/sevlyar/go-daemon"
)

// WasReborn reports whether the current process is the daemonized child,
// based on the marker environment variable set by go-daemon.
func WasReborn() bool {
	return daemon.WasReborn()
}

// UnsetMark removes the child-process marker. The child should call this
// once it has identified itself.
func UnsetMark() {
	os.Unsetenv(daemon.MARK_NAME)
}

// Daemonize forks the current process into a background daemon. It returns a
// non-nil process if the caller is the parent (which should then exit), and
// nil if it is the child.
func Daemonize(pidFile, logFile string, args []string) (*os.Process, error) {
	// empty logFile redirects to /dev/null
	if logFile == "" {
		logFile = os.DevNull
	}

	cntxt := &daemon.Context{
		PidFileName: pidFile,
		PidFilePerm: 0644,
		LogFileName: logFile,
		LogFilePerm: 0640,
		WorkDir:     "/",
		Umask:       027,
		Args:        args,
	}

	return cntxt.Reborn()
}
