package internal

import "fmt"

var (
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// Version returns the human-readable build version.
func Version() string {
	return fmt.Sprintf("%s (%s %s)", version, gitCommit, buildDate)
}
