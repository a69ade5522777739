package feeder

import (
	"os"
	"path/filepath"
	"strings"
)

// DirectoryScanner lists candidate files in the configured source
// directories. It is stateless; every scan cycle gets a fresh listing.
type DirectoryScanner struct{}

func NewDirectoryScanner() *DirectoryScanner {
	return &DirectoryScanner{}
}

// Enumerate walks each configured directory in order and returns the full
// paths of candidate files. A directory that is missing, not a directory, or
// unreadable is logged and skipped; one bad path never aborts the scan.
// Order within a directory is filesystem-native and must not be relied on.
func (s *DirectoryScanner) Enumerate(dirs []string) []string {
	var identifiers []string
	for _, dir := range dirs {
		identifiers = append(identifiers, s.enumerateDir(dir)...)
	}
	return identifiers
}

func (s *DirectoryScanner) enumerateDir(dir string) []string {
	info, err := os.Stat(dir)
	if err != nil {
		logger.Warnf("source directory is not accessible, skipping: %s: %v", dir, err)
		return nil
	}
	if !info.IsDir() {
		logger.Warnf("source path is not a directory, skipping: %s", dir)
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warnf("failed to read source directory, skipping: %s: %v", dir, err)
		return nil
	}

	var identifiers []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !IsCandidateFile(entry.Name()) {
			continue
		}
		identifiers = append(identifiers, filepath.Join(dir, entry.Name()))
	}
	logger.Debugf("enumerated %d candidate file(s) in %s", len(identifiers), dir)
	return identifiers
}

// IsCandidateFile filters out hidden files and the usual temporary-file
// conventions: .tmp/.temp suffixes, and names prefixed or suffixed with '~'.
func IsCandidateFile(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".temp") {
		return false
	}
	if strings.HasPrefix(name, "~") || strings.HasSuffix(name, "~") {
		return false
	}
	return true
}
