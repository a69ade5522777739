package feeder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("data"), 0644))
	return p
}

func TestEnumerateFiltersNonCandidates(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "report.txt")
	writeFile(t, dir, ".hidden")
	writeFile(t, dir, "report.tmp")
	writeFile(t, dir, "~scratch.txt")

	got := NewDirectoryScanner().Enumerate([]string{dir})
	assert.Equal(t, []string{want}, got)
}

func TestEnumerateSkipsBadDirectories(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "a.csv")
	notADir := writeFile(t, dir, "plain.txt")

	got := NewDirectoryScanner().Enumerate([]string{
		dir,
		filepath.Join(dir, "does-not-exist"),
		notADir,
	})

	// the bad paths are skipped, the good one still enumerated
	assert.ElementsMatch(t, []string{want, notADir}, got)
}

func TestEnumerateSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	writeFile(t, filepath.Join(dir, "nested"), "inner.txt")
	want := writeFile(t, dir, "outer.txt")

	got := NewDirectoryScanner().Enumerate([]string{dir})
	assert.Equal(t, []string{want}, got, "enumeration is not recursive")
}

func TestEnumeratePreservesDirectoryOrder(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	a := writeFile(t, dirA, "a.txt")
	b := writeFile(t, dirB, "b.txt")

	got := NewDirectoryScanner().Enumerate([]string{dirA, dirB})
	assert.Equal(t, []string{a, b}, got)

	got = NewDirectoryScanner().Enumerate([]string{dirB, dirA})
	assert.Equal(t, []string{b, a}, got)
}

func TestIsCandidateFile(t *testing.T) {
	testCases := []struct {
		name string
		want bool
	}{
		{"report.txt", true},
		{"REPORT_2024.CSV", true},
		{"a", true},
		{"", false},
		{".hidden", false},
		{".report.txt", false},
		{"report.tmp", false},
		{"report.temp", false},
		{"~scratch.txt", false},
		{"scratch.txt~", false},
		{"~", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsCandidateFile(tc.name))
		})
	}
}
