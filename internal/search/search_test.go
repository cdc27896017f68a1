package search

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o600))
}

func TestScanFindsLines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", []byte("def foo():\n    pass\n"))
	writeFile(t, root, "b.py", []byte("FOO = 1\nbar = 2\nfoobar()\n"))

	res, err := NewScanner(root).Scan("foo", []string{"*"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, []Match{
		{Path: "a.py", Line: 1, Text: "def foo():"},
		{Path: "b.py", Line: 1, Text: "FOO = 1"},
		{Path: "b.py", Line: 3, Text: "foobar()"},
	}, res.Matches)
}

func TestScanRegexIsSearchNotFullMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.go", []byte("func Handle(w http.ResponseWriter) {}\n"))

	res, err := NewScanner(root).Scan(`handle\(`, nil)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 1, res.Matches[0].Line)
}

func TestScanCapOnScannedFiles(t *testing.T) {
	root := t.TempDir()
	for i := 1; i <= 301; i++ {
		body := "nothing here\n"
		if i == 301 {
			body = "needle\n"
		}
		writeFile(t, root, fmt.Sprintf("f%03d.txt", i), []byte(body))
	}

	res, err := NewScanner(root).Scan("needle", []string{"*.txt"})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, MaxScannedFiles, res.Scanned)
}

func TestScanBinaryFilesDoNotConsumeBudget(t *testing.T) {
	root := t.TempDir()
	for i := 1; i <= 300; i++ {
		writeFile(t, root, fmt.Sprintf("f%03d.txt", i), []byte("nothing here\n"))
	}
	// binary files sort before the text files and must not count
	for i := 0; i < 20; i++ {
		writeFile(t, root, fmt.Sprintf("bin%02d", i), []byte{0x00, 0x01, 0x02})
	}
	writeFile(t, root, "zz_last.txt", []byte("needle\n"))

	s := NewScanner(root)
	s.MaxFiles = 301
	res, err := s.Scan("needle", nil)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "zz_last.txt", res.Matches[0].Path)
	assert.Equal(t, 301, res.Scanned)
}

func TestScanSkipsHiddenSegments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/config", []byte("needle\n"))
	writeFile(t, root, "pkg/.cache/x.txt", []byte("needle\n"))
	writeFile(t, root, ".env", []byte("needle\n"))
	writeFile(t, root, "pkg/visible.txt", []byte("needle\n"))

	res, err := NewScanner(root).Scan("needle", nil)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "pkg/visible.txt", res.Matches[0].Path)
}

func TestScanGlobFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", []byte("needle\n"))
	writeFile(t, root, "deep/b.go", []byte("needle\n"))
	writeFile(t, root, "c.md", []byte("needle\n"))

	res, err := NewScanner(root).Scan("needle", ParseGlobs("*.py, *.go"))
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "a.py", res.Matches[0].Path)
	assert.Equal(t, "deep/b.go", res.Matches[1].Path)
}

func TestScanInvalidPattern(t *testing.T) {
	_, err := NewScanner(t.TempDir()).Scan("(unclosed", nil)
	assert.Error(t, err)
}

func TestParseGlobs(t *testing.T) {
	assert.Equal(t, []string{"*"}, ParseGlobs(""))
	assert.Equal(t, []string{"*"}, ParseGlobs(" , "))
	assert.Equal(t, []string{"*.py", "*.go"}, ParseGlobs("*.py, *.go"))
}

func TestHasHiddenSegment(t *testing.T) {
	assert.True(t, hasHiddenSegment(".git/HEAD"))
	assert.True(t, hasHiddenSegment("a/.b/c"))
	assert.False(t, hasHiddenSegment("a/b.c/d.txt"))
}

func symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
}

func TestScanSkipsLinksLeavingRoot(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, outside, "secret.txt", []byte("TOPSECRET=hunter2\n"))

	root := t.TempDir()
	writeFile(t, root, "visible.txt", []byte("topsecret in the open\n"))
	symlink(t, outside, filepath.Join(root, "link"))
	symlink(t, filepath.Join(outside, "secret.txt"), filepath.Join(root, "leak.txt"))

	for _, globs := range [][]string{nil, {"*.txt"}, {"link/*"}, {"leak.txt"}} {
		res, err := NewScanner(root).Scan("topsecret", globs)
		require.NoError(t, err)
		for _, m := range res.Matches {
			assert.Equal(t, "visible.txt", m.Path, "globs %v", globs)
		}
	}
}

func TestScanLinkLoopReadsFileOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", []byte("needle\n"))
	symlink(t, ".", filepath.Join(root, "loop"))

	res, err := NewScanner(root).Scan("needle", nil)
	require.NoError(t, err)
	assert.Equal(t, []Match{{Path: "a.txt", Line: 1, Text: "needle"}}, res.Matches)
	assert.Equal(t, 1, res.Scanned)
}

func TestScanLinkInsideRootIsDeduplicated(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.txt", []byte("needle\n"))
	symlink(t, "b.txt", filepath.Join(root, "a.txt"))

	res, err := NewScanner(root).Scan("needle", nil)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "a.txt", res.Matches[0].Path)
}
