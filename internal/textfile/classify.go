package textfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const sampleSize = 2048

// textExtensions are treated as text without looking at the content.
var textExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".java": true, ".kt": true, ".kts": true, ".go": true, ".rs": true,
	".rb": true, ".php": true, ".c": true, ".h": true, ".cpp": true,
	".hpp": true, ".cs": true, ".swift": true, ".scala": true, ".r": true,
	".m": true, ".mm": true, ".sql": true, ".sh": true, ".bash": true,
	".zsh": true, ".ps1": true, ".yaml": true, ".yml": true, ".json": true,
	".toml": true, ".ini": true, ".cfg": true, ".conf": true, ".xml": true,
	".html": true, ".htm": true, ".css": true, ".scss": true, ".sass": true,
	".less": true, ".md": true, ".txt": true, ".csv": true, ".env": true,
	".dockerfile": true, ".gradle": true, ".properties": true, ".graphql": true,
	".proto": true, ".vue": true, ".svelte": true,
}

// IsText reports whether path should be handled as text. Known source and
// config extensions win outright; anything else is sniffed from its first
// 2048 bytes.
func IsText(path string) bool {
	if textExtensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, sampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}
	return looksLikeText(buf[:n])
}

// looksLikeText applies the content heuristic to a sample.
func looksLikeText(sample []byte) bool {
	if bytes.IndexByte(sample, 0) >= 0 {
		return false
	}
	if len(sample) == 0 {
		return true
	}

	printable := 0
	for _, b := range sample {
		if (b >= 0x20 && b <= 0x7e) || b == '\t' || b == '\n' || b == '\r' {
			printable++
		}
	}
	return float64(printable)/float64(len(sample)) >= 0.7
}
