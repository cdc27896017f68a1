package textfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/DeusData/local-system-mcp/internal/workspace"
	"github.com/zeebo/xxh3"
)

// MaxFileSize is the largest file Read will load.
const MaxFileSize int64 = 15 * 1024 * 1024

// Document is a decoded text file.
type Document struct {
	Text     string
	Encoding string
	Size     int64
	Digest   uint64 // xxh3 of the raw bytes
}

// Reader loads files as text.
type Reader struct {
	MaxSize   int64
	Encodings []Encoding
}

// NewReader returns a Reader with the 15 MiB ceiling and the default encodings.
func NewReader() *Reader {
	return &Reader{MaxSize: MaxFileSize, Encodings: DefaultEncodings}
}

// Read loads path as text. Checks run in a fixed order: existence, directory,
// size (before any byte is read), classification, then decoding.
func (r *Reader) Read(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if workspace.IsMissing(err) {
			return nil, workspace.ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, workspace.ErrIsDirectory
	}
	if info.Size() > r.MaxSize {
		return nil, &TooLargeError{Size: info.Size(), Limit: r.MaxSize}
	}
	if !IsText(path) {
		return nil, ErrBinary
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	for _, enc := range r.Encodings {
		text, decErr := enc.Decode(raw)
		if decErr != nil {
			continue
		}
		return &Document{
			Text:     normalizeNewlines(text),
			Encoding: enc.Name,
			Size:     int64(len(raw)),
			Digest:   xxh3.Hash(raw),
		}, nil
	}
	return nil, ErrDecode
}

// normalizeNewlines folds \r\n and lone \r into \n.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
