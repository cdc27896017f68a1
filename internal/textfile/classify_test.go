package textfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestIsTextExtensionWins(t *testing.T) {
	dir := t.TempDir()
	binary := []byte{0x00, 0xff, 0xfe, 0x00, 0x01, 0x02}

	assert.True(t, IsText(writeFile(t, dir, "blob.py", binary)))
	assert.True(t, IsText(writeFile(t, dir, "UPPER.JSON", binary)))
}

func TestIsTextSniffing(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, true},
		{"plain", []byte("hello world\nsecond line\r\n\tindented\n"), true},
		{"nul", []byte("mostly text\x00 but not"), false},
		{"high bytes", bytes.Repeat([]byte{0xc3, 0xa9, 0x80}, 100), false},
		{"seventy percent", append(bytes.Repeat([]byte("a"), 70), bytes.Repeat([]byte{0x90}, 30)...), true},
		{"below seventy", append(bytes.Repeat([]byte("a"), 69), bytes.Repeat([]byte{0x90}, 31)...), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, tt.name+".unknownext", tt.data)
			assert.Equal(t, tt.want, IsText(p))
		})
	}
}

func TestIsTextNulAfterSample(t *testing.T) {
	dir := t.TempDir()
	data := append(bytes.Repeat([]byte("x"), sampleSize), 0x00)
	assert.True(t, IsText(writeFile(t, dir, "late-nul", data)))
}

func TestIsTextNoExtensionBinary(t *testing.T) {
	dir := t.TempDir()
	data := append([]byte("ELF"), 0x00, 0x01)
	assert.False(t, IsText(writeFile(t, dir, "program", data)))
}

func TestIsTextMissingFile(t *testing.T) {
	assert.False(t, IsText(filepath.Join(t.TempDir(), "gone.bin")))
}
