package textfile

import (
	"errors"
	"fmt"
)

var (
	// ErrBinary is returned for files the classifier rejects.
	ErrBinary = errors.New("file appears to be binary")
	// ErrDecode is returned when no configured encoding accepts the content.
	ErrDecode = errors.New("file could not be decoded as text")
)

// TooLargeError reports a file above the read ceiling.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file is too large (%d bytes, limit %d)", e.Size, e.Limit)
}
