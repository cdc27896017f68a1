package textfile

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding decodes raw file bytes into a string or fails.
type Encoding struct {
	Name   string
	Decode func([]byte) (string, error)
}

var errInvalidUTF8 = errors.New("invalid utf-8")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// UTF8 accepts only well-formed UTF-8. A leading byte-order mark is kept.
var UTF8 = Encoding{
	Name: "utf-8",
	Decode: func(b []byte) (string, error) {
		if !utf8.Valid(b) {
			return "", errInvalidUTF8
		}
		return string(b), nil
	},
}

// UTF8BOM accepts well-formed UTF-8 and strips a leading byte-order mark.
var UTF8BOM = Encoding{
	Name: "utf-8-sig",
	Decode: func(b []byte) (string, error) {
		if !utf8.Valid(bytes.TrimPrefix(b, utf8BOM)) {
			return "", errInvalidUTF8
		}
		out, err := unicode.UTF8BOM.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	},
}

// Latin1 maps every byte to a code point and never fails.
var Latin1 = Encoding{
	Name: "latin-1",
	Decode: func(b []byte) (string, error) {
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	},
}

// DefaultEncodings is the order files are decoded in.
var DefaultEncodings = []Encoding{UTF8, UTF8BOM, Latin1}
