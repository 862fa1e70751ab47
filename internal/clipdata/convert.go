package clipdata

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Converter maps one clipboard format between a host string and its wire
// byte encoding.
type Converter struct {
	// Encode turns a host string into wire bytes.
	Encode func(s string) ([]byte, error)
	// Decode turns wire bytes back into a host string.
	Decode func(b []byte) (string, error)
}

var (
	utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	oemText = charmap.CodePage437
)

func identityString(s string) ([]byte, error) { return []byte(s), nil }
func identityBytes(b []byte) (string, error)  { return string(b), nil }

// encWith and decWith build a fresh transformer per call; encoders carry
// transform state and are not safe to share between transfers.
func encWith(e encoding.Encoding) func(string) ([]byte, error) {
	return func(s string) ([]byte, error) { return e.NewEncoder().Bytes([]byte(s)) }
}

func decWith(e encoding.Encoding) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		out, err := e.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

var utf8Converter = Converter{Encode: identityString, Decode: identityBytes}

// converters is the static format table. Formats absent here (Locale, Dib,
// WaveAudio, Bitmap and anything unknown) fall through to identity bytes.
var converters = map[string]Converter{
	FormatText:   utf8Converter,
	FormatString: utf8Converter,
	FormatHTML:   utf8Converter,
	FormatRTF:    utf8Converter,
	FormatUnicodeText: {
		Encode: encWith(utf16le),
		Decode: decWith(utf16le),
	},
	FormatOEMText: {
		Encode: encWith(oemText),
		Decode: decWith(oemText),
	},
}

// HasConverter reports whether format has a string converter wired.
func HasConverter(format string) bool {
	_, ok := converters[format]
	return ok
}

// Encode converts a host string into the wire bytes for format. Formats
// without a converter get the raw UTF-8 bytes.
func Encode(format, s string) ([]byte, error) {
	if c, ok := converters[format]; ok {
		return c.Encode(s)
	}
	return []byte(s), nil
}

// Decode converts wire bytes for format back into a host string. Formats
// without a converter are interpreted as raw UTF-8.
func Decode(format string, b []byte) (string, error) {
	if c, ok := converters[format]; ok {
		return c.Decode(b)
	}
	return string(b), nil
}
