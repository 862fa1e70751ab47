// Package clipdata holds the in-memory multi-format clipboard payload that
// travels between peers, plus the converters that map each known format
// between host strings and wire bytes.
//
// Format names are case-sensitive and transmitted verbatim; they follow the
// conventional clipboard format names so a payload advertises itself the same
// way the host clipboard does.
package clipdata

import "bytes"

// Known clipboard format names.
const (
	FormatText        = "Text"
	FormatUnicodeText = "UnicodeText"
	FormatString      = "System.String"
	FormatOEMText     = "OEMText"
	FormatRTF         = "Rich Text Format"
	FormatLocale      = "Locale"
	FormatHTML        = "HTML Format"
	FormatWaveAudio   = "WaveAudio"
	FormatBitmap      = "Bitmap"
	FormatDib         = "Dib"

	// FormatFileDrop is the sentinel that switches a transfer from clipboard
	// items to the file-drop stream.
	FormatFileDrop = "FileDrop"
)

var knownFormats = map[string]struct{}{
	FormatText: {}, FormatUnicodeText: {}, FormatString: {}, FormatOEMText: {},
	FormatRTF: {}, FormatLocale: {}, FormatHTML: {}, FormatWaveAudio: {},
	FormatBitmap: {}, FormatDib: {}, FormatFileDrop: {},
}

// Known reports whether format is one of the recognized clipboard formats.
// Unknown formats still travel, as raw bytes, but the receiver logs them.
func Known(format string) bool {
	_, ok := knownFormats[format]
	return ok
}

// Item is a single (format, payload) pair. The payload is produced eagerly
// before transmission and read once during the send.
type Item struct {
	Format string
	Data   []byte
}

// Data is an ordered sequence of clipboard items; insertion order is the
// transmission order. Duplicate formats are permitted; later items win on
// the receiver where host paste semantics allow it.
type Data struct {
	Items []Item
}

// Add appends an item. Format must be non-empty; the transfer layer rejects
// empty format names before anything reaches the wire.
func (d *Data) Add(format string, payload []byte) {
	d.Items = append(d.Items, Item{Format: format, Data: payload})
}

// AddText encodes s with the converter for format and appends the result.
// Formats without a string converter get the raw UTF-8 bytes of s.
func (d *Data) AddText(format, s string) error {
	b, err := Encode(format, s)
	if err != nil {
		return err
	}
	d.Add(format, b)
	return nil
}

// Total returns the sum of all payload lengths.
func (d *Data) Total() int64 {
	var n int64
	for _, it := range d.Items {
		n += int64(len(it.Data))
	}
	return n
}

// First returns the first item carrying format, or nil.
func (d *Data) First(format string) *Item {
	for i := range d.Items {
		if d.Items[i].Format == format {
			return &d.Items[i]
		}
	}
	return nil
}

// Formats returns the format names in transmission order.
func (d *Data) Formats() []string {
	out := make([]string, len(d.Items))
	for i, it := range d.Items {
		out[i] = it.Format
	}
	return out
}

// Equal reports whether two payloads carry the same items in the same order.
func (d *Data) Equal(o *Data) bool {
	if len(d.Items) != len(o.Items) {
		return false
	}
	for i := range d.Items {
		if d.Items[i].Format != o.Items[i].Format || !bytes.Equal(d.Items[i].Data, o.Items[i].Data) {
			return false
		}
	}
	return true
}
