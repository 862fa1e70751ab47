package clipdata

import (
	"bytes"
	"testing"
)

func TestTextFormatsRoundTripUTF8(t *testing.T) {
	for _, format := range []string{FormatText, FormatString, FormatHTML, FormatRTF} {
		in := "héllo <b>world</b>\n"
		b, err := Encode(format, in)
		if err != nil {
			t.Fatalf("%s encode: %v", format, err)
		}
		if !bytes.Equal(b, []byte(in)) {
			t.Fatalf("%s expected raw UTF-8 bytes, got %v", format, b)
		}
		out, err := Decode(format, b)
		if err != nil {
			t.Fatalf("%s decode: %v", format, err)
		}
		if out != in {
			t.Fatalf("%s round trip: expected %q, got %q", format, in, out)
		}
	}
}

func TestUnicodeTextIsUTF16LE(t *testing.T) {
	b, err := Encode(FormatUnicodeText, "αβ")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	expected := []byte{0xB1, 0x03, 0xB2, 0x03}
	if !bytes.Equal(b, expected) {
		t.Fatalf("expected UTF-16LE %v, got %v", expected, b)
	}
	out, err := Decode(FormatUnicodeText, b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != "αβ" {
		t.Fatalf("round trip: expected %q, got %q", "αβ", out)
	}
}

func TestOEMTextASCIIRoundTrip(t *testing.T) {
	b, err := Encode(FormatOEMText, "hello")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(b, []byte("hello")) {
		t.Fatalf("ASCII subset must encode 1:1, got %v", b)
	}
	out, err := Decode(FormatOEMText, b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != "hello" {
		t.Fatalf("round trip: expected %q, got %q", "hello", out)
	}
}

func TestUnknownFormatPassesThrough(t *testing.T) {
	raw := []byte{0x00, 0xFF, 0x7F}
	if HasConverter("SomethingElse") {
		t.Fatal("unexpected converter for unknown format")
	}
	out, err := Decode("SomethingElse", raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != string(raw) {
		t.Fatal("identity decode mangled the bytes")
	}
}

func TestTotalSumsPayloadLengths(t *testing.T) {
	d := &Data{}
	d.Add(FormatText, []byte("hi"))
	d.Add(FormatDib, make([]byte, 100))
	if got := d.Total(); got != 102 {
		t.Fatalf("expected total 102, got %d", got)
	}
}

func TestOrderAndDuplicatesPreserved(t *testing.T) {
	d := &Data{}
	d.Add(FormatText, []byte("first"))
	d.Add(FormatHTML, []byte("<i>x</i>"))
	d.Add(FormatText, []byte("second"))

	formats := d.Formats()
	expected := []string{FormatText, FormatHTML, FormatText}
	for i := range expected {
		if formats[i] != expected[i] {
			t.Fatalf("expected order %v, got %v", expected, formats)
		}
	}
	if it := d.First(FormatText); it == nil || string(it.Data) != "first" {
		t.Fatal("First must return the earliest item for a format")
	}
}

func TestKnownFormats(t *testing.T) {
	for _, f := range []string{
		FormatText, FormatUnicodeText, FormatString, FormatOEMText, FormatRTF,
		FormatLocale, FormatHTML, FormatWaveAudio, FormatBitmap, FormatDib, FormatFileDrop,
	} {
		if !Known(f) {
			t.Fatalf("%s must be a known format", f)
		}
	}
	if Known("x-custom") {
		t.Fatal("x-custom must not be known")
	}
}

func TestAddTextUsesConverter(t *testing.T) {
	d := &Data{}
	if err := d.AddText(FormatUnicodeText, "ab"); err != nil {
		t.Fatalf("AddText: %v", err)
	}
	if !bytes.Equal(d.Items[0].Data, []byte{'a', 0, 'b', 0}) {
		t.Fatalf("expected UTF-16LE payload, got %v", d.Items[0].Data)
	}
}
