// Package bitmap converts a clipboard DIB (BITMAPINFOHEADER + optional color
// table + pixel data, no file header) into a standalone BMP file by
// prepending the 14-byte BITMAPFILEHEADER.
package bitmap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidDIB is reported when the input does not start with a well-formed
// BITMAPINFOHEADER.
var ErrInvalidDIB = errors.New("invalid DIB")

const (
	fileHeaderSize = 14
	infoHeaderSize = 40

	// biCompression value that carries three u32 channel masks after the header.
	compressionBitfields = 3

	signature = 0x4D42 // "BM"
)

// InfoHeader is the 40-byte BITMAPINFOHEADER at the start of every DIB.
type InfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// parseInfoHeader deserializes and validates the leading BITMAPINFOHEADER.
func parseInfoHeader(dib []byte) (InfoHeader, error) {
	var h InfoHeader
	if len(dib) < infoHeaderSize {
		return h, fmt.Errorf("deserialize BITMAPINFOHEADER: data invalid: %w", ErrInvalidDIB)
	}
	if err := binary.Read(bytes.NewReader(dib[:infoHeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("deserialize BITMAPINFOHEADER: data invalid: %w", ErrInvalidDIB)
	}
	if h.Size != infoHeaderSize || h.Width <= 0 || h.Height == 0 || h.Planes != 1 {
		return h, fmt.Errorf("deserialize BITMAPINFOHEADER: data invalid: %w", ErrInvalidDIB)
	}
	switch h.BitCount {
	case 1, 4, 8, 16, 24, 32:
	default:
		return h, fmt.Errorf("deserialize BITMAPINFOHEADER: bit count %d: %w", h.BitCount, ErrInvalidDIB)
	}
	return h, nil
}

// paletteBytes returns the size of the color table following the header.
func paletteBytes(h InfoHeader) uint32 {
	if h.ClrUsed > 0 {
		return h.ClrUsed * 4
	}
	if h.BitCount <= 8 {
		return (uint32(1) << h.BitCount) * 4
	}
	return 0
}

// maskBytes returns the size of the channel masks following the color table.
func maskBytes(h InfoHeader) uint32 {
	if h.Compression == compressionBitfields {
		return 12
	}
	return 0
}

// DIBToBMP reads a full DIB from r and returns the bytes of a standalone BMP
// file. The conversion is pure: the same input always yields the same output,
// and the function holds no state between calls.
func DIBToBMP(r io.Reader) ([]byte, error) {
	dib, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read DIB: %w", err)
	}
	return FromDIB(dib)
}

// FromDIB converts in-memory DIB bytes into a standalone BMP file.
func FromDIB(dib []byte) ([]byte, error) {
	h, err := parseInfoHeader(dib)
	if err != nil {
		return nil, err
	}

	offBits := uint32(fileHeaderSize) + h.Size + paletteBytes(h) + maskBytes(h)
	fileSize := uint32(fileHeaderSize + len(dib))

	out := make([]byte, fileHeaderSize+len(dib))
	binary.LittleEndian.PutUint16(out[0:2], signature)
	binary.LittleEndian.PutUint32(out[2:6], fileSize)
	// out[6:10]: bfReserved1 and bfReserved2 stay zero
	binary.LittleEndian.PutUint32(out[10:14], offBits)
	copy(out[fileHeaderSize:], dib)
	return out, nil
}
