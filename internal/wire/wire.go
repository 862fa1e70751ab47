// Package wire implements the framed binary protocol shareclip peers speak
// over a TCP connection.
//
// Everything on the wire is little-endian. Three primitives exist:
//
//	u16     protocol tags and the version word
//	i64     payload and item sizes
//	string  i32 byte count followed by that many UTF-8 bytes
//
// Bulk payloads are moved in fixed-size chunks through a process-wide buffer
// pool so large transfers do not allocate per chunk.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Tag is a u16 protocol control word.
type Tag uint16

// Control tags. Version doubles as the protocol version word the client
// sends first on a fresh connection; both peers must agree on it.
const (
	Version        Tag = 1
	SuccessVersion Tag = 2
	SuccessFormat  Tag = 3
	SuccessSize    Tag = 4
	SuccessData    Tag = 5
	MoreData       Tag = 6
	Finish         Tag = 7
	Error          Tag = 8
)

func (t Tag) String() string {
	switch t {
	case Version:
		return "Version"
	case SuccessVersion:
		return "SuccessVersion"
	case SuccessFormat:
		return "SuccessFormat"
	case SuccessSize:
		return "SuccessSize"
	case SuccessData:
		return "SuccessData"
	case MoreData:
		return "MoreData"
	case Finish:
		return "Finish"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Tag(%d)", uint16(t))
	}
}

// ChunkSize is the unit of bulk payload transfer.
const ChunkSize = 64 * 1024

// MaxStringLen bounds a length-prefixed string (format names and relative
// paths); anything longer is a corrupt or hostile frame.
const MaxStringLen = 64 * 1024

// ErrEndOfStream is reported when the peer closes the connection in the
// middle of a framed value.
var ErrEndOfStream = errors.New("unexpected end of stream")

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

// Conn frames the shareclip protocol over a net.Conn. Reads and writes go
// straight to the socket with no buffering between calls, which keeps the
// request/response lockstep simple: every frame is written whole before the
// matching acknowledgment is read.
type Conn struct {
	conn net.Conn
	// scratch for fixed-width primitives
	word [8]byte
}

// New wraps conn.
func New(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Underlying returns the wrapped net.Conn.
func (c *Conn) Underlying() net.Conn { return c.conn }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// SetReadDeadline sets or clears the read deadline.
func (c *Conn) SetReadDeadline(d time.Duration) {
	if d == 0 {
		_ = c.conn.SetReadDeadline(time.Time{})
	} else {
		_ = c.conn.SetReadDeadline(time.Now().Add(d))
	}
}

// readFull fills buf from the connection, mapping a short read to ErrEndOfStream.
func (c *Conn) readFull(buf []byte) error {
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrEndOfStream
		}
		return err
	}
	return nil
}

// ReadTag reads one u16 control word.
func (c *Conn) ReadTag() (Tag, error) {
	if err := c.readFull(c.word[:2]); err != nil {
		return 0, err
	}
	return Tag(binary.LittleEndian.Uint16(c.word[:2])), nil
}

// WriteTag writes one u16 control word.
func (c *Conn) WriteTag(t Tag) error {
	binary.LittleEndian.PutUint16(c.word[:2], uint16(t))
	_, err := c.conn.Write(c.word[:2])
	return err
}

// ReadInt64 reads one little-endian i64.
func (c *Conn) ReadInt64() (int64, error) {
	if err := c.readFull(c.word[:8]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(c.word[:8])), nil
}

// WriteInt64 writes one little-endian i64.
func (c *Conn) WriteInt64(v int64) error {
	binary.LittleEndian.PutUint64(c.word[:8], uint64(v))
	_, err := c.conn.Write(c.word[:8])
	return err
}

// ReadString reads an i32 length prefix followed by that many UTF-8 bytes.
func (c *Conn) ReadString() (string, error) {
	if err := c.readFull(c.word[:4]); err != nil {
		return "", err
	}
	n := int32(binary.LittleEndian.Uint32(c.word[:4]))
	if n < 0 || n > MaxStringLen {
		return "", fmt.Errorf("string length %d out of range", n)
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if err := c.readFull(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteString writes s as an i32 byte-count prefix followed by the UTF-8 bytes.
func (c *Conn) WriteString(s string) error {
	binary.LittleEndian.PutUint32(c.word[:4], uint32(len(s)))
	if _, err := c.conn.Write(c.word[:4]); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	_, err := io.WriteString(c.conn, s)
	return err
}

// CopyTo streams exactly n payload bytes from the connection into dst.
// tick, if non-nil, is called with the size of each chunk as it lands.
// The transfer buffer is pooled and returned on every exit path.
func (c *Conn) CopyTo(dst io.Writer, n int64, tick func(int64)) error {
	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)
	buf := *bp

	for n > 0 {
		chunk := int64(len(buf))
		if chunk > n {
			chunk = n
		}
		if err := c.readFull(buf[:chunk]); err != nil {
			return err
		}
		if _, err := dst.Write(buf[:chunk]); err != nil {
			return err
		}
		if tick != nil {
			tick(chunk)
		}
		n -= chunk
	}
	return nil
}

// CopyFrom streams exactly n payload bytes from src onto the connection.
// tick, if non-nil, is called with the size of each chunk as it is sent.
func (c *Conn) CopyFrom(src io.Reader, n int64, tick func(int64)) error {
	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)
	buf := *bp

	for n > 0 {
		chunk := int64(len(buf))
		if chunk > n {
			chunk = n
		}
		if _, err := io.ReadFull(src, buf[:chunk]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return ErrEndOfStream
			}
			return err
		}
		if _, err := c.conn.Write(buf[:chunk]); err != nil {
			return err
		}
		if tick != nil {
			tick(chunk)
		}
		n -= chunk
	}
	return nil
}
