package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
	"testing"
)

// connPair returns two ends of a loopback TCP connection, closed on cleanup.
func connPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	type accepted struct {
		conn net.Conn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		c, err := ln.Accept()
		ch <- accepted{c, err}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	a := <-ch
	if a.err != nil {
		t.Fatalf("accept: %v", a.err)
	}
	t.Cleanup(func() {
		client.Close()
		a.conn.Close()
	})
	return client, a.conn
}

func TestTagRoundTrip(t *testing.T) {
	a, b := connPair(t)
	wa, wb := New(a), New(b)

	for _, tag := range []Tag{Version, SuccessVersion, MoreData, Finish, Error} {
		if err := wa.WriteTag(tag); err != nil {
			t.Fatalf("write %v: %v", tag, err)
		}
		got, err := wb.ReadTag()
		if err != nil {
			t.Fatalf("read %v: %v", tag, err)
		}
		if got != tag {
			t.Fatalf("expected tag %v, got %v", tag, got)
		}
	}
}

func TestTagsAreLittleEndian(t *testing.T) {
	a, b := connPair(t)
	wa := New(a)

	if err := wa.WriteTag(Tag(0x0102)); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 2)
	if _, err := b.Read(buf); err != nil {
		t.Fatalf("raw read: %v", err)
	}
	if buf[0] != 0x02 || buf[1] != 0x01 {
		t.Fatalf("expected little-endian 02 01, got %x %x", buf[0], buf[1])
	}
}

func TestInt64RoundTrip(t *testing.T) {
	a, b := connPair(t)
	wa, wb := New(a), New(b)

	for _, v := range []int64{0, 1, -1, 1 << 40, -(1 << 40)} {
		if err := wa.WriteInt64(v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := wb.ReadInt64()
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("expected %d, got %d", v, got)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	a, b := connPair(t)
	wa, wb := New(a), New(b)

	for _, s := range []string{"", "Text", "Rich Text Format", "αβγ", "naïve\n"} {
		if err := wa.WriteString(s); err != nil {
			t.Fatalf("write %q: %v", s, err)
		}
		got, err := wb.ReadString()
		if err != nil {
			t.Fatalf("read %q: %v", s, err)
		}
		if got != s {
			t.Fatalf("expected %q, got %q", s, got)
		}
	}
}

func TestShortReadIsEndOfStream(t *testing.T) {
	a, b := connPair(t)
	wb := New(b)

	// Three bytes of an eight-byte value, then the peer goes away.
	if _, err := a.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("raw write: %v", err)
	}
	a.Close()

	if _, err := wb.ReadInt64(); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
}

func TestReadStringRejectsHostileLength(t *testing.T) {
	a, b := connPair(t)
	wb := New(b)

	prefix := make([]byte, 4)
	binary.LittleEndian.PutUint32(prefix, uint32(MaxStringLen+1))
	if _, err := a.Write(prefix); err != nil {
		t.Fatalf("raw write: %v", err)
	}
	if _, err := wb.ReadString(); err == nil {
		t.Fatal("expected length guard error, got nil")
	}
}

func TestCopyToCrossesChunkBoundaries(t *testing.T) {
	a, b := connPair(t)
	wa, wb := New(a), New(b)

	payload := make([]byte, ChunkSize*2+137)
	for i := range payload {
		payload[i] = byte(i)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- wa.CopyFrom(bytes.NewReader(payload), int64(len(payload)), nil)
	}()

	var got bytes.Buffer
	var ticked int64
	if err := wb.CopyTo(&got, int64(len(payload)), func(d int64) { ticked += d }); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if !bytes.Equal(got.Bytes(), payload) {
		t.Fatal("payload corrupted in transit")
	}
	if ticked != int64(len(payload)) {
		t.Fatalf("expected %d ticked bytes, got %d", len(payload), ticked)
	}
}

func TestCopyToShortSourceIsEndOfStream(t *testing.T) {
	a, b := connPair(t)
	wb := New(b)

	if _, err := a.Write(make([]byte, 100)); err != nil {
		t.Fatalf("raw write: %v", err)
	}
	a.Close()

	var sink bytes.Buffer
	if err := wb.CopyTo(&sink, 500, nil); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
}
