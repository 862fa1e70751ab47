package filedrop

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"go.shareclip.dev/shareclip/internal/wire"
)

func connPair(t *testing.T) (*wire.Conn, *wire.Conn) {
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
	return wire.New(client), wire.New(a.conn)
}

func TestPlanWalksDirectoriesFirst(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "d", "sub"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "d", "a.txt"), []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, total, err := Plan([]string{filepath.Join(src, "d")})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Kind != KindDirectory || entries[0].Rel != "d" {
		t.Fatalf("expected the root directory first, got %+v", entries[0])
	}
	for _, e := range entries[1:] {
		switch e.Rel {
		case "d/a.txt":
			if e.Kind != KindFile || e.Size != 5 {
				t.Fatalf("bad file entry: %+v", e)
			}
		case "d/sub":
			if e.Kind != KindDirectory {
				t.Fatalf("bad dir entry: %+v", e)
			}
		default:
			t.Fatalf("unexpected entry %+v", e)
		}
	}
}

func TestTransmitReceiveRoundTrip(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "d"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "d", "a.txt"), []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, _, err := Plan([]string{filepath.Join(src, "d")})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	sender, receiver := connPair(t)
	spool := filepath.Join(t.TempDir(), "spool")

	errCh := make(chan error, 1)
	go func() {
		errCh <- NewTransmitter(sender, nil).Send(context.Background(), entries)
	}()

	paths, err := NewReceiver(spool, nil).Receive(context.Background(), receiver)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send: %v", err)
	}

	expected := []string{
		filepath.Join(spool, "d"),
		filepath.Join(spool, "d", "a.txt"),
	}
	if len(paths) != len(expected) {
		t.Fatalf("expected paths %v, got %v", expected, paths)
	}
	for i := range expected {
		if paths[i] != expected[i] {
			t.Fatalf("expected paths %v, got %v", expected, paths)
		}
	}

	body, err := os.ReadFile(filepath.Join(spool, "d", "a.txt"))
	if err != nil {
		t.Fatalf("read received file: %v", err)
	}
	if string(body) != "hello" {
		t.Fatalf("expected %q, got %q", "hello", body)
	}
}

func TestReceiverRecreatesSpool(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "fresh.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, _, err := Plan([]string{filepath.Join(src, "fresh.txt")})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	spool := filepath.Join(t.TempDir(), "spool")
	if err := os.MkdirAll(spool, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(spool, "stale.txt"), []byte("old"), 0o600); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	sender, receiver := connPair(t)
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewTransmitter(sender, nil).Send(context.Background(), entries)
	}()

	paths, err := NewReceiver(spool, nil).Receive(context.Background(), receiver)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "fresh.txt" {
		t.Fatalf("stale spool content must be gone, got %v", paths)
	}
}

func TestUnsafePathRejected(t *testing.T) {
	sender, receiver := connPair(t)
	spool := filepath.Join(t.TempDir(), "spool")

	go func() {
		// Hand-framed hostile record: a file trying to climb out of the spool.
		if err := sender.WriteString(KindFile); err != nil {
			return
		}
		if tag, err := sender.ReadTag(); err != nil || tag != wire.SuccessFormat {
			return
		}
		_ = sender.WriteString("../evil")
		_ = sender.WriteInt64(4)
		_, _ = sender.ReadTag() // Error comes back instead of SuccessSize
	}()

	_, err := NewReceiver(spool, nil).Receive(context.Background(), receiver)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}

	entries, err := os.ReadDir(spool)
	if err != nil {
		t.Fatalf("read spool: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("spool must stay empty, found %d entries", len(entries))
	}
}

func TestAbsolutePathRejected(t *testing.T) {
	sender, receiver := connPair(t)
	spool := filepath.Join(t.TempDir(), "spool")

	go func() {
		if err := sender.WriteString(KindDirectory); err != nil {
			return
		}
		if tag, err := sender.ReadTag(); err != nil || tag != wire.SuccessFormat {
			return
		}
		_ = sender.WriteString("/etc/evil")
		_ = sender.WriteInt64(0)
		_, _ = sender.ReadTag()
	}()

	_, err := NewReceiver(spool, nil).Receive(context.Background(), receiver)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
}

func TestSpoolDirIsStable(t *testing.T) {
	if filepath.Base(SpoolDir()) != "ShareClipbrd_60D54950" {
		t.Fatalf("unexpected spool directory %q", SpoolDir())
	}
}
