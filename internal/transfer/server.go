package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"go.shareclip.dev/shareclip/internal/bitmap"
	"go.shareclip.dev/shareclip/internal/clipdata"
	"go.shareclip.dev/shareclip/internal/filedrop"
	"go.shareclip.dev/shareclip/internal/wire"
)

// ServerConfig configures the inbound role.
type ServerConfig struct {
	// Addr is the TCP listen endpoint (host_address).
	Addr string
	// SpoolDir overrides the file-drop spool directory; empty means the
	// process-wide default.
	SpoolDir string

	Dispatch Dispatch
	Progress Progress
	Status   StatusSink
	Errors   ErrorDialog
}

// Server is the inbound role: it accepts one connection at a time,
// handshakes, and demultiplexes incoming transfers to the dispatch
// collaborator. Errors inside a session end that session only; the listener
// keeps accepting.
type Server struct {
	cfg ServerConfig
}

// NewServer returns a Server. Nil Progress and Status are replaced with
// no-ops and a nil Errors with LogErrorDialog; Dispatch is not defaulted and
// must be set.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Progress == nil {
		cfg.Progress = NopProgress{}
	}
	if cfg.Status == nil {
		cfg.Status = NopStatus{}
	}
	if cfg.Errors == nil {
		cfg.Errors = LogErrorDialog{}
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = filedrop.SpoolDir()
	}
	return &Server{cfg: cfg}
}

// Run listens on the configured address and serves sessions until ctx is
// cancelled. It returns once the accept loop has unwound; status is Offline
// from then on.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts sessions on ln until ctx is cancelled. Callers that need the
// bound address (tests, port 0) listen themselves and hand the listener in.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.cfg.Status.SetStatus(StatusOffline)

	slog.Info("data server listening", "addr", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("accept failed", "err", err)
			continue
		}
		// One client at a time: the session runs on the accept goroutine.
		if err := s.session(ctx, conn); err != nil {
			if ctx.Err() != nil || isCancellation(err) {
				continue
			}
			s.cfg.Errors.ShowError(err)
		}
	}
}

// session runs the handshake and transfer loop for one accepted connection.
func (s *Server) session(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	wc := wire.New(conn)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log := slog.With("peer", conn.RemoteAddr().String())

	tag, err := wc.ReadTag()
	if err != nil {
		return fmt.Errorf("handshake read: %w", err)
	}
	if tag != wire.Version {
		_ = wc.WriteTag(wire.Error)
		return fmt.Errorf("%w: peer sent %d, want %d", ErrUnsupportedVersion, uint16(tag), uint16(wire.Version))
	}
	if err := wc.WriteTag(wire.SuccessVersion); err != nil {
		return err
	}

	s.cfg.Status.SetStatus(StatusOnline)
	log.Debug("session online")

	for {
		total, err := wc.ReadInt64()
		if err != nil {
			if errors.Is(err, wire.ErrEndOfStream) {
				log.Debug("session closed by peer")
				return nil
			}
			return err
		}
		if total < 0 {
			_ = wc.WriteTag(wire.Error)
			return fmt.Errorf("%w: total %d", ErrUnsupportedSize, total)
		}
		if err := wc.WriteTag(wire.SuccessSize); err != nil {
			return err
		}
		if total == 0 {
			// Ping: the size frame alone, nothing follows.
			log.Debug("ping")
			continue
		}

		if err := s.receiveTransfer(ctx, wc, log, total); err != nil {
			return err
		}
	}
}

// receiveTransfer consumes one announced transfer: either a file-drop stream
// or a sequence of clipboard items.
func (s *Server) receiveTransfer(ctx context.Context, wc *wire.Conn, log *slog.Logger, total int64) error {
	h := s.cfg.Progress.Begin(ProgressReceive)
	defer h.Close()
	h.SetMax(total)

	format, err := wc.ReadString()
	if err != nil {
		return err
	}

	if format == clipdata.FormatFileDrop {
		if err := wc.WriteTag(wire.SuccessFormat); err != nil {
			return err
		}
		recv := filedrop.NewReceiver(s.cfg.SpoolDir, h.Tick)
		paths, err := recv.Receive(ctx, wc)
		if err != nil {
			return fmt.Errorf("file drop: %w", err)
		}
		log.Info("file drop received", "entries", len(paths), "bytes", total)
		return s.cfg.Dispatch.Files(ctx, paths)
	}

	data, err := s.receiveItems(wc, log, format, total, h)
	if err != nil {
		return err
	}

	log.Info("clipboard received", "formats", data.Formats(), "bytes", total)
	if err := s.cfg.Dispatch.Data(ctx, data); err != nil {
		return err
	}

	// A Dib item additionally surfaces as a standalone BMP image.
	if dib := data.First(clipdata.FormatDib); dib != nil {
		bmp, err := bitmap.FromDIB(dib.Data)
		if err != nil {
			return fmt.Errorf("dib item: %w", err)
		}
		return s.cfg.Dispatch.Image(ctx, bmp)
	}
	return nil
}

// receiveItems consumes (format, size, payload) triples until Finish.
// firstFormat was already read by the caller.
func (s *Server) receiveItems(wc *wire.Conn, log *slog.Logger, firstFormat string, total int64, h ProgressHandle) (*clipdata.Data, error) {
	data := &clipdata.Data{}
	format := firstFormat
	var received int64

	for {
		if format == "" {
			_ = wc.WriteTag(wire.Error)
			return nil, fmt.Errorf("%w: empty format name", ErrUnsupportedFormat)
		}
		if !clipdata.Known(format) {
			log.Warn("unknown clipboard format, passing through", "format", format)
		}
		if err := wc.WriteTag(wire.SuccessFormat); err != nil {
			return nil, err
		}

		size, err := wc.ReadInt64()
		if err != nil {
			return nil, err
		}
		if size < 0 || size > total-received {
			_ = wc.WriteTag(wire.Error)
			return nil, fmt.Errorf("%w: item %d exceeds announced total %d", ErrUnsupportedSize, size, total)
		}
		if err := wc.WriteTag(wire.SuccessSize); err != nil {
			return nil, err
		}

		var payload bytes.Buffer
		if size <= wire.ChunkSize {
			payload.Grow(int(size))
		}
		if err := wc.CopyTo(&payload, size, h.Tick); err != nil {
			return nil, err
		}
		received += size
		if err := wc.WriteTag(wire.SuccessData); err != nil {
			return nil, err
		}
		data.Add(format, payload.Bytes())

		tag, err := wc.ReadTag()
		if err != nil {
			return nil, err
		}
		switch tag {
		case wire.Finish:
			return data, nil
		case wire.MoreData:
			if format, err = wc.ReadString(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected tag %v after item payload", tag)
		}
	}
}
