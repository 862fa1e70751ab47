package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.shareclip.dev/shareclip/internal/clipdata"
	"go.shareclip.dev/shareclip/internal/filedrop"
	"go.shareclip.dev/shareclip/internal/wire"
)

const (
	// DefaultPingPeriod is how often the idle client pings the partner to
	// keep the connection and the status indicator honest.
	DefaultPingPeriod = 30 * time.Second

	// quiesceWait bounds how long a new send waits for a cancelled
	// predecessor to unwind before proceeding.
	quiesceWait = time.Second

	defaultDialTimeout = 10 * time.Second

	// DiscoveryPrefix marks a partner address as a discovery id rather than
	// a host:port endpoint: "@office-pc" resolves via AddressDiscovery.
	DiscoveryPrefix = "@"
)

// ClientConfig configures the outbound role.
type ClientConfig struct {
	// Partner is the remote endpoint, either "host:port" or a discovery id
	// of the form "@name".
	Partner string

	Discovery   AddressDiscovery
	Progress    Progress
	Status      StatusSink
	Errors      ErrorDialog
	PingPeriod  time.Duration
	DialTimeout time.Duration
}

// Client is the outbound role. Operations run serially: a new send cancels
// whatever is in flight, waits briefly for it to unwind, and takes over the
// single connection. The ping timer is single-shot and re-arms itself after
// every completed operation.
type Client struct {
	cfg ClientConfig

	mu        sync.Mutex
	conn      *wire.Conn
	cancel    context.CancelFunc // token of the operation in flight
	opDone    chan struct{}      // closed when that operation unwinds
	pingTimer *time.Timer
	started   bool
}

// NewClient returns a Client. Nil Progress and Status are replaced with
// no-ops and a nil Errors with LogErrorDialog; a nil Discovery stays nil, and
// discovery ids are then rejected as invalid configuration.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Progress == nil {
		cfg.Progress = NopProgress{}
	}
	if cfg.Status == nil {
		cfg.Status = NopStatus{}
	}
	if cfg.Errors == nil {
		cfg.Errors = LogErrorDialog{}
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = DefaultPingPeriod
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Client{cfg: cfg}
}

// Start enables the periodic ping.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.pingTimer = time.AfterFunc(c.cfg.PingPeriod, c.pingTick)
}

// Stop disables the ping, cancels any in-flight operation, waits briefly for
// it to unwind, and closes the connection.
func (c *Client) Stop() {
	c.mu.Lock()
	c.started = false
	if c.pingTimer != nil {
		c.pingTimer.Stop()
	}
	cancel := c.cancel
	done := c.opDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(quiesceWait):
		}
	}

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	c.cfg.Status.SetStatus(StatusClientOffline)
}

// SendData pushes a complete clipboard payload to the partner.
func (c *Client) SendData(data *clipdata.Data) error {
	if len(data.Items) == 0 {
		return nil
	}
	ctx, end := c.beginOp()
	defer end()
	err := c.sendData(ctx, data)
	return c.finishOp(err)
}

// SendFileDropList streams the given drop paths to the partner.
func (c *Client) SendFileDropList(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	ctx, end := c.beginOp()
	defer end()
	err := c.sendFileDrop(ctx, paths)
	return c.finishOp(err)
}

// Ping performs one zero-length transfer to keep the connection warm.
func (c *Client) Ping() error {
	ctx, end := c.beginOp()
	defer end()

	wc, fresh, err := c.connect(ctx)
	if err == nil {
		stop := context.AfterFunc(ctx, func() { _ = wc.Close() })
		defer stop()
		if fresh {
			err = c.handshake(wc)
		}
		if err == nil {
			err = c.ping(wc)
		}
	}
	if err != nil {
		c.dropConn()
		c.cfg.Status.SetStatus(StatusClientOffline)
		if !isCancellation(err) {
			slog.Warn("ping failed", "partner", c.cfg.Partner, "err", err)
		}
		return err
	}
	c.cfg.Status.SetStatus(StatusClientOnline)
	return nil
}

// pingTick is the single-shot timer callback; the end func returned by
// beginOp re-arms the timer.
func (c *Client) pingTick() {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return
	}
	_ = c.Ping()
}

// beginOp cancels any operation in flight, waits up to quiesceWait for it to
// unwind, suppresses the ping timer, and installs a fresh token.
func (c *Client) beginOp() (context.Context, func()) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	prev := c.opDone
	if c.pingTimer != nil {
		c.pingTimer.Stop()
	}
	c.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-time.After(quiesceWait):
			slog.Warn("previous transfer did not unwind in time")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.opDone = done
	c.mu.Unlock()

	end := func() {
		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		if c.opDone == done {
			c.opDone = nil
		}
		if c.started && c.pingTimer != nil {
			c.pingTimer.Reset(c.cfg.PingPeriod)
		}
		c.mu.Unlock()
		close(done)
	}
	return ctx, end
}

// finishOp folds an operation result into connection state and the
// collaborators: failures close the socket and reach the error dialog,
// cancellation stays quiet.
func (c *Client) finishOp(err error) error {
	if err == nil {
		c.cfg.Status.SetStatus(StatusClientOnline)
		return nil
	}
	c.dropConn()
	c.cfg.Status.SetStatus(StatusClientOffline)
	if !isCancellation(err) {
		c.cfg.Errors.ShowError(err)
	}
	return err
}

func (c *Client) dropConn() {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

// connect returns the current connection if it is still usable, otherwise
// dials a fresh one. fresh reports whether a handshake is still owed.
func (c *Client) connect(ctx context.Context) (*wire.Conn, bool, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		if alive(conn.Underlying()) {
			return conn, false, nil
		}
		c.dropConn()
	}

	host, port, err := c.resolve(ctx)
	if err != nil {
		return nil, false, err
	}

	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	raw, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, false, fmt.Errorf("connect %s:%d: %w", host, port, err)
	}
	if tc, ok := raw.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	wc := wire.New(raw)
	c.mu.Lock()
	c.conn = wc
	c.mu.Unlock()
	slog.Debug("connected", "partner", raw.RemoteAddr())
	return wc, true, nil
}

// resolve maps the configured partner to a dialable host and port. A
// discovery id must not carry an explicit port; the port comes from the
// discovery answer.
func (c *Client) resolve(ctx context.Context) (string, int, error) {
	partner := c.cfg.Partner
	if id, ok := strings.CutPrefix(partner, DiscoveryPrefix); ok {
		if strings.Contains(id, ":") {
			return "", 0, fmt.Errorf("%w: discovery id %q must not carry a port", ErrInvalidConfiguration, partner)
		}
		if c.cfg.Discovery == nil {
			return "", 0, fmt.Errorf("%w: partner %q needs address discovery", ErrInvalidConfiguration, partner)
		}
		return c.cfg.Discovery.Discover(ctx, id)
	}

	host, portStr, err := net.SplitHostPort(partner)
	if err != nil {
		return "", 0, fmt.Errorf("%w: partner %q: %v", ErrInvalidConfiguration, partner, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: partner port %q", ErrInvalidConfiguration, portStr)
	}
	return host, port, nil
}

// alive reports whether the idle connection is still good for a write. The
// protocol is strict request/response, so between operations no data may be
// pending: a timed-out zero read means the peer is still there, anything
// else means the socket is stale.
func alive(conn net.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	var b [1]byte
	n, err := conn.Read(b[:])
	_ = conn.SetReadDeadline(time.Time{})
	if n > 0 {
		return false
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// handshake sends the protocol version and requires acknowledgment.
func (c *Client) handshake(wc *wire.Conn) error {
	if err := wc.WriteTag(wire.Version); err != nil {
		return err
	}
	tag, err := wc.ReadTag()
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if tag != wire.SuccessVersion {
		_ = wc.WriteTag(wire.Error)
		return fmt.Errorf("%w: peer answered %v", ErrUnsupportedVersion, tag)
	}
	return nil
}

func (c *Client) ping(wc *wire.Conn) error {
	if err := wc.WriteInt64(0); err != nil {
		return err
	}
	tag, err := wc.ReadTag()
	if err != nil {
		return err
	}
	if tag != wire.SuccessSize {
		return fmt.Errorf("%w: ping answered %v", ErrUnsupportedSize, tag)
	}
	return nil
}

// expect reads one tag and maps anything but want onto kind.
func expect(wc *wire.Conn, want wire.Tag, kind error) error {
	tag, err := wc.ReadTag()
	if err != nil {
		return err
	}
	if tag != want {
		return fmt.Errorf("%w: peer answered %v, want %v", kind, tag, want)
	}
	return nil
}

func (c *Client) sendData(ctx context.Context, data *clipdata.Data) error {
	for _, it := range data.Items {
		if it.Format == "" {
			return fmt.Errorf("%w: empty format name", ErrUnsupportedFormat)
		}
	}
	total := data.Total()
	if total == 0 {
		// A zero-length announcement is the ping frame; an all-empty payload
		// has nothing to say anyway.
		return nil
	}

	wc, fresh, err := c.connect(ctx)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = wc.Close() })
	defer stop()
	if fresh {
		if err := c.handshake(wc); err != nil {
			return err
		}
	}

	h := c.cfg.Progress.Begin(ProgressSend)
	defer h.Close()
	h.SetMax(total)

	if err := wc.WriteInt64(total); err != nil {
		return err
	}
	if err := expect(wc, wire.SuccessSize, ErrUnsupportedSize); err != nil {
		return err
	}

	for i, it := range data.Items {
		if err := wc.WriteString(it.Format); err != nil {
			return err
		}
		if err := expect(wc, wire.SuccessFormat, ErrUnsupportedFormat); err != nil {
			return fmt.Errorf("format %q: %w", it.Format, err)
		}

		if err := wc.WriteInt64(int64(len(it.Data))); err != nil {
			return err
		}
		if err := expect(wc, wire.SuccessSize, ErrUnsupportedSize); err != nil {
			return fmt.Errorf("format %q: %w", it.Format, err)
		}

		// A fresh reader per item: the payload is read from offset zero no
		// matter what consumed it before.
		if err := wc.CopyFrom(bytes.NewReader(it.Data), int64(len(it.Data)), h.Tick); err != nil {
			return err
		}
		if err := expect(wc, wire.SuccessData, ErrTransferFailed); err != nil {
			return fmt.Errorf("format %q: %w", it.Format, err)
		}

		tag := wire.MoreData
		if i == len(data.Items)-1 {
			tag = wire.Finish
		}
		if err := wc.WriteTag(tag); err != nil {
			return err
		}
	}

	slog.Debug("clipboard sent", "formats", data.Formats(), "bytes", total)
	return nil
}

func (c *Client) sendFileDrop(ctx context.Context, paths []string) error {
	entries, total, err := filedrop.Plan(paths)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	wc, fresh, err := c.connect(ctx)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = wc.Close() })
	defer stop()
	if fresh {
		if err := c.handshake(wc); err != nil {
			return err
		}
	}

	h := c.cfg.Progress.Begin(ProgressSend)
	defer h.Close()
	h.SetMax(total)

	// A drop of only empty files or bare directories must still be
	// distinguishable from the zero-length ping frame.
	announced := total
	if announced == 0 {
		announced = 1
	}
	if err := wc.WriteInt64(announced); err != nil {
		return err
	}
	if err := expect(wc, wire.SuccessSize, ErrUnsupportedSize); err != nil {
		return err
	}
	if err := wc.WriteString(clipdata.FormatFileDrop); err != nil {
		return err
	}
	if err := expect(wc, wire.SuccessFormat, ErrUnsupportedFormat); err != nil {
		return err
	}

	tx := filedrop.NewTransmitter(wc, h.Tick)
	if err := tx.Send(ctx, entries); err != nil {
		return err
	}

	slog.Debug("file drop sent", "entries", len(entries), "bytes", total)
	return nil
}
