package transfer

import (
	"context"
	"errors"
	"log/slog"
)

// Failure kinds surfaced by the client and server roles. Stream-level and
// converter-level kinds live with their packages: wire.ErrEndOfStream,
// bitmap.ErrInvalidDIB, filedrop.ErrUnsafePath.
var (
	// ErrUnsupportedVersion: the peers disagreed on the protocol version
	// during the handshake.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")

	// ErrUnsupportedFormat: the peer rejected an announced format name.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrUnsupportedSize: the peer rejected an announced payload size.
	ErrUnsupportedSize = errors.New("unsupported size")

	// ErrTransferFailed: the peer did not acknowledge a payload it should
	// have received whole.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrInvalidConfiguration: the partner address cannot be used as given,
	// e.g. a discovery id carrying an explicit port.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// isCancellation reports whether err is the local token tripping rather than
// a real failure; cancellations are never shown to the user.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// LogErrorDialog reports errors through slog; the default ErrorDialog for
// headless binaries.
type LogErrorDialog struct{}

func (LogErrorDialog) ShowError(err error) {
	slog.Error("transfer error", "err", err)
}
