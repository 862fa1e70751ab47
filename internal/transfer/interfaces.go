// Package transfer implements the two connection roles of the shareclip
// protocol: the outbound data client and the inbound data server.
//
// The desktop surfaces the core needs (host clipboard publication, progress
// indication, status lights, the error dialog, and partner discovery) are
// collaborators behind the interfaces below; the package never touches the
// OS clipboard or UI directly.
package transfer

import (
	"context"

	"go.shareclip.dev/shareclip/internal/clipdata"
)

// Dispatch receives assembled payloads on the server side and forwards them
// to the host clipboard.
type Dispatch interface {
	// Data delivers a complete multi-format clipboard payload.
	Data(ctx context.Context, data *clipdata.Data) error
	// Files delivers the materialized paths of a finished file drop.
	Files(ctx context.Context, paths []string) error
	// Image delivers a standalone BMP produced from a received Dib item.
	Image(ctx context.Context, bmp []byte) error
}

// ProgressMode distinguishes the two directions a progress indicator can show.
type ProgressMode int

const (
	ProgressSend ProgressMode = iota
	ProgressReceive
)

func (m ProgressMode) String() string {
	if m == ProgressSend {
		return "send"
	}
	return "receive"
}

// Progress is the scoped progress indicator consumed by both roles.
type Progress interface {
	// Begin opens an indicator for one transfer. The returned handle must be
	// closed on every exit path, including error and cancellation.
	Begin(mode ProgressMode) ProgressHandle
}

// ProgressHandle is one transfer's live indicator state.
type ProgressHandle interface {
	SetMax(total int64)
	Tick(delta int64)
	Close()
}

// Status is a connection state reported to the host shell.
type Status int

const (
	StatusOffline Status = iota
	StatusOnline
	StatusClientOffline
	StatusClientOnline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusClientOffline:
		return "client offline"
	case StatusClientOnline:
		return "client online"
	default:
		return "offline"
	}
}

// StatusSink receives connection state transitions.
type StatusSink interface {
	SetStatus(s Status)
}

// ErrorDialog presents session errors to the user. Cancellation is never
// reported through it.
type ErrorDialog interface {
	ShowError(err error)
}

// AddressDiscovery resolves a partner discovery id to a dialable endpoint.
type AddressDiscovery interface {
	Discover(ctx context.Context, id string) (host string, port int, err error)
}

// NopProgress is a Progress that does nothing; the zero collaborator for
// tests and headless runs.
type NopProgress struct{}

func (NopProgress) Begin(ProgressMode) ProgressHandle { return nopHandle{} }

type nopHandle struct{}

func (nopHandle) SetMax(int64) {}
func (nopHandle) Tick(int64)   {}
func (nopHandle) Close()       {}

// NopStatus discards status transitions.
type NopStatus struct{}

func (NopStatus) SetStatus(Status) {}
