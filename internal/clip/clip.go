// Package clip binds shareclip to the host system clipboard through
// golang.design/x/clipboard, with a headless fallback when no display
// environment is available (containers, SSH sessions, CI).
package clip

import (
	"errors"
	"log/slog"

	"golang.design/x/clipboard"
)

// Backend is the host clipboard surface the core reads from and publishes to.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the current clipboard text, or nil when empty.
	ReadText() []byte

	// WriteText replaces the clipboard text.
	WriteText(b []byte) error
}

// New returns the system clipboard backend, or a headless no-op backend if
// the display environment is unavailable. clipboard.Init is called here
// rather than in init() so sub-commands that never touch the clipboard do
// not trigger the probe.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return headlessBackend{}
	}
	return systemBackend{}
}

type systemBackend struct{}

func (systemBackend) Name() string { return "system clipboard" }

func (systemBackend) ReadText() []byte {
	return clipboard.Read(clipboard.FmtText)
}

func (systemBackend) WriteText(b []byte) error {
	clipboard.Write(clipboard.FmtText, b)
	return nil
}

type headlessBackend struct{}

func (headlessBackend) Name() string     { return "headless (no clipboard)" }
func (headlessBackend) ReadText() []byte { return nil }

func (headlessBackend) WriteText([]byte) error {
	return errors.New("no clipboard available")
}
