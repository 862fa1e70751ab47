package filedrop

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.shareclip.dev/shareclip/internal/wire"
)

// ErrUnsafePath is reported when a drop record's relative path would escape
// the spool directory.
var ErrUnsafePath = errors.New("unsafe path in file drop")

// Receiver consumes a framed file-drop stream into the spool directory.
type Receiver struct {
	dir  string
	tick func(int64)
}

// NewReceiver returns a Receiver materializing into dir (SpoolDir() in
// production; tests point it elsewhere). tick, if non-nil, receives
// per-chunk progress for file content bytes.
func NewReceiver(dir string, tick func(int64)) *Receiver {
	return &Receiver{dir: dir, tick: tick}
}

// Receive re-initializes the spool, consumes records from wc until the
// sender signals Finish, and returns the materialized paths (directories
// first within each tree, lexical order). The FileDrop announcement has
// already been consumed and acknowledged by the caller.
func (r *Receiver) Receive(ctx context.Context, wc *wire.Conn) ([]string, error) {
	if err := RecreateSpool(r.dir); err != nil {
		return nil, fmt.Errorf("recreate spool: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.receiveRecord(wc); err != nil {
			return nil, err
		}
		tag, err := wc.ReadTag()
		if err != nil {
			return nil, err
		}
		switch tag {
		case wire.MoreData:
		case wire.Finish:
			return r.enumerate()
		default:
			return nil, fmt.Errorf("unexpected tag %v after drop record", tag)
		}
	}
}

func (r *Receiver) receiveRecord(wc *wire.Conn) error {
	kind, err := wc.ReadString()
	if err != nil {
		return err
	}
	if kind != KindDirectory && kind != KindFile {
		_ = wc.WriteTag(wire.Error)
		return fmt.Errorf("unknown drop record kind %q", kind)
	}
	if err := wc.WriteTag(wire.SuccessFormat); err != nil {
		return err
	}

	rel, err := wc.ReadString()
	if err != nil {
		return err
	}
	size, err := wc.ReadInt64()
	if err != nil {
		return err
	}
	if size < 0 {
		_ = wc.WriteTag(wire.Error)
		return fmt.Errorf("negative drop record size %d", size)
	}

	target, err := r.resolve(rel)
	if err != nil {
		_ = wc.WriteTag(wire.Error)
		return err
	}
	if err := wc.WriteTag(wire.SuccessSize); err != nil {
		return err
	}

	switch kind {
	case KindDirectory:
		if err := os.MkdirAll(target, 0o700); err != nil {
			return err
		}
	case KindFile:
		if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			return err
		}
		f, err := os.Create(target)
		if err != nil {
			return err
		}
		err = wc.CopyTo(f, size, r.tick)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		slog.Debug("drop file received", "path", rel, "size", size)
	}

	return wc.WriteTag(wire.SuccessData)
}

// resolve validates rel and maps it under the spool. Absolute paths and any
// ".." segment are rejected before anything touches the filesystem.
func (r *Receiver) resolve(rel string) (string, error) {
	if rel == "" || strings.HasPrefix(rel, "/") || strings.Contains(rel, `\`) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
		}
	}
	return filepath.Join(r.dir, filepath.FromSlash(rel)), nil
}

// enumerate walks the spool and returns every materialized path.
func (r *Receiver) enumerate() ([]string, error) {
	var out []string
	err := filepath.WalkDir(r.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == r.dir {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
