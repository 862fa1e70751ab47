package filedrop

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.shareclip.dev/shareclip/internal/wire"
)

// Record kind words, framed on the wire where a clipboard format name would
// otherwise go.
const (
	KindDirectory = "Directory"
	KindFile      = "File"
)

// Entry is one planned record of a drop session.
type Entry struct {
	Kind string
	Rel  string // forward-slash relative path
	Abs  string
	Size int64
}

// Transmitter walks an ordered list of dropped filesystem paths and emits
// the framed file-drop stream.
type Transmitter struct {
	wc   *wire.Conn
	tick func(int64)
}

// NewTransmitter returns a Transmitter writing to wc. tick, if non-nil,
// receives per-chunk progress for file content bytes.
func NewTransmitter(wc *wire.Conn, tick func(int64)) *Transmitter {
	return &Transmitter{wc: wc, tick: tick}
}

// Plan walks the drop list and returns the records in transmission order
// plus the total content size. Directories precede their contents; paths are
// relative to each drop root's parent so the receiver recreates the dropped
// tree, not the sender's absolute layout.
func Plan(paths []string) ([]Entry, int64, error) {
	var entries []Entry
	var total int64

	for _, root := range paths {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil {
			return nil, 0, fmt.Errorf("stat %s: %w", root, err)
		}

		base := filepath.Dir(root)
		if !info.IsDir() {
			entries = append(entries, Entry{
				Kind: KindFile,
				Rel:  filepath.Base(root),
				Abs:  root,
				Size: info.Size(),
			})
			total += info.Size()
			continue
		}

		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(base, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				entries = append(entries, Entry{Kind: KindDirectory, Rel: rel, Abs: p})
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			entries = append(entries, Entry{Kind: KindFile, Rel: rel, Abs: p, Size: fi.Size()})
			total += fi.Size()
			return nil
		})
		if err != nil {
			return nil, 0, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return entries, total, nil
}

// Send emits every planned record onto the wire and waits for the peer's
// acknowledgment after each frame. The caller has already announced the drop
// with the FileDrop sentinel and received SuccessFormat for it.
func (t *Transmitter) Send(ctx context.Context, entries []Entry) error {
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.sendRecord(e); err != nil {
			return fmt.Errorf("send %s: %w", e.Rel, err)
		}
		tag := wire.MoreData
		if i == len(entries)-1 {
			tag = wire.Finish
		}
		if err := t.wc.WriteTag(tag); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transmitter) sendRecord(e Entry) error {
	if err := t.wc.WriteString(e.Kind); err != nil {
		return err
	}
	if tag, err := t.wc.ReadTag(); err != nil {
		return err
	} else if tag != wire.SuccessFormat {
		return fmt.Errorf("record kind rejected with %v", tag)
	}

	if err := t.wc.WriteString(e.Rel); err != nil {
		return err
	}
	if err := t.wc.WriteInt64(e.Size); err != nil {
		return err
	}
	if tag, err := t.wc.ReadTag(); err != nil {
		return err
	} else if tag != wire.SuccessSize {
		return fmt.Errorf("record size rejected with %v", tag)
	}

	if e.Kind == KindFile && e.Size > 0 {
		f, err := os.Open(e.Abs)
		if err != nil {
			return err
		}
		err = t.wc.CopyFrom(f, e.Size, t.tick)
		f.Close()
		if err != nil {
			return err
		}
	}

	if tag, err := t.wc.ReadTag(); err != nil {
		return err
	} else if tag != wire.SuccessData {
		return fmt.Errorf("record payload rejected with %v", tag)
	}
	return nil
}
