// Package filedrop streams dropped files and directory trees between peers
// and materializes them on the receiver in a temporary spool directory.
//
// A drop session rides the normal transfer envelope: the sender announces the
// FileDrop sentinel format, then emits one record per directory or file. A
// record is a kind word ("Directory" or "File"), the entry's relative path,
// its size, and, for files, exactly that many content bytes. Directories
// always precede the files they contain.
package filedrop

import (
	"os"
	"path/filepath"
)

// spoolDirName is the fixed name of the receiver spool under the OS temp
// root. It is stable across sessions so stale drops from a previous run are
// reclaimed by the next one.
const spoolDirName = "ShareClipbrd_60D54950"

// SpoolDir returns the spool directory path for this host.
func SpoolDir() string {
	return filepath.Join(os.TempDir(), spoolDirName)
}

// RecreateSpool destructively re-initializes the spool: best-effort recursive
// delete of the previous contents, then a fresh empty directory.
func RecreateSpool(dir string) error {
	_ = os.RemoveAll(dir)
	return os.MkdirAll(dir, 0o700)
}
