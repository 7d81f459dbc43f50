// internal/logfile/file.go
package logfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/signalnine/fritzlog/internal/model"
)

// tailBytes bounds the state-recovery read. At well under 500 bytes per
// line this covers far more than the dedup window needs.
const tailBytes = 64 * 1024

// File is the JSONL output file. One JSON object per line, append-only;
// existing content is never rewritten or reordered.
type File struct {
	path string
}

// NewFile returns a store backed by the file at path. The file is
// created lazily on first append.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file's path.
func (f *File) Path() string { return f.path }

// RecentIdentities scans the tail of the file and returns the
// identities of up to n trailing records, oldest first. A missing file
// means a fresh start. Unparsable lines in the tail are skipped rather
// than fatal; a torn final line after a crash must not wedge every
// later run.
func (f *File) RecentIdentities(n int) ([]model.Identity, error) {
	fh, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	tail, partial, err := readTail(fh)
	if err != nil {
		return nil, fmt.Errorf("read tail of %s: %w", f.path, err)
	}

	lines := bytes.Split(tail, []byte{'\n'})
	if partial && len(lines) > 0 {
		// First line is the cut-off remainder of a longer one.
		lines = lines[1:]
	}

	var ids []model.Identity
	for _, raw := range lines {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		var line model.Line
		if err := json.Unmarshal(raw, &line); err != nil {
			continue
		}
		ids = append(ids, line.Identity())
	}

	if len(ids) > n {
		ids = ids[len(ids)-n:]
	}
	return ids, nil
}

// readTail returns the last tailBytes of the file and whether the read
// started mid-file (so the first line fragment must be discarded).
func readTail(fh *os.File) ([]byte, bool, error) {
	info, err := fh.Stat()
	if err != nil {
		return nil, false, err
	}

	offset := info.Size() - tailBytes
	if offset <= 0 {
		data, err := io.ReadAll(fh)
		return data, false, err
	}

	if _, err := fh.Seek(offset, io.SeekStart); err != nil {
		return nil, false, err
	}
	data, err := io.ReadAll(fh)
	return data, true, err
}

// Append serializes each record as one line and appends them in order.
// The file is opened in append mode and synced before return; one write
// call per line keeps a failed run from corrupting earlier lines.
func (f *File) Append(records []model.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fh.Close()

	for i, rec := range records {
		line, err := json.Marshal(rec.Line())
		if err != nil {
			return i, fmt.Errorf("encode record: %w", err)
		}
		if _, err := fh.Write(append(line, '\n')); err != nil {
			return i, fmt.Errorf("append to %s: %w", f.path, err)
		}
	}

	if err := fh.Sync(); err != nil {
		return len(records), fmt.Errorf("sync %s: %w", f.path, err)
	}
	return len(records), nil
}
