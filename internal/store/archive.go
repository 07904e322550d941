package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Archiver receives events removed by retention, each already JSON encoded.
type Archiver interface {
	Archive(name string, records [][]byte) error
}

// ZstdArchiver appends pruned events as JSON lines to a zstd-compressed file
// per store and day: <dir>/<name>-archive-<unix>.jsonl.zst, where <unix> is
// the start of the current UTC day. Each Archive call writes one zstd frame;
// concatenated frames decode as a single stream.
type ZstdArchiver struct {
	Dir string
	Now func() time.Time

	mu      sync.Mutex
	encoder *zstd.Encoder
}

// NewZstdArchiver returns an archiver writing into dir.
func NewZstdArchiver(dir string) (*ZstdArchiver, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("archive: zstd encoder: %w", err)
	}
	return &ZstdArchiver{Dir: dir, Now: time.Now, encoder: enc}, nil
}

// Path returns the archive file name used for name at the current time.
func (a *ZstdArchiver) Path(name string) string {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	day := now().UTC().Truncate(24 * time.Hour)
	return filepath.Join(a.Dir, name+"-archive-"+strconv.FormatInt(day.Unix(), 10)+".jsonl.zst")
}

func (a *ZstdArchiver) Archive(name string, records [][]byte) error {
	if len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r)
		buf.WriteByte('\n')
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	f, err := os.OpenFile(a.Path(name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(a.encoder.EncodeAll(buf.Bytes(), nil)); err != nil {
		return fmt.Errorf("archive: write %s: %w", f.Name(), err)
	}
	return nil
}

// ReadArchive decodes every JSON line stored in an archive file.
func ReadArchive(path string) ([][]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", path, err)
	}
	var out [][]byte
	for _, line := range bytes.Split(plain, []byte{'\n'}) {
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out, nil
}
