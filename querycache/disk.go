package querycache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/table"
)

// entryExt is the filename extension for disk-tier entries. Each entry is
// one file named <key><entryExt> whose modification time is the
// authoritative expiration reference for that entry.
const entryExt = ".json.gz"

// diskTier is the persistent cache layer. It survives process restarts;
// after a restart the memory tier is empty and lookups fall through here.
// All methods are safe for concurrent use because every entry is written
// with a temp-file-and-rename swap, never mutated in place.
type diskTier struct {
	dir string
}

func newDiskTier(dir string) (*diskTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("querycache: create storage directory: %w", err)
	}
	return &diskTier{dir: dir}, nil
}

func (d *diskTier) path(key string) string {
	return filepath.Join(d.dir, key+entryExt)
}

// write persists serialized bytes under the key. The payload is written
// to a temp file and renamed into place so concurrent readers never see a
// partially-written entry.
func (d *diskTier) write(key string, data []byte) error {
	tmp, err := os.CreateTemp(d.dir, key+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, d.path(key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// read returns the serialized bytes, their size, and the file's
// modification time. A missing or unreadable entry is reported as an
// error; callers treat it as a miss.
func (d *diskTier) read(key string) (data []byte, storedAt time.Time, err error) {
	path := d.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, info.ModTime(), nil
}

// storedAt returns the entry's modification time without reading it.
func (d *diskTier) storedAt(key string) (time.Time, error) {
	info, err := os.Stat(d.path(key))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (d *diskTier) remove(key string) {
	os.Remove(d.path(key))
}

// removeAll deletes every entry file. Foreign files in the directory are
// left alone.
func (d *diskTier) removeAll() int {
	removed := 0
	for _, name := range d.entries() {
		if os.Remove(filepath.Join(d.dir, name)) == nil {
			removed++
		}
	}
	return removed
}

// sweep deletes entry files whose age, measured by modification time,
// exceeds ttl. Returns the number of files removed.
func (d *diskTier) sweep(now time.Time, ttl time.Duration) int {
	removed := 0
	for _, name := range d.entries() {
		path := filepath.Join(d.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > ttl {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed
}

func (d *diskTier) count() int {
	return len(d.entries())
}

// entries lists the base names of all entry files in the directory.
func (d *diskTier) entries() []string {
	dirents, err := os.ReadDir(d.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, ent := range dirents {
		if !ent.IsDir() && strings.HasSuffix(ent.Name(), entryExt) {
			names = append(names, ent.Name())
		}
	}
	return names
}

// encodeResult serializes a result as gzip-compressed JSON.
func encodeResult(res *table.Result) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(res); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeResult reverses encodeResult.
func decodeResult(data []byte) (*table.Result, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var res table.Result
	if err := json.NewDecoder(zr).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}
