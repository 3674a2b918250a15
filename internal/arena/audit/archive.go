package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"codeclash/internal/arena/model"
	appErr "codeclash/pkg/errors"
)

// Archiver writes a room's full violation log to a zstd-compressed JSONL
// file on teardown, for long-term retention after the live log expires.
type Archiver struct {
	dir string
	now func() time.Time
}

// NewArchiver creates an archiver writing under dir.
func NewArchiver(dir string) *Archiver {
	return &Archiver{dir: dir, now: time.Now}
}

// ArchiveRoom flushes the room's violation events and returns the archive
// path. Rooms without events produce no file.
func (a *Archiver) ArchiveRoom(room *model.Room) (string, error) {
	if room == nil || len(room.ViolationEvents) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "create archive dir failed")
	}

	path := filepath.Join(a.dir, fmt.Sprintf("%s-%d.jsonl.zst", room.ID, a.now().Unix()))
	file, err := os.Create(path)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "create archive file failed")
	}
	defer file.Close()

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "create zstd writer failed")
	}
	enc := json.NewEncoder(zw)
	for _, ev := range room.ViolationEvents {
		if err := enc.Encode(ev); err != nil {
			_ = zw.Close()
			return "", appErr.Wrapf(err, appErr.InternalServerError, "encode violation event failed")
		}
	}
	if err := zw.Close(); err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "flush archive failed")
	}
	return path, nil
}

// ReadArchive decodes an archive file back into events.
func ReadArchive(path string) ([]model.ViolationEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.NotFound, "open archive failed")
	}
	defer file.Close()

	zr, err := zstd.NewReader(file)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "create zstd reader failed")
	}
	defer zr.Close()

	var events []model.ViolationEvent
	dec := json.NewDecoder(zr)
	for dec.More() {
		var ev model.ViolationEvent
		if err := dec.Decode(&ev); err != nil {
			return nil, appErr.Wrapf(err, appErr.InternalServerError, "decode archived event failed")
		}
		events = append(events, ev)
	}
	return events, nil
}
