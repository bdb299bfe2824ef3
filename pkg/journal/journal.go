package journal

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
)

// Journal is an append-only JSON-lines log. Every record is fsynced before
// the write returns, so replaying the file after a crash restores exactly
// the acknowledged state.
type Journal struct {
	file *os.File
	mu   sync.Mutex
}

func Open(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{file: file}, nil
}

// Append encodes v as one JSON line and flushes it to disk.
func (j *Journal) Append(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := json.NewEncoder(j.file).Encode(v); err != nil {
		return err
	}
	return j.file.Sync()
}

// Replay reads every record from the start of the file and hands the raw
// JSON to the callback, avoiding loading the whole log into memory.
func (j *Journal) Replay(callback func(raw []byte) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(j.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Close() error {
	return j.file.Close()
}
