package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"notifyhub/internal/hub"
)

// File appends one JSON line per notification to a log file.
type File struct {
	id string

	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

type fileRecord struct {
	Seq   uint64      `json:"seq"`
	At    time.Time   `json:"at"`
	State interface{} `json:"state"`
}

func NewFile(id, path string) (*File, error) {
	if id == "" {
		id = "file"
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open sink file %s: %w", path, err)
	}
	return &File{id: id, f: f, enc: json.NewEncoder(f)}, nil
}

func (s *File) ID() string { return s.id }

func (s *File) Notify(n hub.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return fmt.Errorf("file sink %s is closed", s.id)
	}
	return s.enc.Encode(fileRecord{Seq: n.Seq, At: n.At, State: n.State})
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.enc = nil
	return err
}
