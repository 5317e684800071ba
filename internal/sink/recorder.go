package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rangebot-go/internal/signal"
)

// ErrRecorderClosed is returned by Emit after Close.
var ErrRecorderClosed = errors.New("signal recorder closed")

// JSONLRecorder appends one JSON object per signal to a file. Each Emit is flushed before
// it returns, so a crash loses at most the signal being written.
type JSONLRecorder struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	buf     *bufio.Writer
	written int
}

// NewJSONLRecorder opens path for appending, creating parent directories as needed.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open signal log %s: %w", path, err)
	}
	return &JSONLRecorder{path: path, file: file, buf: bufio.NewWriter(file)}, nil
}

func (r *JSONLRecorder) Emit(_ context.Context, sig signal.Signal) error {
	line, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return ErrRecorderClosed
	}
	r.buf.Write(line)
	r.buf.WriteByte('\n')
	if err := r.buf.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	r.written++
	return nil
}

// Written is the number of signals persisted by this recorder.
func (r *JSONLRecorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := errors.Join(r.buf.Flush(), r.file.Close())
	r.file = nil
	return err
}
