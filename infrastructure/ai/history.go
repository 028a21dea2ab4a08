package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Record is one answered question
type Record struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// History appends answered questions to a JSON array file
type History struct {
	fs   afero.Fs
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewHistory creates the history file when it does not exist yet
func NewHistory(fs afero.Fs, path string) (*History, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	if _, err := fs.Stat(path); os.IsNotExist(err) {
		if err := afero.WriteFile(fs, path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("create history file: %w", err)
		}
	}
	return &History{fs: fs, path: path, now: time.Now}, nil
}

// Append adds one record. An unreadable file is started over.
func (h *History) Append(question, answer string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, _ := h.read()
	records = append(records, Record{Question: question, Answer: answer, Timestamp: h.now().UTC()})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := afero.WriteFile(h.fs, h.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Records returns every stored record, oldest first
func (h *History) Records() ([]Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.read()
}

func (h *History) read() ([]Record, error) {
	data, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return records, nil
}
