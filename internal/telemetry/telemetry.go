// Package telemetry keeps an append-only JSONL audit trail of corpus
// mutations. Every scaffolded file, level change, verification stamp,
// ledger append and archive move is recorded as one JSON event, so the
// history of a corpus can be reconstructed independently of git.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds identify the mutation recorded.
const (
	KindScaffold    = "scaffold"
	KindAdopt       = "adopt"
	KindPromote     = "promote"
	KindVerify      = "verify"
	KindLedgerWrite = "ledger_write"
	KindArchive     = "archive"
)

// Event is one audit record. Doc and Path identify the document touched;
// Data carries kind-specific detail such as the level transition.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	Doc       string    `json:"doc,omitempty"`
	Path      string    `json:"path,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter appends events to a JSONL file. It is safe for concurrent use.
// A nil *Emitter is a valid no-op emitter, which is what callers hold when
// no audit log is configured.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
	now  func() time.Time
}

// NewEmitter opens the audit log at path, creating it and its directory if
// needed and appending otherwise.
func NewEmitter(path string) (*Emitter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: create dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{file: f, enc: json.NewEncoder(f), now: time.Now}, nil
}

// Emit writes one event. A zero Timestamp is filled with the current time.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record is Emit for the common case.
func (e *Emitter) Record(kind, doc, path string, data any) error {
	return e.Emit(Event{Kind: kind, Doc: doc, Path: path, Data: data})
}

// Close closes the underlying file.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
