package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"motoriz/internal/core"
	"motoriz/pkg/domain"
)

// SessionState is what the console keeps between runs: the login token and
// the dashboard counters from the last command.
type SessionState struct {
	Server    string               `json:"server,omitempty"`
	Token     string               `json:"token,omitempty"`
	User      *domain.Profile      `json:"user,omitempty"`
	Dashboard *core.DashboardStats `json:"dashboard,omitempty"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// SessionFile persists SessionState as JSON. Writes replace the file
// atomically.
type SessionFile struct {
	Path string
}

// DefaultSessionPath returns ~/.motoriz/session.json.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".motoriz-session.json"
	}
	return filepath.Join(home, ".motoriz", "session.json")
}

// Load reads the file. A missing file yields an empty state.
func (f SessionFile) Load() (SessionState, error) {
	var st SessionState
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return st, fmt.Errorf("parse session %s: %w", f.Path, err)
	}
	return st, nil
}

// Save writes st.
func (f SessionFile) Save(st SessionState) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := atomic.WriteFile(f.Path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Chmod(f.Path, 0o600)
}

// Clear removes the file.
func (f SessionFile) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
