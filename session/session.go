// Package session lays out the per-user application data directory.
package session

import (
	"os"
	"path/filepath"
	"time"
)

const appDirName = ".naver-poster"

// Manager owns the ~/.naver-poster data layout: browser session state,
// generated images and the posting history database.
type Manager struct {
	baseDir string
}

func NewManager() (*Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(filepath.Join(home, appDirName))
}

// NewManagerAt roots the layout at an explicit directory.
func NewManagerAt(baseDir string) (*Manager, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "session"), filepath.Join(baseDir, "images")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return &Manager{baseDir: baseDir}, nil
}

// SessionDir holds the browser storage state.
func (m *Manager) SessionDir() string {
	return filepath.Join(m.baseDir, "session")
}

// ImagesDir holds generated images.
func (m *Manager) ImagesDir() string {
	return filepath.Join(m.baseDir, "images")
}

// HistoryPath is the posting history database file.
func (m *Manager) HistoryPath() string {
	return filepath.Join(m.baseDir, "history.db")
}

// CleanOldSessions removes session files untouched for the given duration,
// forcing a fresh login on the next run.
func (m *Manager) CleanOldSessions(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	entries, err := os.ReadDir(m.SessionDir())
	if err != nil {
		return err
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.SessionDir(), entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
