package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wappi2mqtt/logger"
	"wappi2mqtt/utils"
)

const (
	TOKEN_SLOT = "auth_token"

	DIR_MODE  = 0700
	FILE_MODE = 0600
)

// Store holds the one credential the notification connection is opened with.
type Store interface {
	Get() (string, bool)
	Set(token string) error
	Clear() error
}

type Memory struct {
	mu    sync.RWMutex
	token string
}

func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

func (m *Memory) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *Memory) Clear() error {
	return m.Set("")
}

// File keeps the token in a single slot file so it survives restarts.
type File struct {
	path   string
	mu     sync.Mutex
	logger logger.Logger
}

// NewFile stores the token under dir, created on first Set. A relative dir
// resolves against the project root.
func NewFile(dir string, logger logger.Logger) *File {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(utils.GetRootPath(), dir)
	}
	return &File{
		path:   filepath.Join(dir, TOKEN_SLOT),
		logger: logger,
	}
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Get() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("Failed to read stored credential %s: %v", f.path, err)
		}
		return "", false
	}

	token := strings.TrimSpace(string(data))
	return token, token != ""
}

// Set replaces the stored token through a temporary file and rename.
func (f *File) Set(token string) error {
	if token == "" {
		return f.Clear()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), DIR_MODE); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), TOKEN_SLOT+".*")
	if err != nil {
		return fmt.Errorf("failed to create credential file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(FILE_MODE); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credential file mode: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	f.logger.Debug("Stored credential in %s", f.path)
	return nil
}

func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	return nil
}
