package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteMode says what Generate does with an existing file.
type WriteMode int

const (
	WriteNew WriteMode = iota
	WriteOverwrite
	WriteUpdate
)

// ErrConfigExists is returned by Generate in WriteNew mode when path exists.
var ErrConfigExists = errors.New("config already exists")

// Generated reports what Generate did. Backup is empty when nothing was saved.
type Generated struct {
	Path    string
	Backup  string
	Changed bool
}

// Generate writes the default TOML to path. WriteUpdate merges missing keys
// into an existing file. A replaced file is first copied to a backup.
func Generate(path string, mode WriteMode) (Generated, error) {
	res := Generated{Path: path}
	old, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return res, err
	}

	body := RenderDefaultTOML()
	switch {
	case exists && mode == WriteNew:
		return res, fmt.Errorf("%w at %s; use --overwrite to replace it or --update to add new options", ErrConfigExists, path)
	case exists && mode == WriteUpdate:
		merged, changed := UpdateTOML(string(old))
		if !changed {
			return res, nil
		}
		body = merged
	}

	if exists {
		if res.Backup, err = backup(path, old, time.Now()); err != nil {
			return res, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return res, err
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return res, err
	}
	res.Changed = true
	return res, nil
}

// backup copies data next to path as path.bak, or a timestamped name when
// that is taken.
func backup(path string, data []byte, now time.Time) (string, error) {
	name := path + ".bak"
	if fileExists(name) {
		name = path + ".bak-" + now.Format("20060102-150405")
	}
	if err := os.WriteFile(name, data, 0o600); err != nil {
		return "", fmt.Errorf("backup config: %w", err)
	}
	return name, nil
}
