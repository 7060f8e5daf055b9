package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type sessionFile struct {
	Session struct {
		Token   string `json:"token"`
		SavedAt int64  `json:"saved_at,omitempty"`
	} `json:"session"`
}

// FileSource reads and writes the session token in a JSON file, typically
// $XDG_CONFIG_HOME/fintrack/session.json written by the login command.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Token() (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	var sf sessionFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return "", fmt.Errorf("failed to parse session file: %w", err)
	}
	if sf.Session.Token == "" {
		return "", fmt.Errorf("session file %s holds no token", f.Path)
	}
	return sf.Session.Token, nil
}

// Save writes a renewed token back to the session file, preserving nothing
// else — the file is owned by this client.
func (f *FileSource) Save(token string) error {
	var sf sessionFile
	sf.Session.Token = token
	sf.Session.SavedAt = time.Now().Unix()

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}
	if err := EnsureParentDir(f.Path); err != nil {
		return err
	}
	if err := os.WriteFile(f.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
