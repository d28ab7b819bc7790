// Package syncq is the CLI's offline write queue. Writes that fail because
// the API is unreachable are parked here and replayed with `ctc sync`.
package syncq

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Command is one parked write: enough of the original request to replay it
// verbatim, plus when it was parked so stale entries are visible.
type Command struct {
	Method   string         `json:"method"`
	Path     string         `json:"path"`
	Body     map[string]any `json:"body,omitempty"`
	QueuedAt time.Time      `json:"queued_at"`
}

// Age is how long the command has been waiting for a replay.
func (c Command) Age(now time.Time) time.Duration {
	if c.QueuedAt.IsZero() {
		return 0
	}
	return now.Sub(c.QueuedAt)
}

func queuePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".citycoin")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Command, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(raw) == 0) {
		return []Command{}, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Save rewrites the whole queue through a rename so a crash mid-write
// cannot leave a truncated file holding someone's money operations.
func Save(commands []Command) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Push appends one command, stamping it with the current time.
func Push(cmd Command) error {
	commands, err := Load()
	if err != nil {
		return err
	}
	if cmd.QueuedAt.IsZero() {
		cmd.QueuedAt = time.Now().UTC()
	}
	commands = append(commands, cmd)
	return Save(commands)
}
