package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// persistedHistory is the JSON-serializable form of a Buffer.
type persistedHistory struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Entries []string  `json:"entries"`
}

const persistVersion = 1

// Save writes the buffer's entries to path. The file is written atomically
// using a temporary file and rename. Parent directories are created as
// needed.
func Save(b *Buffer, path string) error {
	data := persistedHistory{
		Version: persistVersion,
		SavedAt: time.Now(),
		Entries: b.Entries(),
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing history file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}

// Load reads entries from path into the buffer, replacing its contents.
// A missing file is not an error: the buffer is left empty.
func Load(b *Buffer, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading history file: %w", err)
	}

	var data persistedHistory
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decoding history file %s: %w", path, err)
	}
	if data.Version != persistVersion {
		return fmt.Errorf("history file %s: unsupported version %d", path, data.Version)
	}

	b.SetEntries(data.Entries)
	return nil
}
