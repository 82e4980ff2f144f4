package photostore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store keeps member reference photos as individual files in one directory,
// named <id>_<sanitized name>.jpg. A photo is written once at registration
// and only ever removed by a bulk reset.
type Store struct {
	dir string
}

// New creates the image directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes a reference photo for the given member and returns its path.
func (s *Store) Save(id int, name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%d_%s.jpg", id, sanitize(name)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	return path, nil
}

// RemoveAll deletes every stored photo. Used only by the bulk reset.
func (s *Store) RemoveAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list photos: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("remove photo %s: %w", e.Name(), err)
		}
	}
	return nil
}

// sanitize maps a member name to a filename-safe token. Spaces become
// underscores; anything outside [A-Za-z0-9_-] is dropped to an underscore
// so a name can never escape the image directory.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
