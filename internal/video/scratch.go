package video

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Scratch is the transient file area shared by all pipelines. Files are
// prefixed with the request id, so runs never collide.
type Scratch struct {
	dir string
}

func NewScratch(dir string) *Scratch {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Scratch{dir: dir}
}

func (s *Scratch) Dir() string {
	return s.dir
}

func (s *Scratch) EnsureDir() error {
	return os.MkdirAll(s.dir, 0755)
}

func (s *Scratch) Path(requestID, name string) string {
	return filepath.Join(s.dir, requestID+"_"+name)
}

func (s *Scratch) Write(requestID, name string, data []byte) (string, error) {
	path := s.Path(requestID, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// Cleanup removes every transient file of a request and reports how many
// were deleted. Calling it again is a no-op.
func (s *Scratch) Cleanup(requestID string) (int, error) {
	if requestID == "" || strings.ContainsAny(requestID, `*?[\/`) {
		return 0, fmt.Errorf("invalid request id %q", requestID)
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, requestID+"_*"))
	if err != nil {
		return 0, fmt.Errorf("glob transient files: %w", err)
	}

	removed := 0
	var errs []error
	for _, path := range matches {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}
