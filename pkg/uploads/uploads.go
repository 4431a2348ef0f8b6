package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	DocumentsDir = "documents"
	ImagesDir    = "images"

	timestampLayout = "20060102_150405"
)

var (
	ErrNoFile          = errors.New("No file selected")
	ErrInvalidFileType = errors.New("Invalid file type")
	ErrTooLarge        = errors.New("File too large")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// SanitizeFilename reduces a client supplied name to a safe basename made of
// ASCII letters, digits, underscores, dots and dashes.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = strings.Join(strings.Fields(p), "_")
	}
	name = strings.Join(parts, "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Extension returns the lowercased extension without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

type Store struct {
	root    string
	allowed map[string]struct{}
	maxSize int64
	now     func() time.Time
}

func NewStore(root string, allowed []string, maxSize int64) *Store {
	set := make(map[string]struct{}, len(allowed))
	for _, ext := range allowed {
		set[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))] = struct{}{}
	}
	return &Store{root: root, allowed: set, maxSize: maxSize, now: time.Now}
}

// Init creates the upload root and its subdirectories.
func (s *Store) Init() error {
	for _, dir := range []string{DocumentsDir, ImagesDir} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Allowed(filename string) bool {
	if !strings.Contains(filename, ".") {
		return false
	}
	_, ok := s.allowed[Extension(filename)]
	return ok
}

// Save writes r under subdir with a timestamp prefixed, sanitized name and
// returns the stored name and path.
func (s *Store) Save(subdir, filename string, r io.Reader) (string, string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", "", ErrNoFile
	}
	if !s.Allowed(filename) {
		return "", "", ErrInvalidFileType
	}
	clean := SanitizeFilename(filename)
	if clean == "" || !s.Allowed(clean) {
		return "", "", ErrInvalidFileType
	}

	name := fmt.Sprintf("%s_%s", s.now().Format(timestampLayout), clean)
	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", "", err
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", "", err
	}
	return name, path, nil
}

// Remove deletes a stored file; missing files are ignored.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
