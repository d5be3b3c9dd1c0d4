package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxFileSize caps stored uploads at 5 MiB.
const MaxFileSize = 5 << 20

var (
	// ErrInvalidType rejects files outside the image allow-list.
	ErrInvalidType = errors.New("storage: invalid file type")
	// ErrExtensionMismatch rejects files whose extension does not match the
	// declared content type (MIME spoofing).
	ErrExtensionMismatch = errors.New("storage: file extension does not match its content type")
	// ErrTooLarge rejects files exceeding MaxFileSize.
	ErrTooLarge = errors.New("storage: file too large")
)

// allowedTypes maps accepted MIME types to their expected extensions.
var allowedTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
}

// FileInfo describes a stored upload.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	MIMEType string    `json:"mime_type"`
	StoredAt time.Time `json:"stored_at"`
}

// Store writes uploads onto local disk under a single directory.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed and returns the store.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root upload directory.
func (s *Store) Dir() string { return s.dir }

// Save validates and persists one upload. The stored name combines the form
// field, a unique suffix and the sanitized client extension, so client names
// never influence paths on disk.
func (s *Store) Save(field, clientName, mimeType string, src io.Reader) (FileInfo, error) {
	expected, ok := allowedTypes[mimeType]
	if !ok {
		return FileInfo{}, ErrInvalidType
	}
	ext := strings.ToLower(filepath.Ext(sanitizeName(clientName)))
	matched := false
	for _, e := range expected {
		if e == ext {
			matched = true
			break
		}
	}
	if !matched {
		return FileInfo{}, ErrExtensionMismatch
	}

	if field == "" {
		field = "file"
	}
	name := fmt.Sprintf("%s-%s%s", field, uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return FileInfo{}, err
	}
	defer dst.Close()

	// One extra byte past the cap tells us the source was too large.
	n, err := io.Copy(dst, io.LimitReader(src, MaxFileSize+1))
	if err != nil {
		_ = os.Remove(path)
		return FileInfo{}, err
	}
	if n > MaxFileSize {
		_ = os.Remove(path)
		return FileInfo{}, ErrTooLarge
	}

	return FileInfo{
		Name:     name,
		Size:     n,
		MIMEType: mimeType,
		StoredAt: time.Now().UTC(),
	}, nil
}

// sanitizeName strips path separators, traversal sequences and control bytes
// from a client-supplied filename.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer(
		"/", "", "\\", "", ":", "", "*", "", "?", "",
		"\"", "", "<", "", ">", "", "|", "", "\x00", "",
	)
	name = replacer.Replace(name)
	return strings.ReplaceAll(name, "..", "")
}
