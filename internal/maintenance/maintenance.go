package maintenance

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Switch gates the whole API behind a lock file on disk. Creating the file
// turns maintenance mode on; removing it turns it off. Requests carrying the
// bypass secret pass through while the lock is held.
type Switch struct {
	lockFile string
	secret   string
}

// New builds a Switch for the given lock file path. The secret may be empty,
// in which case no bypass exists.
func New(lockFile, secret string) (*Switch, error) {
	if strings.TrimSpace(lockFile) == "" {
		return nil, errors.New("maintenance: lock file path is required")
	}
	return &Switch{lockFile: lockFile, secret: secret}, nil
}

// Enabled reports whether the lock file currently exists.
func (s *Switch) Enabled() bool {
	_, err := os.Stat(s.lockFile)
	return err == nil
}

// Bypass reports whether the supplied header value unlocks the gate.
func (s *Switch) Bypass(provided string) bool {
	if s.secret == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.secret), []byte(provided)) == 1
}

// Enable creates the lock file, recording when maintenance began.
func (s *Switch) Enable() error {
	content := fmt.Sprintf("locked at %s\n", time.Now().UTC().Format(time.RFC3339))
	return os.WriteFile(s.lockFile, []byte(content), 0o644)
}

// Disable removes the lock file. Removing an absent lock is not an error.
func (s *Switch) Disable() error {
	err := os.Remove(s.lockFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
