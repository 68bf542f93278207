package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/swimforge/garminbridge/internal/seal"
)

// TokenStore persists opaque credential blobs keyed by user id so that a
// later login can skip the password round-trip.
type TokenStore interface {
	// Save writes the blob for userID, replacing any prior value.
	Save(userID string, blob []byte) error
	// Load returns the stored blob, or ErrNoToken if none exists.
	Load(userID string) ([]byte, error)
	// Delete removes the stored blob. Deleting an absent blob is not an
	// error.
	Delete(userID string) error
	// Exists reports whether a blob is stored for userID without reading
	// or validating it.
	Exists(userID string) bool
}

// FileTokenStore keeps one sealed file per user id under a directory.
type FileTokenStore struct {
	dir    string
	sealer *seal.Sealer
}

var _ TokenStore = (*FileTokenStore)(nil)

// NewFileTokenStore creates the directory if needed and returns a store
// whose files are sealed with a key derived from secret.
func NewFileTokenStore(dir, secret string) (*FileTokenStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating token directory: %w", err)
	}
	sealer, err := seal.New(secret)
	if err != nil {
		return nil, err
	}
	return &FileTokenStore{dir: dir, sealer: sealer}, nil
}

func (s *FileTokenStore) path(userID string) string {
	// User ids come from the downstream application and may not be safe
	// path components. Escape anything that is not portable-filename.
	var b strings.Builder
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "%%%04x", r)
		}
	}
	return filepath.Join(s.dir, b.String()+".token")
}

// Save writes the sealed blob atomically: a temp file in the same directory
// is renamed over the target, so a crash mid-write never leaves a partial
// file where Load can see it.
func (s *FileTokenStore) Save(userID string, blob []byte) error {
	sealed, err := s.sealer.Seal(blob)
	if err != nil {
		return fmt.Errorf("sealing credential: %w", err)
	}

	target := s.path(userID)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp token file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing token file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Load(userID string) ([]byte, error) {
	sealed, err := os.ReadFile(s.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	blob, err := s.sealer.Open(sealed)
	if err != nil {
		// Unreadable files (corruption, rotated secret) behave like
		// absent ones; the login flow falls back to fresh auth.
		return nil, fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	return blob, nil
}

func (s *FileTokenStore) Delete(userID string) error {
	err := os.Remove(s.path(userID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Exists(userID string) bool {
	_, err := os.Stat(s.path(userID))
	return err == nil
}
