package auth

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/swimforge/garminbridge/internal/seal"
)

var tokenBucket = []byte("tokens")

// BoltTokenStore keeps sealed credential blobs in a single BBolt database
// instead of one file per user. Useful for deployments that already manage
// a data directory and prefer one database file.
type BoltTokenStore struct {
	db     *bbolt.DB
	sealer *seal.Sealer
}

var _ TokenStore = (*BoltTokenStore)(nil)

// NewBoltTokenStore opens (or creates) the database at path.
func NewBoltTokenStore(path, secret string) (*BoltTokenStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening token db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tokenBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token bucket: %w", err)
	}
	sealer, err := seal.New(secret)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltTokenStore{db: db, sealer: sealer}, nil
}

// Close closes the underlying database.
func (s *BoltTokenStore) Close() error {
	return s.db.Close()
}

func (s *BoltTokenStore) Save(userID string, blob []byte) error {
	sealed, err := s.sealer.Seal(blob)
	if err != nil {
		return fmt.Errorf("sealing credential: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tokenBucket).Put([]byte(userID), sealed)
	})
}

func (s *BoltTokenStore) Load(userID string) ([]byte, error) {
	var sealed []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(tokenBucket).Get([]byte(userID)); v != nil {
			sealed = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("reading token db: %w", err)
	}
	if sealed == nil {
		return nil, ErrNoToken
	}
	blob, err := s.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	return blob, nil
}

func (s *BoltTokenStore) Delete(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tokenBucket).Delete([]byte(userID))
	})
}

func (s *BoltTokenStore) Exists(userID string) bool {
	exists := false
	s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(tokenBucket).Get([]byte(userID)) != nil
		return nil
	})
	return exists
}
