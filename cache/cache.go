// Package cache keeps extracted feature sets on disk, keyed by audio content hash,
// so re-analysing a known file skips the extraction service.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	xxhash "github.com/OneOfOne/xxhash"
	"github.com/dgraph-io/badger/v3"

	"github.com/Lucas-MARIE/audio-viz/features"
)

// ErrMiss is returned by Get when nothing is stored under the key.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "features/"

type Store struct {
	db *badger.DB
}

func Open(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badger open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Key hashes audio content.
func Key(r io.Reader) (uint64, error) {
	h := xxhash.New64()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// FileKey hashes the file at path.
func FileKey(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Key(f)
}

func dbKey(key uint64) []byte {
	b := make([]byte, len(keyPrefix)+8)
	copy(b, keyPrefix)
	binary.BigEndian.PutUint64(b[len(keyPrefix):], key)
	return b
}

func (s *Store) Get(key uint64) (*features.FeatureSet, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMiss
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return features.Decode(raw)
}

func (s *Store) Put(key uint64, fs *features.FeatureSet) error {
	raw, err := json.Marshal(fs)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbKey(key), raw)
	})
}
