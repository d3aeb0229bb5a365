package cache

import (
	"time"

	"github.com/hashicorp/go-memdb"
)

// Store is an ephemeral in-memory key-value store with per-entry TTLs,
// also holding the refresh claim table. Expired entries are treated as
// absent and removed lazily.
type Store struct {
	db *memdb.MemDB
}

type cacheEntry struct {
	Key       string
	Value     any
	ExpiresAt time.Time
}

type refreshClaim struct {
	Username  string
	ClaimedAt time.Time
	ExpiresAt time.Time
}

func NewStore() (*Store, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"cache_entry": {
				Name: "cache_entry",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
			"refresh_claim": {
				Name: "refresh_claim",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Username"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Put(key string, value any, ttl time.Duration) error {
	txn := s.db.Txn(true)
	err := txn.Insert("cache_entry", &cacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	})
	if err != nil {
		txn.Abort()
		return err
	}

	txn.Commit()
	return nil
}

func (s *Store) Get(key string) (any, bool) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First("cache_entry", "id", key)
	if err != nil || raw == nil {
		return nil, false
	}

	entry := raw.(*cacheEntry)
	if !entry.ExpiresAt.After(time.Now()) {
		return nil, false
	}

	return entry.Value, true
}

func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *Store) Forget(key string) error {
	txn := s.db.Txn(true)
	if _, err := txn.DeleteAll("cache_entry", "id", key); err != nil {
		txn.Abort()
		return err
	}

	txn.Commit()
	return nil
}

// TryClaim records a refresh claim for a username unless a live one already
// exists. It returns true when the claim was granted. The check and the
// insert happen in one write transaction, so two near-simultaneous callers
// cannot both be granted.
func (s *Store) TryClaim(username string, ttl time.Duration) bool {
	txn := s.db.Txn(true)
	defer txn.Abort()

	now := time.Now()

	raw, err := txn.First("refresh_claim", "id", username)
	if err != nil {
		return false
	}
	if raw != nil {
		claim := raw.(*refreshClaim)
		if claim.ExpiresAt.After(now) {
			return false
		}
		// expired claim left behind by a crashed refresh
		if err := txn.Delete("refresh_claim", claim); err != nil {
			return false
		}
	}

	err = txn.Insert("refresh_claim", &refreshClaim{
		Username:  username,
		ClaimedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return false
	}

	txn.Commit()
	return true
}

// Release removes any claim for the username, live or expired.
func (s *Store) Release(username string) {
	txn := s.db.Txn(true)
	if _, err := txn.DeleteAll("refresh_claim", "id", username); err != nil {
		txn.Abort()
		return
	}

	txn.Commit()
}
