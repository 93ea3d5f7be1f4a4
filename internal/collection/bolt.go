package collection

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const bucketName = "records"

// Finder is the read side the scanner depends on.
type Finder interface {
	// FindByCollectorNumber returns the first record whose collector number
	// equals id, ignoring case.
	FindByCollectorNumber(id string) (*Record, error)

	// FindByCodeSubstring returns the first record whose code contains text,
	// ignoring case.
	FindByCodeSubstring(text string) (*Record, error)
}

// Store defines the collection operations.
type Store interface {
	Finder

	// Save inserts or replaces a record. An empty ID is assigned.
	Save(r *Record) error

	// SaveAll saves records in one transaction.
	SaveAll(records []*Record) error

	// Get retrieves a record by ID
	Get(id string) (*Record, error)

	// List returns all records in insertion order
	List() ([]*Record, error)

	// Delete removes a record
	Delete(id string) error

	// Close closes the database
	Close() error
}

// BoltStore implements Store using bbolt.
//
// Records are keyed by UUIDv7 so bucket order is insertion order, and the
// finders return the oldest match.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewBoltStore opens or creates the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Save implements Store.
func (s *BoltStore) Save(r *Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return s.put(tx.Bucket([]byte(bucketName)), r)
	})
}

// SaveAll implements Store.
func (s *BoltStore) SaveAll(records []*Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		for _, r := range records {
			if err := s.put(bucket, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) put(bucket *bbolt.Bucket, r *Record) error {
	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating id: %w", err)
		}
		r.ID = id.String()
	}
	r.Normalize()

	now := s.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	return bucket.Put([]byte(r.ID), data)
}

// Get implements Store.
func (s *BoltStore) Get(id string) (*Record, error) {
	var record *Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List implements Store.
func (s *BoltStore) List() ([]*Record, error) {
	records := make([]*Record, 0)
	err := s.each(func(r *Record) bool {
		records = append(records, r)
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Delete implements Store. Deleting a missing ID is not an error.
func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(id))
	})
}

// FindByCollectorNumber implements Finder.
func (s *BoltStore) FindByCollectorNumber(id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	return s.first(func(r *Record) bool {
		return strings.EqualFold(r.CollectorNumber, id)
	})
}

// FindByCodeSubstring implements Finder. Blank text never matches.
func (s *BoltStore) FindByCodeSubstring(text string) (*Record, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrNotFound
	}
	return s.first(func(r *Record) bool {
		return strings.Contains(strings.ToLower(r.Codigo), text)
	})
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) first(match func(*Record) bool) (*Record, error) {
	var found *Record
	err := s.each(func(r *Record) bool {
		if match(r) {
			found = r
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// each visits records in key order until fn returns false.
func (s *BoltStore) each(fn func(*Record) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshaling record %s: %w", k, err)
			}
			if !fn(&r) {
				return nil
			}
		}
		return nil
	})
}
