package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
	"github.com/segmentio/ksuid"
)

// ErrNotFound is returned for ids with no archived drawing.
var ErrNotFound = errors.New("drawing not found")

var (
	dataPrefix = []byte("d/")
	metaPrefix = []byte("m/")
)

// Record describes an archived drawing.
type Record struct {
	ID       ksuid.KSUID `cbor:"-"`
	Name     string      `cbor:"1,keyasint"`
	Version  string      `cbor:"2,keyasint"`
	Size     int         `cbor:"3,keyasint"`
	Objects  int         `cbor:"4,keyasint"`
	Uploaded time.Time   `cbor:"5,keyasint"`
}

// Archive stores uploaded drawings.
type Archive interface {
	Create(rec Record, data []byte) (*Record, error)
	Read(id ksuid.KSUID) ([]byte, error)
	Meta(id ksuid.KSUID) (*Record, error)
	List() ([]Record, error)
	Delete(id ksuid.KSUID) error
	Close() error
}

var (
	encMode, _ = cbor.CoreDetEncOptions().EncMode()
	decMode, _ = cbor.DecOptions{MaxMapPairs: 64, MaxNestedLevels: 4}.DecMode()
)

// DefaultStorage keeps drawings and their metadata in a pebble database.
type DefaultStorage struct {
	db *pebble.DB
}

// NewDefaultStorage opens or creates the archive at path.
func NewDefaultStorage(path string) (*DefaultStorage, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &DefaultStorage{db: db}, nil
}

// ParseID parses the string form of an archive id.
func ParseID(s string) (ksuid.KSUID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return id, nil
}

func key(prefix []byte, id ksuid.KSUID) []byte {
	return append(append([]byte{}, prefix...), id.Bytes()...)
}

// Create stores data under a new id. rec supplies the descriptive fields.
func (s *DefaultStorage) Create(rec Record, data []byte) (*Record, error) {
	rec.ID = ksuid.New()
	rec.Size = len(data)
	if rec.Uploaded.IsZero() {
		rec.Uploaded = rec.ID.Time().UTC()
	}
	meta, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(key(dataPrefix, rec.ID), data, nil); err != nil {
		return nil, err
	}
	if err := b.Set(key(metaPrefix, rec.ID), meta, nil); err != nil {
		return nil, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *DefaultStorage) get(k []byte) ([]byte, error) {
	data, closer, err := s.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return append([]byte(nil), data...), nil
}

// Read returns the stored file.
func (s *DefaultStorage) Read(id ksuid.KSUID) ([]byte, error) {
	return s.get(key(dataPrefix, id))
}

// Meta returns the metadata of a stored file.
func (s *DefaultStorage) Meta(id ksuid.KSUID) (*Record, error) {
	raw, err := s.get(key(metaPrefix, id))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := decMode.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of %s: %w", id, err)
	}
	rec.ID = id
	return &rec, nil
}

// List returns every record, oldest first.
func (s *DefaultStorage) List() ([]Record, error) {
	upper := append(append([]byte{}, metaPrefix[:len(metaPrefix)-1]...), metaPrefix[len(metaPrefix)-1]+1)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: metaPrefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Record
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key()[len(metaPrefix):])
		if err != nil {
			return nil, fmt.Errorf("corrupt archive key: %w", err)
		}
		var rec Record
		if err := decMode.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of %s: %w", id, err)
		}
		rec.ID = id
		out = append(out, rec)
	}
	return out, iter.Error()
}

// Delete removes a stored file and its metadata.
func (s *DefaultStorage) Delete(id ksuid.KSUID) error {
	if _, err := s.get(key(metaPrefix, id)); err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(key(dataPrefix, id), nil); err != nil {
		return err
	}
	if err := b.Delete(key(metaPrefix, id), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// Close closes the database.
func (s *DefaultStorage) Close() error {
	return s.db.Close()
}
