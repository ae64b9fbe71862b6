package face

import (
	"encoding/gob"
	"errors"
	"os"

	pkgerrors "github.com/pkg/errors"
)

var (
	// errors
	ErrEmptyStore   = errors.New("encoding store is empty")
	ErrCorruptStore = errors.New("encoding store is corrupt: descriptor/student counts differ")
)

// Descriptor is a fixed-length numeric vector representing a detected face.
type Descriptor []float64

// Encoding pairs a known face descriptor with the student it belongs to.
// A student with several enrollment photos owns several encodings.
type Encoding struct {
	Descriptor Descriptor
	StudentID  string
}

// Store is the immutable, in-memory set of known face encodings.
// It is loaded once at engine start and is safe for concurrent reads.
type Store struct {
	encodings []Encoding
}

// storeFile is the on-disk gob layout: two parallel lists of equal length,
// as produced by the enrollment command.
type storeFile struct {
	Descriptors []Descriptor
	StudentIDs  []string
}

// NewStore builds a Store from encodings. An engine with zero known identities
// can only ever produce "Unknown", so an empty set is refused.
func NewStore(encodings []Encoding) (*Store, error) {
	if len(encodings) == 0 {
		return nil, ErrEmptyStore
	}
	return &Store{encodings: encodings}, nil
}

// LoadStore reads the encodings file written by the enrollment command.
func LoadStore(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "opening encoding store")
	}
	defer f.Close()

	var sf storeFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, pkgerrors.Wrap(err, "decoding encoding store")
	}
	if len(sf.Descriptors) != len(sf.StudentIDs) {
		return nil, ErrCorruptStore
	}

	encodings := make([]Encoding, 0, len(sf.Descriptors))
	for i, d := range sf.Descriptors {
		encodings = append(encodings, Encoding{Descriptor: d, StudentID: sf.StudentIDs[i]})
	}
	return NewStore(encodings)
}

// SaveStore writes encodings to path in the on-disk layout LoadStore expects.
// Only the enrollment command writes the store; the engine never does.
func SaveStore(path string, encodings []Encoding) error {
	if len(encodings) == 0 {
		return ErrEmptyStore
	}

	sf := storeFile{
		Descriptors: make([]Descriptor, 0, len(encodings)),
		StudentIDs:  make([]string, 0, len(encodings)),
	}
	for _, enc := range encodings {
		sf.Descriptors = append(sf.Descriptors, enc.Descriptor)
		sf.StudentIDs = append(sf.StudentIDs, enc.StudentID)
	}

	f, err := os.Create(path)
	if err != nil {
		return pkgerrors.Wrap(err, "creating encoding store")
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		return pkgerrors.Wrap(err, "encoding store")
	}
	return nil
}

func (s *Store) Len() int { return len(s.encodings) }

// Encodings returns the backing slice; callers must not mutate it.
func (s *Store) Encodings() []Encoding { return s.encodings }
