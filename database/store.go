package database

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Collection names an entity type in the record store.
type Collection string

const (
	Students          Collection = "students"
	Teachers          Collection = "teachers"
	TeacherAttendance Collection = "teacher_attendance"
	Fees              Collection = "fees"
	Attendance        Collection = "attendance"
	Exams             Collection = "exams"
	Settings          Collection = "settings"
	ActivityLogs      Collection = "activity_logs"
)

// AllCollections lists every collection, used by backups.
var AllCollections = []Collection{
	Students, Teachers, TeacherAttendance, Fees, Attendance, Exams, Settings, ActivityLogs,
}

func (c Collection) Valid() bool {
	for _, known := range AllCollections {
		if c == known {
			return true
		}
	}
	return false
}

// Entry is one stored record: its id and JSON document.
type Entry struct {
	ID   string
	Data []byte
}

// Store is an opaque key-value persistence service keyed by collection.
// SaveOne upserts a whole record by id; there are no partial-field writes.
// Implementations assume a single writer.
type Store interface {
	GetAll(ctx context.Context, c Collection) ([]Entry, error)
	SaveOne(ctx context.Context, c Collection, id string, data []byte) error
	DeleteOne(ctx context.Context, c Collection, id string) error
}

// Transactor is implemented by stores that can group writes atomically.
type Transactor interface {
	Tx(ctx context.Context, fn func(Store) error) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunInTx runs fn inside a transaction when s supports one, otherwise directly.
func RunInTx(ctx context.Context, s Store, fn func(Store) error) error {
	if tx, ok := s.(Transactor); ok {
		return tx.Tx(ctx, fn)
	}
	return fn(s)
}

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op         string
	Collection Collection
	ID         string
	Err        error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func newStorageError(op string, c Collection, id string, err error) error {
	return &StorageError{Op: op, Collection: c, ID: id, Err: err}
}

// IsStorageError reports whether err was raised by the store.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
