package store

import (
	"context"
	"errors"
)

// ErrTxnConflict is returned when a guarded transaction aborts because a
// watched key changed between the read that produced the guard and the commit.
// Nothing was applied; callers may re-read and retry.
var ErrTxnConflict = errors.New("store: transaction conflict")

// Guard pins a key to the revision observed by a prior Get. A guard with
// Rev 0 requires the key to still be absent.
type Guard struct {
	Key string
	Rev int64
}

// Op is a single write inside a transaction.
type Op struct {
	Key   string
	Value []byte
	Del   bool
}

// Put builds a write op.
func Put(key string, value []byte) Op { return Op{Key: key, Value: value} }

// Del builds a delete op.
func Del(key string) Op { return Op{Key: key, Del: true} }

// KV is the consistency contract the pool requires from a shared store:
// revisioned reads, prefix listing, and atomic multi-key transactions that
// validate a watched read set before applying.
//
// Any implementation satisfying this interface can back the coordinator, so
// multiple processes may run against the same fleet.
type KV interface {
	// Get returns the value and revision of key; ok is false when absent.
	Get(ctx context.Context, key string) (value []byte, rev int64, ok bool, err error)

	// List returns every key/value pair under prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)

	// Txn applies ops atomically iff every guard still holds, otherwise it
	// returns ErrTxnConflict and applies nothing.
	Txn(ctx context.Context, guards []Guard, ops []Op) error

	Close() error
}
