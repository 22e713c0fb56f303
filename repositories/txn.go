package repositories

import (
	apperrors "chat-presence/errors"
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// maxConflictRetries bounds how many times a read-modify-write transaction is replayed
// after badger detected a concurrent write to a key it read.
const maxConflictRetries = 20

func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// getValue decodes the value stored at key. A missing key is ErrResourceNotFound.
func getValue(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.ErrResourceNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, out)
	})
}

func setValue(txn *badger.Txn, key []byte, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// nextSequence increments the counter stored at key and returns the new value.
// Running it inside the transaction that writes the sequenced row makes allocation
// gap free: a conflicting allocation aborts the whole transaction.
func nextSequence(txn *badger.Txn, key []byte) (int64, error) {
	current, err := readSequence(txn, key)
	if err != nil {
		return 0, err
	}
	current++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(current))
	return current, txn.Set(key, buf)
}

func readSequence(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var current int64
	err = item.Value(func(val []byte) error {
		current = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return current, err
}
