package txlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"
)

// Row layout:
//
//	tx/e/<idx>        JSON entry
//	tx/k/<key>/<idx>  empty marker, one per non-genesis entry
//
// idx is zero padded to 20 digits so byte order equals commit order. Keys may
// contain "/", so a history scan for key also sees the rows of any key that
// extends it with "/..."; only rows exactly idxWidth bytes past the prefix
// belong to key.
const (
	entryPrefix = "tx/e/"
	keyPrefix   = "tx/k/"
	idxWidth    = 20
)

func entryRow(idx int) []byte { return []byte(fmt.Sprintf("%s%020d", entryPrefix, idx)) }

func keyRow(key string, idx int) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", keyPrefix, key, idx))
}

// LevelDBLog stores the chain in an embedded goleveldb database. Appends are
// serialised in-process; only one LevelDBLog may use a database at a time.
type LevelDBLog struct {
	db   *leveldb.DB
	mu   sync.Mutex
	tail *Entry
}

// OpenLevelDBLog loads the chain tail from db, writing the genesis entry if
// the database holds no chain yet.
func OpenLevelDBLog(db *leveldb.DB) (*LevelDBLog, error) {
	l := &LevelDBLog{db: db}

	iter := db.NewIterator(ldb_util.BytesPrefix([]byte(entryPrefix)), nil)
	if iter.Last() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			iter.Release()
			return nil, fmt.Errorf("decode log tail: %w", err)
		}
		l.tail = &e
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("read log tail: %w", err)
	}
	if l.tail != nil {
		return l, nil
	}

	genesis := &Entry{
		Index:     0,
		Timestamp: time.Now().UTC(),
		Action:    "genesis",
		Actor:     genesisActor,
		DataHash:  GenesisHash,
		PrevHash:  GenesisHash,
		Hash:      GenesisHash,
	}
	raw, err := json.Marshal(genesis)
	if err != nil {
		return nil, fmt.Errorf("encode genesis: %w", err)
	}
	if err := db.Put(entryRow(0), raw, nil); err != nil {
		return nil, fmt.Errorf("write genesis: %w", err)
	}
	l.tail = genesis
	return l, nil
}

// Append implements Log.
func (l *LevelDBLog) Append(_ context.Context, key, action, actor string, state []byte) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &Entry{
		Index:     l.tail.Index + 1,
		Timestamp: now(),
		TxID:      uuid.NewString(),
		Key:       key,
		Action:    action,
		Actor:     actor,
		DataHash:  sha256Sum(state),
		PrevHash:  l.tail.Hash,
	}
	entry.Hash = hashEntry(entry)

	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode log entry: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Put(entryRow(entry.Index), raw)
	batch.Put(keyRow(key, entry.Index), nil)
	if err := l.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("write log entry: %w", err)
	}
	l.tail = entry

	out := *entry
	return &out, nil
}

func (l *LevelDBLog) read(index int) (*Entry, error) {
	raw, err := l.db.Get(entryRow(index), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	if err != nil {
		return nil, fmt.Errorf("get log entry %d: %w", index, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode log entry %d: %w", index, err)
	}
	return &e, nil
}

// Get implements Log.
func (l *LevelDBLog) Get(_ context.Context, index int) (*Entry, error) {
	if index < 0 {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	return l.read(index)
}

// Len implements Log.
func (l *LevelDBLog) Len(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tail.Index + 1, nil
}

// History implements Log.
func (l *LevelDBLog) History(_ context.Context, key string) ([]*Entry, error) {
	prefix := []byte(keyPrefix + key + "/")
	iter := l.db.NewIterator(ldb_util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var out []*Entry
	for iter.Next() {
		suffix := iter.Key()[len(prefix):]
		if len(suffix) != idxWidth {
			continue
		}
		idx, err := strconv.Atoi(string(suffix))
		if err != nil {
			return nil, fmt.Errorf("parse history row %q: %w", iter.Key(), err)
		}
		e, err := l.read(idx)
		if err != nil {
			return nil, err
		}
		if e.Key != key {
			continue
		}
		out = append(out, e)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan history %q: %w", key, err)
	}
	return out, nil
}

// Verify implements Log.
func (l *LevelDBLog) Verify(_ context.Context) error {
	iter := l.db.NewIterator(ldb_util.BytesPrefix([]byte(entryPrefix)), nil)
	defer iter.Release()

	var prev *Entry
	for iter.Next() {
		var curr Entry
		if err := json.Unmarshal(iter.Value(), &curr); err != nil {
			return fmt.Errorf("decode log entry %q: %w", iter.Key(), err)
		}
		if prev == nil {
			if curr.Index != 0 || curr.Hash != GenesisHash {
				return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
			}
		} else {
			if curr.Index != prev.Index+1 {
				return fmt.Errorf("log entry missing after index %d", prev.Index)
			}
			if err := verifyLink(prev, &curr); err != nil {
				return err
			}
		}
		prev = &curr
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("scan log: %w", err)
	}
	if prev == nil {
		return fmt.Errorf("log has no genesis entry")
	}
	return nil
}

// Root implements Log.
func (l *LevelDBLog) Root(_ context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tail.Hash, nil
}
