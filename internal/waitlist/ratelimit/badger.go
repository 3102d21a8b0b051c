package ratelimit

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const maxConflictRetries = 5

// BadgerStore persists request logs in badger. Every key carries a TTL equal
// to its rule window, so idle keys disappear without a sweep.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// BadgerOptions configures OpenBadgerStore. An empty Dir opens an in-memory
// database.
type BadgerOptions struct {
	Dir    string
	Logger *slog.Logger
}

func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var badgerOpts badger.Options
	if opts.Dir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ratelimit dir: %w", err)
		}
		badgerOpts = badger.DefaultOptions(opts.Dir)
	}
	badgerOpts = badgerOpts.
		WithLogger(newBadgerLogger(logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func (s *BadgerStore) Hit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (HitResult, error) {
	var res HitResult

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return HitResult{}, err
		}

		err := s.db.Update(func(txn *badger.Txn) error {
			hits, err := readHits(txn, []byte(key))
			if err != nil {
				return err
			}

			hits, res = slide(hits, now, limit, window)
			if !res.Allowed {
				return nil
			}
			return txn.SetEntry(badger.NewEntry([]byte(key), encodeHits(hits)).WithTTL(window))
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil {
			return HitResult{}, err
		}
		return res, nil
	}
}

// Keys returns every live key. Intended for inspection and tests.
func (s *BadgerStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Maintain runs value log garbage collection until nothing is left to rewrite.
func (s *BadgerStore) Maintain(time.Time) error {
	for {
		err := s.db.RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		return err
	}
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func readHits(txn *badger.Txn, key []byte) ([]int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeHits(raw), nil
}

func encodeHits(hits []int64) []byte {
	buf := make([]byte, 8*len(hits))
	for i, h := range hits {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(h))
	}
	return buf
}

func decodeHits(raw []byte) []int64 {
	hits := make([]int64, 0, len(raw)/8)
	for i := 0; i+8 <= len(raw); i += 8 {
		hits = append(hits, int64(binary.BigEndian.Uint64(raw[i:])))
	}
	return hits
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger.With("component", "ratelimit")}
}

func (b *badgerLogger) Errorf(msg string, args ...any) {
	b.logger.Error(fmt.Sprintf("badger: "+msg, args...))
}

func (b *badgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warn(fmt.Sprintf("badger: "+msg, args...))
}

func (b *badgerLogger) Infof(msg string, args ...any) {
	b.logger.Info(fmt.Sprintf("badger: "+msg, args...))
}

func (b *badgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debug(fmt.Sprintf("badger: "+msg, args...))
}
