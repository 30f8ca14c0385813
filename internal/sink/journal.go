package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/llrpd/internal/reading"
	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	journalPrefix = "reading/"
	journalSeqKey = "seq/reading"
	// journalSeqLease is how many sequence numbers badger leases at once.
	journalSeqLease = 256
)

type JournalConfig struct {
	// Dir is the badger directory. Empty runs in memory.
	Dir string
	// TTL expires entries; zero keeps them forever.
	TTL time.Duration
}

// Journal persists readings in badger. Keys are a monotonic badger sequence
// followed by a ksuid, so iteration order is store order even within one
// second and across reopen.
type Journal struct {
	db  *badger.DB
	seq *badger.Sequence
	ttl time.Duration
}

func OpenJournal(cfg JournalConfig) (*Journal, error) {
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(badgerLogger{log.With().Str("component", "badger").Logger()})
	if cfg.Dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("sink: open journal %q: %w", cfg.Dir, err)
	}
	seq, err := db.GetSequence([]byte(journalSeqKey), journalSeqLease)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sink: journal sequence: %w", err)
	}
	return &Journal{db: db, seq: seq, ttl: cfg.TTL}, nil
}

func (j *Journal) Name() string {
	return "journal"
}

func (j *Journal) Emit(_ context.Context, r reading.Reading) error {
	n, err := j.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate journal key: %w", err)
	}
	buf, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	key := fmt.Sprintf("%s%016x/%s", journalPrefix, n, ksuid.New().String())
	return j.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), buf)
		if j.ttl > 0 {
			entry = entry.WithTTL(j.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Recent returns up to n readings, most recently stored first.
func (j *Journal) Recent(n int) ([]reading.Reading, error) {
	if n <= 0 {
		return nil, nil
	}
	prefix := []byte(journalPrefix)
	out := make([]reading.Reading, 0, n)
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < n; it.Next() {
			var r reading.Reading
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	return out, nil
}

func (j *Journal) Close() error {
	return errors.Join(j.seq.Release(), j.db.Close())
}

// badgerLogger routes badger's internal logging through zerolog. Badger is
// chatty at info, so it is demoted to debug.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error().Msgf(format, args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn().Msgf(format, args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug().Msgf(format, args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Trace().Msgf(format, args...)
}
