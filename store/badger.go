package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/resilience"
)

// Key prefixes.
const (
	userPrefix     = "user:"
	categoryPrefix = "category:"
	postPrefix     = "post:"
	commentPrefix  = "comment:"

	idxUserEmail    = "idx:user_email:"
	idxUserPosts    = "idx:user_posts:"
	idxUserComments = "idx:user_comments:"
	idxPostComments = "idx:post_comments:"
	idxReplies      = "idx:comment_replies:"
)

// Options configures a BadgerStore.
type Options struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory; used by tests and demos.
	InMemory bool

	// Now overrides the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time

	// Logger receives badger's internal log lines. Nil silences them.
	Logger observe.Logger

	// EncryptionKey enables encryption at rest. Must be 16, 24 or 32 bytes.
	EncryptionKey []byte

	// ConflictAttempts bounds how often a write is run when concurrent
	// transactions conflict. Default: 5
	ConflictAttempts int
}

// BadgerStore is the BadgerDB-backed store.
//
// Contract:
// - Concurrency: safe for concurrent use; every write runs in one transaction.
// - Errors: missing records return ErrNotFound from write paths and
//   (nil, nil) from single-record read paths used by cached queries.
type BadgerStore struct {
	db     *badger.DB
	now    func() time.Time
	retry  *resilience.Retry
	closed atomic.Bool
}

// Open opens (or creates) a store.
func Open(opts Options) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	if len(opts.EncryptionKey) > 0 {
		bopts = bopts.WithEncryptionKey(opts.EncryptionKey).WithIndexCacheSize(16 << 20)
	}
	if opts.Logger != nil {
		bopts = bopts.WithLogger(badgerLogger{log: opts.Logger.With("badger")})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	attempts := opts.ConflictAttempts
	if attempts <= 0 {
		attempts = 5
	}
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Jitter:       true,
		RetryIf:      func(err error) bool { return errors.Is(err, badger.ErrConflict) },
	})
	return &BadgerStore{db: db, now: now, retry: retry}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database answers a read transaction.
func (s *BadgerStore) Ping(_ context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// RunGC runs value log garbage collection until there is nothing to reclaim.
func (s *BadgerStore) RunGC(discardRatio float64) error {
	if s.closed.Load() {
		return ErrClosed
	}
	for {
		err := s.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *BadgerStore) newID() string {
	return uuid.NewString()
}

func (s *BadgerStore) view(fn func(txn *badger.Txn) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.View(fn)
}

// update runs fn in a read-write transaction. fn is run again when the
// commit conflicts with a concurrent transaction, so it must not keep state
// across calls other than its results.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.retry.Execute(context.Background(), func(context.Context) error {
		return s.db.Update(fn)
	})
}

func getJSON[T any](txn *badger.Txn, key string) (*T, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var v T
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &v)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func setIndex(txn *badger.Txn, key string) error {
	if err := txn.Set([]byte(key), nil); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func del(txn *badger.Txn, key string) error {
	if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// scanJSON decodes every record under prefix.
func scanJSON[T any](txn *badger.Txn, prefix string) ([]T, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []T
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		var v T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// indexIDs returns the trailing id of every key under prefix.
func indexIDs(txn *badger.Txn, prefix string) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(p):]))
	}
	return ids
}

func countPrefix(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		n++
	}
	return n
}

// newestFirst orders by creation time descending, ties broken by id.
func newestFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sortCommentsAsc(cs []Comment) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

// badgerLogger forwards badger's printf-style logging.
type badgerLogger struct {
	log observe.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

var _ badger.Logger = badgerLogger{}
