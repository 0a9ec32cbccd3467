package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JaimeStill/expense-api/pkg/lifecycle"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	badgerMetaPrefix  = "blob:meta:"
	badgerChunkPrefix = "blob:chunk:"
)

// badgerMeta is the record stored under the metadata key.
type badgerMeta struct {
	Blob
	Chunks int `json:"chunks"`
}

// badgerStore splits content into fixed-size chunks stored under
// blob:chunk:<id>:<seq> and publishes blob:meta:<id> only after every
// chunk is durable. A blob without its metadata key does not exist.
type badgerStore struct {
	path      string
	inMemory  bool
	chunkSize int
	db        atomic.Pointer[badger.DB]
	writeMu   sync.Mutex
	logger    *slog.Logger
}

func newBadger(cfg *BadgerConfig, logger *slog.Logger) (*badgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("path required")
	}

	chunkSize := cfg.ChunkSizeBytes()
	if chunkSize <= 0 {
		chunkSize = 255 << 10
	}

	return &badgerStore{
		path:      cfg.Path,
		inMemory:  cfg.InMemory,
		chunkSize: chunkSize,
		logger:    logger,
	}, nil
}

func (b *badgerStore) Start(lc *lifecycle.Coordinator) error {
	b.logger.Info("starting storage system", "path", b.path, "in_memory", b.inMemory)

	lc.OnStartup(func() {
		db, err := b.open()
		if err != nil {
			b.logger.Error("storage initialization failed", "error", err)
			return
		}
		b.db.Store(db)
		b.logger.Info("badger store opened")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		db := b.db.Swap(nil)
		if db == nil {
			return
		}
		if err := db.Close(); err != nil {
			b.logger.Error("badger close failed", "error", err)
			return
		}
		b.logger.Info("badger store closed")
	})

	return nil
}

func (b *badgerStore) open() (*badger.DB, error) {
	var opts badger.Options
	if b.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(b.path, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		opts = badger.DefaultOptions(b.path)
	}

	opts.Logger = &badgerLogger{logger: b.logger}
	opts.Compression = options.None

	return badger.Open(opts)
}

func (b *badgerStore) Capabilities() Capabilities {
	return Capabilities{}
}

func (b *badgerStore) Put(ctx context.Context, in PutInput) (Blob, error) {
	db := b.db.Load()
	if db == nil {
		return Blob{}, fmt.Errorf("%w: %w", ErrWrite, ErrNotReady)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	id := newID()
	blob, err := b.write(ctx, db, id, in)
	if err != nil {
		if cleanErr := b.deleteChunks(db, id); cleanErr != nil {
			b.logger.Warn("failed to clean up partial blob", "id", id, "error", cleanErr)
		}
		return Blob{}, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return blob, nil
}

func (b *badgerStore) write(ctx context.Context, db *badger.DB, id string, in PutInput) (Blob, error) {
	wb := db.NewWriteBatch()
	defer wb.Cancel()

	var (
		size   int64
		chunks int
		buf    = make([]byte, b.chunkSize)
	)

	for {
		if err := ctx.Err(); err != nil {
			return Blob{}, err
		}

		n, err := io.ReadFull(in.Body, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if setErr := wb.Set(chunkKey(id, chunks), chunk); setErr != nil {
				return Blob{}, fmt.Errorf("stage chunk %d: %w", chunks, setErr)
			}
			size += int64(n)
			chunks++
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return Blob{}, fmt.Errorf("read body: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return Blob{}, fmt.Errorf("flush chunks: %w", err)
	}

	meta := badgerMeta{
		Blob: Blob{
			ID:          id,
			Filename:    in.Filename,
			ContentType: ContentTypeOrDefault(in.ContentType),
			Size:        size,
			CreatedAt:   time.Now().UTC(),
		},
		Chunks: chunks,
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return Blob{}, fmt.Errorf("encode metadata: %w", err)
	}

	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(id), data)
	}); err != nil {
		return Blob{}, fmt.Errorf("publish metadata: %w", err)
	}

	return meta.Blob, nil
}

func (b *badgerStore) Stat(ctx context.Context, id string) (Blob, error) {
	meta, err := b.meta(id)
	if err != nil {
		return Blob{}, err
	}
	return meta.Blob, nil
}

func (b *badgerStore) meta(id string) (badgerMeta, error) {
	if err := ValidateID(id); err != nil {
		return badgerMeta{}, err
	}

	db := b.db.Load()
	if db == nil {
		return badgerMeta{}, ErrNotReady
	}

	var meta badgerMeta
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return badgerMeta{}, ErrNotFound
	}
	if err != nil {
		return badgerMeta{}, fmt.Errorf("read metadata: %w", err)
	}
	return meta, nil
}

func (b *badgerStore) Open(ctx context.Context, id string) (io.ReadCloser, Blob, error) {
	meta, err := b.meta(id)
	if err != nil {
		return nil, Blob{}, err
	}

	return &chunkReader{store: b, id: id, chunks: meta.Chunks}, meta.Blob, nil
}

func (b *badgerStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	db := b.db.Load()
	if db == nil {
		return ErrNotReady
	}

	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Delete(metaKey(id))
	}); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}

	return b.deleteChunks(db, id)
}

func (b *badgerStore) deleteChunks(db *badger.DB, id string) error {
	prefix := chunkPrefix(id)

	var keys [][]byte
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan chunks: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("stage chunk delete: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (b *badgerStore) Walk(ctx context.Context, fn func(Blob) error) error {
	db := b.db.Load()
	if db == nil {
		return ErrNotReady
	}

	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerMetaPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var meta badgerMeta
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return fmt.Errorf("decode metadata %s: %w", it.Item().Key(), err)
			}
			if err := fn(meta.Blob); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *badgerStore) chunk(id string, seq int) ([]byte, error) {
	db := b.db.Load()
	if db == nil {
		return nil, ErrNotReady
	}

	var data []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(id, seq))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// chunkReader fetches one chunk per transaction as the consumer reads.
type chunkReader struct {
	store  *badgerStore
	id     string
	chunks int
	next   int
	buf    []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.next >= r.chunks {
			return 0, io.EOF
		}

		data, err := r.store.chunk(r.id, r.next)
		if err != nil {
			return 0, fmt.Errorf("read chunk %d: %w", r.next, err)
		}
		r.buf = data
		r.next++
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *chunkReader) Close() error {
	r.buf = nil
	r.next = r.chunks
	return nil
}

func metaKey(id string) []byte {
	return []byte(badgerMetaPrefix + id)
}

func chunkPrefix(id string) []byte {
	return []byte(badgerChunkPrefix + id + ":")
}

func chunkKey(id string, seq int) []byte {
	key := bytes.NewBuffer(chunkPrefix(id))
	binary.Write(key, binary.BigEndian, uint32(seq))
	return key.Bytes()
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Infof(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}
