package cache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"go.etcd.io/bbolt"
)

// DefaultBucket is the bbolt bucket used when none is configured.
const DefaultBucket = "engines"

// boltKeyEngine is the key of the serialized engine in the bucket.
const boltKeyEngine = "engine"

// boltKeyUpdated is the key of the time of the last write, as RFC 3339 text.
const boltKeyUpdated = "updated"

// boltOpenTimeout is how long opening waits for the database lock.
const boltOpenTimeout = time.Second

// Bolt stores an engine in a bbolt database, so that several engines can
// share a database by using different buckets.
type Bolt struct {
	logger *slog.Logger
	db     *bbolt.DB
	bucket []byte
}

// type check
var _ Cache = (*Bolt)(nil)

// OpenBolt opens or creates the database at path.  An empty bucket means
// DefaultBucket.
func OpenBolt(path, bucket string, logger *slog.Logger) (b *Bolt, err error) {
	if bucket == "" {
		bucket = DefaultBucket
	}

	db, err := bbolt.Open(path, DefaultPermFile, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt cache: %w", err)
	}

	return &Bolt{
		logger: logger,
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Read implements the [engine.Cache] interface for *Bolt.
func (b *Bolt) Read(ctx context.Context) (data []byte, err error) {
	var updated string
	err = b.db.View(func(tx *bbolt.Tx) (txErr error) {
		bkt := tx.Bucket(b.bucket)
		if bkt == nil {
			return ErrNoEngine
		}

		v := bkt.Get([]byte(boltKeyEngine))
		if v == nil {
			return ErrNoEngine
		}

		// Values are only valid during the transaction.
		data = bytes.Clone(v)
		updated = string(bkt.Get([]byte(boltKeyUpdated)))

		return nil
	})
	if err != nil {
		// Don't wrap the error since ErrNoEngine is checked by callers.
		return nil, err
	}

	b.logger.DebugContext(ctx, "read cached engine", "bucket", string(b.bucket), "size", len(data), "updated", updated)

	return data, nil
}

// Write implements the [engine.Cache] interface for *Bolt.
func (b *Bolt) Write(ctx context.Context, data []byte) (err error) {
	tx, err := b.db.Begin(true)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.WithDeferred(err, tx.Rollback())
		}
	}()

	bkt, err := tx.CreateBucketIfNotExists(b.bucket)
	if err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}

	if err = bkt.Put([]byte(boltKeyEngine), data); err != nil {
		return fmt.Errorf("putting engine: %w", err)
	}

	updated := time.Now().UTC().Format(time.RFC3339)
	if err = bkt.Put([]byte(boltKeyUpdated), []byte(updated)); err != nil {
		return fmt.Errorf("putting update time: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	b.logger.DebugContext(ctx, "cached engine", "bucket", string(b.bucket), "size", len(data))

	return nil
}

// Close implements the [Cache] interface for *Bolt.
func (b *Bolt) Close() (err error) {
	return b.db.Close()
}
