/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var encMode cbor.EncMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("catalog: CBOR encoder initialization failed: " + err.Error())
	}
}

// Cache keeps the output of a slow source in Redis for ttl. Redis
// failures are logged and the wrapped source is used directly.
type Cache struct {
	src    Source
	client *goredis.Client
	key    string
	ttl    time.Duration
	log    *zap.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder
}

func Cached(src Source, client *goredis.Client, key string, ttl time.Duration, log *zap.Logger) (*Cache, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Cache{
		src:    src,
		client: client,
		key:    key,
		ttl:    ttl,
		log:    log,
		enc:    enc,
		dec:    dec,
	}, nil
}

func (c *Cache) Candidates(ctx context.Context) ([]Movie, error) {
	movies, err := c.load(ctx)
	switch {
	case err == nil:
		return movies, nil
	case !errors.Is(err, goredis.Nil):
		c.log.Warn("catalog cache read failed", zap.String("key", c.key), zap.Error(err))
	}

	movies, err = c.src.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, movies); err != nil {
		c.log.Warn("catalog cache write failed", zap.String("key", c.key), zap.Error(err))
	}

	return movies, nil
}

func (c *Cache) load(ctx context.Context) ([]Movie, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		return nil, err
	}

	data, err := c.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress cached catalog: %w", err)
	}

	var movies []Movie
	if err := cbor.Unmarshal(data, &movies); err != nil {
		return nil, fmt.Errorf("decode cached catalog: %w", err)
	}
	if len(movies) == 0 {
		return nil, goredis.Nil
	}

	return movies, nil
}

func (c *Cache) store(ctx context.Context, movies []Movie) error {
	data, err := encMode.Marshal(movies)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err := c.client.Set(ctx, c.key, c.enc.EncodeAll(data, nil), c.ttl).Err(); err != nil {
		return fmt.Errorf("set catalog key: %w", err)
	}

	return nil
}

// Close releases the zstd decoder.
func (c *Cache) Close() {
	c.dec.Close()
}
