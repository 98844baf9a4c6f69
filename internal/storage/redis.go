package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/nikbrunner/marks/internal/model"
)

const (
	defaultRedisLockTTL   = 30 * time.Second
	redisLockRetry        = 50 * time.Millisecond
	redisPingTimeout      = 5 * time.Second
	redisDefaultDialLimit = 5 * time.Second
)

// releaseLock deletes the lease only while it still carries our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions configures a RedisStorage.
type RedisOptions struct {
	Addr     string // Redis address (ex: "localhost:6379")
	Password string
	DB       int
	Prefix   string        // key namespace, DefaultRedisPrefix when empty
	LockTTL  time.Duration // lease duration of the writer lock
}

// RedisStorage keeps each record under its own key, with two lists holding
// the id order. Save replaces everything inside one MULTI/EXEC.
type RedisStorage struct {
	client  *redis.Client
	keys    redisKeys
	lockTTL time.Duration
}

// NewRedisStorage connects to Redis and verifies the connection with a ping.
func NewRedisStorage(ctx context.Context, opts RedisOptions) (*RedisStorage, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: redisDefaultDialLimit,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unavailable at %s: %w", opts.Addr, err)
	}
	return NewRedisStorageFromClient(client, opts), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, opts RedisOptions) *RedisStorage {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	ttl := opts.LockTTL
	if ttl <= 0 {
		ttl = defaultRedisLockTTL
	}
	return &RedisStorage{client: client, keys: redisKeys{prefix: prefix}, lockTTL: ttl}
}

// Close closes the client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// Ping reports whether Redis answers.
func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load reads every folder and bookmark in list order.
func (s *RedisStorage) Load(ctx context.Context) (*model.Store, error) {
	store := &model.Store{
		Folders:   []model.Folder{},
		Bookmarks: []model.Bookmark{},
	}

	folderIDs, err := s.client.LRange(ctx, s.keys.folderOrder(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get folder IDs: %w", err)
	}
	bookmarkIDs, err := s.client.LRange(ctx, s.keys.bookmarkOrder(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}

	folderKeys := make([]string, len(folderIDs))
	for i, id := range folderIDs {
		folderKeys[i] = s.keys.folder(id)
	}
	if err := s.mget(ctx, folderKeys, func(data []byte) error {
		var f model.Folder
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("failed to unmarshal folder: %w", err)
		}
		store.Folders = append(store.Folders, f)
		return nil
	}); err != nil {
		return nil, err
	}

	bookmarkKeys := make([]string, len(bookmarkIDs))
	for i, id := range bookmarkIDs {
		bookmarkKeys[i] = s.keys.bookmark(id)
	}
	if err := s.mget(ctx, bookmarkKeys, func(data []byte) error {
		var b model.Bookmark
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("failed to unmarshal bookmark: %w", err)
		}
		store.Bookmarks = append(store.Bookmarks, b)
		return nil
	}); err != nil {
		return nil, err
	}

	return store, nil
}

// mget fetches keys and hands each present value to fn. Missing keys are
// skipped.
func (s *RedisStorage) mget(ctx context.Context, keys []string, fn func([]byte) error) error {
	if len(keys) == 0 {
		return nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		if err := fn([]byte(str)); err != nil {
			return err
		}
	}
	return nil
}

// Save replaces the persisted snapshot, removing keys of records that are
// no longer present.
func (s *RedisStorage) Save(ctx context.Context, store *model.Store) error {
	oldFolders, err := s.client.LRange(ctx, s.keys.folderOrder(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get folder IDs: %w", err)
	}
	oldBookmarks, err := s.client.LRange(ctx, s.keys.bookmarkOrder(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get bookmark IDs: %w", err)
	}

	folderData := make([][]byte, len(store.Folders))
	for i, f := range store.Folders {
		if folderData[i], err = json.Marshal(f); err != nil {
			return fmt.Errorf("failed to marshal folder %s: %w", f.ID, err)
		}
	}
	bookmarkData := make([][]byte, len(store.Bookmarks))
	for i, b := range store.Bookmarks {
		if bookmarkData[i], err = json.Marshal(b); err != nil {
			return fmt.Errorf("failed to marshal bookmark %s: %w", b.ID, err)
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range oldFolders {
			pipe.Del(ctx, s.keys.folder(id))
		}
		for _, id := range oldBookmarks {
			pipe.Del(ctx, s.keys.bookmark(id))
		}
		pipe.Del(ctx, s.keys.folderOrder(), s.keys.bookmarkOrder())

		for i, f := range store.Folders {
			pipe.Set(ctx, s.keys.folder(f.ID), folderData[i], 0)
			pipe.RPush(ctx, s.keys.folderOrder(), f.ID)
		}
		for i, b := range store.Bookmarks {
			pipe.Set(ctx, s.keys.bookmark(b.ID), bookmarkData[i], 0)
			pipe.RPush(ctx, s.keys.bookmarkOrder(), b.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Lock implements Locker with a SET NX lease. The lease expires after the
// configured TTL if the holder dies.
func (s *RedisStorage) Lock(ctx context.Context) (func() error, error) {
	token, err := lockToken()
	if err != nil {
		return nil, err
	}
	key := s.keys.lock()

	ticker := time.NewTicker(redisLockRetry)
	defer ticker.Stop()
	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() error {
		// Release even if the caller's context is already done.
		return releaseLock.Run(context.WithoutCancel(ctx), s.client, []string{key}, token).Err()
	}, nil
}

func lockToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
