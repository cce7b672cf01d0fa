package database

import (
	"context"
	"sort"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps each collection in a hash keyed by record id.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "udaan"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(c Collection) string {
	return r.prefix + ":" + string(c)
}

// GetAll returns entries sorted by id; hashes carry no insertion order.
func (r *RedisStore) GetAll(ctx context.Context, c Collection) ([]Entry, error) {
	m, err := r.client.HGetAll(ctx, r.key(c)).Result()
	if err != nil {
		return nil, newStorageError("get_all", c, "", err)
	}
	out := make([]Entry, 0, len(m))
	for id, v := range m {
		out = append(out, Entry{ID: id, Data: []byte(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RedisStore) SaveOne(ctx context.Context, c Collection, id string, data []byte) error {
	if err := r.client.HSet(ctx, r.key(c), id, data).Err(); err != nil {
		return newStorageError("save", c, id, err)
	}
	return nil
}

func (r *RedisStore) DeleteOne(ctx context.Context, c Collection, id string) error {
	if err := r.client.HDel(ctx, r.key(c), id).Err(); err != nil {
		return newStorageError("delete", c, id, err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
