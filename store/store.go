package store

import (
	"context"
	"time"

	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/log"
)

const (
	keyName     = "key"
	payloadName = "payload"
	expiryName  = "expires_at"
)

// ErrNotFound is returned by Get when a key is missing or its entry expired.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	return "store item not found for key '" + e.Key + "'"
}

// External is a key-value store with per-entry expiration. A zero TTL
// means the entry never expires.
type External interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Shutdown()
}

// SetupExternalStore constructs the store selected by the configuration.
// When no external backend is enabled, it falls back to an in-process store.
func SetupExternalStore(conf *config.CacheConfig, log log.Logger) (External, error) {
	storeLog := log.WithPrefix("store")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second) // give 15 sec to spin up the storage connection
	defer cancel()

	if conf.Redis.Enabled {
		redis, err := newRedis(&conf.Redis, storeLog)
		if err != nil {
			return nil, err
		}
		return redis, nil
	} else if conf.MongoDb.Enabled {
		mongoDb, err := newMongoDb(ctx, &conf.MongoDb, storeLog)
		if err != nil {
			return nil, err
		}
		return mongoDb, nil
	} else if conf.DynamoDb.Enabled {
		dynamoDb, err := newDynamoDb(ctx, &conf.DynamoDb, storeLog)
		if err != nil {
			return nil, err
		}
		return dynamoDb, nil
	}
	return newInMemory(storeLog), nil
}
