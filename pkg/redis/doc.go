// Package redis opens go-redis clients for the Redis connection and session
// stores.
//
// [Connect] takes a [Config] loaded from the environment (REDIS_URL,
// REDIS_POOL_SIZE, REDIS_RETRY_ATTEMPTS, ...). [Open] is a shortcut that
// starts from defaults and applies functional options:
//
//	client, err := redis.Open(ctx, os.Getenv("REDIS_URL"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	store := connection.NewRedisDatastore(client)
//
// Only redis:// and rediss:// (TLS) URLs are accepted.
package redis
