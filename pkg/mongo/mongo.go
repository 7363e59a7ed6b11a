// Package mongo opens MongoDB clients for the MongoDB connection store.
//
//	client, err := mongo.Open(ctx, os.Getenv("MONGO_URL"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Disconnect(ctx)
//
//	ds := connection.NewMongoDatastore(client.Database("app"))
//	if err := ds.EnsureIndexes(ctx); err != nil {
//		log.Fatal(err)
//	}
package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var (
	ErrEmptyConnectionURL = errors.New("mongo: empty connection URL")
	ErrFailedToParseURL   = errors.New("mongo: failed to parse connection URL")
	ErrConnectionFailed   = errors.New("mongo: failed to establish connection")
	ErrHealthcheckFailed  = errors.New("mongo: healthcheck failed")
)

// Config holds MongoDB connection settings.
// Fields are populated from environment variables with caarlos0/env.
type Config struct {
	// mongodb:// or mongodb+srv:// URI
	URL string `env:"MONGO_URL,required"`

	MaxPoolSize    uint64        `env:"MONGO_MAX_POOL_SIZE" envDefault:"20"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"5s"`

	RetryAttempts int           `env:"MONGO_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"MONGO_RETRY_INTERVAL" envDefault:"2s"`
}

// Open connects to url with default settings.
func Open(ctx context.Context, url string) (*mongo.Client, error) {
	return Connect(ctx, Config{
		URL:            url,
		MaxPoolSize:    20,
		ConnectTimeout: 5 * time.Second,
		RetryAttempts:  3,
		RetryInterval:  2 * time.Second,
	})
}

// Connect creates a client from cfg and pings the primary, retrying on failure.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(cfg.URL, "mongodb://") && !strings.HasPrefix(cfg.URL, "mongodb+srv://") {
		return nil, ErrFailedToParseURL
	}

	opts := options.Client().ApplyURI(cfg.URL)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	var lastErr error
	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrConnectionFailed, ctx.Err())
			case <-time.After(time.Duration(i) * cfg.RetryInterval):
			}
		}

		client, err := mongo.Connect(opts)
		if err != nil {
			// Connect only fails on invalid options; retrying will not help.
			return nil, errors.Join(ErrFailedToParseURL, err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			lastErr = err
			continue
		}
		return client, nil
	}

	return nil, errors.Join(ErrConnectionFailed, lastErr)
}

// Healthcheck returns a function that pings the primary.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrHealthcheckFailed
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Shutdown returns a function that disconnects the client.
func Shutdown(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Disconnect(ctx)
	}
}
