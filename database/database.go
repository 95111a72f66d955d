package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"heartline/config"
	"heartline/metrics"
)

const (
	Users         = "users"
	Profiles      = "profiles"
	Conversations = "conversations"
	Messages      = "messages"
)

var ErrNotConfigured = errors.New("mongodb uri is not configured")

type connectFunc func(ctx context.Context, uri string) (*mongo.Client, error)

// DB is the process-wide MongoDB handle. The connection is opened on first
// use; concurrent first callers share a single connection attempt and a
// failed attempt is retried by the next caller.
type DB struct {
	uri     string
	name    string
	timeout time.Duration
	log     *zap.Logger
	connect connectFunc

	group  singleflight.Group
	mu     sync.RWMutex
	client *mongo.Client
}

func New(cfg config.MongoConfig, log *zap.Logger) *DB {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DB{
		uri:     cfg.URI,
		name:    cfg.Database,
		timeout: timeout,
		log:     log,
		connect: dial,
	}
}

func dial(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Client returns the connected client, connecting if needed. The caller's
// context bounds only its own wait, not the shared attempt.
func (d *DB) Client(ctx context.Context) (*mongo.Client, error) {
	d.mu.RLock()
	client := d.client
	d.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	ch := d.group.DoChan("connect", func() (interface{}, error) {
		d.mu.RLock()
		existing := d.client
		d.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		if d.uri == "" {
			return nil, ErrNotConfigured
		}

		connectCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		c, err := d.connect(connectCtx, d.uri)
		if err != nil {
			metrics.DBConnectAttempts.WithLabelValues("failure").Inc()
			d.log.Error("mongodb connection failed", zap.Error(err))
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}

		metrics.DBConnectAttempts.WithLabelValues("success").Inc()
		d.mu.Lock()
		d.client = c
		d.mu.Unlock()
		d.log.Info("connected to mongodb", zap.String("database", d.name))
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Client), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *DB) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := d.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(d.name), nil
}

func (d *DB) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := d.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Disconnect closes the client if one was opened. A later call to Client
// opens a fresh connection.
func (d *DB) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	client := d.client
	d.client = nil
	d.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	d.log.Info("disconnected from mongodb")
	return nil
}
