package backend

import (
	"context"
	"fmt"
	"log/slog"

	"cartera/internal/amqp"
	"cartera/internal/events"
	"cartera/internal/events/kafka"
	"cartera/internal/storage/file"
	"cartera/internal/storage/memory"
	"cartera/internal/storage/postgres"
	"cartera/internal/storage/redis"
	"cartera/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case FileBackend:
		return f.createFileBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case RedisBackend:
		return f.createRedisBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir, "seeded_keys", len(store.Keys()))

	return &BackendResult{KV: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	store, err := file.New(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file backend: %w", err)
	}

	f.logger.Info("Initialized file backend", "data_directory", config.DataDirectory)

	return &BackendResult{KV: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{KV: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := postgres.NewRepository(ctx, config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
	}

	f.logger.Info("Initialized PostgreSQL backend")

	return &BackendResult{KV: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store := redis.New(redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	f.logger.Info("Initialized Redis backend", "addr", config.RedisAddr, "db", config.RedisDB)

	return &BackendResult{KV: store, Cleanup: store.Close}, nil
}

// CreateEvents implements Factory.CreateEvents. A broker that cannot be
// reached degrades to a no-op publisher for the server; the worker asks for a
// consumer and gets the error instead.
func (f *DefaultFactory) CreateEvents(ctx context.Context, config Config, withConsumer bool) (*EventsResult, error) {
	switch config.Events {
	case "", NoEvents:
		f.logger.Info("Change events disabled")
		return &EventsResult{Publisher: events.Nop{}}, nil

	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			if withConsumer {
				return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
			}
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			return &EventsResult{Publisher: events.Nop{}}, nil
		}
		f.logger.Info("Initialized AMQP client",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		res := &EventsResult{Publisher: client, Cleanup: client.Close}
		if withConsumer {
			res.Consumer = client
		}
		return res, nil

	case KafkaEvents:
		pub := kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic)
		res := &EventsResult{Publisher: pub, Cleanup: pub.Close}
		if withConsumer {
			cons := kafka.NewConsumer(config.KafkaBrokers, config.KafkaTopic, config.KafkaGroupID)
			res.Consumer = cons
			res.Cleanup = func() error {
				perr := pub.Close()
				if cerr := cons.Close(); cerr != nil {
					return cerr
				}
				return perr
			}
		}
		f.logger.Info("Initialized Kafka transport",
			"brokers", config.KafkaBrokers,
			"topic", config.KafkaTopic)
		return res, nil

	default:
		return nil, fmt.Errorf("unsupported events type: %s", config.Events)
	}
}
