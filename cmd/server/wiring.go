package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"extid/internal/externalid/ports"
	dynamostore "extid/internal/externalid/store/dynamo"
	storememory "extid/internal/externalid/store/memory"
	redisstore "extid/internal/externalid/store/redis"
	"extid/internal/externalid/store/sqlstore"
	"extid/internal/platform/config"
	"extid/internal/platform/dynamo"
	"extid/internal/platform/redis"
	"extid/internal/platform/sqldb"
	httptransport "extid/internal/transport/http"
	kafkaaudit "extid/pkg/platform/audit/store/kafka"
	pgaudit "extid/pkg/platform/audit/store/postgres"
	"extid/pkg/platform/audit/worker"
)

const auditQueueCapacity = 4096

// storeBackend is the selected identifier store plus what it needs released.
type storeBackend struct {
	store   ports.Store
	db      *sql.DB
	checks  map[string]httptransport.HealthCheck
	closers map[string]func() error
}

func (b *storeBackend) Close(log *slog.Logger) {
	for name, closeFn := range b.closers {
		closeQuietly(log, name, closeFn)
	}
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*storeBackend, error) {
	b := &storeBackend{
		checks:  map[string]httptransport.HealthCheck{},
		closers: map[string]func() error{},
	}

	switch cfg.Store.Backend {
	case config.StoreMemory:
		b.store = storememory.NewInMemoryStore()

	case config.StorePostgres, config.StoreSQLite:
		var (
			db      *sql.DB
			dialect sqlstore.Dialect
			err     error
		)
		if cfg.Store.Backend == config.StorePostgres {
			db, err = sqldb.OpenPostgres(ctx, cfg.Store.DatabaseURL)
			dialect = sqlstore.Postgres
		} else {
			db, err = sqldb.OpenSQLite(ctx, cfg.Store.SQLitePath)
			dialect = sqlstore.SQLite
		}
		if err != nil {
			return nil, err
		}
		store := sqlstore.New(db, dialect)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		b.store = store
		b.db = db
		b.checks["database"] = db.PingContext
		b.closers["database"] = db.Close

	case config.StoreDynamoDB:
		client, err := dynamo.New(ctx, cfg.Store.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		store := dynamostore.New(client, cfg.Store.DynamoTable)
		// A custom endpoint means DynamoDB Local, where nothing provisions the table.
		if cfg.Store.DynamoEndpoint != "" {
			if err := store.CreateTable(ctx); err != nil {
				return nil, err
			}
		}
		b.store = store

	case config.StoreRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.store = redisstore.New(client.Client)
		b.checks["redis"] = client.Health
		b.closers["redis"] = client.Close

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	log.Info("identifier store ready", "backend", cfg.Store.Backend)
	return b, nil
}

// auditSink is the asynchronous audit pipeline. worker is nil when no
// durable sink is configured and audit events only reach the log.
type auditSink struct {
	worker  *worker.Worker
	closeFn func()
}

func (s *auditSink) Close(*slog.Logger) {
	if s.closeFn != nil {
		s.closeFn()
	}
}

func openAuditSink(ctx context.Context, cfg config.Config, backend *storeBackend, log *slog.Logger) (*auditSink, error) {
	switch {
	case len(cfg.Kafka.Brokers) > 0:
		client, err := kafkaaudit.NewClient(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		log.Info("audit events publish to kafka", "topic", cfg.Kafka.Topic)
		return &auditSink{
			worker:  worker.NewWorker(kafkaaudit.New(client, cfg.Kafka.Topic), auditQueueCapacity, log),
			closeFn: client.Close,
		}, nil

	case cfg.Store.Backend == config.StorePostgres:
		store := pgaudit.New(backend.db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		log.Info("audit events persist to postgres")
		return &auditSink{worker: worker.NewWorker(store, auditQueueCapacity, log)}, nil

	default:
		log.Info("no audit sink configured; audit events are logged only")
		return &auditSink{}, nil
	}
}
