package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"referrals/internal/platform/config"
	"referrals/internal/platform/kafka/producer"
	"referrals/internal/platform/postgres"
	"referrals/internal/platform/ratelimit"
	platformredis "referrals/internal/platform/redis"
	"referrals/internal/referral/cache"
	"referrals/internal/referral/events"
	"referrals/internal/referral/service"
	"referrals/internal/referral/store"
)

// infra holds the process's external resources. Optional pieces are nil
// when unconfigured: no DATABASE_URL runs in memory, no REDIS_URL skips the
// leaderboard cache, no KAFKA_BROKERS logs events instead of producing them.
type infra struct {
	storeKind   string
	store       service.Store
	tx          service.StoreTx
	outbox      events.OutboxStore
	publisher   events.Publisher
	leaderboard *cache.RedisLeaderboard
	rateStore   ratelimit.Store
	rateMemory  *ratelimit.InMemoryStore

	db       *sql.DB
	redis    *platformredis.Client
	producer *producer.Producer
}

func openInfra(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}
	ok := false
	defer func() {
		if !ok {
			in.Close()
		}
	}()

	if cfg.Database.URL == "" {
		mem := store.NewInMemoryStore()
		in.storeKind, in.store, in.tx, in.outbox = "memory", mem, mem, mem
		log.Warn("DATABASE_URL not set; using in-memory store")
	} else {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.db = db
		if cfg.Database.Migrate {
			if err := store.Migrate(ctx, db); err != nil {
				return nil, err
			}
		}
		pg := store.NewPostgres(db)
		in.storeKind, in.store, in.outbox = "postgres", pg, pg
		in.tx = store.NewPostgresTxRunner(db, cfg.Referral.TxTimeout)
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		in.redis = redisClient
		in.leaderboard = cache.NewRedisLeaderboard(redisClient.Client, cache.WithTTL(cfg.Referral.LeaderboardTTL))
		in.rateStore = ratelimit.NewRedisStore(redisClient.Client)
	} else {
		in.rateMemory = ratelimit.NewInMemoryStore()
		in.rateStore = in.rateMemory
	}

	if len(cfg.Kafka.Brokers) == 0 {
		in.publisher = events.NewLogPublisher(log)
	} else {
		p, err := producer.New(producer.Config{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
			Linger:   5 * time.Millisecond,
		}, producer.WithLogger(log))
		if err != nil {
			return nil, err
		}
		in.producer = p
		// Brokers with auto-create enabled make this a no-op.
		if err := p.EnsureTopic(ctx, cfg.Kafka.Topic, 3, 1); err != nil {
			log.Warn("could not ensure kafka topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		in.publisher = events.NewKafkaPublisher(p, cfg.Kafka.Topic)
	}

	ok = true
	return in, nil
}

// Health reports "ok" or the failure per configured dependency.
func (in *infra) Health(ctx context.Context) map[string]string {
	checks := map[string]string{"store": "ok"}
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			checks["store"] = err.Error()
		}
	}
	if in.redis != nil {
		checks["redis"] = "ok"
		if err := in.redis.Health(ctx); err != nil {
			checks["redis"] = err.Error()
		}
	}
	if in.producer != nil {
		checks["kafka"] = "ok"
		if err := in.producer.Health(ctx); err != nil {
			checks["kafka"] = err.Error()
		}
	}
	return checks
}

func (in *infra) Close() {
	if in.producer != nil {
		in.producer.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}
