package main

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sunrun/credithub/internal/config"
	"sunrun/credithub/internal/model"
	"sunrun/credithub/internal/repository"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// stores holds the opened backends. accounts and codes are nil when no store
// backend is configured; txr is nil for backends without transactions;
// tickets is nil when refund tickets are disabled.
type stores struct {
	accounts repository.AccountRepository
	codes    repository.RedeemCodeRepository
	txr      repository.Transactor
	tickets  repository.StateStore
	closers  []func() error
}

func (s *stores) configured() bool {
	return s.accounts != nil && s.codes != nil
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openStores(cfg *config.Config, logger *zap.Logger) (_ *stores, err error) {
	s := &stores{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	var redisClient *redis.Client
	getRedis := func() (*redis.Client, error) {
		if redisClient != nil {
			return redisClient, nil
		}
		client, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = client
		s.closers = append(s.closers, client.Close)
		return client, nil
	}

	bonus := cfg.Ledger.InitialBonus
	switch cfg.Store.Backend {
	case "postgres":
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, sqlDB.Close)

		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("failed to auto-migrate: %w", err)
			}
			logger.Info("database migration completed")
		}
		s.accounts = repository.NewPGAccountRepository(db, bonus)
		s.codes = repository.NewPGRedeemCodeRepository(db)
		s.txr = repository.NewPGTransactor(db, bonus)
		logger.Info("using PostgreSQL credit store")
	case "redis":
		client, err := getRedis()
		if err != nil {
			return nil, err
		}
		prefix := cfg.Database.Redis.KeyPrefix
		s.accounts = repository.NewRedisAccountRepository(client, prefix, bonus)
		s.codes = repository.NewRedisRedeemCodeRepository(client, prefix)
		logger.Info("using Redis credit store", zap.String("key_prefix", prefix))
	case "memory":
		s.accounts = repository.NewMemoryAccountRepository(bonus)
		s.codes = repository.NewMemoryRedeemCodeRepository()
		logger.Warn("using in-memory credit store; balances are lost on restart")
	default:
		logger.Warn("no credit store configured; ledger requests will fail with 503")
	}

	if !cfg.Ledger.RefundTickets.Enabled {
		return s, nil
	}
	switch cfg.State.Backend {
	case "redis":
		client, err := getRedis()
		if err != nil {
			return nil, err
		}
		s.tickets = repository.NewRedisStateStore(client, cfg.Database.Redis.KeyPrefix)
		logger.Info("using Redis state store")
	case "memory":
		s.tickets = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	}
	return s, nil
}
