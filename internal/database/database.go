package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/elskow/authflow/internal/config"
)

const connectTimeout = 10 * time.Second

// Manager owns the connection for whichever driver is configured. For the
// memory driver it holds nothing and every call is a no-op.
type Manager struct {
	db     *gorm.DB
	mongo  *mongo.Client
	config *config.DatabaseConfig
	logger *zap.Logger
}

func NewManager(cfg *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		config: cfg,
		logger: logger,
	}

	switch cfg.Driver {
	case "", config.DriverPostgres:
		db, err := newDatabase(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		m.db = db

	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		m.mongo = client

	case config.DriverMemory:
		logger.Warn("using in-memory user store; data is lost on restart")

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	return m, nil
}

func (m *Manager) Driver() string {
	if m.config.Driver == "" {
		return config.DriverPostgres
	}
	return m.config.Driver
}

func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Mongo returns the configured database, or nil when not using mongo.
func (m *Manager) Mongo() *mongo.Database {
	if m.mongo == nil {
		return nil
	}
	return m.mongo.Database(m.config.MongoDatabase)
}

func (m *Manager) Ping(ctx context.Context) error {
	switch {
	case m.db != nil:
		sqlDB, err := m.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	case m.mongo != nil:
		return m.mongo.Ping(ctx, readpref.Primary())
	default:
		return nil
	}
}

func (m *Manager) Close(ctx context.Context) error {
	var errs []error
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	if m.mongo != nil {
		errs = append(errs, m.mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}

func newDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			gormWriter{log: log.Sugar().Named("gorm")},
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}

	return gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
}

// gormWriter routes gorm's printf-style output into zap.
type gormWriter struct {
	log *zap.SugaredLogger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Infof(format, args...)
}
