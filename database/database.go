package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"udaan_go/config"
)

// Connections holds the live clients behind the record store.
type Connections struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// Open builds the record store selected by cfg.StoreDriver.
// Redis is connected opportunistically for every driver; it is required only by the redis driver.
func Open(cfg *config.Config) (Store, *Connections, error) {
	conns := &Connections{Redis: connectRedis(cfg)}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		logrus.Warn("Using in-memory record store; data is lost on restart")
		return NewMemoryStore(), conns, nil
	case config.StoreRedis:
		if conns.Redis == nil {
			return nil, conns, errors.New("redis store selected but Redis is unreachable")
		}
		return NewRedisStore(conns.Redis, "udaan"), conns, nil
	case config.StoreMySQL:
		db, err := connectDatabase(cfg)
		if err != nil {
			return nil, conns, err
		}
		conns.DB = db
		if !cfg.SkipMigrate {
			if err := AutoMigrate(db); err != nil {
				return nil, conns, err
			}
		}
		return NewGormStore(db), conns, nil
	default:
		return nil, conns, errors.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// connectDatabase opens MySQL, retrying transient failures.
func connectDatabase(cfg *config.Config) (*gorm.DB, error) {
	var gormLogger logger.Interface
	if cfg.AppEnv == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	} else {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	var (
		db      *gorm.DB
		err     error
		lastErr error
	)
	for attempt := 1; attempt <= 8; attempt++ {
		db, err = gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{Logger: gormLogger})
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		logrus.WithError(err).WithField("attempt", attempt).Warn("Database connect attempt failed")
		time.Sleep(time.Duration(attempt*attempt) * 300 * time.Millisecond)
	}
	if lastErr != nil {
		return nil, errors.Wrap(lastErr, "connecting to database after retries")
	}

	logrus.Info("Database connected successfully")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "getting database instance")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(55 * time.Minute)

	return db, nil
}

// AutoMigrate creates the records table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&StoredRecord{}); err != nil {
		return errors.Wrap(err, "auto migration failed")
	}
	logrus.Info("Database migration completed successfully")
	return nil
}

// connectRedis returns nil when Redis cannot be reached.
func connectRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.WithError(err).Warn("Redis connection failed; continuing without Redis")
		_ = client.Close()
		return nil
	}

	logrus.Info("Redis connected successfully")
	return client
}

// Close releases every open connection.
func (c *Connections) Close() {
	if c == nil {
		return
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logrus.WithError(err).Warn("Error closing database connection")
			}
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing Redis connection")
		}
	}
}
