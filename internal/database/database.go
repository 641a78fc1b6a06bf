package database

import (
	"context"
	"fmt"
	"time"

	"subscription-api/internal/config"
	"subscription-api/internal/models"
	"subscription-api/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB          *gorm.DB
	RedisClient *redis.Client
)

// InitDatabase initializes database connection
func InitDatabase(cfg *config.Config) error {
	if err := initPostgres(cfg); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Redis is optional; without it the status cache and reconcile lock are disabled
	if cfg.RedisURL != "" {
		if err := initRedis(cfg.RedisURL); err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
	} else {
		logging.Warnf("REDIS_URL not set, status cache and reconcile lock disabled")
	}

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// initPostgres initializes PostgreSQL connection
func initPostgres(cfg *config.Config) error {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.Mode)),
		TranslateError: true,
	}

	var err error
	if dsn := cfg.DatabaseURL; dsn == "" {
		// Fallback to SQLite for development
		logging.Infof("Database URL not set, using SQLite for development")
		DB, err = OpenSQLite("subscription-api.db", gormConfig)
	} else {
		DB, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Infof("Database connected successfully")
	return nil
}

// OpenSQLite opens a SQLite database. A single connection is kept so that
// in-memory databases are shared by every query.
func OpenSQLite(path string, gormConfig *gorm.Config) (*gorm.DB, error) {
	if gormConfig == nil {
		gormConfig = &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		}
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func gormLogLevel(mode string) logger.LogLevel {
	if mode == "release" {
		return logger.Warn
	}
	return logger.Info
}

// initRedis initializes Redis connection
func initRedis(redisURL string) error {
	logging.Infof("Connecting to Redis: %s", maskRedisURL(redisURL))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	RedisClient = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("Redis connected successfully")
	return nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

// Migrate creates the subscriptions table and the partial unique index
// that allows a single active row per user.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Subscription{}); err != nil {
		return err
	}
	// PostgreSQL and SQLite both support partial indexes with this syntax.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_subscriptions_user_active
		ON subscriptions (user_id) WHERE is_active`).Error
}

// GetDB returns database instance
func GetDB() *gorm.DB {
	return DB
}

// GetRedis returns Redis client, nil when Redis is not configured
func GetRedis() *redis.Client {
	return RedisClient
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
