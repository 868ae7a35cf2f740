package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the backing connections. SQL is always set; a nil Mongo or Redis
// means the service runs without that store.
type DB struct {
	SQL   *gorm.DB
	Mongo *mongo.Client
	Redis *redis.Client

	log zerolog.Logger
}

// InitDB opens every connection configured in cfg.
func InitDB(ctx context.Context, cfg *Config, log zerolog.Logger) (*DB, error) {
	db := &DB{log: log}

	if cfg.PostgresURL != "" {
		pg, err := initPostgres(cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db.SQL = pg
		log.Info().Msg("connected to PostgreSQL")
	} else {
		lite, err := initSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite at %s: %w", cfg.SQLitePath, err)
		}
		db.SQL = lite
		log.Warn().Str("path", cfg.SQLitePath).Msg("POSTGRES_URL not set, using SQLite")
	}

	if cfg.MongoURI != "" {
		client, err := initMongo(ctx, cfg.MongoURI)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db.Mongo = client
		log.Info().Msg("connected to MongoDB")
	}

	if cfg.RedisURL != "" {
		client, err := initRedis(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		db.Redis = client
		log.Info().Msg("connected to Redis")
	}

	return db, nil
}

func initPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func initRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Close closes every open connection.
func (db *DB) Close() {
	if db.SQL != nil {
		if sqlDB, err := db.SQL.DB(); err != nil {
			db.log.Error().Err(err).Msg("get sql.DB from gorm")
		} else if err := sqlDB.Close(); err != nil {
			db.log.Error().Err(err).Msg("close SQL database")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.log.Error().Err(err).Msg("close MongoDB")
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			db.log.Error().Err(err).Msg("close Redis")
		}
	}
}

// Ping checks every open connection and returns the failures by store name.
func (db *DB) Ping(ctx context.Context) map[string]error {
	failed := make(map[string]error)
	if db.SQL != nil {
		sqlDB, err := db.SQL.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			failed["sql"] = err
		}
	}
	if db.Mongo != nil {
		if err := db.Mongo.Ping(ctx, nil); err != nil {
			failed["mongo"] = err
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Ping(ctx).Err(); err != nil {
			failed["redis"] = err
		}
	}
	return failed
}
