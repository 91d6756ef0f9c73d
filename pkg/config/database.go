package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectAttempts = 5
	connectTimeout  = 10 * time.Second
)

// DB holds the notification store (MongoDB) and the user directory (PostgreSQL)
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	log      *logrus.Entry
}

// InitDB connects both stores, retrying each a few times so the service can
// start alongside its databases.
func InitDB(cfg *Config, log *logrus.Entry) (*DB, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI environment variable not set")
	}
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL environment variable not set")
	}

	start := time.Now()
	postgresDB, err := withRetry(log.WithField("store", "postgresql"), func() (*gorm.DB, error) {
		return openPostgres(cfg.PostgresURL)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	log.WithField("duration", time.Since(start)).Info("PostgreSQL connected")

	start = time.Now()
	mongoClient, err := withRetry(log.WithField("store", "mongodb"), func() (*mongo.Client, error) {
		return openMongo(cfg.MongoURI)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	log.WithField("duration", time.Since(start)).Info("MongoDB connected")

	return &DB{Postgres: postgresDB, Mongo: mongoClient, log: log}, nil
}

// withRetry calls connect up to connectAttempts times with a linear backoff
func withRetry[T any](log *logrus.Entry, connect func() (T, error)) (T, error) {
	var (
		conn T
		err  error
	)
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		conn, err = connect()
		if err == nil {
			return conn, nil
		}
		if attempt < connectAttempts {
			log.WithError(err).WithField("attempt", attempt).Warn("Connection failed, retrying")
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return conn, fmt.Errorf("after %d attempts: %w", connectAttempts, err)
}

func openPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func openMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(connectTimeout).
		SetMaxPoolSize(50))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// PingPostgres checks the PostgreSQL connection
func (db *DB) PingPostgres(ctx context.Context) error {
	sqlDB, err := db.Postgres.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PingMongo checks the MongoDB primary
func (db *DB) PingMongo(ctx context.Context) error {
	return db.Mongo.Ping(ctx, nil)
}

// CloseDB closes both connections, logging rather than returning failures
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		if sqlDB, err := db.Postgres.DB(); err != nil {
			db.log.WithError(err).Error("Error getting SQL DB from GORM")
		} else if err := sqlDB.Close(); err != nil {
			db.log.WithError(err).Error("Error closing PostgreSQL connection")
		} else {
			db.log.Info("PostgreSQL connection closed")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.log.WithError(err).Error("Error closing MongoDB connection")
		} else {
			db.log.Info("MongoDB connection closed")
		}
	}
}
