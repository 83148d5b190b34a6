package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain/repositories"
)

// Config holds MongoDB connection settings
type Config struct {
	URI      string
	Database string
}

// NewConfigFromEnv reads MONGODB_URI and MONGODB_DATABASE
func NewConfigFromEnv() Config {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017" // Default for development
	}
	dbName := os.Getenv("MONGODB_DATABASE")
	if dbName == "" {
		dbName = "lingualoop"
	}
	return Config{URI: uri, Database: dbName}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.URI == "" {
		return errors.New("mongodb uri is required")
	}
	if c.Database == "" {
		return errors.New("mongodb database is required")
	}
	return nil
}

// Client wraps the MongoDB client and database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient creates a new MongoDB client connection
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Successfully connected to MongoDB", zap.String("database", cfg.Database))

	return &Client{
		Client:   client,
		Database: client.Database(cfg.Database),
		logger:   logger,
	}, nil
}

// EnsureIndexes creates the unique indexes the repositories rely on
func (c *Client) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, c.Database)
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		lessonsCollection:   {{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique}},
		languagesCollection: {{Keys: bson.D{{Key: "tag", Value: 1}}, Options: unique}},
		voicesCollection: {
			{Keys: bson.D{{Key: "short_name", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "language_id", Value: 1}}},
		},
		phrasesCollection: {{Keys: bson.D{{Key: "lesson_id", Value: 1}, {Key: "_id", Value: 1}}}},
		translationsCollection: {
			{Keys: bson.D{{Key: "phrase_id", Value: 1}, {Key: "language_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "lesson_id", Value: 1}, {Key: "language_id", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Store returns the repositories backed by this database
func (c *Client) Store() repositories.Store {
	return NewStore(c.Database)
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
