// package repositories provides MongoDB persistence for all model types.
//
// Each repository wraps one collection and exposes CRUD operations plus the
// domain-specific queries its handlers need. Creation timestamps are derived
// from the ObjectID rather than stored as a separate field.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/veritasx01/audion-backend/internal/shared"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	songCollection     = "song"
	playlistCollection = "playlist"
	userCollection     = "user"
)

// Listing queries are paged in fixed-size chunks.
const pageSize = 50

// Database wraps a connected MongoDB database handle.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
	logger *log.Logger
}

// Connect establishes a MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, cfg shared.DatabaseConfig, logger *log.Logger) (*Database, error) {
	if cfg.URL == "" || cfg.Name == "" {
		return nil, fmt.Errorf("%w: database url and name", shared.ErrMissingConfig)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("connected to mongodb", "database", cfg.Name)
	return &Database{
		client: client,
		db:     client.Database(cfg.Name),
		logger: logger.With("service", "db"),
	}, nil
}

// Close disconnects the underlying client.
func (d *Database) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *Database) collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// objectIDFromHex converts a hex string ID into an ObjectID, mapping invalid
// input to [shared.ErrInvalidArgument].
func objectIDFromHex(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", shared.ErrInvalidArgument, id)
	}
	return oid, nil
}
