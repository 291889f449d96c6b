// Package mongodb implements store.Store on MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/bughive/bughive-server/internal/store"
)

// Collection names
const (
	CollectionUsers = "users"
	CollectionBugs  = "bugs"
	CollectionTags  = "tags"
)

const defaultDatabase = "bughive"

// Config configures the connection.
type Config struct {
	URI string
	// Database overrides the database named in the URI.
	Database string
	// Transactions runs every Update in a multi-document transaction. It
	// needs a replica set; with it off, each write stands alone.
	Transactions bool
}

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	client       *mongo.Client
	database     *mongo.Database
	transactions bool
	logger       *slog.Logger
}

var _ store.Store = (*MongoDB)(nil)

// Open connects, pings the primary and ensures indexes exist.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*MongoDB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = databaseFromURI(cfg.URI)
	}

	m := &MongoDB{
		client:       client,
		database:     client.Database(dbName),
		transactions: cfg.Transactions,
		logger:       logger,
	}

	if err := m.initialize(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("Connected to MongoDB", "database", dbName, "transactions", cfg.Transactions)
	return m, nil
}

// databaseFromURI returns the database named in the URI path.
// mongodb://localhost:27017/bughive?authSource=admin -> bughive
func databaseFromURI(uri string) string {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}

// initialize creates the unique and lookup indexes.
func (m *MongoDB) initialize(ctx context.Context) error {
	if err := m.createIndexes(ctx, CollectionUsers, []mongo.IndexModel{
		{Keys: bson.D{{Key: "usernameKey", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexUsername)},
		{Keys: bson.D{{Key: "emailKey", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexEmail)},
	}); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionBugs, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create bugs indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionTags, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "titleKey", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexTagTitle)},
		{Keys: bson.D{{Key: "bugs", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create tags indexes: %w", err)
	}

	return nil
}

func (m *MongoDB) createIndexes(ctx context.Context, collectionName string, indexes []mongo.IndexModel) error {
	_, err := m.database.Collection(collectionName).Indexes().CreateMany(ctx, indexes)
	return err
}

// Close closes the MongoDB connection
func (m *MongoDB) Close() error {
	m.logger.Info("Closing MongoDB connection")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Ping checks if the database connection is alive
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Drop removes the database. Used by tests.
func (m *MongoDB) Drop(ctx context.Context) error {
	return m.database.Drop(ctx)
}

// View implements store.Store. Reads are not isolated from concurrent
// writers.
func (m *MongoDB) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(m.newTx(nil))
}

// Update implements store.Store. With transactions enabled, fn runs in a
// session transaction that the driver retries on transient errors.
func (m *MongoDB) Update(ctx context.Context, fn func(store.Tx) error) error {
	if !m.transactions {
		return fn(m.newTx(nil))
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(mongo.SessionContext) (any, error) {
		return nil, fn(m.newTx(session))
	})
	return err
}

type tx struct {
	users *users
	bugs  *bugs
	tags  *tags
}

func (m *MongoDB) newTx(session mongo.Session) *tx {
	return &tx{
		users: &users{coll{c: m.database.Collection(CollectionUsers), session: session}},
		bugs:  &bugs{coll{c: m.database.Collection(CollectionBugs), session: session}},
		tags:  &tags{coll{c: m.database.Collection(CollectionTags), session: session}},
	}
}

func (t *tx) Users() store.Users { return t.users }
func (t *tx) Bugs() store.Bugs   { return t.bugs }
func (t *tx) Tags() store.Tags   { return t.tags }
