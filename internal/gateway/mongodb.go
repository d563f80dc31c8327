// internal/gateway/mongodb.go
package gateway

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client     *mongo.Client
	Posts      *mongo.Collection
	Comments   *mongo.Collection
	Profiles   *mongo.Collection
	Identities *mongo.Collection

	db *mongo.Database
}

func NewMongoDB(uri, dbName string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	log.Println("Successfully connected to MongoDB!")

	db := client.Database(dbName)
	return &MongoDB{
		Client:     client,
		Posts:      db.Collection("posts"),
		Comments:   db.Collection("comments"),
		Profiles:   db.Collection("profiles"),
		Identities: db.Collection("identities"),
		db:         db,
	}, nil
}

// Database exposes the underlying handle for GridFS bucket creation.
func (m *MongoDB) Database() *mongo.Database {
	return m.db
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on. Safe to
// call on every startup; CreateMany is a no-op for existing indexes.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	postIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "authorId", Value: 1}},
		},
	}
	if _, err := m.Posts.Indexes().CreateMany(ctx, postIndexes); err != nil {
		return fmt.Errorf("failed to create post indexes: %v", err)
	}

	commentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "postId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "authorId", Value: 1}},
		},
	}
	if _, err := m.Comments.Indexes().CreateMany(ctx, commentIndexes); err != nil {
		return fmt.Errorf("failed to create comment indexes: %v", err)
	}

	// Unique, case-insensitive username (collation strength 2 folds
	// case). The registration pre-check races with concurrent sign-ups;
	// this index is what actually settles the race.
	usernameIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	}
	if _, err := m.Profiles.Indexes().CreateOne(ctx, usernameIndex); err != nil {
		return fmt.Errorf("failed to create profile indexes: %v", err)
	}

	emailIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.Identities.Indexes().CreateOne(ctx, emailIndex); err != nil {
		return fmt.Errorf("failed to create identity indexes: %v", err)
	}

	return nil
}
