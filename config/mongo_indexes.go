package config

import (
	"context"
	"errors"
	"time"

	mongorepo "github.com/yoockh/bookbot/internal/repositories/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureMongoIndexes creates the chat_logs indexes in dbName and returns the database.
func EnsureMongoIndexes(dbName string) (*mongo.Database, error) {
	if MongoClient == nil {
		return nil, errors.New("MongoClient is nil; call InitMongo() first")
	}
	if dbName == "" {
		dbName = "bookbot"
	}
	db := MongoClient.Database(dbName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logs := db.Collection(mongorepo.ChatLogCollection)
	_, err := logs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// history lookups: newest first per user
		{
			Keys:    bson.D{{Key: "username", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_user_created"),
		},
		{
			Keys:    bson.D{{Key: "request_id", Value: 1}},
			Options: options.Index().SetName("by_request_id"),
		},
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}
