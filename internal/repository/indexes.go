package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique indexes both collections rely on.
// Uniqueness of usernames, titles and public uuids is enforced here, at
// the store level; concurrent duplicate writes race to these indexes
// and the loser surfaces as a duplicate-key error.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
	}

	_, err := db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique("uuid"),
		unique("username"),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("books").Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique("uuid"),
		unique("title"),
	})

	return err
}
