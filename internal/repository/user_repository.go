package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookshelf-service/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (primitive.ObjectID, error)
	// FindByUsernameWithPassword is the single lookup that includes the
	// password hash. Everything else reads through the default
	// projection, which strips it.
	FindByUsernameWithPassword(ctx context.Context, username string) (*model.User, error)
	FindByUUID(ctx context.Context, uuid string) (*model.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindAll(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{col: db.Collection("users")}
}

// withoutPassword is the default projection for user reads.
var withoutPassword = bson.M{"password": 0}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) (primitive.ObjectID, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, mongo.ErrNilDocument
	}

	return id, nil
}

func (r *mongoUserRepository) FindByUsernameWithPassword(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.col.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *mongoUserRepository) FindByUUID(ctx context.Context, uuid string) (*model.User, error) {
	var user model.User
	opts := options.FindOne().SetProjection(withoutPassword)
	err := r.col.FindOne(ctx, bson.M{"uuid": uuid}, opts).Decode(&user)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var user model.User
	opts := options.FindOne().SetProjection(withoutPassword)
	err := r.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *mongoUserRepository) FindAll(ctx context.Context) ([]model.User, error) {
	opts := options.Find().SetProjection(withoutPassword)
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *mongoUserRepository) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"username":  user.Username,
		"role":      user.Role,
		"updatedAt": user.UpdatedAt,
	}
	// The password field is absent from read projections, so a non-empty
	// value here is always a freshly produced hash.
	if user.Password != "" {
		set["password"] = user.Password
	}

	_, err := r.col.UpdateByID(ctx, user.ID, bson.M{"$set": set})

	return err
}

func (r *mongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})

	return err
}
