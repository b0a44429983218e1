package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bookshelf-service/internal/model"
)

type BookRepository interface {
	Create(ctx context.Context, book *model.Book) (primitive.ObjectID, error)
	FindByUUID(ctx context.Context, uuid string) (*model.Book, error)
	// FindByUUIDAndAuthor scopes the lookup to one owner; a book owned
	// by somebody else is indistinguishable from a missing one.
	FindByUUIDAndAuthor(ctx context.Context, uuid string, author primitive.ObjectID) (*model.Book, error)
	FindAll(ctx context.Context) ([]model.Book, error)
	FindByAuthor(ctx context.Context, author primitive.ObjectID) ([]model.Book, error)
	Update(ctx context.Context, book *model.Book) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoBookRepository struct {
	col *mongo.Collection
}

func NewMongoBookRepository(db *mongo.Database) BookRepository {
	return &mongoBookRepository{col: db.Collection("books")}
}

func (r *mongoBookRepository) Create(ctx context.Context, book *model.Book) (primitive.ObjectID, error) {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, book)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, mongo.ErrNilDocument
	}

	return id, nil
}

func (r *mongoBookRepository) FindByUUID(ctx context.Context, uuid string) (*model.Book, error) {
	var book model.Book
	err := r.col.FindOne(ctx, bson.M{"uuid": uuid}).Decode(&book)
	if err != nil {
		return nil, err
	}

	return &book, nil
}

func (r *mongoBookRepository) FindByUUIDAndAuthor(ctx context.Context, uuid string, author primitive.ObjectID) (*model.Book, error) {
	var book model.Book
	err := r.col.FindOne(ctx, bson.M{"uuid": uuid, "author": author}).Decode(&book)
	if err != nil {
		return nil, err
	}

	return &book, nil
}

func (r *mongoBookRepository) FindAll(ctx context.Context) ([]model.Book, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoBookRepository) FindByAuthor(ctx context.Context, author primitive.ObjectID) ([]model.Book, error) {
	return r.find(ctx, bson.M{"author": author})
}

func (r *mongoBookRepository) find(ctx context.Context, filter bson.M) ([]model.Book, error) {
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var books []model.Book
	if err := cursor.All(ctx, &books); err != nil {
		return nil, err
	}

	return books, nil
}

func (r *mongoBookRepository) Update(ctx context.Context, book *model.Book) error {
	book.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"title":     book.Title,
		"updatedAt": book.UpdatedAt,
	}

	_, err := r.col.UpdateByID(ctx, book.ID, bson.M{"$set": set})

	return err
}

func (r *mongoBookRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})

	return err
}
