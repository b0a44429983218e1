package service_test

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bookshelf-service/internal/model"
)

// duplicateKeyErr mimics the store's unique-index violation so the
// services exercise the same detection path as against a live server.
func duplicateKeyErr() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
}

type fakeUserRepo struct {
	users map[primitive.ObjectID]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) (primitive.ObjectID, error) {
	for _, u := range r.users {
		if u.Username == user.Username || u.UUID == user.UUID {
			return primitive.NilObjectID, duplicateKeyErr()
		}
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	id := primitive.NewObjectID()
	stored := *user
	stored.ID = id
	r.users[id] = stored

	return id, nil
}

func (r *fakeUserRepo) FindByUsernameWithPassword(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}

	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) FindByUUID(_ context.Context, uuid string) (*model.User, error) {
	for _, u := range r.users {
		if u.UUID == uuid {
			found := u
			found.Password = ""
			return &found, nil
		}
	}

	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	found := u
	found.Password = ""

	return &found, nil
}

func (r *fakeUserRepo) FindAll(_ context.Context) ([]model.User, error) {
	users := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		u.Password = ""
		users = append(users, u)
	}

	return users, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	for id, u := range r.users {
		if id != user.ID && u.Username == user.Username {
			return duplicateKeyErr()
		}
	}

	stored, ok := r.users[user.ID]
	if !ok {
		return mongo.ErrNoDocuments
	}

	user.UpdatedAt = time.Now().UTC()
	stored.Username = user.Username
	stored.Role = user.Role
	stored.UpdatedAt = user.UpdatedAt
	if user.Password != "" {
		stored.Password = user.Password
	}
	r.users[user.ID] = stored

	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(r.users, id)

	return nil
}

func (r *fakeUserRepo) byUsername(username string) (model.User, bool) {
	for _, u := range r.users {
		if u.Username == username {
			return u, true
		}
	}

	return model.User{}, false
}

type fakeBookRepo struct {
	books map[primitive.ObjectID]model.Book
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: make(map[primitive.ObjectID]model.Book)}
}

func (r *fakeBookRepo) Create(_ context.Context, book *model.Book) (primitive.ObjectID, error) {
	for _, b := range r.books {
		if b.Title == book.Title || b.UUID == book.UUID {
			return primitive.NilObjectID, duplicateKeyErr()
		}
	}

	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	id := primitive.NewObjectID()
	stored := *book
	stored.ID = id
	r.books[id] = stored

	return id, nil
}

func (r *fakeBookRepo) FindByUUID(_ context.Context, uuid string) (*model.Book, error) {
	for _, b := range r.books {
		if b.UUID == uuid {
			found := b
			return &found, nil
		}
	}

	return nil, mongo.ErrNoDocuments
}

func (r *fakeBookRepo) FindByUUIDAndAuthor(_ context.Context, uuid string, author primitive.ObjectID) (*model.Book, error) {
	for _, b := range r.books {
		if b.UUID == uuid && b.Author == author {
			found := b
			return &found, nil
		}
	}

	return nil, mongo.ErrNoDocuments
}

func (r *fakeBookRepo) FindAll(_ context.Context) ([]model.Book, error) {
	books := make([]model.Book, 0, len(r.books))
	for _, b := range r.books {
		books = append(books, b)
	}

	return books, nil
}

func (r *fakeBookRepo) FindByAuthor(_ context.Context, author primitive.ObjectID) ([]model.Book, error) {
	var books []model.Book
	for _, b := range r.books {
		if b.Author == author {
			books = append(books, b)
		}
	}

	return books, nil
}

func (r *fakeBookRepo) Update(_ context.Context, book *model.Book) error {
	for id, b := range r.books {
		if id != book.ID && b.Title == book.Title {
			return duplicateKeyErr()
		}
	}

	stored, ok := r.books[book.ID]
	if !ok {
		return mongo.ErrNoDocuments
	}

	book.UpdatedAt = time.Now().UTC()
	stored.Title = book.Title
	stored.UpdatedAt = book.UpdatedAt
	r.books[book.ID] = stored

	return nil
}

func (r *fakeBookRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(r.books, id)

	return nil
}
