package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bookshelf-service/internal/events"
	"bookshelf-service/internal/model"
	"bookshelf-service/internal/repository"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrTitleTaken   = errors.New("title already exists")
)

// AuthorView is the public identity of a book's owner.
type AuthorView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// BookView joins a book with its author's public identity. ID is the
// public uuid; the internal ids stay internal.
type BookView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Author    AuthorView `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BookUpdateView is the trimmed response of a title update.
type BookUpdateView struct {
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type BookService interface {
	Create(ctx context.Context, title string, author primitive.ObjectID) (*BookView, error)
	ListAll(ctx context.Context) ([]BookView, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]BookView, error)
	GetAny(ctx context.Context, uuid string) (*BookView, error)
	GetOwned(ctx context.Context, owner primitive.ObjectID, uuid string) (*BookView, error)
	UpdateAny(ctx context.Context, uuid string, title string) (*BookUpdateView, error)
	UpdateOwned(ctx context.Context, owner primitive.ObjectID, uuid string, title string) (*BookUpdateView, error)
	DeleteAny(ctx context.Context, uuid string) error
	DeleteOwned(ctx context.Context, owner primitive.ObjectID, uuid string) error
}

type bookService struct {
	bookRepo  repository.BookRepository
	userRepo  repository.UserRepository
	publisher events.EventPublisher
}

func NewBookService(bookRepo repository.BookRepository, userRepo repository.UserRepository, pub events.EventPublisher) BookService {
	return &bookService{bookRepo: bookRepo, userRepo: userRepo, publisher: pub}
}

func (s *bookService) Create(ctx context.Context, title string, author primitive.ObjectID) (*BookView, error) {
	book := &model.Book{
		UUID:   model.NewBookUUID(),
		Title:  strings.TrimSpace(title),
		Author: author,
	}

	newID, err := s.bookRepo.Create(ctx, book)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}

	book.ID = newID

	owner, err := s.userRepo.FindByID(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("resolving book author: %w", err)
	}

	go s.publisher.PublishBookCreated(book, owner.UUID)

	return bookView(book, owner), nil
}

func (s *bookService) ListAll(ctx context.Context) ([]BookView, error) {
	books, err := s.bookRepo.FindAll(ctx)

	if err != nil {
		return nil, err
	}

	return s.joinAuthors(ctx, books)
}

func (s *bookService) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]BookView, error) {
	books, err := s.bookRepo.FindByAuthor(ctx, owner)

	if err != nil {
		return nil, err
	}

	return s.joinAuthors(ctx, books)
}

func (s *bookService) GetAny(ctx context.Context, uuid string) (*BookView, error) {
	book, err := s.bookRepo.FindByUUID(ctx, normalizeBookUUID(uuid))
	if err != nil {
		return nil, asBookNotFound(err)
	}

	return s.viewWithAuthor(ctx, book)
}

func (s *bookService) GetOwned(ctx context.Context, owner primitive.ObjectID, uuid string) (*BookView, error) {
	book, err := s.bookRepo.FindByUUIDAndAuthor(ctx, normalizeBookUUID(uuid), owner)
	if err != nil {
		// A book owned by someone else reads as missing on purpose.
		return nil, asBookNotFound(err)
	}

	return s.viewWithAuthor(ctx, book)
}

func (s *bookService) UpdateAny(ctx context.Context, uuid string, title string) (*BookUpdateView, error) {
	book, err := s.bookRepo.FindByUUID(ctx, normalizeBookUUID(uuid))
	if err != nil {
		return nil, asBookNotFound(err)
	}

	return s.applyTitle(ctx, book, title)
}

func (s *bookService) UpdateOwned(ctx context.Context, owner primitive.ObjectID, uuid string, title string) (*BookUpdateView, error) {
	book, err := s.bookRepo.FindByUUIDAndAuthor(ctx, normalizeBookUUID(uuid), owner)
	if err != nil {
		return nil, asBookNotFound(err)
	}

	return s.applyTitle(ctx, book, title)
}

func (s *bookService) DeleteAny(ctx context.Context, uuid string) error {
	book, err := s.bookRepo.FindByUUID(ctx, normalizeBookUUID(uuid))
	if err != nil {
		return asBookNotFound(err)
	}

	return s.delete(ctx, book)
}

func (s *bookService) DeleteOwned(ctx context.Context, owner primitive.ObjectID, uuid string) error {
	book, err := s.bookRepo.FindByUUIDAndAuthor(ctx, normalizeBookUUID(uuid), owner)
	if err != nil {
		return asBookNotFound(err)
	}

	return s.delete(ctx, book)
}

func (s *bookService) delete(ctx context.Context, book *model.Book) error {
	if err := s.bookRepo.Delete(ctx, book.ID); err != nil {
		return err
	}

	go s.publisher.PublishBookDeleted(book)

	return nil
}

func (s *bookService) applyTitle(ctx context.Context, book *model.Book, title string) (*BookUpdateView, error) {
	if title != "" {
		book.Title = strings.TrimSpace(title)
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}

	return &BookUpdateView{Title: book.Title, UpdatedAt: book.UpdatedAt}, nil
}

func (s *bookService) viewWithAuthor(ctx context.Context, book *model.Book) (*BookView, error) {
	owner, err := s.userRepo.FindByID(ctx, book.Author)

	if err != nil {
		return nil, fmt.Errorf("resolving book author: %w", err)
	}

	return bookView(book, owner), nil
}

// joinAuthors resolves each distinct author once per call; the relation
// is computed, never stored on the user document.
func (s *bookService) joinAuthors(ctx context.Context, books []model.Book) ([]BookView, error) {
	authors := make(map[primitive.ObjectID]*model.User)
	views := make([]BookView, 0, len(books))

	for i := range books {
		book := &books[i]
		owner, ok := authors[book.Author]
		if !ok {
			var err error
			owner, err = s.userRepo.FindByID(ctx, book.Author)
			if err != nil {
				return nil, fmt.Errorf("resolving book author: %w", err)
			}
			authors[book.Author] = owner
		}
		views = append(views, *bookView(book, owner))
	}

	return views, nil
}

func asBookNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrBookNotFound
	}

	return err
}

// normalizeBookUUID mirrors normalizeUserUUID for book identifiers.
func normalizeBookUUID(uuid string) string {
	if strings.HasPrefix(uuid, "book-") {
		return uuid
	}

	return "book-" + uuid
}

func bookView(book *model.Book, owner *model.User) *BookView {
	return &BookView{
		ID:        book.UUID,
		Title:     book.Title,
		Author:    AuthorView{ID: owner.UUID, Username: owner.Username},
		CreatedAt: book.CreatedAt,
		UpdatedAt: book.UpdatedAt,
	}
}
