package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"bookshelf-service/internal/model"
)

type EventPublisher interface {
	PublishUserRegistered(user *model.User) error
	PublishUserDeleted(user *model.User) error
	PublishBookCreated(book *model.Book, authorUUID string) error
	PublishBookDeleted(book *model.Book) error
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (EventPublisher, error) {
	nc, err := nats.Connect(natsURL)

	if err != nil {
		return nil, err
	}

	return &NatsPublisher{conn: nc}, nil
}

type UserRegisteredEvent struct {
	EventType string     `json:"event_type"`
	UserUUID  string     `json:"user_uuid"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

type UserDeletedEvent struct {
	EventType string    `json:"event_type"`
	UserUUID  string    `json:"user_uuid"`
	Username  string    `json:"username"`
	DeletedAt time.Time `json:"deleted_at"`
}

type BookCreatedEvent struct {
	EventType  string    `json:"event_type"`
	BookUUID   string    `json:"book_uuid"`
	Title      string    `json:"title"`
	AuthorUUID string    `json:"author_uuid"`
	CreatedAt  time.Time `json:"created_at"`
}

type BookDeletedEvent struct {
	EventType string    `json:"event_type"`
	BookUUID  string    `json:"book_uuid"`
	Title     string    `json:"title"`
	DeletedAt time.Time `json:"deleted_at"`
}

func (p *NatsPublisher) PublishUserRegistered(user *model.User) error {
	return p.publish("user.registered", UserRegisteredEvent{
		EventType: "user.registered",
		UserUUID:  user.UUID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})
}

func (p *NatsPublisher) PublishUserDeleted(user *model.User) error {
	return p.publish("user.deleted", UserDeletedEvent{
		EventType: "user.deleted",
		UserUUID:  user.UUID,
		Username:  user.Username,
		DeletedAt: time.Now(),
	})
}

func (p *NatsPublisher) PublishBookCreated(book *model.Book, authorUUID string) error {
	return p.publish("book.created", BookCreatedEvent{
		EventType:  "book.created",
		BookUUID:   book.UUID,
		Title:      book.Title,
		AuthorUUID: authorUUID,
		CreatedAt:  book.CreatedAt,
	})
}

func (p *NatsPublisher) PublishBookDeleted(book *model.Book) error {
	return p.publish("book.deleted", BookDeletedEvent{
		EventType: "book.deleted",
		BookUUID:  book.UUID,
		Title:     book.Title,
		DeletedAt: time.Now(),
	})
}

func (p *NatsPublisher) publish(subject string, event any) error {
	eventJSON, err := json.Marshal(event)

	if err != nil {
		slog.Error("marshalling event", "subject", subject, "error", err)
		return err
	}

	if err := p.conn.Publish(subject, eventJSON); err != nil {
		slog.Error("publishing to NATS", "subject", subject, "error", err)
		return err
	}

	slog.Debug("published event", "subject", subject)

	return nil
}

// NoopPublisher is used when no NATS server is configured.
type NoopPublisher struct{}

func NewNoopPublisher() EventPublisher { return NoopPublisher{} }

func (NoopPublisher) PublishUserRegistered(*model.User) error { return nil }

func (NoopPublisher) PublishUserDeleted(*model.User) error { return nil }

func (NoopPublisher) PublishBookCreated(*model.Book, string) error { return nil }

func (NoopPublisher) PublishBookDeleted(*model.Book) error { return nil }
