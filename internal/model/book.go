package model

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Book struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UUID      string             `bson:"uuid" json:"uuid"`
	Title     string             `bson:"title" json:"title"`
	Author    primitive.ObjectID `bson:"author" json:"-"` // internal id of the owning user
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewBookUUID returns a public book identifier in its canonical form.
func NewBookUUID() string {
	return "book-" + uuid.NewString()
}
