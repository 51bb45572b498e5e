package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents an account that can authenticate against the service.
// The email is stored exactly as the caller provided it (surrounding
// whitespace aside) and is unique within the collection.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"password_hash"`
	Name         string        `bson:"name,omitempty"`
	IsActive     bool          `bson:"is_active"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}
