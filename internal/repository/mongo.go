package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/atlaslabs/atlas-auth/internal/domain"
)

// usersCollection matches the collection name the pre-existing deployments
// already use.
const usersCollection = "authuser"

var _ UserRepository = (*MongoUserRepo)(nil)

// MongoUserRepo implements UserRepository on a MongoDB collection.
type MongoUserRepo struct {
	col *mongo.Collection
}

// NewMongoUserRepo binds the repository to the users collection.
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{col: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index. The index, not the
// application-level existence check, is what actually prevents two
// concurrent registers from storing the same email.
func (r *MongoUserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (r *MongoUserRepo) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	res, err := r.col.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return domain.User{}, domain.ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		user.ID = id
	}
	return user, nil
}
