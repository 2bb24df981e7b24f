package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type mongoRepository struct {
	users *mongo.Collection
}

// NewMongoRepository returns a Repository backed by the "users" collection
// and makes sure the unique email index exists.
func NewMongoRepository(ctx context.Context, db *mongo.Database) (Repository, error) {
	users := db.Collection(usersCollection)

	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "verificationCode", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_verification_code"),
		},
		{
			Keys:    bson.D{{Key: "resetTokenHash", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_reset_token_hash"),
		},
	})
	if err != nil {
		return nil, err
	}

	return &mongoRepository{users: users}, nil
}

func (r *mongoRepository) CreateUser(ctx context.Context, user *User) error {
	_, err := r.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	return err
}

func (r *mongoRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoRepository) GetUserByVerificationCode(ctx context.Context, code string, now time.Time) (*User, error) {
	return r.findOne(ctx, bson.M{
		"verificationCode":          code,
		"verificationCodeExpiresAt": bson.M{"$gt": now},
	})
}

func (r *mongoRepository) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	return r.findOne(ctx, bson.M{
		"resetTokenHash":      tokenHash,
		"resetTokenExpiresAt": bson.M{"$gt": now},
	})
}

// SaveUser replaces the whole document, so cleared nullable fields disappear.
func (r *mongoRepository) SaveUser(ctx context.Context, user *User) error {
	res, err := r.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
