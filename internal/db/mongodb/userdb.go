package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todoapi/internal/logger"
	"github.com/patric-chuzhbe/todoapi/internal/models"
)

const UserCollection = "users"

type collectionGetter interface {
	Collection(ctx context.Context, name string) (*mongo.Collection, error)
}

type userDocument struct {
	ID      primitive.ObjectID `bson:"id"`
	Name    string             `bson:"name"`
	Created time.Time          `bson:"created"`
}

// The stored _id is exposed as id.
var userProjection = bson.D{
	{Key: "_id", Value: 0},
	{Key: "id", Value: "$_id"},
	{Key: "name", Value: 1},
	{Key: "created", Value: 1},
}

// UserDB stores users in the users collection.
type UserDB struct {
	gateway collectionGetter
}

func NewUserDB(gateway collectionGetter) *UserDB {
	return &UserDB{gateway: gateway}
}

// CreateUser inserts a user and returns its generated id.
func (db *UserDB) CreateUser(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", models.NewUserDBError(models.RequiredError("name"))
	}

	users, err := db.gateway.Collection(ctx, UserCollection)
	if err != nil {
		return "", err
	}

	result, err := users.InsertOne(ctx, bson.D{
		{Key: "name", Value: name},
		{Key: "created", Value: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf(
			"in internal/db/mongodb/userdb.go/CreateUser(): error while `users.InsertOne()` calling: %w",
			err,
		)
	}

	return insertedIDString(result.InsertedID), nil
}

// GetUser returns the user with the given id, or nil when there is none.
func (db *UserDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	users, err := db.gateway.Collection(ctx, UserCollection)
	if err != nil {
		return nil, err
	}

	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		logger.Log.Infoln("invalid user id", zap.String("userID", userID), zap.Error(err))
		return nil, models.NewUserDBError(models.MsgNoDataFound)
	}

	cursor, err := users.Find(
		ctx,
		bson.D{{Key: "_id", Value: id}},
		options.Find().SetProjection(userProjection),
	)
	if err != nil {
		logger.Log.Infoln("Error calling the `users.Find()`", zap.Error(err))
		return nil, models.NewUserDBError(models.MsgNoDataFound)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		logger.Log.Infoln("Error calling the `cursor.All()`", zap.Error(err))
		return nil, models.NewUserDBError(models.MsgNoDataFound)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	return &models.User{
		ID:      docs[0].ID.Hex(),
		Name:    docs[0].Name,
		Created: docs[0].Created,
	}, nil
}

func insertedIDString(insertedID interface{}) string {
	if id, ok := insertedID.(primitive.ObjectID); ok {
		return id.Hex()
	}

	return fmt.Sprint(insertedID)
}
