package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/miorah/storefront/internal/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

// NewMongoCartRepository wraps the "carts" collection of db.
func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{collection: db.Collection("carts")}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m *mongoCartRepository) CreateCart(ctx context.Context, userID string, items []domain.LineItem) (*domain.Cart, error) {
	now := time.Now()
	cart := &domain.Cart{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    userID,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := m.collection.InsertOne(ctx, cart)
	if err != nil {
		// The unique index on user_id turns a duplicate create into a
		// write error rather than a second document.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrCartExists
		}
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return cart, nil
}

func (m *mongoCartRepository) ReplaceCart(ctx context.Context, userID string, items []domain.LineItem) (*domain.Cart, error) {
	now := time.Now()

	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set": bson.M{
			"items":      items,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID().Hex(),
			"user_id":    userID,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var cart domain.Cart
	if err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&cart); err != nil {
		return nil, fmt.Errorf("failed to replace cart: %w", err)
	}

	return &cart, nil
}

func (m *mongoCartRepository) DeleteCart(ctx context.Context, userID string) error {
	filter := bson.M{"user_id": userID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

// CreateCartIndexes sets up the unique user_id index that backs the
// one-cart-per-user invariant.
func CreateCartIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := db.Collection("carts").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	return nil
}
