package repository

import (
	"context"
	"errors"

	"github.com/miorah/storefront/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrCartExists   = errors.New("cart already exists for user")
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// CartRepository persists one cart document per user. There is no
// partial update: writes replace the whole items array.
type CartRepository interface {
	// GetCart returns the user's cart or ErrCartNotFound. Callers that
	// treat "no cart yet" as a normal state must check for the sentinel.
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// CreateCart inserts a new cart. Returns ErrCartExists when the user
	// already has one (backed by the unique user_id index).
	CreateCart(ctx context.Context, userID string, items []domain.LineItem) (*domain.Cart, error)
	// ReplaceCart swaps the full items array, creating the cart when
	// absent. Last write wins, there is no version check.
	ReplaceCart(ctx context.Context, userID string, items []domain.LineItem) (*domain.Cart, error)
	// DeleteCart removes the cart document. ErrCartNotFound when absent.
	DeleteCart(ctx context.Context, userID string) error
}

// User is a stored account. PasswordHash is a bcrypt digest.
type User struct {
	ID           string `json:"_id" bson:"_id"`
	Name         string `json:"name" bson:"name"`
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"-" bson:"password_hash"`
	IsAdmin      bool   `json:"isAdmin" bson:"is_admin"`
}

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// Create inserts a new account. Returns ErrEmailTaken when the email
	// is already registered.
	Create(ctx context.Context, user *User) error
}
