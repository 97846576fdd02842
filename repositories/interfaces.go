package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/leaddesk/models"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInvalidReference is returned when a write violates a foreign key
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction, so repositories
	// called with it run their statements inside the transaction
	Context() context.Context
}

// ClientRepository reads client records
type ClientRepository interface {
	// GetByIDWithUsers retrieves a client together with its associated users.
	// Returns ErrNotFound when the client does not exist.
	GetByIDWithUsers(ctx context.Context, id uuid.UUID) (*models.Client, error)
}

// UserRepository reads staff accounts
type UserRepository interface {
	// ListByClientID lists the users attached to a client
	ListByClientID(ctx context.Context, clientID uuid.UUID) ([]*models.User, error)
}

// LeadRepository handles lead persistence
type LeadRepository interface {
	// Create inserts a new lead. Fails when the client reference is invalid.
	Create(ctx context.Context, lead *models.Lead) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Clients ClientRepository
	Users   UserRepository
	Leads   LeadRepository
}
