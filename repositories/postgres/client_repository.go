package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/leaddesk/models"
	"github.com/upb/leaddesk/repositories"
	"go.uber.org/zap"
)

// ClientRepository implements the repositories.ClientRepository interface
type ClientRepository struct {
	db     *DB
	users  repositories.UserRepository
	logger *zap.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *DB, logger *zap.Logger) repositories.ClientRepository {
	return &ClientRepository{
		db:     db,
		users:  NewUserRepository(db, logger),
		logger: logger,
	}
}

// getByID retrieves a client row without its users
func (r *ClientRepository) getByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM clients
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	client := &models.Client{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.Name,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("client %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return client, nil
}

// GetByIDWithUsers retrieves a client and the users attached to it
func (r *ClientRepository) GetByIDWithUsers(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	client, err := r.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	users, err := r.users.ListByClientID(ctx, id)
	if err != nil {
		return nil, err
	}

	client.Users = users
	return client, nil
}
