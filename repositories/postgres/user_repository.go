package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/leaddesk/models"
	"github.com/upb/leaddesk/repositories"
	"go.uber.org/zap"
)

const userColumns = `id, email, first_name, last_name, role, client_id, created_at, updated_at`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// ListByClientID lists the users attached to a client, oldest first
func (r *UserRepository) ListByClientID(ctx context.Context, clientID uuid.UUID) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE client_id = $1 ORDER BY created_at ASC`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	r.logger.Debug("client users listed",
		zap.String("client_id", clientID.String()),
		zap.Int("count", len(users)))
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var clientID uuid.NullUUID
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&clientID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if clientID.Valid {
		cid := clientID.UUID
		user.ClientID = &cid
	}
	return user, nil
}
