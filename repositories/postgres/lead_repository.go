package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/leaddesk/models"
	"github.com/upb/leaddesk/repositories"
	"go.uber.org/zap"
)

// pgForeignKeyViolation is the SQLSTATE for foreign_key_violation
const pgForeignKeyViolation = "23503"

// LeadRepository implements the repositories.LeadRepository interface
type LeadRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *DB, logger *zap.Logger) repositories.LeadRepository {
	return &LeadRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new lead and refreshes its timestamps from the database
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO leads (id, name, email, message, client_id, meta, additional_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		lead.ID,
		lead.Name,
		lead.Email,
		lead.Message,
		lead.ClientID,
		lead.Meta,
		lead.AdditionalFields,
		lead.CreatedAt,
		lead.UpdatedAt,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("failed to create lead: %w", repositories.ErrInvalidReference)
		}
		return fmt.Errorf("failed to create lead: %w", err)
	}

	r.logger.Debug("lead created",
		zap.String("id", lead.ID.String()),
		zap.String("client_id", lead.ClientID.String()))
	return nil
}
