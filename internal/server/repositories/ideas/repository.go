// Package ideas stores voice notes in PostgreSQL.
package ideas

import (
	"context"

	"github.com/dmitrijs2005/echolater/internal/server/models"
)

// Repository persists ideas. Ownership checks belong to the caller; lookups
// are by primary key only.
type Repository interface {
	// Create inserts idea and fills ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, idea *models.Idea) (*models.Idea, error)
	// GetByID returns common.ErrorNotFound for an unknown id.
	GetByID(ctx context.Context, id string) (*models.Idea, error)
	// GetByIDForUpdate is GetByID holding a row lock until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Idea, error)
	// List returns one page of userID's ideas, newest first, and the total
	// number of rows matching filter.
	List(ctx context.Context, userID string, filter models.IdeaFilter) ([]*models.Idea, int, error)
	// ListAll returns every idea of userID, newest first.
	ListAll(ctx context.Context, userID string) ([]*models.Idea, error)
	// Update overwrites the mutable fields and refreshes UpdatedAt.
	Update(ctx context.Context, idea *models.Idea) error
	Delete(ctx context.Context, id string) error
}
