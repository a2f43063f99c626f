package identities

import (
	"context"

	"github.com/dmitrijs2005/blobgate/internal/server/models"
)

// Repository persists identities. Create reports common.ErrorAlreadyExists
// for a taken email; GetByEmail reports common.ErrorNotFound for an unknown one.
type Repository interface {
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
}
