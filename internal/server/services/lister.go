package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/blobgate/internal/common"
	"github.com/dmitrijs2005/blobgate/internal/logging"
	"github.com/dmitrijs2005/blobgate/internal/server/blobstore"
)

type ListService struct {
	auth   Authenticator
	store  blobstore.Store
	logger logging.Logger
}

func NewListService(a Authenticator, store blobstore.Store, logger logging.Logger) *ListService {
	return &ListService{auth: a, store: store, logger: logger.With("module", "lister")}
}

// ListOwned returns every key in the caller's namespace. An empty namespace
// is an empty, non-nil slice.
func (s *ListService) ListOwned(ctx context.Context, c Credentials) ([]string, error) {
	email, err := s.auth.Authenticate(ctx, c)
	if err != nil {
		return nil, err
	}

	keys, err := s.store.List(ctx, email+"/")
	if err != nil {
		s.logger.Error(ctx, "Error listing namespace", "email", email, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}
