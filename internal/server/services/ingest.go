package services

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/blobgate/internal/common"
	"github.com/dmitrijs2005/blobgate/internal/logging"
	"github.com/dmitrijs2005/blobgate/internal/server/blobstore"
)

const defaultContentType = "application/octet-stream"

// IngestService streams uploads into the caller's namespace.
type IngestService struct {
	auth   Authenticator
	store  blobstore.Store
	keys   *KeyDeriver
	logger logging.Logger
}

func NewIngestService(a Authenticator, store blobstore.Store, keys *KeyDeriver, logger logging.Logger) *IngestService {
	return &IngestService{auth: a, store: store, keys: keys, logger: logger.With("module", "ingest")}
}

// Ingest stores body under a fresh key in the caller's namespace and returns
// that key. Nothing is written unless the credentials check out.
func (s *IngestService) Ingest(ctx context.Context, c Credentials, body io.Reader, filename, contentType string) (string, error) {
	if body == nil {
		return "", fmt.Errorf("%w: no file uploaded", common.ErrorValidation)
	}

	email, err := s.auth.Authenticate(ctx, c)
	if err != nil {
		return "", err
	}

	key, err := s.keys.Derive(email, filename)
	if err != nil {
		return "", err
	}

	if contentType == "" {
		contentType = defaultContentType
	}

	counter := &countingReader{r: body}
	if err := s.store.Put(ctx, key, counter, contentType); err != nil {
		s.logger.Error(ctx, "Error storing upload", "key", key, "error", err)
		return "", fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	s.logger.Info(ctx, "Upload stored", "key", key, "bytes", counter.n, "content_type", contentType)
	return key, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
