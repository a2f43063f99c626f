// Package services contains the gateway's business logic: credential
// verification, namespace key derivation, ingestion, listing and the
// transcode pipeline.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/blobgate/internal/common"
	"github.com/dmitrijs2005/blobgate/internal/logging"
	"github.com/dmitrijs2005/blobgate/internal/server/auth"
	"github.com/dmitrijs2005/blobgate/internal/server/config"
	"github.com/dmitrijs2005/blobgate/internal/server/models"
	"github.com/dmitrijs2005/blobgate/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is what a caller presents: either an email/password pair or a
// token previously issued by Login. A non-empty Token wins.
type Credentials struct {
	Email    string
	Password string
	Token    string
}

// Authenticator is the gate every namespace operation blocks on. It returns
// the authenticated email or an error matching common.ErrorUnauthorized.
type Authenticator interface {
	Authenticate(ctx context.Context, c Credentials) (string, error)
}

// CredentialService registers identities and verifies credentials against
// the identity store.
type CredentialService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	passwordCost                int
	logger                      logging.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *CredentialService {
	cost := cfg.PasswordCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		passwordCost:                cost,
		logger:                      logger.With("module", "credentials"),
	}
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	if strings.ContainsAny(email, `/\`) {
		return fmt.Errorf("%w: email must not contain path separators", common.ErrorValidation)
	}
	return nil
}

// Register stores a new identity with a bcrypt hash of password.
// A taken email yields common.ErrorAlreadyExists.
func (s *CredentialService) Register(ctx context.Context, email, password string) (*models.Identity, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password is too long", common.ErrorValidation)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	repo := s.repomanager.Identities(s.db)
	identity, err := repo.Create(ctx, &models.Identity{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "Error creating identity", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	s.logger.Info(ctx, "Identity registered", "email", email)
	return identity, nil
}

// Verify checks password against the stored hash. Unknown emails and wrong
// passwords both yield common.ErrorUnauthorized.
func (s *CredentialService) Verify(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return common.ErrorUnauthorized
	}

	repo := s.repomanager.Identities(s.db)
	identity, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same amount of work as a real comparison
			_ = bcrypt.CompareHashAndPassword(s.getDummyHash(), []byte(password))
			s.logger.Warn(ctx, "Verification failed: unknown identity", "email", email)
			return common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "Error loading identity", "error", err)
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	if err := bcrypt.CompareHashAndPassword(identity.PasswordHash, []byte(password)); err != nil {
		s.logger.Warn(ctx, "Verification failed: password mismatch", "email", email)
		return common.ErrorUnauthorized
	}

	return nil
}

// Login verifies the credentials and issues an access token.
func (s *CredentialService) Login(ctx context.Context, email, password string) (string, error) {
	if err := s.Verify(ctx, email, password); err != nil {
		return "", err
	}

	token, err := auth.GenerateToken(email, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "Error generating access token", "error", err)
		return "", common.ErrorInternal
	}
	return token, nil
}

func (s *CredentialService) Authenticate(ctx context.Context, c Credentials) (string, error) {
	if c.Token != "" {
		email, err := auth.GetEmailFromToken(c.Token, s.jwtSecret)
		if err != nil {
			s.logger.Warn(ctx, "Token rejected", "error", err)
			return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
		}
		return email, nil
	}

	if err := s.Verify(ctx, c.Email, c.Password); err != nil {
		return "", err
	}
	return c.Email, nil
}

func (s *CredentialService) getDummyHash() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("blobgate-dummy-password"), s.passwordCost)
		if err != nil {
			h = []byte{}
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
