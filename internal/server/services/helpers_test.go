package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/blobgate/internal/common"
	"github.com/dmitrijs2005/blobgate/internal/dbx"
	"github.com/dmitrijs2005/blobgate/internal/filex"
	"github.com/dmitrijs2005/blobgate/internal/logging"
	"github.com/dmitrijs2005/blobgate/internal/server/blobstore"
	"github.com/dmitrijs2005/blobgate/internal/server/config"
	"github.com/dmitrijs2005/blobgate/internal/server/encoder"
	"github.com/dmitrijs2005/blobgate/internal/server/models"
	"github.com/dmitrijs2005/blobgate/internal/server/repositories/identities"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- identity store ---

type fakeIdentitiesRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Identity

	createErr error
	getErr    error
}

func newFakeIdentitiesRepo() *fakeIdentitiesRepo {
	return &fakeIdentitiesRepo{byID: make(map[string]*models.Identity)}
}

func (f *fakeIdentitiesRepo) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byID[identity.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	stored := *identity
	stored.ID = strconv.Itoa(len(f.byID) + 1)
	stored.CreatedAt = time.Now()
	f.byID[identity.Email] = &stored
	return &stored, nil
}

func (f *fakeIdentitiesRepo) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	identity, ok := f.byID[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return identity, nil
}

type fakeRepoManager struct {
	identities *fakeIdentitiesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Identities(db dbx.DBTX) identities.Repository { return m.identities }

func newCredentialService(t *testing.T, repo *fakeIdentitiesRepo) *CredentialService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		PasswordCost:                bcrypt.MinCost,
	}
	return NewCredentialService(nil, &fakeRepoManager{identities: repo}, cfg, logging.Nop{})
}

// --- authenticator ---

type staticAuth struct {
	email string
	err   error
	calls atomic.Int32
}

func (a *staticAuth) Authenticate(ctx context.Context, c Credentials) (string, error) {
	a.calls.Add(1)
	if a.err != nil {
		return "", a.err
	}
	return a.email, nil
}

// --- blob store ---

type faultyStore struct {
	blobstore.Store
	putErr  error
	getErr  error
	listErr error
}

func (s *faultyStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if s.putErr != nil {
		_, _ = io.Copy(io.Discard, body)
		return s.putErr
	}
	return s.Store.Put(ctx, key, body, contentType)
}

func (s *faultyStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx, key)
}

func (s *faultyStore) List(ctx context.Context, prefix string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.List(ctx, prefix)
}

func allKeys(t *testing.T, s blobstore.Store) []string {
	t.Helper()
	keys, err := s.List(context.Background(), "")
	require.NoError(t, err)
	return keys
}

func readObject(t *testing.T, s blobstore.Store, key string) string {
	t.Helper()
	rc, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

// --- encoder ---

var testProfile = encoder.Profile{VideoCodec: "libx264", AudioCodec: "aac", Container: "mp4", Quality: 23, Preset: "medium"}

type fakeEncoder struct {
	profile encoder.Profile
	encode  func(ctx context.Context, in, out string) error
}

func (f *fakeEncoder) Encode(ctx context.Context, in, out string) error {
	return f.encode(ctx, in, out)
}

func (f *fakeEncoder) Profile() encoder.Profile {
	return f.profile
}

// copyEncoder writes "encoded:" followed by the input to the output.
func copyEncoder() *fakeEncoder {
	return &fakeEncoder{profile: testProfile, encode: func(ctx context.Context, in, out string) error {
		b, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		return os.WriteFile(out, append([]byte("encoded:"), b...), 0o600)
	}}
}

func failingEncoder() *fakeEncoder {
	return &fakeEncoder{profile: testProfile, encode: func(ctx context.Context, in, out string) error {
		return errors.New("exit status 1")
	}}
}

// --- scratch ---

func newTestScratch(t *testing.T) *filex.Scratch {
	t.Helper()
	s, err := filex.NewScratch(t.TempDir())
	require.NoError(t, err)
	return s
}

func requireScratchEmpty(t *testing.T, s *filex.Scratch) {
	t.Helper()
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Empty(t, names, "scratch files left behind")
}
