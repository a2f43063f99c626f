package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/blobgate/internal/common"
	"github.com/dmitrijs2005/blobgate/internal/filex"
	"github.com/dmitrijs2005/blobgate/internal/logging"
	"github.com/dmitrijs2005/blobgate/internal/server/blobstore"
	"github.com/dmitrijs2005/blobgate/internal/server/encoder"
	"golang.org/x/sync/semaphore"
)

// TranscodeStage is a step of one transcode run. A failed run is reported
// with the stage it failed in.
type TranscodeStage string

const (
	StageAuthorizing TranscodeStage = "authorizing"
	StageFetching    TranscodeStage = "fetching"
	StageStaged      TranscodeStage = "staged"
	StageEncoding    TranscodeStage = "encoding"
	StageRestaged    TranscodeStage = "restaged"
	StageStoring     TranscodeStage = "storing"
	StageDone        TranscodeStage = "done"
)

// TranscodeService fetches an object from the caller's namespace, runs it
// through the encoder and stores the result next to it. Every run owns its
// scratch files and removes them before returning, whatever the outcome.
type TranscodeService struct {
	auth    Authenticator
	store   blobstore.Store
	keys    *KeyDeriver
	scratch *filex.Scratch
	encoder encoder.Encoder
	slots   *semaphore.Weighted
	metrics *TranscodeMetrics
	logger  logging.Logger
}

func NewTranscodeService(
	a Authenticator,
	store blobstore.Store,
	keys *KeyDeriver,
	scratch *filex.Scratch,
	enc encoder.Encoder,
	maxConcurrent int,
	metrics *TranscodeMetrics,
	logger logging.Logger,
) *TranscodeService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &TranscodeService{
		auth:    a,
		store:   store,
		keys:    keys,
		scratch: scratch,
		encoder: enc,
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
		metrics: metrics,
		logger:  logger.With("module", "transcode"),
	}
}

// transcodeRun is the state of a single Transcode call.
type transcodeRun struct {
	stage    TranscodeStage
	email    string
	source   string
	releases []*filex.ScratchFile
}

func (r *transcodeRun) own(f *filex.ScratchFile) {
	r.releases = append(r.releases, f)
}

// Transcode encodes <email>/<sourceFilename> with the configured profile and
// returns the key of the stored result.
func (s *TranscodeService) Transcode(ctx context.Context, c Credentials, sourceFilename string) (key string, err error) {
	run := &transcodeRun{stage: StageAuthorizing}

	defer func() {
		s.cleanup(ctx, run)

		if s.metrics != nil {
			s.metrics.runs.WithLabelValues(string(run.stage)).Inc()
		}
		switch {
		case err == nil:
		case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorNotFound):
			s.logger.Warn(ctx, "Transcode rejected", "stage", run.stage, "email", run.email, "error", err)
		default:
			s.logger.Error(ctx, "Transcode failed", "stage", run.stage, "email", run.email, "source", run.source, "error", err)
		}
	}()

	if err := validateSourceFilename(sourceFilename); err != nil {
		return "", err
	}

	email, err := s.auth.Authenticate(ctx, c)
	if err != nil {
		return "", err
	}
	run.email = email

	s.advance(ctx, run, StageFetching)
	run.source = email + "/" + sourceFilename

	src, err := s.store.Get(ctx, run.source)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", fmt.Errorf("%w: %s", common.ErrorNotFound, sourceFilename)
		}
		return "", fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	defer src.Close()

	s.advance(ctx, run, StageStaged)
	in, err := s.scratch.Create("in", path.Ext(sourceFilename))
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorIO, err)
	}
	run.own(in)

	if _, err := io.Copy(in, src); err != nil {
		return "", fmt.Errorf("%w: staging input: %w", common.ErrorIO, err)
	}
	if err := in.Close(); err != nil {
		return "", fmt.Errorf("%w: staging input: %w", common.ErrorIO, err)
	}
	_ = src.Close()

	profile := s.encoder.Profile()
	out, err := s.scratch.Reserve("out", profile.Extension())
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorIO, err)
	}
	run.own(out)

	s.advance(ctx, run, StageEncoding)
	if err := s.encode(ctx, in.Path(), out.Path()); err != nil {
		return "", err
	}

	s.advance(ctx, run, StageRestaged)
	result, err := os.Open(out.Path())
	if err != nil {
		return "", fmt.Errorf("%w: reading output: %w", common.ErrorIO, err)
	}
	defer result.Close()

	info, err := result.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: reading output: %w", common.ErrorIO, err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: encoder produced no output", common.ErrorEncode)
	}

	s.advance(ctx, run, StageStoring)
	key, err = s.keys.Derive(email, OutputName(sourceFilename, profile.Extension()))
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, key, result, profile.ContentType()); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	s.advance(ctx, run, StageDone)
	s.logger.Info(ctx, "Transcode stored", "source", run.source, "key", key, "bytes", info.Size())
	return key, nil
}

// encode waits for a free encoder slot and runs the encoder. Waiting gives
// up when ctx is done.
func (s *TranscodeService) encode(ctx context.Context, in, out string) error {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for encoder: %w", err)
	}
	defer s.slots.Release(1)

	if s.metrics != nil {
		s.metrics.inFlight.Inc()
		defer s.metrics.inFlight.Dec()
	}

	start := time.Now()
	err := s.encoder.Encode(ctx, in, out)
	if s.metrics != nil {
		s.metrics.encodeDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorEncode, err)
	}
	return nil
}

func (s *TranscodeService) advance(ctx context.Context, run *transcodeRun, next TranscodeStage) {
	s.logger.Debug(ctx, "Transcode stage", "from", run.stage, "to", next, "email", run.email)
	run.stage = next
}

// cleanup releases every scratch file of run. Files that are already gone
// count as released; other failures are logged and do not change the result.
func (s *TranscodeService) cleanup(ctx context.Context, run *transcodeRun) {
	for i := len(run.releases) - 1; i >= 0; i-- {
		f := run.releases[i]
		if err := f.Release(); err != nil {
			s.logger.Warn(ctx, "Error removing scratch file", "path", f.Path(), "error", err)
		}
	}
	run.releases = nil
}

func validateSourceFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: filename is required", common.ErrorValidation)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: filename must not contain path separators", common.ErrorValidation)
	}
	return nil
}
