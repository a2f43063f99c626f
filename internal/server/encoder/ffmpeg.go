package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dmitrijs2005/blobgate/internal/logging"
)

// Encoder turns the file at in into the file at out.
type Encoder interface {
	Encode(ctx context.Context, in, out string) error
	Profile() Profile
}

// maxStderr bounds how much encoder diagnostics end up in an error.
const maxStderr = 4096

// FFmpeg runs an ffmpeg-compatible binary as a child process. The process is
// killed when ctx is cancelled.
type FFmpeg struct {
	binary  string
	profile Profile
	logger  logging.Logger
}

func NewFFmpeg(binary string, profile Profile, logger logging.Logger) *FFmpeg {
	return &FFmpeg{
		binary:  binary,
		profile: profile,
		logger:  logger.With("module", "encoder", "binary", binary),
	}
}

func (f *FFmpeg) Profile() Profile {
	return f.profile
}

func (f *FFmpeg) Encode(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, f.binary, f.profile.Args(in, out)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[len(msg)-maxStderr:]
		}
		f.logger.Error(ctx, "Encoder failed", "in", in, "elapsed", elapsed, "error", err, "stderr", msg)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("encoder interrupted: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("encoder exited with code %d: %s", exitErr.ExitCode(), msg)
		}
		return fmt.Errorf("run encoder: %w", err)
	}

	f.logger.Debug(ctx, "Encoder finished", "in", in, "out", out, "elapsed", elapsed)
	return nil
}
