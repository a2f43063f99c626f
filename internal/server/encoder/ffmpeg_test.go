package encoder

import (
	"context"
	"os/exec"
	"testing"

	"github.com/dmitrijs2005/blobgate/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookPath(t *testing.T, name string) string {
	t.Helper()
	p, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return p
}

func TestFFmpeg_EncodeSuccess(t *testing.T) {
	f := NewFFmpeg(lookPath(t, "true"), Profile{Container: "mp4"}, logging.Nop{})
	assert.NoError(t, f.Encode(context.Background(), "in", "out"))
}

func TestFFmpeg_EncodeNonZeroExit(t *testing.T) {
	f := NewFFmpeg(lookPath(t, "false"), Profile{Container: "mp4"}, logging.Nop{})

	err := f.Encode(context.Background(), "in", "out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 1")
}

func TestFFmpeg_MissingBinary(t *testing.T) {
	f := NewFFmpeg("/nonexistent/encoder-binary", Profile{}, logging.Nop{})

	err := f.Encode(context.Background(), "in", "out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run encoder")
}

func TestFFmpeg_Cancelled(t *testing.T) {
	f := NewFFmpeg(lookPath(t, "true"), Profile{}, logging.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Encode(ctx, "in", "out")
	require.ErrorIs(t, err, context.Canceled)
}

func TestFFmpeg_Profile(t *testing.T) {
	p := Profile{VideoCodec: "libx265", Quality: 28}
	assert.Equal(t, p, NewFFmpeg("ffmpeg", p, logging.Nop{}).Profile())
}
