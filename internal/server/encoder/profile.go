// Package encoder drives the external media encoder used by the transcode
// pipeline.
package encoder

import (
	"strconv"
	"strings"
)

// Profile is the fixed set of encode parameters applied to every job.
type Profile struct {
	VideoCodec string
	AudioCodec string
	Container  string
	Quality    int
	Preset     string
}

var containerContentTypes = map[string]string{
	"mp4":      "video/mp4",
	"mov":      "video/quicktime",
	"mkv":      "video/x-matroska",
	"matroska": "video/x-matroska",
	"webm":     "video/webm",
	"mp3":      "audio/mpeg",
	"ogg":      "audio/ogg",
}

// Extension is the file extension for the profile's container, with a
// leading dot.
func (p Profile) Extension() string {
	c := strings.ToLower(strings.TrimPrefix(p.Container, "."))
	if c == "matroska" {
		c = "mkv"
	}
	if c == "" {
		return ""
	}
	return "." + c
}

// ContentType of the encoder output.
func (p Profile) ContentType() string {
	if ct, ok := containerContentTypes[strings.ToLower(strings.TrimPrefix(p.Container, "."))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Args builds the encoder command line for one job.
func (p Profile) Args(in, out string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", in}
	if p.VideoCodec != "" {
		args = append(args, "-c:v", p.VideoCodec)
	}
	if p.AudioCodec != "" {
		args = append(args, "-c:a", p.AudioCodec)
	}
	if p.Quality > 0 {
		args = append(args, "-crf", strconv.Itoa(p.Quality))
	}
	if p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	if p.Container != "" {
		args = append(args, "-f", p.Container)
	}
	return append(args, out)
}
