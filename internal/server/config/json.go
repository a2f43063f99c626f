package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/blobgate/internal/flagx"
	"github.com/dmitrijs2005/blobgate/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Pointer fields
// distinguish "absent" from "zero", so a partial file only overrides what it
// names.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	PasswordCost                *int            `json:"password_cost"`

	BlobBackend    *string `json:"blob_backend"`
	S3RootUser     *string `json:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`
	S3UsePathStyle *bool   `json:"s3_use_path_style"`

	ScratchDir *string      `json:"scratch_dir"`
	Encoder    *JsonEncoder `json:"encoder"`

	MaxConcurrentTranscodes *int            `json:"max_concurrent_transcodes"`
	ShutdownTimeout         *timex.Duration `json:"shutdown_timeout"`
	LogLevel                *string         `json:"log_level"`
}

// JsonEncoder groups the external encoder settings.
type JsonEncoder struct {
	Binary     *string `json:"binary"`
	VideoCodec *string `json:"video_codec"`
	AudioCodec *string `json:"audio_codec"`
	Container  *string `json:"container"`
	Quality    *int    `json:"quality"`
	Preset     *string `json:"preset"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJson overlays the file named by -c/-config onto config. Without the
// flag nothing happens. An unreadable or malformed file panics: the process
// must not start on a half-applied configuration.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	set(&config.PasswordCost, c.PasswordCost)

	set(&config.BlobBackend, c.BlobBackend)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.S3UsePathStyle, c.S3UsePathStyle)

	set(&config.ScratchDir, c.ScratchDir)
	if e := c.Encoder; e != nil {
		set(&config.EncoderBinary, e.Binary)
		set(&config.EncoderVideoCodec, e.VideoCodec)
		set(&config.EncoderAudioCodec, e.AudioCodec)
		set(&config.EncoderContainer, e.Container)
		set(&config.EncoderQuality, e.Quality)
		set(&config.EncoderPreset, e.Preset)
	}

	set(&config.MaxConcurrentTranscodes, c.MaxConcurrentTranscodes)
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	set(&config.LogLevel, c.LogLevel)
}
