package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/blobgate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3001")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-k int      bcrypt cost
//	-m string   blob backend: s3 or memory
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-w string   scratch directory
//	-x string   encoder binary
//	-j int      max concurrent transcodes
//	-l string   log level
//
// The encode profile itself is only configurable through the JSON file.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{
		"-a", "-d", "-s", "-t", "-k", "-m", "-u", "-p", "-b", "-g", "-e", "-w", "-x", "-j", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.IntVar(&config.PasswordCost, "k", config.PasswordCost, "bcrypt cost")

	fs.StringVar(&config.BlobBackend, "m", config.BlobBackend, "blob backend (s3|memory)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 access key")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.ScratchDir, "w", config.ScratchDir, "scratch directory")
	fs.StringVar(&config.EncoderBinary, "x", config.EncoderBinary, "encoder binary")
	fs.IntVar(&config.MaxConcurrentTranscodes, "j", config.MaxConcurrentTranscodes, "max concurrent transcodes")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		}
	})
}
