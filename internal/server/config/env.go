package config

// parseEnv applies the environment variables the deployment scripts export.
// lookup is os.LookupEnv outside of tests.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	str := func(dst *string, name string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	str(&config.EndpointAddrHTTP, "BLOBGATE_ADDR")
	str(&config.DatabaseDSN, "DATABASE_DSN")
	str(&config.SecretKey, "BLOBGATE_SECRET_KEY")
	str(&config.S3RootUser, "AWS_ACCESS_KEY_ID")
	str(&config.S3RootPassword, "AWS_SECRET_ACCESS_KEY")
	str(&config.S3Region, "AWS_REGION")
	str(&config.S3Bucket, "S3_BUCKET")
	str(&config.S3BaseEndpoint, "S3_ENDPOINT")
	str(&config.LogLevel, "LOG_LEVEL")
}
