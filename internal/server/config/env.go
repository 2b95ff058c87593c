package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envPrefix namespaces every environment variable read by parseEnv.
const envPrefix = "DEALFLOW_"

// parseEnv loads an optional .env file from the working directory and then
// overlays any DEALFLOW_* variables that are set. Malformed durations and
// booleans are ignored so a typo never hides a good default.
func parseEnv(c *Config) {
	_ = godotenv.Load()

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("HTTP_ADDR", &c.EndpointAddrHTTP)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("SECRET_KEY", &c.SecretKey)
	dur("ACCESS_TOKEN_TTL", &c.AccessTokenValidityDuration)
	dur("REFRESH_TOKEN_TTL", &c.RefreshTokenValidityDuration)
	str("S3_ROOT_USER", &c.S3RootUser)
	str("S3_ROOT_PASSWORD", &c.S3RootPassword)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	dur("PRESIGN_TTL", &c.PresignValidityDuration)
	str("MAIL_API_BASE_URL", &c.MailAPIBaseURL)
	str("MAIL_API_KEY", &c.MailAPIKey)
	str("MAIL_FROM", &c.MailFrom)
	str("PUBLIC_BASE_URL", &c.PublicBaseURL)
	str("REDIS_ADDR", &c.RedisAddr)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	boolean("RUN_MIGRATIONS", &c.RunMigrations)
	dur("SAFE_TOKEN_TTL", &c.SafeWorkflow.TTL)
	boolean("SAFE_ENFORCE_LOCK", &c.SafeWorkflow.EnforceLockOnSign)
	dur("NOTE_TOKEN_TTL", &c.NoteWorkflow.TTL)
	boolean("NOTE_ENFORCE_LOCK", &c.NoteWorkflow.EnforceLockOnSign)

	if v, ok := os.LookupEnv(envPrefix + "CORS_ORIGINS"); ok {
		c.CORSAllowedOrigins = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
