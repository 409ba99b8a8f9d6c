package config

import (
	"errors"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// envConfig lists the environment variables understood by the server. The
// names match the ones the blog has always been deployed with.
type envConfig struct {
	ListenAddr      string        `env:"LISTEN_ADDR"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	SecretKey       string        `env:"APP_SECRET_KEY"`
	SessionDuration time.Duration `env:"SESSION_DURATION"`
	LogFormat       string        `env:"LOG_FORMAT"`
	SMTPAddr        string        `env:"SMTP_ADDR"`
	MailUser        string        `env:"MY_EMAIL"`
	MailPassword    string        `env:"PASSWORD"`
	S3AccessKey     string        `env:"S3_ACCESS_KEY"`
	S3SecretKey     string        `env:"S3_SECRET_KEY"`
	S3Bucket        string        `env:"S3_BUCKET"`
	S3Region        string        `env:"S3_REGION"`
	S3BaseEndpoint  string        `env:"S3_BASE_ENDPOINT"`
	S3PublicBaseURL string        `env:"S3_PUBLIC_BASE_URL"`
}

// dotenvPath is the file loaded into the process environment before decoding.
var dotenvPath = ".env"

// parseEnv overlays values from the environment. A .env file in the working
// directory is loaded first if present; variables already set win over it.
func parseEnv(config *Config) {
	_ = godotenv.Load(dotenvPath)

	var ec envConfig
	if err := envdecode.Decode(&ec); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return
		}
		panic(err)
	}

	ec.apply(config)
}

func (ec *envConfig) apply(c *Config) {
	setNonEmpty(&c.ListenAddr, ec.ListenAddr)
	setNonEmpty(&c.DatabaseDSN, ec.DatabaseURL)
	setNonEmpty(&c.SecretKey, ec.SecretKey)
	if ec.SessionDuration > 0 {
		c.SessionDuration = ec.SessionDuration
	}
	setNonEmpty(&c.LogFormat, ec.LogFormat)
	setNonEmpty(&c.SMTPAddr, ec.SMTPAddr)
	setNonEmpty(&c.SMTPUser, ec.MailUser)
	setNonEmpty(&c.SMTPPassword, ec.MailPassword)
	setNonEmpty(&c.S3AccessKey, ec.S3AccessKey)
	setNonEmpty(&c.S3SecretKey, ec.S3SecretKey)
	setNonEmpty(&c.S3Bucket, ec.S3Bucket)
	setNonEmpty(&c.S3Region, ec.S3Region)
	setNonEmpty(&c.S3BaseEndpoint, ec.S3BaseEndpoint)
	setNonEmpty(&c.S3PublicBaseURL, ec.S3PublicBaseURL)
}

func setNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
