// Package config handles configuration for the blog server, layering
// defaults, an optional JSON/YAML file, the environment (including a .env
// file) and command-line flags, in that order.
package config

import "time"

// Config holds runtime settings for the inkwell server.
//
// Fields:
//   - ListenAddr: bind address of the HTTP server.
//   - DatabaseDSN: postgres:// URL (pgx) or sqlite path/URL (modernc).
//   - SecretKey: HMAC secret for signing session cookies. Empty means a random per-process key.
//   - SessionDuration: lifetime of a login session.
//   - AdminUserID: id of the single administrator (the first-created user).
//   - LogFormat: json, text or zap.
//   - SMTPAddr / SMTPUser / SMTPPassword: mail relay used by the contact form.
//   - S3*: object storage for post cover images.
//   - RateLimit / RateBurst: per-client budget for login, register and contact posts.
//   - SessionCleanupSchedule: cron spec for purging expired sessions.
type Config struct {
	ListenAddr             string
	DatabaseDSN            string
	SecretKey              string
	SessionDuration        time.Duration
	AdminUserID            int64
	LogFormat              string
	SMTPAddr               string
	SMTPUser               string
	SMTPPassword           string
	S3AccessKey            string
	S3SecretKey            string
	S3Bucket               string
	S3Region               string
	S3BaseEndpoint         string
	S3PublicBaseURL        string
	RateLimit              float64
	RateBurst              int
	SessionCleanupSchedule string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the SMTP and S3 credentials are placeholders and must be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":5000"
	c.DatabaseDSN = "sqlite:///blog.db"
	c.SecretKey = ""
	c.SessionDuration = 24 * time.Hour
	c.AdminUserID = 1
	c.LogFormat = "json"
	c.SMTPAddr = "smtp.gmail.com:587"
	c.SMTPUser = ""
	c.SMTPPassword = ""
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "covers"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3PublicBaseURL = "http://127.0.0.1:9000/covers/"
	c.RateLimit = 1
	c.RateBurst = 5
	c.SessionCleanupSchedule = "@every 1h"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
