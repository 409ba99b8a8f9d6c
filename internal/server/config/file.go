package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inkwell-blog/inkwell/internal/flagx"
)

// Duration accepts either a Go duration string ("24h") or an integer number
// of nanoseconds in JSON and YAML config files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = parsed
	case float64:
		d.Duration = time.Duration(val)
	case int:
		d.Duration = time.Duration(val)
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// FileConfig is the on-disk shape of a config file. Only keys present in the
// file override the current values.
type FileConfig struct {
	ListenAddr             *string   `json:"listen_addr" yaml:"listen_addr"`
	DatabaseDSN            *string   `json:"database_dsn" yaml:"database_dsn"`
	SecretKey              *string   `json:"secret_key" yaml:"secret_key"`
	SessionDuration        *Duration `json:"session_duration" yaml:"session_duration"`
	AdminUserID            *int64    `json:"admin_user_id" yaml:"admin_user_id"`
	LogFormat              *string   `json:"log_format" yaml:"log_format"`
	SMTPAddr               *string   `json:"smtp_addr" yaml:"smtp_addr"`
	SMTPUser               *string   `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword           *string   `json:"smtp_password" yaml:"smtp_password"`
	S3AccessKey            *string   `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey            *string   `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Bucket               *string   `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region               *string   `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint         *string   `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3PublicBaseURL        *string   `json:"s3_public_base_url" yaml:"s3_public_base_url"`
	RateLimit              *float64  `json:"rate_limit" yaml:"rate_limit"`
	RateBurst              *int      `json:"rate_burst" yaml:"rate_burst"`
	SessionCleanupSchedule *string   `json:"session_cleanup_schedule" yaml:"session_cleanup_schedule"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are read as YAML, anything else as JSON. A missing flag means
// no file; an unreadable or malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, fc)
	default:
		err = json.Unmarshal(raw, fc)
	}
	if err != nil {
		panic(fmt.Errorf("config file %s: %w", path, err))
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	if fc.SessionDuration != nil {
		c.SessionDuration = fc.SessionDuration.Duration
	}
	if fc.AdminUserID != nil {
		c.AdminUserID = *fc.AdminUserID
	}
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.SMTPAddr, fc.SMTPAddr)
	setString(&c.SMTPUser, fc.SMTPUser)
	setString(&c.SMTPPassword, fc.SMTPPassword)
	setString(&c.S3AccessKey, fc.S3AccessKey)
	setString(&c.S3SecretKey, fc.S3SecretKey)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.S3PublicBaseURL, fc.S3PublicBaseURL)
	if fc.RateLimit != nil {
		c.RateLimit = *fc.RateLimit
	}
	if fc.RateBurst != nil {
		c.RateBurst = *fc.RateBurst
	}
	setString(&c.SessionCleanupSchedule, fc.SessionCleanupSchedule)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
